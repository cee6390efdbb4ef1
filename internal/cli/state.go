package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Query the server's view of a session",
		Long: `Connects, optionally logs in under --name, and prints the server's
debug snapshot for the session. Without --name the snapshot covers an
unauthenticated connection.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := Dial(cfg.Addr, cfg.Timeout)
			if err != nil {
				return err
			}
			defer client.Close()

			if name != "" {
				if err := client.Send("REQ_LOGIN", name); err != nil {
					return err
				}
				ev, err := client.Next()
				if err != nil {
					return err
				}
				if ev.Tag != "RES_LOGIN_OK" {
					return fmt.Errorf("login failed: %s", render(ev))
				}
			}

			if err := client.Send("REQ_STATE"); err != nil {
				return err
			}
			ev, err := client.Next()
			if err != nil {
				return err
			}
			fmt.Println(render(ev))

			if name != "" {
				_ = client.Send("REQ_LOGOUT")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Log in under this name before querying")

	return cmd
}
