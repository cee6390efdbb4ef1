package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newPlayCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play matches interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			client, err := Dial(cfg.Addr, cfg.Timeout)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Send("REQ_LOGIN", name); err != nil {
				return err
			}

			// Server pushes arrive at any time, not just after our own
			// requests, so they get their own goroutine
			go func() {
				for {
					ev, err := client.Next()
					if err != nil {
						fmt.Println("connection closed")
						os.Exit(0)
					}
					fmt.Println(render(ev))
				}
			}()

			fmt.Println("commands: create <lobby>, join <lobby>, r/p/s, rematch, leave, state, quit")

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				fields := strings.Fields(scanner.Text())
				if len(fields) == 0 {
					continue
				}

				var err error
				switch strings.ToLower(fields[0]) {
				case "create":
					if len(fields) < 2 {
						fmt.Println("usage: create <lobby>")
						continue
					}
					err = client.Send("REQ_CREATE_LOBBY", fields[1])
				case "join":
					if len(fields) < 2 {
						fmt.Println("usage: join <lobby>")
						continue
					}
					err = client.Send("REQ_JOIN_LOBBY", fields[1])
				case "r", "p", "s":
					err = client.Send("REQ_MOVE", strings.ToUpper(fields[0]))
				case "rematch":
					err = client.Send("REQ_REMATCH")
				case "leave":
					err = client.Send("REQ_LEAVE_LOBBY")
				case "state":
					err = client.Send("REQ_STATE")
				case "quit":
					_ = client.Send("REQ_LOGOUT")
					return nil
				default:
					fmt.Printf("unknown command %q\n", fields[0])
					continue
				}
				if err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name to log in with (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
