package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var cfg *Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "upsctl",
		Short: "Client for the rock-paper-scissors game server",
		Long: `upsctl talks the server's pipe-delimited TCP protocol.

It can play best-of-three matches interactively and query the server's
view of a session for debugging.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.Addr, "addr", cfg.Addr, "Server address (env: UPSCTL_ADDR)")
	rootCmd.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Dial timeout")

	rootCmd.AddCommand(newPlayCmd())
	rootCmd.AddCommand(newStateCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
