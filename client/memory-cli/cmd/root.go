package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

type options struct {
	server string
	token  string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "memory-cli",
		Short: "A CLI client for the memory service",
		Long: `A command-line interface to inspect the context a user's next session will
start with, and to erase memory on a user's request. The token must either
belong to that user or carry the operator role.`,
		SilenceUsage: true,
	}

	server := os.Getenv("MEMORY_SERVICE_URL")
	if server == "" {
		server = defaultServer
	}
	rootCmd.PersistentFlags().StringVar(&opts.server, "server", server, "memory service base URL (env MEMORY_SERVICE_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("MEMORY_SERVICE_TOKEN"), "bearer token (env MEMORY_SERVICE_TOKEN)")

	rootCmd.AddCommand(newContextCmd(opts), newEraseCmd(opts))
	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
