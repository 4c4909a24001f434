package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	serverURL  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "arrq",
	Short: "Download queue and tracked-download manager",
	Long: `arrq - download queue and tracked-download manager

Watches download clients, keeps the queue of tracked and pending
releases, and removes, blocklists or recategorizes items on request.

Run 'arrq serve' to start the server.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8484", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("arrq {{.Version}}\n")
}
