package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmunix/arrq/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write an example config file",
	Long:  "Writes an example config.toml to path, or to the XDG config directory when no path is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing config")
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	path := config.DefaultPath()
	if len(args) > 0 {
		path = args[0]
	}

	if err := config.WriteDefault(path, force); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Edit the [downloaders] section, then run 'arrq serve'.")
	return nil
}
