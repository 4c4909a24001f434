package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/arrq/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configTestCmd = &cobra.Command{
	Use:   "test [path]",
	Short: "Validate configuration file",
	Long:  "Validates config.toml syntax, required fields, and environment variable substitution without starting the server.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigTest,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show which config file would be used",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Discover()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configTestCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	var flag string
	if len(args) > 0 {
		flag = args[0]
	}
	path, err := resolveConfigPath(flag)
	if err != nil {
		return err
	}

	fmt.Printf("Validating %s...\n\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		var configErr *config.ConfigError
		if errors.As(err, &configErr) {
			printConfigErrors(configErr)
			return fmt.Errorf("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	printConfigSummary(cfg)
	fmt.Println("\nConfiguration valid!")
	return nil
}

func printConfigErrors(e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Println("Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Printf("  - %s\n", m)
		}
		fmt.Println()
	}

	if len(e.Errors) > 0 {
		fmt.Println("Validation errors:")
		for _, err := range e.Errors {
			fmt.Printf("  - %s\n", err)
		}
		fmt.Println()
	}
}

func printConfigSummary(cfg *config.Config) {
	fmt.Println("Configuration Summary:")
	fmt.Printf("  Server:      %s:%d (log: %s)\n", cfg.Server.Host, cfg.Server.Port, cfg.Server.LogLevel)
	fmt.Printf("  Database:    %s\n", cfg.Database.Path)
	fmt.Printf("  Reconcile:   every %s (grace %s)\n", cfg.Queue.ReconcileInterval, cfg.Queue.GracePeriod)
	fmt.Printf("  Pending:     %s\n", cfg.Pending.SweepSchedule)

	downloaders := make([]string, 0, len(cfg.Downloaders))
	for name, dc := range cfg.Downloaders {
		if dc != nil {
			downloaders = append(downloaders, fmt.Sprintf("%s (%s)", name, dc.Type))
		}
	}
	slices.Sort(downloaders)
	if len(downloaders) > 0 {
		fmt.Printf("  Downloaders: %s\n", strings.Join(downloaders, ", "))
	}

	if len(cfg.Quality.Order) > 0 {
		fmt.Printf("  Qualities:   %s\n", strings.Join(cfg.Quality.Order, " < "))
	}
	if cfg.Notifications.WebSocket {
		fmt.Println("  Websocket:   enabled")
	}
}
