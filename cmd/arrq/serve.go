package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vmunix/arrq/internal/config"
	"github.com/vmunix/arrq/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the arrq server",
	Long: `Runs the queue server until interrupted.

The config file is taken from --config, then $ARRQ_CONFIG, then
./config.toml, the XDG config directory and /etc/arrq/config.toml.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to config.toml")
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func resolveConfigPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return config.Discover()
}

func runServe(cmd *cobra.Command, args []string) error {
	flag, _ := cmd.Flags().GetString("config")
	path, err := resolveConfigPath(flag)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	db, err := server.OpenDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("config loaded", "path", path)
	return server.NewRunner(db, cfg, logger).Run(ctx)
}
