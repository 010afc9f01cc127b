package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	internalcli "github.com/spinframework/spin-cli/internal/cli"
	"github.com/spinframework/spin-cli/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Load config
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config error: %v\n", err)
		cfg = config.DefaultConfig()
	}
	cfg.ApplyEnvOverrides()

	// Find --verbose in args (simple scan before cobra parsing)
	level := slog.LevelWarn
	for _, arg := range os.Args {
		if arg == "--verbose" {
			level = slog.LevelDebug
		}
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	root := internalcli.NewRootCommand(cfg, logger)
	root.PersistentFlags().Bool("verbose", false, "Enable verbose logging")

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
