package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rovshanmuradov/datatrade/internal/cli"
)

// Shorthand for `datatrade tui`.
func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	// Create context with signal handling
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(rootCtx, []string{"tui", "--config", *configPath}); err != nil {
		os.Exit(1)
	}
}
