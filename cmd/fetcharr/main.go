// Package main is the entrypoint of fetcharr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fetcharr/internal/cfg"
	"fetcharr/internal/domain/paths"
	"fetcharr/internal/utils/logging"
)

func main() {
	startTime := time.Now()

	if err := paths.InitProgFilesDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "fetcharr exiting with error: %v\n", err)
		os.Exit(1)
	}

	// Cancelled on interrupt; running downloads are terminated on the way out
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if err := cfg.InitCommands(ctx); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	runErr := cfg.Execute(ctx)
	cancel()

	if runErr != nil {
		logging.E("Error: %v", runErr)
		os.Exit(1)
	}
	logging.D(1, "fetcharr finished in %v", time.Since(startTime).Round(time.Millisecond))
}
