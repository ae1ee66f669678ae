package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchExtraPaths []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the ingest scheduler in the foreground until interrupted",
	Long: `Starts the filesystem watcher over inbox/, external-inbox/, and any
configured extra paths, ingesting stable files as they settle. Blocks
until SIGINT/SIGTERM.

Example:
  anchoros watch --path ./notes-sync`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchExtraPaths, "path", nil, "Additional directory to watch (repeatable, persisted)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer e.Close()

	for _, p := range watchExtraPaths {
		if err := e.AddWatchPath(p); err != nil {
			return fmt.Errorf("add watch path %s: %w", p, err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := e.StartWatching(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	fmt.Println("watching", e.Root, "- press ctrl-c to stop")
	<-ctx.Done()
	fmt.Println("stopping")
	return nil
}
