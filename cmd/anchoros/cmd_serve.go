package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rsbalchii/anchoros/internal/httpapi"
)

var (
	serveHost string
	servePort int
	serveKey  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP boundary façade, also watching for ingest",
	Long: `Starts the thin net/http façade over the engine boundary
(ingest/search/molecule_search/buckets/tags/watch_paths/atom lifecycle)
alongside the filesystem watcher. Blocks until SIGINT/SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (default 127.0.0.1)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default 8787)")
	serveCmd.Flags().StringVar(&serveKey, "api-key", "", "Require this bearer token on every request")
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer e.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := e.StartWatching(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	serverCfg := e.Cfg.Server
	if serveHost != "" {
		serverCfg.Host = serveHost
	}
	if servePort != 0 {
		serverCfg.Port = servePort
	}
	if serveKey != "" {
		serverCfg.APIKey = serveKey
	}

	srv := httpapi.New(e, serverCfg)
	fmt.Println("serving", e.Root, "- press ctrl-c to stop")
	return srv.ListenAndServe(ctx)
}
