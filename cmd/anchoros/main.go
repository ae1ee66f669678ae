// Package main implements the anchoros CLI, a cobra-rooted binary over
// the internal/engine boundary: ingest, search, watch, and admin
// subcommands, each a thin wrapper that boots an Engine, dispatches one
// boundary operation, and prints the result.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rsbalchii/anchoros/internal/config"
	"github.com/rsbalchii/anchoros/internal/engine"
	"github.com/rsbalchii/anchoros/internal/logging"
)

var (
	rootDir     string
	verbose     bool
	opTimeout   time.Duration
	concurrency int
)

var rootCmd = &cobra.Command{
	Use:   "anchoros",
	Short: "anchoros - local-first tagged memory store",
	Long: `anchoros ingests files into a tag-indexed SQLite store and answers
retrieval queries over it (the Tag-Walker search pipeline).

Run "anchoros watch" to keep ingesting in the foreground until interrupted, or use the
one-shot ingest/search subcommands directly.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		abs, err := filepath.Abs(rootDir)
		if err != nil {
			return fmt.Errorf("resolve root: %w", err)
		}
		rootDir = abs

		cfg, err := config.Load(rootDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logCfg := logging.Config{
			DebugMode:  cfg.Logging.DebugMode || verbose,
			Categories: cfg.Logging.Categories,
			Level:      cfg.Logging.Level,
			JSONFormat: cfg.Logging.JSONFormat,
			LogDir:     cfg.Logging.LogDir,
		}
		if verbose && logCfg.Level == "" {
			logCfg.Level = "debug"
		}
		if err := logging.Initialize(rootDir, &logCfg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", ".", "Workspace root directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging")
	rootCmd.PersistentFlags().DurationVar(&opTimeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "Ingest concurrency cap (0 = default)")

	rootCmd.AddCommand(
		ingestCmd,
		searchCmd,
		moleculeSearchCmd,
		watchCmd,
		bucketsCmd,
		tagsCmd,
		watchPathCmd,
		quarantineCmd,
		restoreCmd,
		updateContentCmd,
		infectorCmd,
		serveCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openEngine boots an Engine rooted at rootDir; every subcommand shares
// this one bootstrap path.
func openEngine() (*engine.Engine, error) {
	return engine.Open(rootDir, concurrency)
}

// exitWithKind prints err and exits with a status code that distinguishes
// a caller mistake (ValidationError/NotFoundError) from an internal
// failure, matching the boundary's error-kind taxonomy.
func exitWithKind(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	var ee *engine.Error
	if as(err, &ee) && (ee.Kind == engine.KindValidation || ee.Kind == engine.KindNotFound) {
		os.Exit(2)
	}
	os.Exit(1)
}

// as is a minimal errors.As for *engine.Error, avoiding a second import
// of "errors" purely for one type switch.
func as(err error, target **engine.Error) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*engine.Error); ok {
			*target = e
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
