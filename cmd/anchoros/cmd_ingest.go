package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var ingestBucket string

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Ingest a single file into the store",
	Long: `Reads the file at path and runs it through the dedup -> atomize ->
persist pipeline once. Re-ingesting unchanged bytes is a no-op.

Example:
  anchoros ingest ./inbox/personal/journal.md`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestBucket, "bucket", "", "Override the path-derived bucket")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer e.Close()

	baseCtx := cmd.Context()
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithTimeout(baseCtx, opTimeout)
	defer cancel()

	result, err := e.Ingest(ctx, path, raw, ingestBucket)
	if err != nil {
		exitWithKind(err)
		return nil
	}

	fmt.Printf("%s: %s", path, result.Status)
	if result.ID != "" {
		fmt.Printf(" (id=%s)", result.ID)
	}
	if result.Message != "" {
		fmt.Printf(" - %s", result.Message)
	}
	fmt.Println()
	return nil
}
