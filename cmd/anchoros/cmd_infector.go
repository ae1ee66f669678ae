package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rsbalchii/anchoros/internal/infector"
)

var infectorCmd = &cobra.Command{
	Use:   "infector",
	Short: "Tag Infector convergence pass",
}

var infectorRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full re-tag convergence pass over every stored atom",
	Long: `Walks every stored atom in cursor-paginated batches, re-runs the
keyword catalog against each one, and upserts any tags the catalog has
gained since the atom was first ingested. Idempotent: a second run with
an unchanged catalog adds nothing.`,
	RunE: runInfector,
}

func init() {
	infectorCmd.AddCommand(infectorRunCmd)
}

func runInfector(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer e.Close()

	ctx, cancel := withTimeout(cmd)
	defer cancel()

	inf := infector.New(e.Store, e.Extractor)
	stats, err := inf.Run(ctx)
	if err != nil {
		return fmt.Errorf("infector run: %w", err)
	}
	fmt.Printf("visited %d atoms, added %d tags\n", stats.AtomsVisited, stats.TagsAdded)
	return nil
}
