package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rsbalchii/anchoros/internal/engine"
)

var (
	searchBuckets    []string
	searchTags       []string
	searchMaxChars   int
	searchProvenance string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run the Tag-Walker search pipeline over a query",
	Long: `Runs anchor-match -> tag-walk -> score -> dedup over the stored
atoms and prints the inflated context followed by the ranked result
list.

Example:
  anchoros search "rocket launch" --bucket work --max-chars 4000`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var moleculeSearchCmd = &cobra.Command{
	Use:   "molecule-search <query>",
	Short: "Run search per sentence of query and union the results",
	Args:  cobra.ExactArgs(1),
	RunE:  runMoleculeSearch,
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, moleculeSearchCmd} {
		c.Flags().StringSliceVar(&searchBuckets, "bucket", nil, "Restrict to these buckets (repeatable)")
		c.Flags().StringSliceVar(&searchTags, "tags", nil, "Explicit tags seeding the walk (repeatable)")
		c.Flags().IntVar(&searchMaxChars, "max-chars", 0, "Context budget in characters (0 = config default)")
	}
	searchCmd.Flags().StringVar(&searchProvenance, "provenance", "", "Filter by provenance: internal or external")
}

func runSearch(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer e.Close()

	ctx, cancel := withTimeout(cmd)
	defer cancel()

	resp, err := e.Search(ctx, engine.SearchRequest{
		Query:      args[0],
		Buckets:    searchBuckets,
		Tags:       searchTags,
		MaxChars:   orDefault(searchMaxChars, e.Cfg.SearchDefaultMaxChars),
		Provenance: searchProvenance,
	})
	if err != nil {
		exitWithKind(err)
		return nil
	}
	printSearchResponse(resp)
	return nil
}

func runMoleculeSearch(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer e.Close()

	ctx, cancel := withTimeout(cmd)
	defer cancel()

	resp, err := e.MoleculeSearch(ctx, args[0], orDefault(searchMaxChars, e.Cfg.SearchDefaultMaxChars))
	if err != nil {
		exitWithKind(err)
		return nil
	}
	printSearchResponse(resp)
	return nil
}

func printSearchResponse(resp engine.SearchResponse) {
	if len(resp.Results) == 0 {
		fmt.Println("no results")
		return
	}
	if resp.Context != "" {
		fmt.Println(strings.TrimRight(resp.Context, "\n"))
		fmt.Println("---")
	}
	for _, r := range resp.Results {
		fmt.Printf("%.3f  %-8s  %-10s  %s\n", r.Score, r.Bucket, r.Provenance, r.Source)
	}
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	baseCtx := cmd.Context()
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return context.WithTimeout(baseCtx, opTimeout)
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
