package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var tagsFilterBuckets []string

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "List every distinct bucket currently stored",
	RunE:  runBuckets,
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List every distinct tag currently stored",
	RunE:  runTags,
}

func init() {
	tagsCmd.Flags().StringSliceVar(&tagsFilterBuckets, "bucket", nil, "Restrict to these buckets (repeatable)")
}

func runBuckets(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer e.Close()

	ctx, cancel := withTimeout(cmd)
	defer cancel()

	buckets, err := e.ListBuckets(ctx)
	if err != nil {
		exitWithKind(err)
		return nil
	}
	for _, b := range buckets {
		fmt.Println(b)
	}
	return nil
}

func runTags(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer e.Close()

	ctx, cancel := withTimeout(cmd)
	defer cancel()

	tags, err := e.ListTags(ctx, tagsFilterBuckets)
	if err != nil {
		exitWithKind(err)
		return nil
	}
	for _, tag := range tags {
		fmt.Println(tag)
	}
	return nil
}

var watchPathCmd = &cobra.Command{
	Use:   "watch-path",
	Short: "Manage persisted extra watch paths",
}

var watchPathAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Add a directory to the watch set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return fmt.Errorf("open engine: %w", err)
		}
		defer e.Close()
		if err := e.AddWatchPath(args[0]); err != nil {
			exitWithKind(err)
			return nil
		}
		fmt.Println("added", args[0])
		return nil
	},
}

var watchPathRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Remove a directory from the watch set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return fmt.Errorf("open engine: %w", err)
		}
		defer e.Close()
		if err := e.RemoveWatchPath(args[0]); err != nil {
			exitWithKind(err)
			return nil
		}
		fmt.Println("removed", args[0])
		return nil
	},
}

var watchPathListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted extra watch paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return fmt.Errorf("open engine: %w", err)
		}
		defer e.Close()
		paths, err := e.ListWatchPaths()
		if err != nil {
			exitWithKind(err)
			return nil
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	watchPathCmd.AddCommand(watchPathAddCmd, watchPathRemoveCmd, watchPathListCmd)
}

var quarantineCmd = &cobra.Command{
	Use:   "quarantine <id>",
	Short: "Exclude a compound from search without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return fmt.Errorf("open engine: %w", err)
		}
		defer e.Close()
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		if err := e.QuarantineAtom(ctx, args[0]); err != nil {
			exitWithKind(err)
			return nil
		}
		fmt.Println("quarantined", args[0])
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Reverse a prior quarantine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return fmt.Errorf("open engine: %w", err)
		}
		defer e.Close()
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		if err := e.RestoreAtom(ctx, args[0]); err != nil {
			exitWithKind(err)
			return nil
		}
		fmt.Println("restored", args[0])
		return nil
	},
}

var updateContentFile string

var updateContentCmd = &cobra.Command{
	Use:   "update-content <id>",
	Short: "Rewrite a compound's body and re-derive its positions",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdateContent,
}

func init() {
	updateContentCmd.Flags().StringVar(&updateContentFile, "file", "", "Path to the new content (required)")
	updateContentCmd.MarkFlagRequired("file")
}

func runUpdateContent(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(updateContentFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", updateContentFile, err)
	}

	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer e.Close()

	ctx, cancel := withTimeout(cmd)
	defer cancel()

	if err := e.UpdateAtomContent(ctx, args[0], string(content)); err != nil {
		exitWithKind(err)
		return nil
	}
	fmt.Println("updated", args[0])
	return nil
}
