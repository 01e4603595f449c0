// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docsync/internal/join"
	"github.com/pdiddy/docsync/internal/store"
)

var joinCmd = &cobra.Command{
	Use:   "join [generation]",
	Short: "Materialize the unified row view for a generation",
	Long: `Join left-joins every attribute store against the canonical key set
and substitutes each attribute's default where no row matches. Running
it again replaces the prior row view; an unchanged generation
materializes identically. All attribute ingestion for the generation
must have completed.`,
	Args: cobra.ExactArgs(1),
	RunE: runJoin,
}

func runJoin(cmd *cobra.Command, args []string) error {
	mgr, err := store.NewManager(pipelineConfig().Store, log)
	if err != nil {
		return err
	}
	gen, err := mgr.Open(args[0])
	if err != nil {
		return err
	}
	defer gen.Close()

	return join.NewEngine(log).Materialize(context.Background(), gen)
}

var lookupCmd = &cobra.Command{
	Use:   "lookup [generation] [key]",
	Short: "Print one row-view record as JSON",
	Args:  cobra.ExactArgs(2),
	RunE:  runLookup,
}

func runLookup(cmd *cobra.Command, args []string) error {
	mgr, err := store.NewManager(pipelineConfig().Store, log)
	if err != nil {
		return err
	}
	gen, err := mgr.Open(args[0])
	if err != nil {
		return err
	}
	defer gen.Close()

	rec, err := join.NewEngine(log).Lookup(context.Background(), gen, args[1])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func init() {
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(lookupCmd)
}
