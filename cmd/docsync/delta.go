// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docsync/internal/delta"
	"github.com/pdiddy/docsync/internal/store"
)

var deltaCmd = &cobra.Command{
	Use:   "delta [candidate] [baseline]",
	Short: "Compute changed and added key sets against a baseline",
	Long: `Delta compares the candidate's row view against the baseline's on the
versioned comparison field list and its canonical key domain against
the baseline's. The changed and added key sets are stored inside the
candidate so they remain queryable after the baseline is dropped, and
are printed here. The sets are disjoint: a newly added key is never
also reported as changed.`,
	Args: cobra.ExactArgs(2),
	RunE: runDelta,
}

func runDelta(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	cfg := pipelineConfig()

	mgr, err := store.NewManager(cfg.Store, log)
	if err != nil {
		return err
	}
	if !mgr.Exists(args[1]) {
		return fmt.Errorf("baseline generation %q does not exist", args[1])
	}
	gen, err := mgr.Open(args[0])
	if err != nil {
		return err
	}
	defer gen.Close()

	d, err := delta.NewEngine(cfg.Delta, log).Compute(context.Background(), gen, mgr.Path(args[1]))
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	fmt.Printf("changed: %d keys\n", len(d.Changed))
	fmt.Printf("added:   %d keys\n", len(d.Added))
	return nil
}

var auditCmd = &cobra.Command{
	Use:   "audit [candidate] [baseline]",
	Short: "Report per-field difference counts between two generations",
	Long: `Audit counts, independently per row-view field, the keys present in
both generations where that field differs. It covers every field,
including those the comparison list excludes from change detection,
and is purely diagnostic. The report is printed as YAML.`,
	Args: cobra.ExactArgs(2),
	RunE: runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()

	mgr, err := store.NewManager(cfg.Store, log)
	if err != nil {
		return err
	}
	gen, err := mgr.Open(args[0])
	if err != nil {
		return err
	}
	defer gen.Close()

	report, err := delta.NewAuditor(log).Report(context.Background(), gen, args[1], mgr.Path(args[1]))
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding audit report: %w", err)
	}
	os.Stdout.Write(data)
	return nil
}

func init() {
	deltaCmd.Flags().Bool("json", false, "print the full key sets as JSON")

	rootCmd.AddCommand(deltaCmd)
	rootCmd.AddCommand(auditCmd)
}
