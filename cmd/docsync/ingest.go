// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docsync/internal/ingest"
	"github.com/pdiddy/docsync/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [generation]",
	Short: "Bulk-load attribute flat files into a generation's stores",
	Long: `Ingest loads every configured attribute flat file into the named
generation, one store per attribute, in parallel. The generation must
already exist. A duplicate key within one attribute fails the whole
load; destroy the candidate and retry from scratch.

With --verify, flat-file line counts are checked against store row
counts for the attributes whose files carry one line per key.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	verify, _ := cmd.Flags().GetBool("verify")
	cfg := pipelineConfig()
	ctx := context.Background()

	mgr, err := store.NewManager(cfg.Store, log)
	if err != nil {
		return err
	}
	gen, err := mgr.Open(args[0])
	if err != nil {
		return err
	}
	defer gen.Close()

	ing := ingest.NewIngester(cfg.Ingest, log)
	summary, err := ing.Run(ctx, gen)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-12s %d rows\n", name, summary[name])
	}

	if verify {
		results, err := ing.Verify(ctx, gen)
		if err != nil {
			return err
		}
		for _, r := range results {
			if !r.OK() {
				return fmt.Errorf("attribute %s: %d file lines but %d store rows",
					r.Attribute, r.FileLines, r.StoreRows)
			}
		}
		fmt.Println("verify: all counts match")
	}
	return nil
}

func init() {
	ingestCmd.Flags().Bool("verify", false, "check flat-file line counts against store row counts")
	rootCmd.AddCommand(ingestCmd)
}
