// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docsync/internal/distribute"
	"github.com/pdiddy/docsync/internal/store"
)

var distributeCmd = &cobra.Command{
	Use:   "distribute [generation]",
	Short: "Stream row-view records downstream in bounded batches",
	Long: `Distribute iterates the generation's row view and hands records to the
configured message sink in batches of at most --batch-size. Delivery is
at-least-once: a rejected batch stops the run and is surfaced for
manual replay, and batches already sent are not revoked.

With --delta only the keys in the generation's persisted changed and
added sets are streamed.`,
	Args: cobra.ExactArgs(1),
	RunE: runDistribute,
}

func runDistribute(cmd *cobra.Command, args []string) error {
	deltaOnly, _ := cmd.Flags().GetBool("delta")
	cfg := pipelineConfig()
	if batch, _ := cmd.Flags().GetInt("batch-size"); batch > 0 {
		cfg.Distributor.BatchSize = batch
	}

	mgr, err := store.NewManager(cfg.Store, log)
	if err != nil {
		return err
	}
	gen, err := mgr.Open(args[0])
	if err != nil {
		return err
	}
	defer gen.Close()

	sink, err := distribute.NewRedisSink(cfg.Distributor.Sink)
	if err != nil {
		return err
	}
	defer sink.Close()

	dist := distribute.New(cfg.Distributor, sink, log)
	ctx := context.Background()

	var summary distribute.Summary
	if deltaOnly {
		summary, err = dist.StreamDelta(ctx, gen)
	} else {
		summary, err = dist.StreamAll(ctx, gen)
	}
	if err != nil {
		return err
	}
	fmt.Printf("sent %d records in %d batches\n", summary.Records, summary.Batches)
	return nil
}

func init() {
	distributeCmd.Flags().Bool("delta", false, "stream only the persisted changed and added keys")
	distributeCmd.Flags().Int("batch-size", 0, "records per delivery batch (overrides config)")
	rootCmd.AddCommand(distributeCmd)
}
