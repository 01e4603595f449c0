// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docsync/internal/pipeline"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run whole generation pipelines",
}

var pipelineBuildCmd = &cobra.Command{
	Use:   "build [candidate]",
	Short: "Build a candidate: drop, create, ingest, verify, join",
	Long: `Build drops any leftover generation under the candidate name, creates
a fresh one, ingests every configured attribute flat file in parallel,
verifies line counts, and materializes the row view. A failure at any
step destroys the partial candidate.`,
	Args: cobra.ExactArgs(1),
	RunE: runPipelineBuild,
}

func runPipelineBuild(cmd *cobra.Command, args []string) error {
	p, err := pipeline.New(pipelineConfig(), log)
	if err != nil {
		return err
	}
	return p.BuildCandidate(context.Background(), args[0])
}

var pipelineRunCmd = &cobra.Command{
	Use:   "run [candidate] [baseline]",
	Short: "Build a candidate, compute its delta, and promote it",
	Long: `Run executes a full delta pipeline: build the candidate from flat
files, compute and persist its changed/added sets against the
baseline, then atomically promote it to the baseline name. Use
--retain-prior to keep the old baseline under another name.`,
	Args: cobra.ExactArgs(2),
	RunE: runPipelineRun,
}

func runPipelineRun(cmd *cobra.Command, args []string) error {
	retainPrior, _ := cmd.Flags().GetString("retain-prior")

	p, err := pipeline.New(pipelineConfig(), log)
	if err != nil {
		return err
	}
	d, err := p.Run(context.Background(), args[0], args[1], retainPrior)
	if err != nil {
		return err
	}
	fmt.Printf("promoted %s to %s: %d changed, %d added\n",
		args[0], args[1], len(d.Changed), len(d.Added))
	return nil
}

func init() {
	pipelineRunCmd.Flags().String("retain-prior", "", "keep the old baseline under this generation name")

	pipelineCmd.AddCommand(pipelineBuildCmd)
	pipelineCmd.AddCommand(pipelineRunCmd)
	rootCmd.AddCommand(pipelineCmd)
}
