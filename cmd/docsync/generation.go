// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docsync/internal/store"
)

var generationCmd = &cobra.Command{
	Use:   "generation",
	Short: "Manage generation namespaces (create, drop, promote)",
	Long: `Generation manages the lifecycle of named generations. A generation is
an isolated namespace holding one store per attribute plus the joined
row view; exactly one generation at a time is the promoted baseline.`,
}

var generationCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Allocate an empty generation with one store per attribute",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerationCreate,
}

func runGenerationCreate(cmd *cobra.Command, args []string) error {
	mgr, err := store.NewManager(pipelineConfig().Store, log)
	if err != nil {
		return err
	}
	gen, err := mgr.Create(context.Background(), args[0])
	if err != nil {
		return err
	}
	defer gen.Close()
	fmt.Printf("created generation %s\n", gen.Name)
	return nil
}

var generationDropCmd = &cobra.Command{
	Use:   "drop [name]",
	Short: "Irreversibly remove a generation and all its data",
	Long: `Drop removes the generation's namespace. Dropping a generation that
does not exist is not an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerationDrop,
}

func runGenerationDrop(cmd *cobra.Command, args []string) error {
	mgr, err := store.NewManager(pipelineConfig().Store, log)
	if err != nil {
		return err
	}
	if err := mgr.Destroy(args[0]); err != nil {
		return err
	}
	fmt.Printf("dropped generation %s\n", args[0])
	return nil
}

var generationPromoteCmd = &cobra.Command{
	Use:   "promote [candidate] [baseline]",
	Short: "Atomically rename a materialized candidate to the baseline name",
	Long: `Promote makes the candidate the new baseline via a single atomic
rename. Readers observe either the old or the new baseline in full,
never a mix. With --retain-prior the old baseline is kept under the
given name instead of being replaced.`,
	Args: cobra.ExactArgs(2),
	RunE: runGenerationPromote,
}

func runGenerationPromote(cmd *cobra.Command, args []string) error {
	retainPrior, _ := cmd.Flags().GetString("retain-prior")

	mgr, err := store.NewManager(pipelineConfig().Store, log)
	if err != nil {
		return err
	}
	if err := mgr.Promote(context.Background(), args[0], args[1], retainPrior); err != nil {
		return err
	}
	fmt.Printf("promoted %s to %s\n", args[0], args[1])
	return nil
}

func init() {
	generationPromoteCmd.Flags().String("retain-prior", "", "keep the old baseline under this generation name")

	generationCmd.AddCommand(generationCreateCmd)
	generationCmd.AddCommand(generationDropCmd)
	generationCmd.AddCommand(generationPromoteCmd)
	rootCmd.AddCommand(generationCmd)
}
