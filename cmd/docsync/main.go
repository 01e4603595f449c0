// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docsync CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/docsync/internal/logger"
	"github.com/pdiddy/docsync/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// log is the process logger, built in PersistentPreRunE once config is
// loaded.
var log *zap.Logger

// rootCmd is the base command for the docsync CLI.
var rootCmd = &cobra.Command{
	Use:   "docsync",
	Short: "Reconcile per-attribute document datasets into joined generations",
	Long: `docsync merges independently produced per-attribute flat files into a
unified record set keyed by the canonical document identifier, tracks
which documents changed between two generations, and streams records
downstream in batches.

Each operation is a subcommand: generation (create/drop/promote),
ingest, join, delta, audit, distribute, and pipeline. Every command
takes a generation name as its primary argument.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logger.New(types.LoggingConfig{
			Env:   viper.GetString("logging.env"),
			Level: viper.GetString("logging.level"),
		})
		if err != nil {
			return err
		}
		log = l
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./docsync.yaml or ~/.config/docsync/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docsync")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docsync"))
		}
	}

	viper.SetDefault("store.data_dir", "data")
	viper.SetDefault("store.vector_length", 21)
	viper.SetDefault("ingest.data_path", ".")
	viper.SetDefault("ingest.max_rows", -1)
	viper.SetDefault("distributor.batch_size", 100)
	viper.SetDefault("distributor.sink.stream", "docsync-records")

	viper.SetEnvPrefix("DOCSYNC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig assembles the typed stage configs from viper.
func pipelineConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Store: types.StoreConfig{
			DataDir:       viper.GetString("store.data_dir"),
			VectorLength:  viper.GetInt("store.vector_length"),
			BusyTimeoutMS: viper.GetInt("store.busy_timeout_ms"),
		},
		Ingest: types.IngestConfig{
			DataPath: viper.GetString("ingest.data_path"),
			Files:    viper.GetStringMapString("ingest.files"),
			MaxRows:  viper.GetInt("ingest.max_rows"),
		},
		Delta: types.DeltaConfig{
			CompareFields: viper.GetStringSlice("delta.compare_fields"),
		},
		Distributor: types.DistributorConfig{
			BatchSize: viper.GetInt("distributor.batch_size"),
			Sink: types.SinkConfig{
				Addrs:    viper.GetStringSlice("distributor.sink.addrs"),
				Password: viper.GetString("distributor.sink.password"),
				Stream:   viper.GetString("distributor.sink.stream"),
			},
		},
		Logging: types.LoggingConfig{
			Env:   viper.GetString("logging.env"),
			Level: viper.GetString("logging.level"),
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
