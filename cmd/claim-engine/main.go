// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the claim-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/claim-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the claim-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "claim-engine",
	Short: "Claim verification and federated literature research",
	Long: `claim-engine verifies factual claims against the academic literature and
runs goal-driven research pipelines. Claims are extracted from text, matched
against federated bibliographic sources, judged, and assembled into claim
cards with an aggregate verdict. The research pipeline plans queries for a
goal, searches, enriches, extracts structured findings, and persists the
best-ranked records.

Each stage is a subcommand: claims, search, resolve, and research.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./claim-engine.yaml or ~/.config/claim-engine/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (default: ./claim-engine.db)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("claim-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "claim-engine"))
		}
	}

	viper.SetEnvPrefix("CLAIM_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
