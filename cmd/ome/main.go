// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the ome CLI, the Open Matching
// Engine. It matches open hardware manifests (OKH) against manufacturing
// facility records (OKW) and maintains the substitution knowledge base.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/helpfulengineering/matching-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the ome CLI.
var rootCmd = &cobra.Command{
	Use:   "ome",
	Short: "Match open hardware designs to manufacturing facilities",
	Long: `ome matches Open Know-How (OKH) hardware manifests against Open Know-Where
(OKW) facility records. Manifests are extracted into requirements, facility
records into capabilities, and a substitution-aware matcher ranks facilities
by how well they can produce the design.

Each pipeline stage is a subcommand: extract, match, facilities, and
knowledge. Substitution rules live in a SQLite knowledge base that evolves
with accept/reject feedback.`,
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

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./ome.yaml or ~/.config/ome/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("ome")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "ome"))
		}
	}

	viper.SetEnvPrefix("OME")
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
