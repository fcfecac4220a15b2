// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the provider-verify CLI.
// Subcommands: assess, results, resolve, export, version.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/provider-verify/internal/logging"
	"github.com/pdiddy/provider-verify/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg and logger are populated by the root command before any subcommand runs.
var (
	cfg    types.Config
	logger *slog.Logger
)

// rootCmd is the base command for the provider-verify CLI.
var rootCmd = &cobra.Command{
	Use:   "provider-verify",
	Short: "Multi-source verification of healthcare provider records",
	Long: `provider-verify checks healthcare provider directory records against
several data sources (NPI registry, Google Places, practice websites, state
license boards, scanned documents), combines their confidence into one score,
and routes each record: auto-update, manual review, or urgent review.

Results, tickets and applied field updates are kept in a local SQLite
database. Use assess to run a batch, results and resolve to work the review
queue, and export to hand results to other systems.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		l, err := logging.New(logging.Options{Level: c.Log.Level, Format: c.Log.Format})
		if err != nil {
			return err
		}
		cfg, logger = c, l
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./provider-verify.yaml or ~/.config/provider-verify/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")
	rootCmd.PersistentFlags().String("db", "", "results database path (default data/results.db)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("provider-verify")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "provider-verify"))
		}
	}

	// A .env file in the working directory may supply PROVIDER_VERIFY_*
	// variables. Variables already set in the environment win.
	_ = godotenv.Load()

	viper.SetEnvPrefix("PROVIDER_VERIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
