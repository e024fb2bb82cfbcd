// Package cli implements the neobridge command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/neobridge/internal/config"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "neobridge",
	Short: "Neobridge - an access layer for Neo4j",
	Long: `Neobridge exposes a Neo4j database over an HTTP API and as Model Context
Protocol tools: Cypher queries with tagged graph values, cursor pagination,
client-held transactions and schema inference.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .neobridge/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setupLogging installs the default logger. Logs go to stderr so the MCP
// stdio transport keeps stdout to itself.
func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig loads configuration rooted at the working directory, honoring
// --config.
func loadConfig() (*config.Config, config.Loader, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	loader := config.NewLoader(wd, cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if file := loader.ConfigFile(); file != "" {
		slog.Debug("using config file", "path", file)
	}
	return cfg, loader, nil
}
