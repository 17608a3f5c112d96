// Command stratalog evaluates Datalog programs with the stratalog engine.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stratalog/internal/config"
	"stratalog/internal/logging"
)

var (
	// Global flags.
	verbose    bool
	configPath string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "stratalog",
	Short: "stratalog - bottom-up Datalog solver",
	Long: `stratalog evaluates stratified Datalog programs bottom-up to their
minimal model using semi-naive fixed-point iteration.

Programs are plain text: facts, rules, negation, and constraints.

  edge(1, 2).
  path(X, Z) :- path(X, Y), edge(Y, Z).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.Initialize(verbose || cfg.Logging.Verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "stratalog.yaml", "config file path")

	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the stratalog version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("stratalog 0.3.0")
	},
}
