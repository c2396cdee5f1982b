// =============================================================================
// SEPA Payment Builder - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (sepagen)
//   ├── generateCmd (sepagen generate)
//   ├── inspectCmd  (sepagen inspect)
//   ├── validateCmd (sepagen validate)
//   └── versionCmd  (sepagen version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration for the subcommands that need it
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/sepa-payment-builder/internal/config"
	"github.com/ginjaninja78/sepa-payment-builder/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging with a console encoder.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sepagen",
	Short: "SEPA Payment Builder - Turn payment exports into SEPA credit transfer documents",
	Long: `SEPA Payment Builder reads CSV and XLSX payment exports and turns each file
into one SEPA credit transfer document (JSON or pain.001 XML).

Key Features:
  - Transaction groups with their own currency and debtor account
  - Per-column transformation rules applied before validation
  - Row validation with detailed error reporting
  - Control sums computed in decimal arithmetic
  - Concurrent processing and automatic file archival

Example Usage:
  sepagen generate                     # Process all files in the input directory
  sepagen generate --config ./my.yaml  # Use a custom configuration file
  sepagen validate                     # Validate configuration without processing
  sepagen inspect output/PAY-1.json    # Print the content of a payment document`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print the help message.
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig loads the configuration file and builds the logger at the
// configured level.
func loadConfig() (*config.MainConfig, *zap.Logger, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load main config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, verbose)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}
