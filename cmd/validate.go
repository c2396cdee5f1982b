// =============================================================================
// SEPA Payment Builder - Validate Command
// =============================================================================
//
// This file defines the 'validate' command. Without arguments it checks the
// configuration only. With file arguments it also runs every file through
// the pipeline in dry-run mode and reports the validation findings.
//
// COMMAND USAGE:
//   sepagen validate [input files...]
//
// CONFIGURATION CHECKS:
//   1. The configuration file parses and passes its own checks
//   2. Every transformation rule uses a supported transformation type
//   3. Every transaction group has a currency and a complete debtor account
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sepa-payment-builder/internal/config"
	"github.com/ginjaninja78/sepa-payment-builder/internal/converter"
	"github.com/ginjaninja78/sepa-payment-builder/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate [input files...]",
	Short: "Validate the configuration and, optionally, input files",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		out := cmd.OutOrStdout()

		if err := checkConfig(out, cfg); err != nil {
			return err
		}

		failed := 0
		for _, file := range args {
			result := converter.New(file, cfg, logger, converter.WithDryRun(true)).Run()

			fmt.Fprintf(out, "\n%s\n", filepath.Base(file))
			fmt.Fprintln(out, validation.FormatErrors(result.ValidationErrors))

			if !result.Success {
				failed++
				fmt.Fprintf(out, "  ✗ %v\n", result.Error)
				continue
			}
			fmt.Fprintf(out, "  ✓ %d transaction(s) in %d group(s), control sum %.2f\n",
				result.Stats.TransactionsCreated, result.Stats.GroupsEmitted, result.Stats.ControlSum)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d file(s) failed validation", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// checkConfig runs the checks that go beyond config.Validate and prints an
// overview of the configuration.
func checkConfig(w io.Writer, cfg *config.MainConfig) error {
	var problems []error

	if _, err := converter.NewTransformer(cfg.Transformations); err != nil {
		problems = append(problems, fmt.Errorf("%w (supported: %s)", err, strings.Join(converter.SupportedActions(), ", ")))
	}

	if len(cfg.Groups) > 0 {
		// The reference is a placeholder; only the group checks matter here.
		if err := converter.NewPayment(cfg, "configuration-check").Validate(); err != nil {
			problems = append(problems, err)
		}
	} else {
		problems = append(problems, errors.New("no transaction groups configured"))
	}

	if err := errors.Join(problems...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Fprintf(w, "Configuration is valid: %s\n", cfgFile)
	fmt.Fprintf(w, "  Debtor entity:   %s\n", cfg.Payment.DebtorEntity)
	fmt.Fprintf(w, "  Output format:   %s\n", cfg.OutputFormat)
	fmt.Fprintf(w, "  Transformations: %d rule(s)\n", len(cfg.Transformations))
	for _, group := range cfg.Groups {
		fmt.Fprintf(w, "  Group %-12s %s  %s (%s)\n", group.ID, group.Currency, group.DebtorAccount.IBAN, group.DebtorAccount.BIC)
	}

	return nil
}
