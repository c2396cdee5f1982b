// =============================================================================
// SEPA Payment Builder - Generate Command
// =============================================================================
//
// This file defines the 'generate' command, the main command of the tool.
// Every discovered input file becomes one payment document.
//
// COMMAND USAGE:
//   sepagen generate [flags]
//
// FLAGS:
//   --dry-run : Run the whole pipeline without writing or archiving files
//   --file    : Process only this file instead of scanning the input directory
//
// PROCESSING PIPELINE:
//   1. Load the configuration
//   2. Discover input files (file_patterns in input_dir)
//   3. For each file (concurrently, at most max_concurrency at a time):
//      parse, transform, validate, build, render, write, archive
//   4. Write the error log and the processing summary
//   5. Remove archived files past archive_retention_days
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/sepa-payment-builder/internal/config"
	"github.com/ginjaninja78/sepa-payment-builder/internal/converter"
	"github.com/ginjaninja78/sepa-payment-builder/internal/validation"
	"github.com/ginjaninja78/sepa-payment-builder/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun runs the pipeline without writing output files.
var dryRun bool

// filePath is the path to a single file to process.
var filePath string

// =============================================================================
// GENERATE COMMAND DEFINITION
// =============================================================================

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"process"},
	Short:   "Generate payment documents from the input files",
	Long: `The generate command scans the input directory for CSV and XLSX files and
turns each of them into one SEPA credit transfer document.

Files are processed concurrently. Each file is processed independently, and
errors in one file do not affect the processing of others.

On successful processing:
  - The payment document is placed in the output directory
  - The input file is moved to the input archive
  - The payment document is copied to the output archive

On error:
  - An error log is created in the output directory
  - The input file remains in the input directory
  - Processing continues for other files`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Run the pipeline without writing or archiving any file",
	)

	generateCmd.Flags().StringVar(
		&filePath,
		"file",
		"",
		"Process only this file",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runGenerate orchestrates the pipeline over every input file.
func runGenerate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	summary := utils.ProcessingSummary{
		StartTime: time.Now(),
		DryRun:    dryRun,
	}

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)

	var inputFiles []string
	if filePath != "" {
		if !utils.FileExists(filePath) {
			return fmt.Errorf("input file not found: %s", filePath)
		}
		inputFiles = []string{filePath}
	} else {
		inputFiles, err = fm.DiscoverInputFiles(cfg.FilePatterns...)
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}

	if len(inputFiles) == 0 {
		logger.Info("No input files found", zap.String("input_dir", cfg.InputDir), zap.Strings("patterns", cfg.FilePatterns))
		fmt.Println("No input files found in the input directory.")
		return nil
	}

	logger.Info("Discovered input files", zap.Int("files", len(inputFiles)), zap.Bool("dry_run", dryRun))
	fmt.Printf("Found %d file(s) to process\n", len(inputFiles))

	// =========================================================================
	// STEP 2: PROCESS FILES CONCURRENTLY
	// =========================================================================
	// Every goroutine writes its own slot, so results keep discovery order.

	results := processFiles(ctx, cfg, logger, inputFiles)

	// =========================================================================
	// STEP 3: COLLECT RESULTS
	// =========================================================================

	var errorEntries []utils.ErrorLogEntry

	for _, result := range results {
		name := filepath.Base(result.FilePath)

		summary.TotalFiles++
		summary.TotalRows += result.Stats.RowsProcessed
		summary.SkippedRows += result.Stats.RowsSkipped
		summary.ValidationErrors += result.Stats.ValidationErrors

		for _, ve := range result.ValidationErrors {
			errorType := "ValidationError"
			if ve.Severity == validation.SeverityWarning {
				errorType = "ValidationWarning"
			}
			errorEntries = append(errorEntries, utils.ErrorLogEntry{
				Timestamp:    time.Now(),
				FileName:     name,
				ErrorType:    errorType,
				ErrorMessage: ve.Message,
				RowNumber:    ve.RowNumber,
				FieldName:    ve.Field,
				FieldValue:   ve.Value,
			})
		}

		if !result.Success {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    name,
				ErrorMessage: result.Error.Error(),
			})
			errorEntries = append(errorEntries, utils.ErrorLogEntry{
				Timestamp:    time.Now(),
				FileName:     name,
				ErrorType:    "ProcessingError",
				ErrorMessage: result.Error.Error(),
			})
			fmt.Printf("  ✗ %s: %v\n", name, result.Error)
			continue
		}

		summary.SuccessfulFiles++
		summary.TotalTransactions += result.Stats.TransactionsCreated
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:    name,
			OutputFile:   result.OutputFile,
			Reference:    result.Reference,
			Rows:         result.Stats.RowsProcessed,
			Transactions: result.Stats.TransactionsCreated,
			Groups:       result.Stats.GroupsEmitted,
			ControlSum:   result.Stats.ControlSum,
			ProcessTime:  result.Stats.ProcessingTime,
		})

		target := result.OutputFile
		if dryRun {
			target = "(dry run)"
		}
		fmt.Printf("  ✓ %s -> %s [%s, %d transaction(s), control sum %.2f]\n",
			name, target, result.Reference, result.Stats.TransactionsCreated, result.Stats.ControlSum)
	}

	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 4: PRINT SUMMARY AND WRITE LOGS
	// =========================================================================

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	fmt.Printf("Transactions:    %d\n", summary.TotalTransactions)
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(summary.StartTime))

	if !dryRun {
		writeLogs(cfg, logger, summary, errorEntries)
		cleanArchives(cfg, logger)
	}

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// processFiles runs one converter per file with at most MaxConcurrency
// running at the same time.
func processFiles(ctx context.Context, cfg *config.MainConfig, logger *zap.Logger, inputFiles []string) []converter.Result {
	results := make([]converter.Result, len(inputFiles))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)

	for i, file := range inputFiles {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = converter.Result{FilePath: file, Error: err}
				return nil
			}
			results[i] = converter.New(file, cfg, logger, converter.WithDryRun(dryRun)).Run()
			return nil
		})
	}

	// Converters report failures through their Result, never through the group.
	_ = g.Wait()

	return results
}

// writeLogs writes the error log and the processing summary to the output
// directory.
func writeLogs(cfg *config.MainConfig, logger *zap.Logger, summary utils.ProcessingSummary, entries []utils.ErrorLogEntry) {
	if logPath, err := utils.WriteErrorLog(entries, cfg.OutputDir); err != nil {
		logger.Error("Failed to write error log", zap.Error(err))
	} else if logPath != "" {
		fmt.Printf("\nErrors have been logged to %s\n", logPath)
	}

	if summaryPath, err := utils.WriteSummaryLog(summary, cfg.OutputDir); err != nil {
		logger.Error("Failed to write processing summary", zap.Error(err))
	} else {
		logger.Info("Wrote processing summary", zap.String("path", summaryPath))
	}
}

// cleanArchives applies archive_retention_days to both archive directories.
func cleanArchives(cfg *config.MainConfig, logger *zap.Logger) {
	if cfg.ArchiveRetentionDays <= 0 {
		return
	}

	maxAge := time.Duration(cfg.ArchiveRetentionDays) * 24 * time.Hour
	for _, dir := range []string{cfg.InputArchiveDir, cfg.OutputArchiveDir} {
		removed, err := utils.CleanOldArchives(dir, maxAge)
		if err != nil {
			logger.Warn("Failed to clean archive", zap.String("dir", dir), zap.Error(err))
			continue
		}
		if removed > 0 {
			logger.Info("Removed expired archive files", zap.String("dir", dir), zap.Int("files", removed))
		}
	}
}
