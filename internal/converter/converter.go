// =============================================================================
// SEPA Payment Builder - Converter Module
// =============================================================================
//
// This module contains the core pipeline. It turns a single input file into
// one payment document, from parsing to archival.
//
// CONVERSION PIPELINE:
//   1. Parse the input file (CSV or XLSX)
//   2. Apply transformation rules to each row
//   3. Validate the transformed rows
//   4. Build the payment: one transaction group per configured group,
//      one transaction per valid row
//   5. Emit the payment document
//   6. Render it as JSON or pain.001 XML
//   7. Write the output file
//   8. Archive the processed files
//
// CONCURRENCY:
//   Each file is processed by its own Converter. A Converter holds no state
//   shared with other converters, so files can be processed concurrently.
//
// =============================================================================

package converter

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/sepa-payment-builder/internal/config"
	"github.com/ginjaninja78/sepa-payment-builder/internal/csvparser"
	"github.com/ginjaninja78/sepa-payment-builder/internal/sepa"
	"github.com/ginjaninja78/sepa-payment-builder/internal/types"
	"github.com/ginjaninja78/sepa-payment-builder/internal/validation"
	"github.com/ginjaninja78/sepa-payment-builder/internal/xlsxparser"
	"github.com/ginjaninja78/sepa-payment-builder/internal/xmlwriter"
	"github.com/ginjaninja78/sepa-payment-builder/pkg/utils"
)

// ErrUnsupportedInput is returned for input files that are neither CSV nor
// XLSX.
var ErrUnsupportedInput = errors.New("unsupported input file type")

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// OutputFile is the path to the generated payment file.
	// This is empty if processing failed or the run was a dry run.
	OutputFile string

	// Reference is the message reference of the generated payment.
	Reference string

	// Document is the emitted payment document.
	// This is nil if processing failed before emission.
	Document *sepa.Document

	// TransactionIDs lists the "transactionId" custom field of every
	// transaction, nil where a transaction has none.
	TransactionIDs []any

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	// This is nil if processing was successful.
	Error error

	// ValidationErrors contains every validation finding, warnings included.
	ValidationErrors []*validation.RowError

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsProcessed is the number of data rows read from the input.
	RowsProcessed int

	// RowsSkipped is the number of invalid rows left out of the payment.
	// Rows are only skipped when ContinueOnError is true.
	RowsSkipped int

	// TransactionsCreated is the number of transactions in the document.
	TransactionsCreated int

	// GroupsEmitted is the number of transaction groups in the document.
	GroupsEmitted int

	// ControlSum is the control sum of the document.
	ControlSum float64

	// ValidationErrors is the number of validation errors encountered.
	ValidationErrors int

	// ValidationWarnings is the number of validation warnings encountered.
	ValidationWarnings int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter turns one input file into one payment document.
type Converter struct {
	// inputPath is the path to the input CSV or XLSX file.
	inputPath string

	// cfg is the main application configuration.
	cfg *config.MainConfig

	// files handles output naming and archival.
	files *utils.FileManager

	logger *zap.Logger

	// dryRun skips writing and archiving.
	dryRun bool

	now func() time.Time
}

// Option configures a Converter.
type Option func(*Converter)

// WithDryRun runs the pipeline up to rendering without writing or
// archiving any file.
func WithDryRun(dryRun bool) Option {
	return func(c *Converter) {
		c.dryRun = dryRun
	}
}

// WithClock replaces the clock used for the payment timestamps and the
// reference placeholders.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		c.now = now
	}
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter instance.
//
// PARAMETERS:
//   - inputPath: The path to the input file.
//   - cfg: The main application configuration.
//   - logger: The logger. nil disables logging.
//   - opts: Optional settings (WithDryRun, WithClock).
//
// RETURNS:
//   - A new Converter instance.
func New(inputPath string, cfg *config.MainConfig, logger *zap.Logger, opts ...Option) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}

	files := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	files.UseTimestampSubdirs = cfg.ArchiveByDate

	c := &Converter{
		inputPath: inputPath,
		cfg:       cfg,
		files:     files,
		logger:    logger.With(zap.String("file", filepath.Base(inputPath))),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for the file.
//
// RETURNS:
//   - A Result struct containing the outcome of the processing. Run never
//     panics on bad input; every failure is reported through Result.Error.
func (c *Converter) Run() (result Result) {
	startTime := time.Now()
	result = Result{
		FilePath: c.inputPath,
		Success:  false,
	}
	defer func() {
		result.Stats.ProcessingTime = time.Since(startTime)
	}()

	c.logger.Info("Processing file")

	// =========================================================================
	// STEP 1: PARSE INPUT
	// =========================================================================

	table, err := c.readTable()
	if err != nil {
		result.Error = fmt.Errorf("failed to parse input: %w", err)
		return result
	}

	result.Stats.RowsProcessed = len(table.Rows)
	c.logger.Debug("Parsed input", zap.Int("rows", len(table.Rows)), zap.Strings("headers", table.Headers))

	// =========================================================================
	// STEP 2: APPLY TRANSFORMATION RULES
	// =========================================================================
	// Normalization happens before validation so that, for example, an IBAN
	// printed in blocks of four is checked in its final form.

	transformer, err := NewTransformer(c.cfg.Transformations)
	if err != nil {
		result.Error = fmt.Errorf("failed to apply transformations: %w", err)
		return result
	}
	if err := transformer.TransformTable(table); err != nil {
		result.Error = fmt.Errorf("failed to apply transformations: %w", err)
		return result
	}

	// =========================================================================
	// STEP 3: VALIDATE ROWS
	// =========================================================================

	validator := validation.NewValidatorWithOptions(c.cfg.Columns, validation.Options{
		KnownGroups: c.groupIDs(),
	})
	validationResult := validator.ValidateAll(table.Rows)

	result.ValidationErrors = validationResult.Errors
	result.Stats.ValidationErrors = validationResult.ErrorCount
	result.Stats.ValidationWarnings = validationResult.WarningCount

	for _, ve := range validationResult.Errors {
		c.logger.Warn("Validation finding",
			zap.String("severity", ve.Severity),
			zap.Int("row", ve.RowNumber),
			zap.String("field", ve.Field),
			zap.String("rule", ve.Rule),
			zap.String("message", ve.Message),
		)
	}

	if !validationResult.IsValid && !c.cfg.ContinueOnError {
		result.Error = fmt.Errorf("validation failed with %d error(s)", validationResult.ErrorCount)
		return result
	}

	// =========================================================================
	// STEP 4: BUILD PAYMENT
	// =========================================================================

	reference := utils.ExpandPlaceholders(c.cfg.Payment.ReferenceFormat, c.placeholders(""), c.now())
	result.Reference = reference

	payment := NewPayment(c.cfg, reference, sepa.WithClock(c.now))

	for _, row := range table.Rows {
		if !validationResult.RowValid(row.Number) {
			result.Stats.RowsSkipped++
			continue
		}

		group := validator.GroupOf(row)
		txn, err := BuildTransaction(row, c.cfg.Columns, c.groupCurrency(group))
		if err != nil {
			result.Error = fmt.Errorf("row %d: %w", row.Number, err)
			return result
		}
		if err := payment.AddTransaction(group, txn); err != nil {
			result.Error = fmt.Errorf("row %d: %w", row.Number, err)
			return result
		}
	}

	if result.Stats.RowsSkipped > 0 {
		c.logger.Warn("Skipped invalid rows", zap.Int("rows", result.Stats.RowsSkipped))
	}

	// =========================================================================
	// STEP 5: EMIT DOCUMENT
	// =========================================================================

	doc, err := payment.GenerateDocument()
	if err != nil {
		result.Error = fmt.Errorf("failed to generate payment: %w", err)
		return result
	}

	result.Document = doc
	result.TransactionIDs, _ = payment.TransactionIDs()

	reader := sepa.NewReader(doc)
	result.Stats.TransactionsCreated = reader.NumberOfTransactions()
	result.Stats.GroupsEmitted = reader.CountTransactionGroups()
	result.Stats.ControlSum = reader.ControlSum()

	c.logger.Debug("Generated payment",
		zap.String("reference", reference),
		zap.Int("transactions", result.Stats.TransactionsCreated),
		zap.Int("groups", result.Stats.GroupsEmitted),
		zap.Float64("control_sum", result.Stats.ControlSum),
	)

	// =========================================================================
	// STEP 6: RENDER
	// =========================================================================

	data, ext, err := Render(doc, c.cfg.OutputFormat)
	if err != nil {
		result.Error = fmt.Errorf("failed to render payment: %w", err)
		return result
	}

	if c.dryRun {
		c.logger.Info("Dry run, output not written", zap.String("reference", reference))
		result.Success = true
		return result
	}

	// =========================================================================
	// STEP 7: WRITE OUTPUT FILE
	// =========================================================================

	outputPath, err := c.writeOutput(data, reference, ext)
	if err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}

	result.OutputFile = outputPath
	c.logger.Info("Wrote output", zap.String("output", outputPath))

	// =========================================================================
	// STEP 8: ARCHIVE FILES
	// =========================================================================

	if err := c.archiveFiles(outputPath); err != nil {
		// Log the error but don't fail the processing.
		c.logger.Warn("Failed to archive files", zap.Error(err))
	}

	result.Success = true
	return result
}

// =============================================================================
// PAYMENT CONSTRUCTION
// =============================================================================

// NewPayment creates a payment with the debtor entity and every configured
// transaction group, ready to receive transactions.
func NewPayment(cfg *config.MainConfig, reference string, opts ...sepa.Option) *sepa.Payment {
	payment := sepa.NewPayment(opts...).
		SetReference(reference).
		SetDebtorEntity(cfg.Payment.DebtorEntity)

	for _, group := range cfg.Groups {
		payment.AddTransactionGroup(group.ID,
			sepa.WithCurrency(group.Currency),
			sepa.WithDebtorAccount(sepa.DebtorAccount{
				Name: group.DebtorAccount.Name,
				BIC:  group.DebtorAccount.BIC,
				IBAN: group.DebtorAccount.IBAN,
			}),
		)
	}

	return payment
}

// BuildTransaction maps a validated row onto a transaction.
//
// PARAMETERS:
//   - row: The transformed and validated row.
//   - columns: The column mapping.
//   - defaultCurrency: Used when the row has no currency, usually the
//     currency of the row's transaction group.
//
// RETURNS:
//   - The transaction. Custom columns present in the row are passed through
//     as string custom fields.
//   - An error if the amount cannot be parsed.
func BuildTransaction(row types.Row, columns config.ColumnMapping, defaultCurrency string) (sepa.Transaction, error) {
	amount, err := validation.ParseAmount(row.Get(columns.Amount))
	if err != nil {
		return sepa.Transaction{}, err
	}

	currency := row.Get(columns.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	txn := sepa.Transaction{
		Reference:    row.Get(columns.Reference),
		Amount:       amount.InexactFloat64(),
		Currency:     currency,
		CreditorName: row.Get(columns.CreditorName),
		CreditorBIC:  row.Get(columns.CreditorBIC),
		CreditorIBAN: row.Get(columns.CreditorIBAN),
	}

	for _, column := range columns.Custom {
		value, ok := row.Fields[column]
		if !ok {
			continue
		}
		if txn.CustomFields == nil {
			txn.CustomFields = make(map[string]any, len(columns.Custom))
		}
		txn.CustomFields[column] = value
	}

	return txn, nil
}

// Render serializes a document in the configured output format.
//
// RETURNS:
//   - The serialized document.
//   - The file extension for the format, including the dot.
//   - An error for an unknown format.
func Render(doc *sepa.Document, format string) ([]byte, string, error) {
	switch strings.ToLower(format) {
	case config.FormatJSON, "":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, "", err
		}
		return append(data, '\n'), ".json", nil
	case config.FormatXML:
		data, err := xmlwriter.Generate(doc)
		if err != nil {
			return nil, "", err
		}
		return data, ".xml", nil
	default:
		return nil, "", fmt.Errorf("unknown output format %q", format)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// readTable parses the input file according to its extension.
func (c *Converter) readTable() (*types.Table, error) {
	switch strings.ToLower(filepath.Ext(c.inputPath)) {
	case ".csv", ".txt":
		return csvparser.Parse(c.inputPath, c.cfg.CSVSettings)
	case ".xlsx", ".xlsm":
		return xlsxparser.Parse(c.inputPath, c.cfg.XLSXSettings)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, filepath.Ext(c.inputPath))
	}
}

func (c *Converter) groupIDs() []string {
	ids := make([]string, 0, len(c.cfg.Groups))
	for _, group := range c.cfg.Groups {
		ids = append(ids, group.ID)
	}
	return ids
}

func (c *Converter) groupCurrency(id string) string {
	if group := c.cfg.Group(id); group != nil {
		return group.Currency
	}
	return ""
}

// placeholders returns the values available to the reference and output
// name formats.
func (c *Converter) placeholders(reference string) map[string]string {
	base := filepath.Base(c.inputPath)
	params := map[string]string{
		"original": strings.TrimSuffix(base, filepath.Ext(base)),
	}
	if reference != "" {
		params["reference"] = reference
	}
	return params
}

// writeOutput writes the rendered document to the output directory.
//
// FILE NAMING:
//   The output file is named according to output_name_format. Besides the
//   generic placeholders ({uuid}, {timestamp}, {date}, {time}) it accepts:
//   - {reference}: The message reference of the payment
//   - {original}: The input file name without extension
func (c *Converter) writeOutput(data []byte, reference, ext string) (string, error) {
	fileName := utils.GenerateOutputFileName(c.cfg.OutputNameFormat, ext, c.placeholders(reference))
	outputPath := filepath.Join(c.cfg.OutputDir, fileName)

	if err := os.MkdirAll(c.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return outputPath, nil
}

// archiveFiles moves the input file to the input archive and copies the
// output file to the output archive.
func (c *Converter) archiveFiles(outputPath string) error {
	var errs []error

	if archived, err := c.files.ArchiveOutputFile(outputPath); err != nil {
		errs = append(errs, fmt.Errorf("failed to archive output file: %w", err))
	} else {
		c.logger.Debug("Archived output", zap.String("archive", archived))
	}

	if archived, err := c.files.ArchiveInputFile(c.inputPath); err != nil {
		errs = append(errs, fmt.Errorf("failed to archive input file: %w", err))
	} else {
		c.logger.Debug("Archived input", zap.String("archive", archived))
	}

	return errors.Join(errs...)
}
