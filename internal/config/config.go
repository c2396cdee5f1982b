// =============================================================================
// SEPA Payment Builder - Configuration Module
// =============================================================================
//
// This module is responsible for loading and validating the application
// configuration. A single YAML file describes where input files are picked
// up, how their columns map onto payment transactions, and which transaction
// groups (debtor accounts) exist.
//
// CONFIGURATION FILE SECTIONS:
//   1. Directories:   input, output and archive locations
//   2. Output:        document format and file naming
//   3. Processing:    concurrency and error tolerance
//   4. Payment:       debtor entity and message reference format
//   5. Groups:        transaction groups with currency and debtor account
//   6. Columns:       mapping of input columns to transaction fields
//   7. Transformations: per-column value clean-up applied before validation
//   8. Input formats: CSV and XLSX parsing settings
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats supported by the conversion pipeline.
const (
	FormatJSON = "json"
	FormatXML  = "xml"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory where input CSV and XLSX files are placed.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir is the directory where generated payment documents are placed.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir is the directory where processed input files are moved.
	// Files are only moved here after successful processing.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir is the directory where generated documents are copied
	// for long-term storage.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// ArchiveByDate stores archived files in date-based subdirectories.
	// Example: input_archive/2026/03/14/payments.csv
	// Default: false
	ArchiveByDate bool `yaml:"archive_by_date"`

	// ArchiveRetentionDays removes archived files older than this many days
	// at the end of each run. 0 keeps archives forever.
	// Default: 0
	ArchiveRetentionDays int `yaml:"archive_retention_days"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputFormat selects the rendering of the payment document.
	// Valid values: "json", "xml"
	// Default: "json"
	OutputFormat string `yaml:"output_format"`

	// OutputNameFormat defines the format for output file names, without the
	// extension (it is derived from OutputFormat).
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {reference} - The message reference of the document
	//   {original}  - The input file name without extension
	//
	// Default: "{reference}_{timestamp}"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files to process concurrently.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError determines whether rows that fail validation are
	// skipped (true) or fail the whole file (false).
	// Default: false
	ContinueOnError bool `yaml:"continue_on_error"`

	// FilePatterns is a list of glob patterns used to discover input files.
	// Default: ["*.csv", "*.xlsx"]
	FilePatterns []string `yaml:"file_patterns"`

	// =========================================================================
	// PAYMENT SETTINGS
	// =========================================================================

	// Payment holds the message level settings.
	Payment PaymentSettings `yaml:"payment"`

	// Groups lists the transaction groups every generated payment starts
	// with. Rows are assigned to a group by the group column.
	Groups []GroupConfig `yaml:"groups"`

	// Columns maps input columns onto transaction fields.
	Columns ColumnMapping `yaml:"columns"`

	// Transformations are applied to input values before validation, in
	// the order listed.
	//
	// CUSTOMIZATION: Normalize what your exports get wrong, e.g. strip the
	// spaces from printed IBANs or map legacy group codes.
	Transformations []TransformationRule `yaml:"transformations"`

	// =========================================================================
	// INPUT FORMAT SETTINGS
	// =========================================================================

	// CSVSettings contains settings for parsing input CSV files.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// XLSXSettings contains settings for reading input XLSX workbooks.
	XLSXSettings XLSXSettings `yaml:"xlsx_settings"`
}

// =============================================================================
// PAYMENT SETTINGS STRUCTURE
// =============================================================================

// PaymentSettings holds the settings applied to every generated payment.
type PaymentSettings struct {
	// DebtorEntity is the initiating party name of every payment.
	DebtorEntity string `yaml:"debtor_entity"`

	// ReferenceFormat defines the message reference of a payment.
	// Placeholders:
	//   {uuid}     - A random UUID
	//   {date}     - Current date (YYYYMMDD)
	//   {original} - The input file name without extension
	//
	// Default: "{uuid}"
	ReferenceFormat string `yaml:"reference_format"`
}

// GroupConfig describes one transaction group.
type GroupConfig struct {
	// ID is the group identifier. Emitted as PmtInfId.
	ID string `yaml:"id"`

	// Currency is the group currency. Emitted as DbtrAcct.Ccy.
	Currency string `yaml:"currency"`

	// DebtorAccount is the account the group is paid from.
	DebtorAccount DebtorAccountConfig `yaml:"debtor_account"`
}

// DebtorAccountConfig identifies a debtor account.
type DebtorAccountConfig struct {
	Name string `yaml:"name"`
	BIC  string `yaml:"bic"`
	IBAN string `yaml:"iban"`
}

// =============================================================================
// COLUMN MAPPING STRUCTURE
// =============================================================================

// ColumnMapping names the input columns that feed each transaction field.
// Column names are matched against the (cleaned) header row.
type ColumnMapping struct {
	// Group is the column holding the transaction group id.
	// Default: "group"
	Group string `yaml:"group"`

	// Reference is the column holding the end-to-end reference. Required.
	// Default: "reference"
	Reference string `yaml:"reference"`

	// Amount is the column holding the amount. Required.
	// Default: "amount"
	Amount string `yaml:"amount"`

	// Currency is the column holding the transaction currency. When the
	// column is empty for a row, the group currency is used.
	// Default: "currency"
	Currency string `yaml:"currency"`

	// CreditorName, CreditorBIC and CreditorIBAN identify the creditor.
	// Defaults: "creditor_name", "creditor_bic", "creditor_iban"
	CreditorName string `yaml:"creditor_name"`
	CreditorBIC  string `yaml:"creditor_bic"`
	CreditorIBAN string `yaml:"creditor_iban"`

	// Custom lists columns copied verbatim into the transaction record as
	// custom fields, under the column name.
	//
	// CUSTOMIZATION: Add "transactionId" to make the column available to
	// downstream reconciliation.
	Custom []string `yaml:"custom"`

	// DefaultGroup is used for rows whose group column is empty. When it is
	// not set, the group column is required.
	DefaultGroup string `yaml:"default_group"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines the transformations applied to one column.
type TransformationRule struct {
	// Column is the input column to transform.
	Column string `yaml:"column"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the type of transformation to apply, e.g. "trim",
	// "uppercase", "remove_spaces", "replace", "lookup". The converter
	// package lists every supported type.
	Type string `yaml:"type"`

	// Value is the parameter for the transformation. Its meaning depends on
	// the type (the string to prepend, the target length, the default...).
	Value string `yaml:"value"`

	// Find is used by "replace" and "regex_replace".
	Find string `yaml:"find,omitempty"`

	// LookupTable is used by "lookup" and "lookup_with_default".
	//
	// Example:
	//   lookup_table:
	//     "01": "EUR-MAIN"
	//     "02": "CHF-OPS"
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// INPUT FORMAT SETTINGS STRUCTURES
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Common values: "," (comma), ";" (semicolon), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows in the CSV file.
	// Multi-line headers are joined with an underscore.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the row number where the actual data begins.
	// Row numbering starts at 1.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row"`
}

// XLSXSettings contains settings for reading XLSX workbooks.
type XLSXSettings struct {
	// Sheet is the name of the sheet holding the transactions.
	// Default: the first sheet of the workbook
	Sheet string `yaml:"sheet"`

	// HeaderRow is the row holding the column names. Row numbering starts
	// at 1.
	// Default: 1
	HeaderRow int `yaml:"header_row"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
//
// Missing directories are created once the configuration is valid.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := ensureDirectories(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Parse decodes a configuration document, applies defaults and validates it.
// It does not touch the filesystem.
func Parse(data []byte) (*MainConfig, error) {
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputFormat == "" {
		config.OutputFormat = FormatJSON
	}
	config.OutputFormat = strings.ToLower(config.OutputFormat)
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{reference}_{timestamp}"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if len(config.FilePatterns) == 0 {
		config.FilePatterns = []string{"*.csv", "*.xlsx"}
	}
	if config.Payment.ReferenceFormat == "" {
		config.Payment.ReferenceFormat = "{uuid}"
	}

	applyColumnDefaults(&config.Columns)

	// CSV settings defaults.
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.CSVSettings.HeaderRows == 0 {
		config.CSVSettings.HeaderRows = 1
	}
	if config.CSVSettings.DataStartRow == 0 {
		config.CSVSettings.DataStartRow = config.CSVSettings.HeaderRows + 1
	}

	// XLSX settings defaults.
	if config.XLSXSettings.HeaderRow == 0 {
		config.XLSXSettings.HeaderRow = 1
	}
}

func applyColumnDefaults(columns *ColumnMapping) {
	if columns.Group == "" {
		columns.Group = "group"
	}
	if columns.Reference == "" {
		columns.Reference = "reference"
	}
	if columns.Amount == "" {
		columns.Amount = "amount"
	}
	if columns.Currency == "" {
		columns.Currency = "currency"
	}
	if columns.CreditorName == "" {
		columns.CreditorName = "creditor_name"
	}
	if columns.CreditorBIC == "" {
		columns.CreditorBIC = "creditor_bic"
	}
	if columns.CreditorIBAN == "" {
		columns.CreditorIBAN = "creditor_iban"
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration and reports every problem found, joined
// into a single error.
func (c *MainConfig) Validate() error {
	var problems []error

	switch c.OutputFormat {
	case FormatJSON, FormatXML:
	default:
		problems = append(problems, fmt.Errorf("unknown output format %q (expected %q or %q)", c.OutputFormat, FormatJSON, FormatXML))
	}

	if c.ArchiveRetentionDays < 0 {
		problems = append(problems, fmt.Errorf("archive_retention_days must not be negative, got %d", c.ArchiveRetentionDays))
	}

	if c.MaxConcurrency < 1 {
		problems = append(problems, fmt.Errorf("max_concurrency must be positive, got %d", c.MaxConcurrency))
	}

	if strings.TrimSpace(c.Payment.DebtorEntity) == "" {
		problems = append(problems, errors.New("payment.debtor_entity is required"))
	}

	if len(c.CSVSettings.Delimiter) != 1 && c.CSVSettings.Delimiter != "\\t" {
		problems = append(problems, fmt.Errorf("csv_settings.delimiter must be a single character, got %q", c.CSVSettings.Delimiter))
	}
	if c.CSVSettings.DataStartRow <= c.CSVSettings.HeaderRows {
		problems = append(problems, fmt.Errorf("csv_settings.data_start_row (%d) must come after the header rows (%d)",
			c.CSVSettings.DataStartRow, c.CSVSettings.HeaderRows))
	}

	problems = append(problems, validateGroups(c.Groups)...)

	for i, rule := range c.Transformations {
		if strings.TrimSpace(rule.Column) == "" {
			problems = append(problems, fmt.Errorf("transformations[%d]: column is required", i))
		}
		for j, action := range rule.Actions {
			if action.Type == "" {
				problems = append(problems, fmt.Errorf("transformations[%d].actions[%d]: type is required", i, j))
			}
		}
	}

	if c.Columns.DefaultGroup != "" && c.Group(c.Columns.DefaultGroup) == nil {
		problems = append(problems, fmt.Errorf("columns.default_group %q is not a configured group", c.Columns.DefaultGroup))
	}

	return errors.Join(problems...)
}

func validateGroups(groups []GroupConfig) []error {
	var problems []error
	seen := make(map[string]bool, len(groups))

	for i, g := range groups {
		if strings.TrimSpace(g.ID) == "" {
			problems = append(problems, fmt.Errorf("groups[%d]: id is required", i))
			continue
		}
		if seen[g.ID] {
			problems = append(problems, fmt.Errorf("groups[%d]: duplicate id %q", i, g.ID))
		}
		seen[g.ID] = true
	}

	return problems
}

// Group returns the configured group with the given id, or nil.
func (c *MainConfig) Group(id string) *GroupConfig {
	for i := range c.Groups {
		if c.Groups[i].ID == id {
			return &c.Groups[i]
		}
	}
	return nil
}

// ensureDirectories creates every configured directory that does not exist.
func ensureDirectories(config *MainConfig) error {
	dirs := []string{
		config.InputDir,
		config.OutputDir,
		config.InputArchiveDir,
		config.OutputArchiveDir,
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
