// =============================================================================
// SEPA Payment Builder - Row Validation Engine
// =============================================================================
//
// This module validates input rows before they are turned into payment
// transactions. The payment builder only checks document completeness
// (reference, debtor entity, groups); everything that can be wrong with a
// single input row is caught here, with the row number attached.
//
// VALIDATION RULES:
//   1. Required fields: reference, amount, and group (unless a default
//      group is configured)
//   2. Amount: must be a decimal number greater than zero
//   3. Amount precision: more than 2 decimal places is a warning, since
//      the control sum rounds every amount to 2 decimals
//   4. Group: must be one of the configured groups (when known)
//   5. Duplicate references within a group: warning, read-back resolves
//      the first match only
//   6. Custom validators registered per column
//
// ERROR HANDLING:
//   - Errors are collected, not returned on the first failure
//   - Each error carries the row number, column and offending value
//   - Warnings never make a row invalid unless TreatWarningsAsErrors is set
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/sepa-payment-builder/internal/config"
	"github.com/ginjaninja78/sepa-payment-builder/internal/types"
)

// Severity levels of a RowError.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// amountPrecision is the number of decimals kept by the control sum.
const amountPrecision = 2

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// RowError represents a single validation finding on an input row.
type RowError struct {
	// Severity is SeverityError (the row cannot be converted) or
	// SeverityWarning (the row is converted as is).
	Severity string

	// Field is the column that failed validation.
	Field string

	// Value is the actual value that failed validation.
	Value string

	// Rule is the validation rule that was violated.
	Rule string

	// Message is a human-readable error message.
	Message string

	// RowNumber is the row number in the input file.
	RowNumber int
}

// Error implements the error interface.
func (e *RowError) Error() string {
	return fmt.Sprintf("[%s] Row %d, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.RowNumber,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Result contains the results of validation.
type Result struct {
	// IsValid is true if no row has a fatal error.
	IsValid bool

	// Errors contains all validation findings (including warnings), in row
	// order.
	Errors []*RowError

	// ErrorCount is the number of fatal errors.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int

	// RowsValidated is the number of rows checked.
	RowsValidated int

	// invalidRows holds the row numbers with at least one fatal error.
	invalidRows map[int]bool
}

// RowValid reports whether the row with the given number passed validation.
func (r *Result) RowValid(rowNumber int) bool {
	return !r.invalidRows[rowNumber]
}

// InvalidRowCount returns the number of rows with at least one fatal error.
func (r *Result) InvalidRowCount() int {
	return len(r.invalidRows)
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator validates rows against the column mapping.
type Validator struct {
	columns config.ColumnMapping
	options Options
}

// Options contains options for validation.
type Options struct {
	// StopOnFirstError stops validation after the first fatal error.
	// Default: false
	StopOnFirstError bool

	// TreatWarningsAsErrors makes rows with warnings invalid.
	// Default: false
	TreatWarningsAsErrors bool

	// KnownGroups restricts the group column to these ids. When empty, any
	// group id is accepted.
	KnownGroups []string

	// CustomValidators maps a column name to an additional check.
	CustomValidators map[string]CustomValidatorFunc
}

// CustomValidatorFunc checks one value and returns an error message, or ""
// when the value is valid.
type CustomValidatorFunc func(value string, row types.Row) string

// NewValidator creates a Validator with default options.
func NewValidator(columns config.ColumnMapping) *Validator {
	return NewValidatorWithOptions(columns, Options{})
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(columns config.ColumnMapping, options Options) *Validator {
	return &Validator{
		columns: columns,
		options: options,
	}
}

// =============================================================================
// MAIN VALIDATION FUNCTIONS
// =============================================================================

// ValidateRows validates every row with default options.
//
// PARAMETERS:
//   - rows: The rows to validate.
//   - columns: The column mapping naming the fields to check.
//
// RETURNS:
//   - The validation result.
func ValidateRows(rows []types.Row, columns config.ColumnMapping) *Result {
	return NewValidator(columns).ValidateAll(rows)
}

// ValidateAll validates all rows and returns a detailed result.
func (v *Validator) ValidateAll(rows []types.Row) *Result {
	result := &Result{
		IsValid:     true,
		Errors:      make([]*RowError, 0),
		invalidRows: make(map[int]bool),
	}

	// seen tracks references per group for the duplicate check.
	seen := make(map[string]map[string]bool)

	for _, row := range rows {
		result.RowsValidated++

		rowErrors := v.ValidateRow(row)
		rowErrors = append(rowErrors, v.checkDuplicate(row, seen)...)

		for _, err := range rowErrors {
			result.Errors = append(result.Errors, err)

			if err.Severity == SeverityError {
				result.ErrorCount++
				result.IsValid = false
				result.invalidRows[row.Number] = true

				if v.options.StopOnFirstError {
					return result
				}
			} else {
				result.WarningCount++

				if v.options.TreatWarningsAsErrors {
					result.IsValid = false
					result.invalidRows[row.Number] = true
				}
			}
		}
	}

	return result
}

// ValidateRow validates a single row in isolation.
func (v *Validator) ValidateRow(row types.Row) []*RowError {
	var errors []*RowError

	// =========================================================================
	// REQUIRED FIELD VALIDATION
	// =========================================================================

	required := []string{v.columns.Reference, v.columns.Amount}
	if v.columns.DefaultGroup == "" {
		required = append(required, v.columns.Group)
	}

	for _, column := range required {
		if row.Get(column) == "" {
			errors = append(errors, &RowError{
				Severity:  SeverityError,
				Field:     column,
				Rule:      "required",
				Message:   fmt.Sprintf("Required field '%s' is empty", column),
				RowNumber: row.Number,
			})
		}
	}

	// =========================================================================
	// AMOUNT VALIDATION
	// =========================================================================

	if value := row.Get(v.columns.Amount); value != "" {
		errors = append(errors, v.validateAmount(value, row.Number)...)
	}

	// =========================================================================
	// GROUP VALIDATION
	// =========================================================================

	if group := v.GroupOf(row); group != "" && len(v.options.KnownGroups) > 0 && !v.isKnownGroup(group) {
		errors = append(errors, &RowError{
			Severity:  SeverityError,
			Field:     v.columns.Group,
			Value:     group,
			Rule:      "known_group",
			Message:   fmt.Sprintf("Group '%s' is not configured", group),
			RowNumber: row.Number,
		})
	}

	// =========================================================================
	// CUSTOM VALIDATORS
	// =========================================================================

	for column, validate := range v.options.CustomValidators {
		value := row.Get(column)
		if msg := validate(value, row); msg != "" {
			errors = append(errors, &RowError{
				Severity:  SeverityError,
				Field:     column,
				Value:     value,
				Rule:      "custom",
				Message:   msg,
				RowNumber: row.Number,
			})
		}
	}

	return errors
}

// GroupOf returns the group id of a row, falling back to the default group.
func (v *Validator) GroupOf(row types.Row) string {
	if group := row.Get(v.columns.Group); group != "" {
		return group
	}
	return v.columns.DefaultGroup
}

func (v *Validator) validateAmount(value string, rowNumber int) []*RowError {
	amount, err := ParseAmount(value)
	if err != nil {
		return []*RowError{{
			Severity:  SeverityError,
			Field:     v.columns.Amount,
			Value:     value,
			Rule:      "decimal",
			Message:   "Value is not a valid decimal amount",
			RowNumber: rowNumber,
		}}
	}

	if !amount.IsPositive() {
		return []*RowError{{
			Severity:  SeverityError,
			Field:     v.columns.Amount,
			Value:     value,
			Rule:      "positive",
			Message:   "Amount must be greater than zero",
			RowNumber: rowNumber,
		}}
	}

	if -amount.Exponent() > amountPrecision && !amount.Equal(amount.Round(amountPrecision)) {
		return []*RowError{{
			Severity:  SeverityWarning,
			Field:     v.columns.Amount,
			Value:     value,
			Rule:      "precision",
			Message:   fmt.Sprintf("Amount has more than %d decimal places and is rounded in the control sum", amountPrecision),
			RowNumber: rowNumber,
		}}
	}

	return nil
}

func (v *Validator) checkDuplicate(row types.Row, seen map[string]map[string]bool) []*RowError {
	reference := row.Get(v.columns.Reference)
	if reference == "" {
		return nil
	}

	group := v.GroupOf(row)
	if seen[group] == nil {
		seen[group] = make(map[string]bool)
	}
	if !seen[group][reference] {
		seen[group][reference] = true
		return nil
	}

	return []*RowError{{
		Severity:  SeverityWarning,
		Field:     v.columns.Reference,
		Value:     reference,
		Rule:      "unique_reference",
		Message:   fmt.Sprintf("Reference is already used in group '%s'", group),
		RowNumber: row.Number,
	}}
}

func (v *Validator) isKnownGroup(group string) bool {
	for _, known := range v.options.KnownGroups {
		if known == group {
			return true
		}
	}
	return false
}

// =============================================================================
// AMOUNT PARSING
// =============================================================================

// ParseAmount parses an amount as found in exports.
//
// ACCEPTED FORMATS:
//   - "1219.07"
//   - "1,219.07"  (comma as thousands separator when a dot is present)
//   - "1219,07"   (comma as decimal separator when no dot is present)
//   - "1 219.07"  (spaces are ignored)
func ParseAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), " ", "")

	if strings.Contains(cleaned, ".") {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	} else if strings.Count(cleaned, ",") == 1 {
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*RowError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}
