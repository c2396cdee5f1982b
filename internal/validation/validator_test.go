package validation

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/sepa-payment-builder/internal/config"
	"github.com/ginjaninja78/sepa-payment-builder/internal/types"
)

func columns() config.ColumnMapping {
	return config.ColumnMapping{
		Group:     "group",
		Reference: "reference",
		Amount:    "amount",
	}
}

func row(number int, group, reference, amount string) types.Row {
	return types.Row{
		Number: number,
		Fields: map[string]string{"group": group, "reference": reference, "amount": amount},
	}
}

func TestValidateRowsValid(t *testing.T) {
	result := ValidateRows([]types.Row{
		row(2, "G1", "T1", "10.50"),
		row(3, "G1", "T2", "1,219.07"),
		row(4, "G2", "T1", "7"),
	}, columns())

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 3, result.RowsValidated)
	assert.True(t, result.RowValid(2))
}

func TestValidateRowRules(t *testing.T) {
	tests := []struct {
		name     string
		row      types.Row
		severity string
		rule     string
		field    string
	}{
		{"missing reference", row(2, "G1", "", "1"), SeverityError, "required", "reference"},
		{"missing amount", row(2, "G1", "T1", ""), SeverityError, "required", "amount"},
		{"missing group", row(2, "", "T1", "1"), SeverityError, "required", "group"},
		{"not a number", row(2, "G1", "T1", "ten"), SeverityError, "decimal", "amount"},
		{"zero amount", row(2, "G1", "T1", "0.00"), SeverityError, "positive", "amount"},
		{"negative amount", row(2, "G1", "T1", "-5"), SeverityError, "positive", "amount"},
		{"too precise", row(2, "G1", "T1", "231.349819872"), SeverityWarning, "precision", "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := NewValidator(columns()).ValidateRow(tt.row)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.severity, errs[0].Severity)
			assert.Equal(t, tt.rule, errs[0].Rule)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, 2, errs[0].RowNumber)
		})
	}
}

func TestTrailingZerosAreNotTooPrecise(t *testing.T) {
	errs := NewValidator(columns()).ValidateRow(row(2, "G1", "T1", "10.5000"))
	assert.Empty(t, errs)
}

func TestDefaultGroup(t *testing.T) {
	cols := columns()
	cols.DefaultGroup = "MAIN"
	v := NewValidator(cols)

	assert.Empty(t, v.ValidateRow(row(2, "", "T1", "1")))
	assert.Equal(t, "MAIN", v.GroupOf(row(2, "", "T1", "1")))
	assert.Equal(t, "G1", v.GroupOf(row(2, "G1", "T1", "1")))
}

func TestKnownGroups(t *testing.T) {
	v := NewValidatorWithOptions(columns(), Options{KnownGroups: []string{"G1"}})

	assert.Empty(t, v.ValidateRow(row(2, "G1", "T1", "1")))

	errs := v.ValidateRow(row(3, "G9", "T1", "1"))
	require.Len(t, errs, 1)
	assert.Equal(t, "known_group", errs[0].Rule)
	assert.Equal(t, "G9", errs[0].Value)
}

func TestCollectsEveryFinding(t *testing.T) {
	result := ValidateRows([]types.Row{
		row(2, "", "", "abc"),
		row(3, "G1", "T1", "5"),
		row(4, "G1", "T1", "12.345"),
	}, columns())

	assert.False(t, result.IsValid)
	assert.Equal(t, 3, result.ErrorCount)
	assert.Equal(t, 2, result.WarningCount)
	assert.Equal(t, 1, result.InvalidRowCount())
	assert.False(t, result.RowValid(2))
	assert.True(t, result.RowValid(3))
	assert.True(t, result.RowValid(4))

	rules := make([]string, 0, len(result.Errors))
	for _, err := range result.Errors {
		rules = append(rules, err.Rule)
	}
	assert.Equal(t, []string{"required", "required", "decimal", "precision", "unique_reference"}, rules)
}

func TestStopOnFirstError(t *testing.T) {
	v := NewValidatorWithOptions(columns(), Options{StopOnFirstError: true})
	result := v.ValidateAll([]types.Row{
		row(2, "G1", "", "1"),
		row(3, "G1", "", "1"),
	})

	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 1, result.RowsValidated)
}

func TestTreatWarningsAsErrors(t *testing.T) {
	v := NewValidatorWithOptions(columns(), Options{TreatWarningsAsErrors: true})
	result := v.ValidateAll([]types.Row{row(2, "G1", "T1", "1.001")})

	assert.False(t, result.IsValid)
	assert.Equal(t, 0, result.ErrorCount)
	assert.Equal(t, 1, result.WarningCount)
	assert.False(t, result.RowValid(2))
}

func TestCustomValidators(t *testing.T) {
	v := NewValidatorWithOptions(columns(), Options{
		CustomValidators: map[string]CustomValidatorFunc{
			"reference": func(value string, _ types.Row) string {
				if !strings.HasPrefix(value, "INV-") {
					return "Reference must start with INV-"
				}
				return ""
			},
		},
	})

	assert.Empty(t, v.ValidateRow(row(2, "G1", "INV-1", "1")))

	errs := v.ValidateRow(row(2, "G1", "X-1", "1"))
	require.Len(t, errs, 1)
	assert.Equal(t, "custom", errs[0].Rule)
	assert.Equal(t, "Reference must start with INV-", errs[0].Message)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1219.07", "1219.07"},
		{"1,219.07", "1219.07"},
		{"1219,07", "1219.07"},
		{" 1 219.07 ", "1219.07"},
		{"42", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			amount, err := ParseAmount(tt.input)
			require.NoError(t, err)
			assert.True(t, amount.Equal(decimal.RequireFromString(tt.expected)), "got %s", amount)
		})
	}

	for _, bad := range []string{"", "abc", "1,2,3"} {
		_, err := ParseAmount(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatErrors(t *testing.T) {
	assert.Equal(t, "No validation errors.", FormatErrors(nil))

	out := FormatErrors([]*RowError{{
		Severity:  SeverityError,
		Field:     "amount",
		Value:     "ten",
		Message:   "Value is not a valid decimal amount",
		RowNumber: 7,
	}})
	assert.Contains(t, out, "Validation completed with 1 finding(s)")
	assert.Contains(t, out, "1. [ERROR] Row 7, Field 'amount': Value is not a valid decimal amount (value: 'ten')")
}
