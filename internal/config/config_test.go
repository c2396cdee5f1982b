package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
payment:
  debtor_entity: ACME Corp
groups:
  - id: EUR-MAIN
    currency: EUR
    debtor_account:
      name: ACME
      bic: DEUTDEFF
      iban: DE89370400440532013000
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "./input_archive", cfg.InputArchiveDir)
	assert.Equal(t, "./output_archive", cfg.OutputArchiveDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, FormatJSON, cfg.OutputFormat)
	assert.Equal(t, "{reference}_{timestamp}", cfg.OutputNameFormat)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, []string{"*.csv", "*.xlsx"}, cfg.FilePatterns)
	assert.Equal(t, "{uuid}", cfg.Payment.ReferenceFormat)

	assert.Equal(t, "group", cfg.Columns.Group)
	assert.Equal(t, "reference", cfg.Columns.Reference)
	assert.Equal(t, "amount", cfg.Columns.Amount)
	assert.Equal(t, "currency", cfg.Columns.Currency)
	assert.Equal(t, "creditor_name", cfg.Columns.CreditorName)
	assert.Equal(t, "creditor_bic", cfg.Columns.CreditorBIC)
	assert.Equal(t, "creditor_iban", cfg.Columns.CreditorIBAN)

	assert.Equal(t, ",", cfg.CSVSettings.Delimiter)
	assert.Equal(t, 1, cfg.CSVSettings.HeaderRows)
	assert.Equal(t, 2, cfg.CSVSettings.DataStartRow)
	assert.Equal(t, 1, cfg.XLSXSettings.HeaderRow)

	group := cfg.Group("EUR-MAIN")
	require.NotNil(t, group)
	assert.Equal(t, "DEUTDEFF", group.DebtorAccount.BIC)
	assert.Nil(t, cfg.Group("missing"))
}

func TestParseKeepsExplicitValues(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig + `
output_format: XML
max_concurrency: 1
csv_settings:
  delimiter: ";"
  header_rows: 2
columns:
  reference: ref
  custom: [transactionId]
  default_group: EUR-MAIN
`))
	require.NoError(t, err)

	assert.Equal(t, FormatXML, cfg.OutputFormat)
	assert.Equal(t, 1, cfg.MaxConcurrency)
	assert.Equal(t, ";", cfg.CSVSettings.Delimiter)
	assert.Equal(t, 3, cfg.CSVSettings.DataStartRow)
	assert.Equal(t, "ref", cfg.Columns.Reference)
	assert.Equal(t, "amount", cfg.Columns.Amount)
	assert.Equal(t, []string{"transactionId"}, cfg.Columns.Custom)
	assert.Equal(t, "EUR-MAIN", cfg.Columns.DefaultGroup)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		contains []string
	}{
		{
			name:     "missing debtor entity",
			yaml:     `groups: [{id: A}]`,
			contains: []string{"payment.debtor_entity is required"},
		},
		{
			name:     "unknown output format",
			yaml:     minimalConfig + "output_format: csv\n",
			contains: []string{`unknown output format "csv"`},
		},
		{
			name:     "negative concurrency",
			yaml:     minimalConfig + "max_concurrency: -2\n",
			contains: []string{"max_concurrency must be positive, got -2"},
		},
		{
			name: "duplicate and empty group ids",
			yaml: `
payment: {debtor_entity: ACME}
groups: [{id: A}, {id: ""}, {id: A}]
`,
			contains: []string{"groups[1]: id is required", `groups[2]: duplicate id "A"`},
		},
		{
			name:     "unknown default group",
			yaml:     minimalConfig + "columns: {default_group: OTHER}\n",
			contains: []string{`columns.default_group "OTHER" is not a configured group`},
		},
		{
			name:     "data before headers",
			yaml:     minimalConfig + "csv_settings: {header_rows: 3, data_start_row: 2}\n",
			contains: []string{"csv_settings.data_start_row (2) must come after the header rows (3)"},
		},
		{
			name:     "multi character delimiter",
			yaml:     minimalConfig + "csv_settings: {delimiter: '::'}\n",
			contains: []string{"csv_settings.delimiter must be a single character"},
		},
		{
			name: "reports every problem",
			yaml: `
output_format: pdf
max_concurrency: -1
`,
			contains: []string{"unknown output format", "max_concurrency must be positive", "payment.debtor_entity is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			for _, want := range tt.contains {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("groups: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadMainConfigCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := minimalConfig + `
input_dir: ` + filepath.Join(dir, "in") + `
output_dir: ` + filepath.Join(dir, "out") + `
input_archive_dir: ` + filepath.Join(dir, "archive", "in") + `
output_archive_dir: ` + filepath.Join(dir, "archive", "out") + `
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := LoadMainConfig(configPath)
	require.NoError(t, err)

	for _, d := range []string{cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir} {
		assert.DirExists(t, d)
	}
}

func TestLoadMainConfigMissingFile(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
