// =============================================================================
// SEPA Payment Builder - XLSX Transaction Sheet Parser
// =============================================================================
//
// This module reads payment transactions maintained in an XLSX workbook. The
// transactions live on one sheet: a header row naming the columns followed
// by one transaction per row.
//
// SHEET STRUCTURE (Example):
//
//   | A         | B        | C      | D        | E             | F             |
//   |-----------|----------|--------|----------|---------------|---------------|
//   | group     | reference| amount | currency | creditor_name | creditor_iban |
//   | EUR-MAIN  | INV-1001 | 120.5  | EUR      | Bob           | FR76...       |
//   | EUR-MAIN  | INV-1002 | 99     | EUR      | Jack          | DE02...       |
//
// Cell values are read raw (unformatted), so a cell displaying "1,219.07"
// yields "1219.07".
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/sepa-payment-builder/internal/config"
	"github.com/ginjaninja78/sepa-payment-builder/internal/types"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads the transaction sheet of an XLSX workbook.
//
// PARAMETERS:
//   - filePath: The path to the XLSX workbook.
//   - settings: The XLSX settings. An empty sheet name selects the first
//     sheet of the workbook.
//
// RETURNS:
//   - The parsed table. Empty rows are skipped.
//   - An error if the workbook cannot be opened or the sheet does not exist.
func Parse(filePath string, settings config.XLSXSettings) (*types.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName, err := resolveSheet(f, settings.Sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheetName, err)
	}

	headerRow := settings.HeaderRow
	if headerRow <= 0 {
		headerRow = 1
	}
	if len(rows) < headerRow || isRowEmpty(rows[headerRow-1]) {
		return nil, fmt.Errorf("sheet %q has no header in row %d", sheetName, headerRow)
	}

	table := &types.Table{
		Headers:    cleanHeaders(rows[headerRow-1]),
		Rows:       []types.Row{},
		SourceFile: filePath,
	}

	for i := headerRow; i < len(rows); i++ {
		if isRowEmpty(rows[i]) {
			continue
		}
		table.Rows = append(table.Rows, types.Row{
			Number: i + 1,
			Fields: rowFields(rows[i], table.Headers),
		})
	}

	return table, nil
}

// resolveSheet returns the configured sheet, or the first sheet when none
// is configured.
func resolveSheet(f *excelize.File, name string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}

	if name == "" {
		return sheets[0], nil
	}

	for _, sheet := range sheets {
		if strings.EqualFold(sheet, name) {
			return sheet, nil
		}
	}

	return "", fmt.Errorf("sheet %q not found (available: %s)", name, strings.Join(sheets, ", "))
}

// rowFields maps a row onto the headers. Trailing cells that excelize does
// not return are present with an empty value.
func rowFields(row []string, headers []string) map[string]string {
	fields := make(map[string]string, len(headers))
	for i, header := range headers {
		if i < len(row) {
			fields[header] = strings.TrimSpace(row[i])
		} else {
			fields[header] = ""
		}
	}
	return fields
}

// cleanHeaders trims headers and names empty ones after their column letter.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			name, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				name = fmt.Sprintf("%d", i+1)
			}
			header = "Column_" + name
		}
		cleaned[i] = header
	}
	return cleaned
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
