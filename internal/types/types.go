// =============================================================================
// SEPA Payment Builder - Shared Types
// =============================================================================
//
// This package contains the input types shared by the parsers, the row
// validator and the converter, so that none of them import each other.
//
// =============================================================================

package types

// =============================================================================
// INPUT TABLE TYPES
// =============================================================================

// Table is a parsed input file: a header row and the data rows below it.
// CSV and XLSX inputs both end up as a Table.
type Table struct {
	// Headers contains the cleaned column headers, in column order.
	Headers []string

	// Rows contains the non-empty data rows, in file order.
	Rows []Row

	// SourceFile is the path of the parsed file.
	SourceFile string
}

// Row is one data row of an input file.
type Row struct {
	// Number is the 1-indexed line (CSV) or row (XLSX) number in the source
	// file. Useful for error reporting.
	Number int

	// Fields maps header to trimmed cell value. Cells missing from a short
	// row are present with an empty value.
	Fields map[string]string
}

// Get returns the value of a column, or "" when the column does not exist.
func (r Row) Get(column string) string {
	return r.Fields[column]
}

// Column returns every value of a column, in row order.
func (t *Table) Column(header string) []string {
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row.Fields[header]
	}
	return values
}

// HasColumn reports whether the table has the given header.
func (t *Table) HasColumn(header string) bool {
	for _, h := range t.Headers {
		if h == header {
			return true
		}
	}
	return false
}
