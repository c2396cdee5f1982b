// =============================================================================
// SEPA Payment Builder - CSV Parser Module
// =============================================================================
//
// This module parses CSV transaction exports into a types.Table. It handles:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - Multi-line headers
//   - Custom data start rows
//   - A leading UTF-8 byte order mark (spreadsheet exports)
//
// Parse loads a whole file; StreamingParser reads one row at a time and is
// what Parse is built on.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/sepa-payment-builder/internal/config"
	"github.com/ginjaninja78/sepa-payment-builder/internal/types"
)

// ErrEmptyFile is returned when a CSV file has no header row.
var ErrEmptyFile = errors.New("CSV file is empty")

// byteOrderMark is stripped from the first header cell.
const byteOrderMark = "\uFEFF"

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns the parsed table.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings from the configuration.
//
// RETURNS:
//   - The parsed table. Empty data rows are skipped.
//   - An error if the file cannot be read or has no header.
func Parse(filePath string, settings config.CSVSettings) (*types.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ParseReader(file, filePath, settings)
}

// ParseReader parses CSV content from r. source is recorded as the table's
// SourceFile.
func ParseReader(r io.Reader, source string, settings config.CSVSettings) (*types.Table, error) {
	parser, err := newStreamingParser(r, nil, settings)
	if err != nil {
		return nil, err
	}

	table := &types.Table{
		Headers:    parser.Headers(),
		Rows:       []types.Row{},
		SourceFile: source,
	}

	for parser.Next() {
		table.Rows = append(table.Rows, parser.Row())
	}
	if err := parser.Err(); err != nil {
		return nil, err
	}

	return table, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Exports are not always rectangular; short rows are padded later.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// mergeHeaders merges one or more header rows into a single set of headers.
//
// MULTI-LINE HEADER HANDLING:
//   Non-empty cells of the same column are joined with an underscore.
//
//   Row 1: "creditor", "",     "creditor"
//   Row 2: "name",     "amount", "iban"
//   Result: "creditor_name", "amount", "creditor_iban"
func mergeHeaders(headerRows [][]string) []string {
	if len(headerRows) == 1 {
		return cleanHeaders(headerRows[0])
	}

	maxCols := 0
	for _, row := range headerRows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for _, row := range headerRows {
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, "_")
	}

	return cleanHeaders(headers)
}

// cleanHeaders trims headers and names empty ones after their position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(strings.TrimPrefix(header, byteOrderMark))
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}

	return cleaned
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// STREAMING PARSER FOR LARGE FILES
// =============================================================================

// StreamingParser reads a CSV file one row at a time.
//
// USAGE:
//   parser, err := NewStreamingParser(filePath, settings)
//   if err != nil {
//       return err
//   }
//   defer parser.Close()
//
//   for parser.Next() {
//       row := parser.Row()
//       // Process the row...
//   }
//
//   if err := parser.Err(); err != nil {
//       return err
//   }
type StreamingParser struct {
	closer     io.Closer
	reader     *csv.Reader
	headers    []string
	currentRow types.Row
	rowNumber  int
	err        error
	settings   config.CSVSettings
}

// NewStreamingParser opens a CSV file, reads its headers and positions the
// parser on the first data row.
func NewStreamingParser(filePath string, settings config.CSVSettings) (*StreamingParser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	parser, err := newStreamingParser(file, file, settings)
	if err != nil {
		file.Close()
		return nil, err
	}
	return parser, nil
}

func newStreamingParser(r io.Reader, closer io.Closer, settings config.CSVSettings) (*StreamingParser, error) {
	if settings.HeaderRows <= 0 {
		return nil, fmt.Errorf("header_rows must be at least 1")
	}

	reader := csv.NewReader(bufio.NewReader(r))
	configureReader(reader, settings)

	parser := &StreamingParser{
		closer:   closer,
		reader:   reader,
		settings: settings,
	}

	if err := parser.readHeaders(); err != nil {
		return nil, err
	}
	if err := parser.skipToDataStart(); err != nil {
		return nil, err
	}

	return parser, nil
}

// readHeaders reads and merges the header rows.
func (p *StreamingParser) readHeaders() error {
	headerRows := make([][]string, 0, p.settings.HeaderRows)

	for i := 0; i < p.settings.HeaderRows; i++ {
		row, err := p.reader.Read()
		if err == io.EOF {
			if i == 0 {
				return ErrEmptyFile
			}
			return fmt.Errorf("unexpected end of file while reading headers")
		}
		if err != nil {
			return fmt.Errorf("error reading header row %d: %w", i+1, err)
		}
		headerRows = append(headerRows, row)
		p.rowNumber++
	}

	p.headers = mergeHeaders(headerRows)
	return nil
}

// skipToDataStart skips rows until the data start row.
func (p *StreamingParser) skipToDataStart() error {
	targetRow := p.settings.DataStartRow
	if targetRow <= 0 {
		targetRow = p.settings.HeaderRows + 1
	}

	for p.rowNumber < targetRow-1 {
		_, err := p.reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error skipping to data start: %w", err)
		}
		p.rowNumber++
	}

	return nil
}

// Next advances to the next non-empty row. Returns false when there are no
// more rows or an error occurred.
func (p *StreamingParser) Next() bool {
	for p.err == nil {
		row, err := p.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber+1, err)
			return false
		}

		p.rowNumber++
		if isRowEmpty(row) {
			continue
		}

		fields := make(map[string]string, len(p.headers))
		for i, header := range p.headers {
			if i < len(row) {
				fields[header] = strings.TrimSpace(row[i])
			} else {
				fields[header] = ""
			}
		}
		line, _ := p.reader.FieldPos(0)
		p.currentRow = types.Row{Number: line, Fields: fields}
		return true
	}
	return false
}

// Row returns the current row.
func (p *StreamingParser) Row() types.Row {
	return p.currentRow
}

// Headers returns the parsed headers.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// RowNumber returns the number of records read so far, headers included.
// Blank lines are not records; use Row().Number for the line in the file.
func (p *StreamingParser) RowNumber() int {
	return p.rowNumber
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close closes the underlying file.
func (p *StreamingParser) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
