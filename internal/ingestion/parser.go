package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// Column names the upload must provide, in any order.
var requiredColumns = []string{
	"policy_number",
	"customer",
	"policy_type",
	"start_date",
	"end_date",
	"premium_usd",
	"status",
	"insured_value_usd",
}

// ParseError marks a batch-fatal parsing failure. Unlike row-level validation
// errors it aborts the upload before any row is evaluated.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// RawRow is one data row of the upload, keyed by header column name.
// Number is 1-based over data rows; the header and blank lines do not count.
type RawRow struct {
	Number int
	Values map[string]string
}

// Get returns the trimmed value of a column, or "" when absent.
func (r RawRow) Get(column string) string {
	return strings.TrimSpace(r.Values[column])
}

// parseUpload tokenizes the uploaded file into raw rows. The first non-blank
// record is the header; every required column must be present in it.
func parseUpload(fileName string, payload []byte) ([]RawRow, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv", "":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) ([]RawRow, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, &ParseError{Reason: "failed to read csv", Err: err}
	}

	return buildRows(records)
}

func parseExcel(payload []byte) ([]RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, &ParseError{Reason: "failed to open xlsx", Err: err}
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Reason: "excel file has no sheets"}
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Reason: "failed to read rows from xlsx", Err: err}
	}

	return buildRows(records)
}

// buildRows maps records positionally against the header row. Blank lines are
// dropped without consuming a row number.
func buildRows(records [][]string) ([]RawRow, error) {
	var header []string
	var rows []RawRow

	for _, record := range records {
		if isBlankRecord(record) {
			continue
		}
		if header == nil {
			header = make([]string, len(record))
			for i, cell := range record {
				header[i] = strings.ToLower(strings.TrimSpace(cell))
			}
			if err := checkColumns(header); err != nil {
				return nil, err
			}
			continue
		}

		values := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				values[name] = record[i]
			} else {
				values[name] = ""
			}
		}
		rows = append(rows, RawRow{Number: len(rows) + 1, Values: values})
	}

	if header == nil {
		return nil, &ParseError{Reason: "no header row found"}
	}

	return rows, nil
}

func checkColumns(header []string) error {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}

	var missing []string
	for _, name := range requiredColumns {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &ParseError{Reason: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))}
	}
	return nil
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
