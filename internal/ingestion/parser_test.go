package ingestion

import (
	"errors"
	"strings"
	"testing"
)

const csvHeader = "policy_number,customer,policy_type,start_date,end_date,premium_usd,status,insured_value_usd"

func TestParseUploadMapsColumnsByHeaderName(t *testing.T) {
	// Columns in a different order than the canonical header.
	data := "customer,policy_number,status,policy_type,start_date,end_date,premium_usd,insured_value_usd\n" +
		"Acme Corp,PN-001,active,Property,2024-01-01,2025-01-01,1200.50,250000\n"

	rows, err := parseUpload("policies.csv", []byte(data))
	if err != nil {
		t.Fatalf("parseUpload returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Number != 1 {
		t.Fatalf("expected row number 1, got %d", rows[0].Number)
	}
	if got := rows[0].Get("policy_number"); got != "PN-001" {
		t.Errorf("expected policy_number PN-001, got %q", got)
	}
	if got := rows[0].Get("customer"); got != "Acme Corp" {
		t.Errorf("expected customer Acme Corp, got %q", got)
	}
}

func TestParseUploadSkipsBlankLinesWithoutConsumingRowNumbers(t *testing.T) {
	data := csvHeader + "\n" +
		"PN-001,Acme,Property,2024-01-01,2025-01-01,100,active,6000\n" +
		"\n" +
		",,,,,,,\n" +
		"PN-002,Globex,Auto,2024-01-01,2025-01-01,100,active,15000\n"

	rows, err := parseUpload("policies.csv", []byte(data))
	if err != nil {
		t.Fatalf("parseUpload returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Number != 1 || rows[1].Number != 2 {
		t.Fatalf("expected row numbers 1 and 2, got %d and %d", rows[0].Number, rows[1].Number)
	}
	if got := rows[1].Get("policy_number"); got != "PN-002" {
		t.Errorf("expected PN-002 in row 2, got %q", got)
	}
}

func TestParseUploadStripsByteOrderMark(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(csvHeader+"\nPN-001,Acme,Life,2024-01-01,2025-01-01,100,active,0\n")...)

	rows, err := parseUpload("policies.csv", data)
	if err != nil {
		t.Fatalf("parseUpload returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if got := rows[0].Get("policy_number"); got != "PN-001" {
		t.Errorf("expected PN-001, got %q", got)
	}
}

func TestParseUploadRejectsMismatchedQuoting(t *testing.T) {
	data := csvHeader + "\n" +
		"PN-001,\"unterminated,Property,2024-01-01,2025-01-01,100,active,6000\n" +
		"PN-002,Globex,Auto,2024-01-01,2025-01-01,100,active,15000"

	_, err := parseUpload("policies.csv", []byte(data))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParseUploadRejectsMissingColumns(t *testing.T) {
	data := "policy_number,customer\nPN-001,Acme\n"

	_, err := parseUpload("policies.csv", []byte(data))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if !strings.Contains(parseErr.Reason, "missing required columns") {
		t.Errorf("unexpected reason: %q", parseErr.Reason)
	}
}

func TestParseUploadRejectsUnsupportedExtension(t *testing.T) {
	_, err := parseUpload("policies.pdf", []byte("whatever"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseUploadHeaderOnly(t *testing.T) {
	rows, err := parseUpload("policies.csv", []byte(csvHeader+"\n"))
	if err != nil {
		t.Fatalf("parseUpload returned error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected 0 rows, got %d", len(rows))
	}
}

func TestParseUploadShortRecordPadsMissingColumns(t *testing.T) {
	data := csvHeader + "\nPN-001,Acme,Property\n"

	rows, err := parseUpload("policies.csv", []byte(data))
	if err != nil {
		t.Fatalf("parseUpload returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if got := rows[0].Get("start_date"); got != "" {
		t.Errorf("expected empty start_date, got %q", got)
	}
}
