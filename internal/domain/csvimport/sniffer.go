// Package csvimport turns uploaded CSV text into typed, validated weekly
// metric rows: delimiter detection, per-column type inference, and row-level
// validation against a field mapping.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var ErrEmptyFile = errors.New("file is empty")

// ParseResult is the structural read of a CSV file, before any validation.
type ParseResult struct {
	Headers   []string
	Records   [][]string // every data row, blanks included
	TotalRows int
	Delimiter rune
	Encoding  string
}

// Parse reads the raw bytes of a CSV upload. The delimiter is detected by
// counting candidate occurrences over the first five lines, defaulting to
// comma when nothing wins.
func Parse(data []byte) (*ParseResult, error) {
	data, encoding := normalize(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	delimiter := detectDelimiter(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(records)+2, err)
		}
		records = append(records, record)
	}

	return &ParseResult{
		Headers:   headers,
		Records:   records,
		TotalRows: len(records),
		Delimiter: delimiter,
		Encoding:  encoding,
	}, nil
}

// NonBlankRecords returns the rows with at least one non-empty cell,
// preserving order. Blank rows still count toward TotalRows.
func (p *ParseResult) NonBlankRecords() [][]string {
	rows := make([][]string, 0, len(p.Records))
	for _, record := range p.Records {
		if !isBlankRow(record) {
			rows = append(rows, record)
		}
	}
	return rows
}

func isBlankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// detectDelimiter counts comma, tab and semicolon occurrences across the
// first five lines and picks the most frequent; comma wins by default.
func detectDelimiter(data []byte) rune {
	lines := strings.SplitN(string(data), "\n", 6)
	if len(lines) > 5 {
		lines = lines[:5]
	}
	sample := strings.Join(lines, "\n")

	best := ','
	bestCount := 0
	for _, candidate := range []rune{',', '\t', ';'} {
		count := strings.Count(sample, string(candidate))
		if count > bestCount {
			bestCount = count
			best = candidate
		}
	}
	return best
}

// normalize strips a UTF-8 BOM and decodes latin-1 fallback content, and
// reports the encoding it saw.
func normalize(data []byte) ([]byte, string) {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:], "utf-8-bom"
	}
	if utf8.Valid(data) {
		return data, "utf-8"
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return []byte(string(runes)), "latin-1"
}
