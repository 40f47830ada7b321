package csvimport

import (
	"regexp"
	"strings"
)

// ColumnType is the inferred logical type of a CSV column.
type ColumnType string

const (
	TypeDate       ColumnType = "date"
	TypePercentage ColumnType = "percentage"
	TypeCurrency   ColumnType = "currency"
	TypeDecimal    ColumnType = "decimal"
	TypeInteger    ColumnType = "integer"
	TypeText       ColumnType = "text"
)

// ColumnInfo describes one header with its inferred type and sample values.
type ColumnInfo struct {
	Header  string     `json:"header"`
	Type    ColumnType `json:"type"`
	Samples []string   `json:"samples"`
}

// Preview is the dry-run output for a CSV upload: enough structure for a
// caller to build a field mapping without persisting anything.
type Preview struct {
	Headers     []string     `json:"headers"`
	Columns     []ColumnInfo `json:"columns"`
	TotalRows   int          `json:"totalRows"`
	PreviewRows [][]string   `json:"previewRows"`
	Delimiter   string       `json:"delimiter"`
	Encoding    string       `json:"encoding"`
}

const (
	maxInferenceSamples = 20
	maxPreviewRows      = 10
)

var (
	// Australian day-first or ISO dates.
	auDatePattern  = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`)
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

	percentagePattern = regexp.MustCompile(`^-?\d+(\.\d+)?%$`)
	// Thousands separators with exactly two decimals read as currency even
	// without a dollar sign.
	currencyCommaPattern = regexp.MustCompile(`^\(?-?\d{1,3}(,\d{3})+\.\d{2}\)?$`)
	decimalPattern       = regexp.MustCompile(`^-?\d+\.\d+$`)
	integerPattern       = regexp.MustCompile(`^-?\d+$`)
)

// BuildPreview parses and profiles a CSV upload without touching any store.
func BuildPreview(data []byte) (*Preview, error) {
	parsed, err := Parse(data)
	if err != nil {
		return nil, err
	}

	nonBlank := parsed.NonBlankRecords()
	preview := &Preview{
		Headers:   parsed.Headers,
		Columns:   InferColumns(parsed.Headers, nonBlank),
		TotalRows: parsed.TotalRows,
		Delimiter: string(parsed.Delimiter),
		Encoding:  parsed.Encoding,
	}
	for i, row := range nonBlank {
		if i >= maxPreviewRows {
			break
		}
		preview.PreviewRows = append(preview.PreviewRows, row)
	}
	return preview, nil
}

// InferColumns classifies every header from up to twenty non-empty samples
// per column.
func InferColumns(headers []string, rows [][]string) []ColumnInfo {
	columns := make([]ColumnInfo, len(headers))
	for col, header := range headers {
		samples := make([]string, 0, maxInferenceSamples)
		for _, row := range rows {
			if len(samples) >= maxInferenceSamples {
				break
			}
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					samples = append(samples, value)
				}
			}
		}
		columns[col] = ColumnInfo{
			Header:  header,
			Type:    inferType(samples),
			Samples: samples,
		}
	}
	return columns
}

// classifyValue applies the ordered checks: date beats percentage beats
// currency beats decimal beats integer; everything else is text.
func classifyValue(value string) ColumnType {
	switch {
	case auDatePattern.MatchString(value) || isoDatePattern.MatchString(value):
		return TypeDate
	case percentagePattern.MatchString(value):
		return TypePercentage
	case strings.Contains(value, "$") || currencyCommaPattern.MatchString(value):
		return TypeCurrency
	case decimalPattern.MatchString(value):
		return TypeDecimal
	case integerPattern.MatchString(value):
		return TypeInteger
	}
	return TypeText
}

// inferType picks the type with majority (>50%) agreement among the
// samples. When decimals and integers split the column, decimal wins so no
// fractional values are truncated.
func inferType(samples []string) ColumnType {
	if len(samples) == 0 {
		return TypeText
	}

	counts := make(map[ColumnType]int)
	for _, sample := range samples {
		counts[classifyValue(sample)]++
	}

	for columnType, count := range counts {
		if count*2 > len(samples) {
			return columnType
		}
	}

	// Mixed whole and fractional numbers settle as decimal so nothing is
	// truncated.
	if counts[TypeDecimal] > 0 && counts[TypeInteger] > 0 &&
		(counts[TypeDecimal]+counts[TypeInteger])*2 > len(samples) {
		return TypeDecimal
	}

	return TypeText
}
