package csvimport

import (
	"fmt"
	"strings"
	"time"

	"github.com/FACorreiaa/weekly-pulse/pkg/money"
	"github.com/FACorreiaa/weekly-pulse/pkg/weekdate"
)

// FieldMapping binds one CSV header to a target database field.
type FieldMapping struct {
	CSVHeader  string     `json:"csvHeader"`
	DBField    string     `json:"dbField"`
	Type       ColumnType `json:"expectedType"`
	Required   bool       `json:"required"`
	WeekEnding bool       `json:"weekEnding"` // field is the canonical week-ending date
}

// RowStatus is the validation outcome for one row, worst field wins.
type RowStatus string

const (
	StatusPass    RowStatus = "pass"
	StatusWarning RowStatus = "warning"
	StatusError   RowStatus = "error"
)

// RowValidation is the typed, coerced read of one non-blank CSV row.
// RowIndex is 1-based over non-blank data rows.
type RowValidation struct {
	RowIndex int               `json:"rowIndex"`
	Status   RowStatus         `json:"status"`
	Messages []string          `json:"messages"`
	Data     map[string]any    `json:"data"`
	Original map[string]string `json:"original"`
}

// ValidationResult is the full outcome of validating a parsed CSV against a
// field mapping.
type ValidationResult struct {
	Rows           []RowValidation `json:"rows"`
	TotalRows      int             `json:"totalRows"`
	BlankSkipped   int             `json:"blankSkipped"`
	Passed         int             `json:"passed"`
	Warned         int             `json:"warned"`
	Failed         int             `json:"failed"`
	DuplicateWeeks []time.Time     `json:"duplicateWeeks"`
}

// ValidateRows coerces every non-blank row against the mapping. Blank rows
// are counted and dropped entirely. Row status is the worst outcome across
// all mapped fields, never short-circuited, so a caller sees every problem
// in a row at once. existingWeeks is compared against validated week-ending
// values; duplicates are reported as information, not resolved here.
// Resolution belongs to the import engine's duplicate strategy.
func ValidateRows(parsed *ParseResult, mappings []FieldMapping, existingWeeks []time.Time) *ValidationResult {
	result := &ValidationResult{TotalRows: parsed.TotalRows}

	headerIndex := make(map[string]int, len(parsed.Headers))
	for i, header := range parsed.Headers {
		headerIndex[strings.ToLower(strings.TrimSpace(header))] = i
	}

	// Caller-supplied weeks may carry a zone or time component; comparisons
	// happen on the canonical UTC-midnight form.
	existing := make(map[time.Time]bool, len(existingWeeks))
	for _, week := range existingWeeks {
		existing[weekdate.Truncate(week)] = true
	}
	seenDuplicates := make(map[time.Time]bool)

	rowIndex := 0
	for _, record := range parsed.Records {
		if isBlankRow(record) {
			result.BlankSkipped++
			continue
		}
		rowIndex++

		row := RowValidation{
			RowIndex: rowIndex,
			Status:   StatusPass,
			Data:     make(map[string]any, len(mappings)),
			Original: make(map[string]string, len(mappings)),
		}

		for _, mapping := range mappings {
			raw := cellFor(record, headerIndex, mapping.CSVHeader)
			row.Original[mapping.CSVHeader] = raw
			validateField(&row, mapping, raw)
		}

		if week, ok := row.Data[weekEndingField(mappings)].(time.Time); ok {
			if existing[week] && !seenDuplicates[week] {
				seenDuplicates[week] = true
				result.DuplicateWeeks = append(result.DuplicateWeeks, week)
			}
		}

		switch row.Status {
		case StatusError:
			result.Failed++
		case StatusWarning:
			result.Warned++
		default:
			result.Passed++
		}
		result.Rows = append(result.Rows, row)
	}

	return result
}

// validateField coerces one cell and degrades the row status as needed.
func validateField(row *RowValidation, mapping FieldMapping, raw string) {
	trimmed := strings.TrimSpace(raw)

	if trimmed == "" {
		if mapping.Required {
			row.fail(fmt.Sprintf("%s is required", mapping.CSVHeader))
			return
		}
		row.Data[mapping.DBField] = nil
		return
	}

	switch mapping.Type {
	case TypeDate:
		t, err := weekdate.Parse(trimmed)
		if err != nil {
			row.fail(fmt.Sprintf("%s: %v", mapping.CSVHeader, err))
			return
		}
		if mapping.WeekEnding {
			corrected, changed, ok := weekdate.Correct(t)
			if !ok {
				row.fail(fmt.Sprintf("%s: %s is more than %d days from a Saturday",
					mapping.CSVHeader, trimmed, weekdate.MaxDriftDays))
				return
			}
			if changed {
				row.warn(fmt.Sprintf("%s: %s corrected to week ending %s",
					mapping.CSVHeader, trimmed, corrected.Format("2006-01-02")))
			}
			t = corrected
		}
		row.Data[mapping.DBField] = t
	case TypeCurrency:
		d, err := money.Parse(trimmed)
		if err != nil {
			row.fail(fmt.Sprintf("%s: expected an amount, got %q", mapping.CSVHeader, raw))
			return
		}
		row.Data[mapping.DBField] = d
	case TypePercentage:
		n, err := ParsePercentage(trimmed)
		if err != nil {
			row.fail(fmt.Sprintf("%s: expected a percentage, got %q", mapping.CSVHeader, raw))
			return
		}
		row.Data[mapping.DBField] = n
	case TypeInteger:
		n, err := ParseInteger(trimmed)
		if err != nil {
			row.fail(fmt.Sprintf("%s: expected a whole number, got %q", mapping.CSVHeader, raw))
			return
		}
		row.Data[mapping.DBField] = n
	case TypeDecimal:
		n, err := ParseDecimal(trimmed)
		if err != nil {
			row.fail(fmt.Sprintf("%s: expected a number, got %q", mapping.CSVHeader, raw))
			return
		}
		row.Data[mapping.DBField] = n
	default:
		row.Data[mapping.DBField] = trimmed
	}
}

func (r *RowValidation) fail(message string) {
	r.Status = StatusError
	r.Messages = append(r.Messages, message)
}

func (r *RowValidation) warn(message string) {
	if r.Status == StatusPass {
		r.Status = StatusWarning
	}
	r.Messages = append(r.Messages, message)
}

func cellFor(record []string, headerIndex map[string]int, header string) string {
	idx, ok := headerIndex[strings.ToLower(strings.TrimSpace(header))]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func weekEndingField(mappings []FieldMapping) string {
	for _, mapping := range mappings {
		if mapping.WeekEnding {
			return mapping.DBField
		}
	}
	return ""
}
