package workbook

import (
	"time"

	"github.com/FACorreiaa/weekly-pulse/pkg/weekdate"
)

// ValueKind selects how a mapped row is extracted.
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindText
)

// RowMapping binds a sheet row to a named metric field.
type RowMapping struct {
	Row   int
	Field string
	Kind  ValueKind
}

// ParsedWeek is one non-empty date column of a transposed sheet: the
// Saturday-snapped week ending plus every mapped value at that column.
type ParsedWeek struct {
	WeekDate time.Time
	Values   map[string]*float64
	Text     map[string]string
	Warnings []string
}

// ScanWeeks walks a transposed sheet where headerRow holds per-column week
// dates and each RowMapping names a metric row. Columns whose header is not
// a date are skipped, which is how trailing totals and notes columns are
// ignored. A column where every mapped value extracts to nil is dropped
// entirely: an unfilled future week, not a week of zeroes.
func ScanWeeks(s Sheet, headerRow, startCol int, mappings []RowMapping) []ParsedWeek {
	var weeks []ParsedWeek

	for col := startCol; col <= s.Cols(); col++ {
		date, ok := headerDate(s, headerRow, col)
		if !ok {
			continue
		}

		week := ParsedWeek{
			WeekDate: weekdate.ToSaturday(date),
			Values:   make(map[string]*float64, len(mappings)),
			Text:     make(map[string]string),
		}
		empty := true

		for _, m := range mappings {
			ref := CellRef(m.Row, col)
			cv := s.Cell(m.Row, col)
			switch m.Kind {
			case KindText:
				ex := Extract(cv, ref)
				if ex.Warning != "" {
					week.Warnings = append(week.Warnings, ex.Warning)
				}
				if text, ok := ex.Value.(string); ok && text != "" {
					week.Text[m.Field] = text
					empty = false
				}
			default:
				value, warning := ExtractNumber(cv, ref)
				if warning != "" {
					week.Warnings = append(week.Warnings, warning)
				}
				week.Values[m.Field] = value
				if value != nil {
					empty = false
				}
			}
		}

		if empty {
			continue
		}
		weeks = append(weeks, week)
	}

	return weeks
}

// headerDate extracts the header cell at (row, col) as a date.
func headerDate(s Sheet, row, col int) (time.Time, bool) {
	ex := Extract(s.Cell(row, col), CellRef(row, col))
	switch v := ex.Value.(type) {
	case time.Time:
		return v, true
	case string:
		if t, err := weekdate.Parse(v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
