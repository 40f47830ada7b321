// Package workbook recovers weekly metric records from hand-maintained
// spreadsheet reports. It normalizes raw cell values, walks transposed
// week-per-column layouts, and hosts the per-sheet structural parsers.
package workbook

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CellKind identifies the underlying representation of a spreadsheet cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellString
	CellBool
	CellDate
	CellError
	CellFormula
	CellRichText
	CellHyperlink
)

// CellValue is a tagged union over every cell shape the source workbooks
// produce, including formula cells whose cached result was stripped by
// whichever tool last saved the file.
type CellValue struct {
	Kind CellKind

	Number float64
	Text   string
	Bool   bool
	Date   time.Time

	// Formula cells. Result is nil when the file carries no cached value.
	Formula string
	Result  *CellValue
	Shared  bool

	// Error cells ("#REF!", "#DIV/0!", ...).
	ErrorCode string

	// Rich text runs and hyperlink display text.
	Runs       []string
	LinkText   string
	LinkTarget string
}

// Extracted is the normalized output of cell extraction: a plain value plus
// an optional warning describing how a degenerate cell was handled.
type Extracted struct {
	Value   any // float64, string, time.Time or nil
	Warning string
}

// Extract normalizes a raw cell into a plain value. It is total: no cell
// shape aborts parsing. Formula errors and uncached formulas degrade to 0
// with a warning naming the offending cell reference.
func Extract(cv CellValue, ref string) Extracted {
	switch cv.Kind {
	case CellEmpty:
		return Extracted{Value: nil}
	case CellNumber:
		return Extracted{Value: cv.Number}
	case CellString:
		return Extracted{Value: strings.TrimSpace(cv.Text)}
	case CellBool:
		if cv.Bool {
			return Extracted{Value: float64(1)}
		}
		return Extracted{Value: float64(0)}
	case CellDate:
		return Extracted{Value: cv.Date}
	case CellError:
		return Extracted{
			Value:   float64(0),
			Warning: fmt.Sprintf("formula error %s at %s, set to 0", cv.ErrorCode, ref),
		}
	case CellFormula:
		if cv.Result == nil {
			return Extracted{
				Value:   float64(0),
				Warning: fmt.Sprintf("uncached formula at %s, set to 0", ref),
			}
		}
		// Unwrap the cached result through the same rules.
		return Extract(*cv.Result, ref)
	case CellRichText:
		return Extracted{Value: strings.TrimSpace(strings.Join(cv.Runs, ""))}
	case CellHyperlink:
		return Extracted{Value: strings.TrimSpace(cv.LinkText)}
	}
	return Extracted{Value: strings.TrimSpace(fmt.Sprint(cv.Text))}
}

// ExtractNumber extracts a cell as a numeric value, stripping currency
// punctuation and treating parenthesized amounts as negative. A genuinely
// empty cell yields nil, while a formula error yields 0 with a warning;
// downstream sums depend on that distinction.
func ExtractNumber(cv CellValue, ref string) (value *float64, warning string) {
	ex := Extract(cv, ref)
	switch v := ex.Value.(type) {
	case nil:
		return nil, ex.Warning
	case float64:
		return &v, ex.Warning
	case time.Time:
		return nil, fmt.Sprintf("expected number at %s, found date", ref)
	case string:
		n, ok := parseLooseNumber(v)
		if !ok {
			if strings.TrimSpace(v) == "" {
				return nil, ex.Warning
			}
			return nil, fmt.Sprintf("non-numeric value %q at %s", v, ref)
		}
		return &n, ex.Warning
	}
	return nil, ex.Warning
}

// parseLooseNumber parses a human-formatted number: "$1,234.56", "12%",
// "(450)" and plain digits all parse; anything else does not.
func parseLooseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		n = -n
	}
	return n, true
}
