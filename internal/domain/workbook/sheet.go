package workbook

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/weekly-pulse/pkg/weekdate"
)

// Sheet is the minimal read surface the scanner and parsers need. Rows and
// columns are 1-based, matching spreadsheet coordinates.
type Sheet interface {
	Name() string
	Rows() int
	Cols() int
	Cell(row, col int) CellValue
}

// CellRef renders 1-based coordinates as an A1-style reference for warnings.
func CellRef(row, col int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Sprintf("R%dC%d", row, col)
	}
	return name
}

// Workbook wraps an open spreadsheet file.
type Workbook struct {
	file *excelize.File
}

// Open reads a workbook from r. Any format excelize can open is accepted.
func Open(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return &Workbook{file: f}, nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetNames lists the workbook's sheets in order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// Sheet returns a handle for the named sheet. Sheets are identified by exact
// name; a missing sheet is an error so callers can report which report tab
// the workbook lacks.
func (w *Workbook) Sheet(name string) (Sheet, error) {
	idx, err := w.file.GetSheetIndex(name)
	if err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", name)
	}
	rows, err := w.file.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}
	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return &xlsxSheet{file: w.file, name: name, rows: len(rows), cols: cols}, nil
}

type xlsxSheet struct {
	file *excelize.File
	name string
	rows int
	cols int
}

func (s *xlsxSheet) Name() string { return s.name }
func (s *xlsxSheet) Rows() int    { return s.rows }
func (s *xlsxSheet) Cols() int    { return s.cols }

// Cell classifies the raw cell at (row, col) into the CellValue union. The
// classification is deliberately forgiving: anything unrecognized falls
// through to a plain string so extraction stays total.
func (s *xlsxSheet) Cell(row, col int) CellValue {
	ref := CellRef(row, col)

	value, err := s.file.GetCellValue(s.name, ref)
	if err != nil {
		return CellValue{Kind: CellEmpty}
	}

	formula, _ := s.file.GetCellFormula(s.name, ref)
	if formula != "" {
		return s.formulaCell(ref, formula, value)
	}

	cellType, _ := s.file.GetCellType(s.name, ref)
	switch cellType {
	case excelize.CellTypeError:
		return CellValue{Kind: CellError, ErrorCode: value}
	case excelize.CellTypeBool:
		return CellValue{Kind: CellBool, Bool: value == "TRUE" || value == "1"}
	}

	if hasLink, target, _ := s.file.GetCellHyperLink(s.name, ref); hasLink {
		return CellValue{Kind: CellHyperlink, LinkText: value, LinkTarget: target}
	}

	if runs, err := s.file.GetCellRichText(s.name, ref); err == nil && len(runs) > 1 {
		texts := make([]string, len(runs))
		for i, run := range runs {
			texts[i] = run.Text
		}
		return CellValue{Kind: CellRichText, Runs: texts}
	}

	return classifyScalar(value)
}

func (s *xlsxSheet) formulaCell(ref, formula, cached string) CellValue {
	cv := CellValue{Kind: CellFormula, Formula: formula}
	if cached == "" {
		return cv // no cached result survives in the file
	}
	result := classifyScalar(cached)
	if strings.HasPrefix(cached, "#") {
		result = CellValue{Kind: CellError, ErrorCode: cached}
	}
	cv.Result = &result
	return cv
}

// classifyScalar maps a formatted cell string to empty, error, number, date
// or string.
func classifyScalar(value string) CellValue {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return CellValue{Kind: CellEmpty}
	}
	if strings.HasPrefix(trimmed, "#") && (strings.HasSuffix(trimmed, "!") || trimmed == "#N/A") {
		return CellValue{Kind: CellError, ErrorCode: trimmed}
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return CellValue{Kind: CellNumber, Number: n}
	}
	if t, err := weekdate.Parse(trimmed); err == nil {
		return CellValue{Kind: CellDate, Date: t}
	}
	return CellValue{Kind: CellString, Text: value}
}
