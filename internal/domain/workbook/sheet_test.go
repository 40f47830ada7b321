package workbook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeSheet is an in-memory Sheet for parser tests.
type fakeSheet struct {
	name  string
	rows  int
	cols  int
	cells map[[2]int]CellValue
}

func newFakeSheet(name string) *fakeSheet {
	return &fakeSheet{name: name, cells: make(map[[2]int]CellValue)}
}

func (f *fakeSheet) Name() string { return f.name }
func (f *fakeSheet) Rows() int    { return f.rows }
func (f *fakeSheet) Cols() int    { return f.cols }

func (f *fakeSheet) Cell(row, col int) CellValue {
	if cv, ok := f.cells[[2]int{row, col}]; ok {
		return cv
	}
	return CellValue{Kind: CellEmpty}
}

func (f *fakeSheet) set(row, col int, cv CellValue) *fakeSheet {
	f.cells[[2]int{row, col}] = cv
	if row > f.rows {
		f.rows = row
	}
	if col > f.cols {
		f.cols = col
	}
	return f
}

func (f *fakeSheet) text(row, col int, s string) *fakeSheet {
	return f.set(row, col, CellValue{Kind: CellString, Text: s})
}

func (f *fakeSheet) num(row, col int, n float64) *fakeSheet {
	return f.set(row, col, CellValue{Kind: CellNumber, Number: n})
}

func (f *fakeSheet) date(row, col int, t time.Time) *fakeSheet {
	return f.set(row, col, CellValue{Kind: CellDate, Date: t})
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCellRef(t *testing.T) {
	assert.Equal(t, "A1", CellRef(1, 1))
	assert.Equal(t, "C2", CellRef(2, 3))
	assert.Equal(t, "AA10", CellRef(10, 27))
}

func TestClassifyScalar(t *testing.T) {
	assert.Equal(t, CellEmpty, classifyScalar("  ").Kind)
	assert.Equal(t, CellNumber, classifyScalar("42.5").Kind)
	assert.Equal(t, CellDate, classifyScalar("6/1/2024").Kind)
	assert.Equal(t, CellString, classifyScalar("Residential").Kind)

	for _, code := range []string{"#REF!", "#DIV/0!", "#N/A"} {
		cv := classifyScalar(code)
		assert.Equal(t, CellError, cv.Kind, code)
		assert.Equal(t, code, cv.ErrorCode)
	}
}
