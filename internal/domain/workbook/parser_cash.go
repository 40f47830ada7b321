package workbook

import (
	"fmt"

	"github.com/FACorreiaa/weekly-pulse/pkg/weekdate"
)

// "Finance This Week" is a narrative snapshot rather than a table, so the
// cells are read at fixed coordinates. These are sheet constants, not
// heuristics: the layout has not moved in years and there are no labels
// reliable enough to scan for.

const SheetCashPosition = "Finance This Week"

// Fixed (row, col) coordinates of the cash position snapshot.
var cashPositionCells = struct {
	weekDate    [2]int
	bankBalance [2]int
	receivables [2]int
	payables    [2]int
}{
	weekDate:    [2]int{2, 3},
	bankBalance: [2]int{5, 3},
	receivables: [2]int{7, 3},
	payables:    [2]int{9, 3},
}

// ParseCashPosition reads the single cash position snapshot from the
// finance sheet. The week date cell is required; everything else degrades to
// nil with warnings like any other cell.
func ParseCashPosition(s Sheet) (*Record, error) {
	dateRow, dateCol := cashPositionCells.weekDate[0], cashPositionCells.weekDate[1]
	date, ok := headerDate(s, dateRow, dateCol)
	if !ok {
		return nil, fmt.Errorf("no week date at %s on %q", CellRef(dateRow, dateCol), s.Name())
	}

	record := &Record{
		WeekDate: weekdate.ToSaturday(date),
		GroupKey: "cash_position",
		Values:   make(map[string]*float64, 3),
	}

	for field, coord := range map[string][2]int{
		"bankBalance": cashPositionCells.bankBalance,
		"receivables": cashPositionCells.receivables,
		"payables":    cashPositionCells.payables,
	} {
		ref := CellRef(coord[0], coord[1])
		value, warning := ExtractNumber(s.Cell(coord[0], coord[1]), ref)
		if warning != "" {
			record.Warnings = append(record.Warnings, warning)
		}
		record.Values[field] = value
	}

	return record, nil
}
