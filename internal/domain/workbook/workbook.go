package workbook

import "log/slog"

// Data aggregates every record the known report sheets yield. Missing
// sheets are skipped, not errors: older workbooks predate some tabs.
type Data struct {
	WeeklyReport *WeeklyReportData
	Phone        []Record
	Productivity []Record
	Marketing    []Record
	Revenue      []Record
	CashPosition *Record
}

// ParseAll runs every structural parser against the sheets present in the
// workbook. Sheets are parsed sequentially; nothing here requires
// parallelism within one workbook.
func ParseAll(w *Workbook, logger *slog.Logger) *Data {
	data := &Data{}

	if s, err := w.Sheet(SheetWeeklyReport); err == nil {
		data.WeeklyReport = ParseWeeklyReport(s)
	} else {
		logger.Debug("skipping sheet", "sheet", SheetWeeklyReport, "reason", err)
	}

	if s, err := w.Sheet(SheetPhone); err == nil {
		data.Phone = ParsePhone(s)
	}

	if s, err := w.Sheet(SheetProductivity); err == nil {
		data.Productivity = ParseProductivity(s)
	}

	var app, ba []Record
	if s, err := w.Sheet(SheetMarketingAPP); err == nil {
		app = ParseMarketing(s)
	}
	if s, err := w.Sheet(SheetMarketingBA); err == nil {
		ba = ParseMarketing(s)
	}
	if app != nil || ba != nil {
		data.Marketing = CombineMarketing(app, ba)
	}

	if s, err := w.Sheet(SheetRevenue); err == nil {
		data.Revenue = ParseRevenue(s)
	}

	if s, err := w.Sheet(SheetCashPosition); err == nil {
		record, err := ParseCashPosition(s)
		if err != nil {
			logger.Warn("cash position sheet unreadable", "error", err)
		} else {
			data.CashPosition = record
		}
	}

	return data
}
