package workbook

// "Weekly Report" is the main transposed sheet: week dates run across the
// header row and the project pipeline, sales and lead metrics run down the
// label column, grouped by free-text headings.

const (
	SheetWeeklyReport = "Weekly Report"

	weeklyReportLabelCol  = 1
	weeklyReportHeaderRow = 2
	weeklyReportStartCol  = 3
)

// WeeklyReportData holds everything the main report sheet yields.
type WeeklyReportData struct {
	Projects []Record
	Sales    []Record
	Leads    []Record
}

var projectTypeKeys = newLabelMatcher("residential", "commercial", "town planning")

var weeklyReportSkip = newLabelMatcher("total", "average", "notes")

// ParseWeeklyReport scans the main report sheet. Project groups are a
// project-type label followed by New/Completed/Active rows; sales and lead
// metrics are single labeled rows located by substring.
func ParseWeeklyReport(s Sheet) *WeeklyReportData {
	data := &WeeklyReportData{}

	projectGroups := discoverGroups(s, groupSpec{
		labelCol: weeklyReportLabelCol,
		keys:     projectTypeKeys,
		skip:     weeklyReportSkip,
		following: []followRow{
			{contains: "new", field: "newProjects"},
			{contains: "completed", field: "completedProjects"},
			{contains: "active", field: "activeProjects"},
		},
	})
	data.Projects = emitRecords(s, weeklyReportHeaderRow, weeklyReportStartCol, projectGroups)

	data.Sales = scanSalesRows(s)
	data.Leads = scanLeadRows(s)

	return data
}

func scanSalesRows(s Sheet) []Record {
	mappings := metricMappings(s, weeklyReportLabelCol, map[string]string{
		"quotes sent":     "quotesSent",
		"quotes accepted": "quotesAccepted",
		"sales value":     "salesValue",
	})
	if len(mappings) == 0 {
		return nil
	}

	var records []Record
	for _, week := range ScanWeeks(s, weeklyReportHeaderRow, weeklyReportStartCol, mappings) {
		records = append(records, Record{
			WeekDate: week.WeekDate,
			GroupKey: "sales",
			Values:   week.Values,
			Warnings: week.Warnings,
		})
	}
	return records
}

func scanLeadRows(s Sheet) []Record {
	mappings := metricMappings(s, weeklyReportLabelCol, map[string]string{
		"number of leads": "leadCount",
		"cost per lead":   "costPerLead",
	})
	if len(mappings) == 0 {
		return nil
	}

	var records []Record
	for _, week := range ScanWeeks(s, weeklyReportHeaderRow, weeklyReportStartCol, mappings) {
		record := Record{
			WeekDate: week.WeekDate,
			GroupKey: "leads",
			Values:   week.Values,
			Warnings: week.Warnings,
		}
		// Total cost only when both inputs are present; a missing count or
		// rate is unknown, never zero.
		leads := record.Values["leadCount"]
		rate := record.Values["costPerLead"]
		if leads != nil && rate != nil {
			total := *leads * *rate
			record.Values["totalCost"] = &total
		} else {
			record.Values["totalCost"] = nil
		}
		records = append(records, record)
	}
	return records
}

// metricMappings resolves labeled metric rows to scanner mappings, dropping
// metrics whose label row is absent from this year's copy of the sheet.
func metricMappings(s Sheet, labelCol int, metrics map[string]string) []RowMapping {
	var mappings []RowMapping
	for contains, field := range metrics {
		if row := findMetricRow(s, labelCol, contains); row > 0 {
			mappings = append(mappings, RowMapping{Row: row, Field: field})
		}
	}
	return mappings
}
