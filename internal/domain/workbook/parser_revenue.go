package workbook

// "Weekly Revenue Report" groups revenue metrics by region: a region label
// followed by Invoiced/Received/Outstanding rows.

const (
	SheetRevenue = "Weekly Revenue Report"

	revenueLabelCol  = 1
	revenueHeaderRow = 1
	revenueStartCol  = 2
)

var regionKeys = newLabelMatcher("sydney", "melbourne", "brisbane", "regional")

var revenueSkip = newLabelMatcher("total", "company")

// ParseRevenue emits one record per (region, week).
func ParseRevenue(s Sheet) []Record {
	groups := discoverGroups(s, groupSpec{
		labelCol: revenueLabelCol,
		keys:     regionKeys,
		skip:     revenueSkip,
		following: []followRow{
			{contains: "invoiced", field: "invoiced"},
			{contains: "received", field: "received"},
			{contains: "outstanding", field: "outstanding"},
		},
	})
	return emitRecords(s, revenueHeaderRow, revenueStartCol, groups)
}
