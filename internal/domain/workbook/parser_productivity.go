package workbook

// "Productivity" follows the same block shape as the phone sheet: a staff
// name row followed by billable/non-billable/jobs rows, with role headings
// between the blocks.

const (
	SheetProductivity = "Productivity"

	productivityLabelCol  = 1
	productivityHeaderRow = 1
	productivityStartCol  = 2
)

var productivitySkip = newLabelMatcher("total", "average", "target")

// ParseProductivity emits one record per (staff member, week) with billable
// hours, non-billable hours and jobs completed.
func ParseProductivity(s Sheet) []Record {
	groups := discoverGroups(s, groupSpec{
		labelCol: productivityLabelCol,
		sections: []string{"Certifiers", "Cadets", "Admin"},
		skip:     productivitySkip,
		following: []followRow{
			{contains: "billable", field: "billableHours"},
			{contains: "non-billable", field: "nonBillableHours"},
			{contains: "jobs", field: "jobsCompleted"},
		},
	})
	return emitRecords(s, productivityHeaderRow, productivityStartCol, groups)
}
