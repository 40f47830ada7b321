package workbook

// "Phone (2)" lists one block per staff member: a name row followed by
// Inbound/Outbound/Missed rows. Section headings split the staff into roles
// that apply to every block found below them.

const (
	SheetPhone = "Phone (2)"

	phoneLabelCol  = 1
	phoneHeaderRow = 1
	phoneStartCol  = 2
)

var phoneSkip = newLabelMatcher("total", "team", "summary")

// ParsePhone scans the phone stats sheet and emits one record per
// (staff member, week) with inbound/outbound/missed call counts. The record
// section carries the role heading ("Certifiers", "Cadets") in effect where
// the staff block was found.
func ParsePhone(s Sheet) []Record {
	groups := discoverGroups(s, groupSpec{
		labelCol: phoneLabelCol,
		sections: []string{"Certifiers", "Cadets", "Admin"},
		skip:     phoneSkip,
		following: []followRow{
			{contains: "inbound", field: "inboundCalls"},
			{contains: "outbound", field: "outboundCalls"},
			{contains: "missed", field: "missedCalls"},
		},
	})
	return emitRecords(s, phoneHeaderRow, phoneStartCol, groups)
}
