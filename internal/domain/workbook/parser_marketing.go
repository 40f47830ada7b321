package workbook

import (
	"sort"
	"time"
)

// Ad spend is tracked on two sheets, one per business line, each with a
// block per ad platform. The two sheets are combined per (week, platform)
// before any ratio is derived, so a platform that only ran on one side still
// reports a single row.

const (
	SheetMarketingAPP = "Marketing Weekly APP"
	SheetMarketingBA  = "Marketing Weekly BA"

	marketingLabelCol  = 1
	marketingHeaderRow = 1
	marketingStartCol  = 2
)

var platformKeys = newLabelMatcher("google", "facebook", "instagram", "linkedin")

var marketingSkip = newLabelMatcher("total", "combined")

// ParseMarketing scans one marketing sheet. Platform blocks are a platform
// label followed by Impressions/Clicks/Cost rows.
func ParseMarketing(s Sheet) []Record {
	groups := discoverGroups(s, groupSpec{
		labelCol: marketingLabelCol,
		keys:     platformKeys,
		skip:     marketingSkip,
		following: []followRow{
			{contains: "impressions", field: "impressions"},
			{contains: "clicks", field: "clicks"},
			{contains: "cost", field: "cost"},
		},
	})
	return emitRecords(s, marketingHeaderRow, marketingStartCol, groups)
}

// CombineMarketing merges the records of both marketing sheets by
// (weekDate, platform), summing the raw counters. CTR and CPC are computed
// only after the merge; a zero denominator leaves the ratio nil.
func CombineMarketing(app, ba []Record) []Record {
	type key struct {
		week     time.Time
		platform string
	}

	merged := make(map[key]*Record)
	var order []key

	for _, record := range append(append([]Record{}, app...), ba...) {
		k := key{week: record.WeekDate, platform: record.GroupKey}
		existing, ok := merged[k]
		if !ok {
			combined := Record{
				WeekDate: record.WeekDate,
				GroupKey: record.GroupKey,
				Values:   make(map[string]*float64),
			}
			merged[k] = &combined
			existing = &combined
			order = append(order, k)
		}
		for _, field := range []string{"impressions", "clicks", "cost"} {
			existing.Values[field] = addNullable(existing.Values[field], record.Values[field])
		}
		existing.Warnings = append(existing.Warnings, record.Warnings...)
	}

	sort.Slice(order, func(i, j int) bool {
		if !order[i].week.Equal(order[j].week) {
			return order[i].week.Before(order[j].week)
		}
		return order[i].platform < order[j].platform
	})

	records := make([]Record, 0, len(order))
	for _, k := range order {
		record := merged[k]
		record.Values["ctr"] = safeRatio(record.Values["clicks"], record.Values["impressions"])
		record.Values["cpc"] = safeRatio(record.Values["cost"], record.Values["clicks"])
		records = append(records, *record)
	}
	return records
}

// addNullable sums two optional values: nil + nil = nil, nil + x = x.
func addNullable(a, b *float64) *float64 {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		v := *b
		return &v
	case b == nil:
		v := *a
		return &v
	}
	sum := *a + *b
	return &sum
}

// safeRatio divides numerator by denominator, yielding nil when either side
// is missing or the denominator is zero.
func safeRatio(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	ratio := *num / *den
	return &ratio
}
