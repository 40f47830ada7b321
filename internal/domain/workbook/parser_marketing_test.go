package workbook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marketingFixture(name string, impressions, clicks, cost float64) *fakeSheet {
	s := newFakeSheet(name)
	s.date(1, 2, day(2024, time.January, 6))
	s.text(2, 1, "Google Ads")
	s.text(3, 1, "Impressions").num(3, 2, impressions)
	s.text(4, 1, "Clicks").num(4, 2, clicks)
	s.text(5, 1, "Cost").num(5, 2, cost)
	s.text(7, 1, "Total Spend")
	return s
}

func TestParseMarketing(t *testing.T) {
	records := ParseMarketing(marketingFixture(SheetMarketingAPP, 1000, 50, 200))
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "Google Ads", r.GroupKey)
	assert.Equal(t, day(2024, time.January, 6), r.WeekDate)
	assert.Equal(t, float64(1000), *r.Values["impressions"])
	assert.Equal(t, float64(50), *r.Values["clicks"])
	assert.Equal(t, float64(200), *r.Values["cost"])
}

func TestCombineMarketing(t *testing.T) {
	app := ParseMarketing(marketingFixture(SheetMarketingAPP, 1000, 50, 200))
	ba := ParseMarketing(marketingFixture(SheetMarketingBA, 500, 25, 100))

	combined := CombineMarketing(app, ba)
	require.Len(t, combined, 1, "same platform and week merge into one record")

	r := combined[0]
	assert.Equal(t, float64(1500), *r.Values["impressions"])
	assert.Equal(t, float64(75), *r.Values["clicks"])
	assert.Equal(t, float64(300), *r.Values["cost"])
	assert.InDelta(t, 0.05, *r.Values["ctr"], 1e-9, "ratios derive from merged totals")
	assert.Equal(t, float64(4), *r.Values["cpc"])
}

func TestCombineMarketingOneSidedPlatform(t *testing.T) {
	app := ParseMarketing(marketingFixture(SheetMarketingAPP, 1000, 50, 200))

	combined := CombineMarketing(app, nil)
	require.Len(t, combined, 1)
	assert.Equal(t, float64(1000), *combined[0].Values["impressions"])
}

func TestCombineMarketingNilDenominators(t *testing.T) {
	week := day(2024, time.January, 6)
	records := CombineMarketing([]Record{{
		WeekDate: week,
		GroupKey: "Facebook",
		Values: map[string]*float64{
			"impressions": ptr(0),
			"clicks":      nil,
			"cost":        ptr(100),
		},
	}}, nil)

	require.Len(t, records, 1)
	assert.Nil(t, records[0].Values["ctr"], "nil clicks leaves CTR unknown")
	assert.Nil(t, records[0].Values["cpc"], "nil clicks leaves CPC unknown")
}

func TestCombineMarketingZeroDenominator(t *testing.T) {
	week := day(2024, time.January, 6)
	records := CombineMarketing([]Record{{
		WeekDate: week,
		GroupKey: "Facebook",
		Values: map[string]*float64{
			"impressions": ptr(0),
			"clicks":      ptr(10),
			"cost":        ptr(100),
		},
	}}, nil)

	require.Len(t, records, 1)
	assert.Nil(t, records[0].Values["ctr"], "zero impressions cannot produce a CTR")
	assert.Equal(t, float64(10), *records[0].Values["cpc"])
}

func TestCombineMarketingSortsOutput(t *testing.T) {
	w1 := day(2024, time.January, 6)
	w2 := day(2024, time.January, 13)
	records := CombineMarketing([]Record{
		{WeekDate: w2, GroupKey: "Google", Values: map[string]*float64{"clicks": ptr(1)}},
		{WeekDate: w1, GroupKey: "Facebook", Values: map[string]*float64{"clicks": ptr(1)}},
		{WeekDate: w1, GroupKey: "Google", Values: map[string]*float64{"clicks": ptr(1)}},
	}, nil)

	require.Len(t, records, 3)
	assert.Equal(t, "Facebook", records[0].GroupKey)
	assert.Equal(t, "Google", records[1].GroupKey)
	assert.Equal(t, w2, records[2].WeekDate)
}

func ptr(f float64) *float64 { return &f }

func TestAddNullable(t *testing.T) {
	assert.Nil(t, addNullable(nil, nil))
	assert.Equal(t, float64(3), *addNullable(nil, ptr(3)))
	assert.Equal(t, float64(3), *addNullable(ptr(3), nil))
	assert.Equal(t, float64(7), *addNullable(ptr(3), ptr(4)))
}
