package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/weekly-pulse/internal/domain/csvimport"
)

func TestLookup(t *testing.T) {
	def, err := Lookup("phone_stats")
	require.NoError(t, err)
	assert.Equal(t, "phone_metrics", def.TargetTable)
	assert.Equal(t, []string{"week_ending", "staff_name"}, def.UniqueKey)

	_, err = Lookup("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown data type "nope"`)
}

func TestCatalogueShape(t *testing.T) {
	all := All()
	require.Len(t, all, 10)

	for _, def := range all {
		assert.NotEmpty(t, def.TargetTable, def.ID)
		assert.NotEmpty(t, def.UniqueKey, def.ID)
		for _, key := range def.UniqueKey {
			_, fixed := def.FixedFields[key]
			assert.True(t, def.HasField(key) || fixed,
				"%s: key field %s must come from the CSV or the fixed fields", def.ID, key)
		}
		assert.True(t, def.HasField("week_ending"), def.ID)
	}
}

func TestProjectVariantsShareTable(t *testing.T) {
	res, err := Lookup("projects_residential")
	require.NoError(t, err)
	com, err := Lookup("projects_commercial")
	require.NoError(t, err)

	assert.Equal(t, res.TargetTable, com.TargetTable)
	assert.Equal(t, "residential", res.FixedFields["project_type"])
	assert.Equal(t, "commercial", com.FixedFields["project_type"])
}

func TestFilterMappings(t *testing.T) {
	def, err := Lookup("sales")
	require.NoError(t, err)

	mappings := []csvimport.FieldMapping{
		{CSVHeader: "Week Ending", DBField: "week_ending"},
		{CSVHeader: "Old Column", DBField: "dropped_in_2023"},
		{CSVHeader: "Quotes Sent", DBField: "quotes_sent"},
	}

	kept := def.FilterMappings(mappings)
	require.Len(t, kept, 2, "stale saved mappings are dropped silently")
	assert.Equal(t, "week_ending", kept[0].DBField)
	assert.Equal(t, "quotes_sent", kept[1].DBField)
}

func TestDefaultMappings(t *testing.T) {
	def, err := Lookup("marketing")
	require.NoError(t, err)

	mappings := def.DefaultMappings()
	require.Len(t, mappings, len(def.Fields))

	byField := make(map[string]csvimport.FieldMapping)
	for _, m := range mappings {
		byField[m.DBField] = m
	}
	assert.True(t, byField["week_ending"].WeekEnding)
	assert.True(t, byField["week_ending"].Required)
	assert.False(t, byField["impressions"].WeekEnding)
	assert.Equal(t, "Platform", byField["platform"].CSVHeader)
}
