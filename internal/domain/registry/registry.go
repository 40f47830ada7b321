// Package registry is the static catalogue of importable data types. Each
// definition names the target table, its unique-key fields and the field
// contract that drives both CSV mapping and import routing.
package registry

import (
	"fmt"

	"github.com/FACorreiaa/weekly-pulse/internal/domain/csvimport"
)

// FieldDefinition describes one importable field of a data type.
type FieldDefinition struct {
	Name     string               `json:"name"`
	DBField  string               `json:"dbField"`
	Type     csvimport.ColumnType `json:"type"`
	Required bool                 `json:"required"`
}

// DataTypeDefinition routes one logical data type to its target table.
type DataTypeDefinition struct {
	ID          string            `json:"id"`
	Label       string            `json:"label"`
	TargetTable string            `json:"targetTable"`
	UniqueKey   []string          `json:"uniqueKey"`
	FixedFields map[string]any    `json:"fixedFields"`
	Fields      []FieldDefinition `json:"fields"`
}

// HasField reports whether dbField belongs to the definition's contract.
func (d *DataTypeDefinition) HasField(dbField string) bool {
	for _, field := range d.Fields {
		if field.DBField == dbField {
			return true
		}
	}
	return false
}

// FilterMappings drops mappings whose dbField is unknown to the definition.
// Unknown fields are silently discarded, not errors: saved mappings outlive
// schema changes and stale entries should not block an import.
func (d *DataTypeDefinition) FilterMappings(mappings []csvimport.FieldMapping) []csvimport.FieldMapping {
	kept := make([]csvimport.FieldMapping, 0, len(mappings))
	for _, mapping := range mappings {
		if d.HasField(mapping.DBField) {
			kept = append(kept, mapping)
		}
	}
	return kept
}

// DefaultMappings derives a field mapping that assumes CSV headers match the
// definition's display names. Callers with saved custom mappings skip this.
func (d *DataTypeDefinition) DefaultMappings() []csvimport.FieldMapping {
	mappings := make([]csvimport.FieldMapping, 0, len(d.Fields))
	for _, field := range d.Fields {
		mappings = append(mappings, csvimport.FieldMapping{
			CSVHeader:  field.Name,
			DBField:    field.DBField,
			Type:       field.Type,
			Required:   field.Required,
			WeekEnding: field.DBField == "week_ending",
		})
	}
	return mappings
}

// Lookup resolves a data type by ID.
func Lookup(id string) (*DataTypeDefinition, error) {
	for i := range catalogue {
		if catalogue[i].ID == id {
			return &catalogue[i], nil
		}
	}
	return nil, fmt.Errorf("unknown data type %q", id)
}

// All returns the full catalogue in display order.
func All() []DataTypeDefinition {
	out := make([]DataTypeDefinition, len(catalogue))
	copy(out, catalogue)
	return out
}

func weekEndingField() FieldDefinition {
	return FieldDefinition{Name: "Week Ending", DBField: "week_ending", Type: csvimport.TypeDate, Required: true}
}

var catalogue = []DataTypeDefinition{
	{
		ID:          "projects_residential",
		Label:       "Projects - Residential",
		TargetTable: "project_metrics",
		UniqueKey:   []string{"week_ending", "project_type"},
		FixedFields: map[string]any{"project_type": "residential"},
		Fields: []FieldDefinition{
			weekEndingField(),
			{Name: "New Projects", DBField: "new_projects", Type: csvimport.TypeInteger},
			{Name: "Completed Projects", DBField: "completed_projects", Type: csvimport.TypeInteger},
			{Name: "Active Projects", DBField: "active_projects", Type: csvimport.TypeInteger},
		},
	},
	{
		ID:          "projects_commercial",
		Label:       "Projects - Commercial",
		TargetTable: "project_metrics",
		UniqueKey:   []string{"week_ending", "project_type"},
		FixedFields: map[string]any{"project_type": "commercial"},
		Fields: []FieldDefinition{
			weekEndingField(),
			{Name: "New Projects", DBField: "new_projects", Type: csvimport.TypeInteger},
			{Name: "Completed Projects", DBField: "completed_projects", Type: csvimport.TypeInteger},
			{Name: "Active Projects", DBField: "active_projects", Type: csvimport.TypeInteger},
		},
	},
	{
		ID:          "projects_town_planning",
		Label:       "Projects - Town Planning",
		TargetTable: "project_metrics",
		UniqueKey:   []string{"week_ending", "project_type"},
		FixedFields: map[string]any{"project_type": "town_planning"},
		Fields: []FieldDefinition{
			weekEndingField(),
			{Name: "New Projects", DBField: "new_projects", Type: csvimport.TypeInteger},
			{Name: "Completed Projects", DBField: "completed_projects", Type: csvimport.TypeInteger},
			{Name: "Active Projects", DBField: "active_projects", Type: csvimport.TypeInteger},
		},
	},
	{
		ID:          "sales",
		Label:       "Sales",
		TargetTable: "sales_metrics",
		UniqueKey:   []string{"week_ending"},
		Fields: []FieldDefinition{
			weekEndingField(),
			{Name: "Quotes Sent", DBField: "quotes_sent", Type: csvimport.TypeInteger},
			{Name: "Quotes Accepted", DBField: "quotes_accepted", Type: csvimport.TypeInteger},
			{Name: "Sales Value", DBField: "sales_value", Type: csvimport.TypeCurrency},
			{Name: "Conversion Rate", DBField: "conversion_rate", Type: csvimport.TypePercentage},
		},
	},
	{
		ID:          "leads",
		Label:       "Leads",
		TargetTable: "lead_metrics",
		UniqueKey:   []string{"week_ending"},
		Fields: []FieldDefinition{
			weekEndingField(),
			{Name: "Lead Count", DBField: "lead_count", Type: csvimport.TypeInteger},
			{Name: "Cost Per Lead", DBField: "cost_per_lead", Type: csvimport.TypeCurrency},
			{Name: "Total Cost", DBField: "total_cost", Type: csvimport.TypeCurrency},
		},
	},
	{
		ID:          "phone_stats",
		Label:       "Phone Stats",
		TargetTable: "phone_metrics",
		UniqueKey:   []string{"week_ending", "staff_name"},
		Fields: []FieldDefinition{
			weekEndingField(),
			{Name: "Staff Name", DBField: "staff_name", Type: csvimport.TypeText, Required: true},
			{Name: "Role", DBField: "role", Type: csvimport.TypeText},
			{Name: "Inbound Calls", DBField: "inbound_calls", Type: csvimport.TypeInteger},
			{Name: "Outbound Calls", DBField: "outbound_calls", Type: csvimport.TypeInteger},
			{Name: "Missed Calls", DBField: "missed_calls", Type: csvimport.TypeInteger},
		},
	},
	{
		ID:          "productivity",
		Label:       "Productivity",
		TargetTable: "productivity_metrics",
		UniqueKey:   []string{"week_ending", "staff_name"},
		Fields: []FieldDefinition{
			weekEndingField(),
			{Name: "Staff Name", DBField: "staff_name", Type: csvimport.TypeText, Required: true},
			{Name: "Role", DBField: "role", Type: csvimport.TypeText},
			{Name: "Billable Hours", DBField: "billable_hours", Type: csvimport.TypeDecimal},
			{Name: "Non-billable Hours", DBField: "non_billable_hours", Type: csvimport.TypeDecimal},
			{Name: "Jobs Completed", DBField: "jobs_completed", Type: csvimport.TypeInteger},
		},
	},
	{
		ID:          "marketing",
		Label:       "Marketing",
		TargetTable: "marketing_metrics",
		UniqueKey:   []string{"week_ending", "platform"},
		Fields: []FieldDefinition{
			weekEndingField(),
			{Name: "Platform", DBField: "platform", Type: csvimport.TypeText, Required: true},
			{Name: "Impressions", DBField: "impressions", Type: csvimport.TypeInteger},
			{Name: "Clicks", DBField: "clicks", Type: csvimport.TypeInteger},
			{Name: "Cost", DBField: "cost", Type: csvimport.TypeCurrency},
			{Name: "CTR", DBField: "ctr", Type: csvimport.TypePercentage},
			{Name: "CPC", DBField: "cpc", Type: csvimport.TypeCurrency},
		},
	},
	{
		ID:          "revenue",
		Label:       "Revenue",
		TargetTable: "revenue_metrics",
		UniqueKey:   []string{"week_ending", "region"},
		Fields: []FieldDefinition{
			weekEndingField(),
			{Name: "Region", DBField: "region", Type: csvimport.TypeText, Required: true},
			{Name: "Invoiced", DBField: "invoiced", Type: csvimport.TypeCurrency},
			{Name: "Received", DBField: "received", Type: csvimport.TypeCurrency},
			{Name: "Outstanding", DBField: "outstanding", Type: csvimport.TypeCurrency},
		},
	},
	{
		ID:          "cash_position",
		Label:       "Cash Position",
		TargetTable: "cash_position_metrics",
		UniqueKey:   []string{"week_ending"},
		Fields: []FieldDefinition{
			weekEndingField(),
			{Name: "Bank Balance", DBField: "bank_balance", Type: csvimport.TypeCurrency},
			{Name: "Receivables", DBField: "receivables", Type: csvimport.TypeCurrency},
			{Name: "Payables", DBField: "payables", Type: csvimport.TypeCurrency},
		},
	},
}
