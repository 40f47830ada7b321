package workbook

import "time"

// Record is the DTO every structural parser emits: one group's metrics for
// one week. It is handed straight to the import engine or returned as a
// dry-run preview and never persisted as-is.
type Record struct {
	WeekDate time.Time
	GroupKey string // project type / region / staff name / platform / category
	Section  string // running section header in effect when the group was found
	Values   map[string]*float64
	Warnings []string
}

// group is a discovered data group: a key cell plus the row offsets of its
// metric rows. Groups are found once per parse and cached, so the column
// walk is O(rows) rather than O(rows x columns).
type group struct {
	key     string
	section string
	rows    map[string]int // field -> sheet row
}

// followRow names one metric row expected directly below a group's key row.
type followRow struct {
	contains string // case-insensitive substring the label must contain
	field    string
}

// groupSpec is the per-sheet group-start heuristic: a non-empty label cell
// followed by consecutive rows whose labels contain the given substrings, in
// order. Section headers mutate the running section applied to groups found
// after them.
type groupSpec struct {
	labelCol  int
	following []followRow
	sections  []string
	keys      *labelMatcher // when set, only matching labels can start a group
	skip      *labelMatcher // labels that can never start a group ("total", ...)
}

// discoverGroups walks the sheet's label column top to bottom and registers
// every group the spec matches, advancing past consumed rows.
func discoverGroups(s Sheet, spec groupSpec) []group {
	var groups []group
	section := ""

	row := 1
	for row <= s.Rows() {
		label := labelAt(s, row, spec.labelCol)
		if label == "" {
			row++
			continue
		}

		if header, ok := matchSection(label, spec.sections); ok {
			section = header
			row++
			continue
		}

		if spec.skip != nil && spec.skip.matchesAny(label) {
			row++
			continue
		}

		if spec.keys != nil && !spec.keys.matchesAny(label) {
			row++
			continue
		}

		if rows, ok := matchFollowing(s, row, spec); ok {
			groups = append(groups, group{key: label, section: section, rows: rows})
			row += len(spec.following) + 1
			continue
		}

		row++
	}

	return groups
}

func matchSection(label string, sections []string) (string, bool) {
	for _, header := range sections {
		if isSectionHeader(label, header) {
			return header, true
		}
	}
	return "", false
}

func matchFollowing(s Sheet, keyRow int, spec groupSpec) (map[string]int, bool) {
	rows := make(map[string]int, len(spec.following))
	for i, follow := range spec.following {
		r := keyRow + 1 + i
		if r > s.Rows() || !labelContains(labelAt(s, r, spec.labelCol), follow.contains) {
			return nil, false
		}
		rows[follow.field] = r
	}
	return rows, true
}

// findMetricRow scans the label column for the first row whose label
// contains the substring. Returns 0 when no row matches.
func findMetricRow(s Sheet, labelCol int, contains string) int {
	for row := 1; row <= s.Rows(); row++ {
		if labelContains(labelAt(s, row, labelCol), contains) {
			return row
		}
	}
	return 0
}

// emitRecords reuses the transposed column walk once per discovered group.
func emitRecords(s Sheet, headerRow, startCol int, groups []group) []Record {
	var records []Record
	for _, g := range groups {
		mappings := make([]RowMapping, 0, len(g.rows))
		for field, row := range g.rows {
			mappings = append(mappings, RowMapping{Row: row, Field: field})
		}
		for _, week := range ScanWeeks(s, headerRow, startCol, mappings) {
			records = append(records, Record{
				WeekDate: week.WeekDate,
				GroupKey: g.key,
				Section:  g.section,
				Values:   week.Values,
				Warnings: week.Warnings,
			})
		}
	}
	return records
}
