package csvimport

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
)

// reportRow is the CSV shape of one problem row in the downloadable
// validation report.
type reportRow struct {
	RowIndex int    `csv:"row"`
	Status   string `csv:"status"`
	Messages string `csv:"messages"`
	Original string `csv:"original_values"`
}

// WriteReport writes a CSV report of every non-passing row so the uploader
// can fix the source file. Passing rows are omitted.
func WriteReport(w io.Writer, result *ValidationResult) error {
	rows := make([]reportRow, 0, result.Warned+result.Failed)
	for _, row := range result.Rows {
		if row.Status == StatusPass {
			continue
		}
		rows = append(rows, reportRow{
			RowIndex: row.RowIndex,
			Status:   string(row.Status),
			Messages: strings.Join(row.Messages, "; "),
			Original: flattenOriginal(row.Original),
		})
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write validation report: %w", err)
	}
	return nil
}

func flattenOriginal(original map[string]string) string {
	headers := make([]string, 0, len(original))
	for header := range original {
		headers = append(headers, header)
	}
	sort.Strings(headers)

	parts := make([]string, 0, len(headers))
	for _, header := range headers {
		if strings.TrimSpace(original[header]) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", header, original[header]))
	}
	return strings.Join(parts, "; ")
}
