package source

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"go-grid-engine/internal/model"
	"go-grid-engine/pkg/utils"
)

// Columns returns the union of field names over rows, in first-seen order.
// Fields introduced by grouping are left out.
func Columns(rows []model.Row) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		if row.IsGroupHeader() {
			continue
		}
		keys := make([]string, 0, len(row))
		for k := range row {
			if k == model.KeyGroupParent || k == model.KeyLevel {
				continue
			}
			keys = append(keys, k)
		}
		// map order is random; keep each row's new fields stable
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}

// Write encodes rows to w. JSON output is the row array as-is; CSV output has
// one line per data row and a "# group" line per group header, with one more
// '#' per nesting level.
func Write(w io.Writer, format Format, rows []model.Row) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(rows); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case FormatCSV:
		return writeCSV(w, rows)
	default:
		return fmt.Errorf("unknown rows format: %s", format)
	}
}

func writeCSV(w io.Writer, rows []model.Row) error {
	writer := csv.NewWriter(w)
	cols := Columns(rows)

	if err := writer.Write(cols); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		var record []string
		if row.IsGroupHeader() {
			// one '#' per nesting level
			record = []string{fmt.Sprintf("%s %s=%s (%d)",
				strings.Repeat("#", row.Level()+1),
				utils.ToString(row[model.KeyGroupField]),
				utils.ToString(row[model.KeyGroupValue]),
				row.ChildCount())}
		} else {
			record = make([]string, len(cols))
			for j, c := range cols {
				record[j] = utils.ToString(row[c])
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
