package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"go-grid-engine/internal/model"
)

// parseSort reads "field" or "field:direction".
func parseSort(values []string) ([]model.SortCriterion, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]model.SortCriterion, 0, len(values))
	for _, s := range values {
		field, dir, hasDir := strings.Cut(s, ":")
		if field == "" {
			return nil, fmt.Errorf("invalid sort %q: missing field", s)
		}
		direction := model.SortAscending
		if hasDir {
			direction = model.ParseSortDirection(dir)
			if direction == model.SortNone {
				return nil, fmt.Errorf("invalid sort %q: direction must be asc or desc", s)
			}
		}
		out = append(out, model.SortCriterion{Field: field, Direction: direction})
	}
	return out, nil
}

// parseFilter reads "field:value" (contains) or "field:operator:value". The
// value may itself contain colons.
func parseFilter(values []string) ([]model.FilterCriterion, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]model.FilterCriterion, 0, len(values))
	for _, s := range values {
		parts := strings.SplitN(s, ":", 3)
		c := model.FilterCriterion{Field: parts[0], Operator: model.OpContains}
		switch len(parts) {
		case 1:
			return nil, fmt.Errorf("invalid filter %q: want field:value or field:operator:value", s)
		case 2:
			c.Value = parts[1]
		default:
			if op := model.FilterOperator(parts[1]); op.Known() {
				c.Operator, c.Value = op, parts[2]
			} else {
				c.Value = parts[1] + ":" + parts[2]
			}
		}
		if c.Field == "" {
			return nil, fmt.Errorf("invalid filter %q: missing field", s)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseGroup(fields []string) []model.GroupCriterion {
	if len(fields) == 0 {
		return nil
	}
	out := make([]model.GroupCriterion, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, model.GroupCriterion{Field: f})
		}
	}
	return out
}

// parseHighlight reads "row:field".
func parseHighlight(values []string) ([]model.CellUpdate, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]model.CellUpdate, 0, len(values))
	for _, s := range values {
		idx, field, ok := strings.Cut(s, ":")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid highlight %q: want row:field", s)
		}
		row, err := strconv.Atoi(idx)
		if err != nil {
			return nil, fmt.Errorf("invalid highlight %q: %w", s, err)
		}
		out = append(out, model.CellUpdate{RowIndex: row, Field: field})
	}
	return out, nil
}
