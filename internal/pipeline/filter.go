package pipeline

import (
	"strings"

	"go-grid-engine/internal/model"
	"go-grid-engine/pkg/utils"
)

// Filter keeps the rows that match every criterion. With no criteria the input
// is returned unchanged.
func Filter(rows []model.Row, criteria []model.FilterCriterion) []model.Row {
	if len(criteria) == 0 {
		return rows
	}

	out := make([]model.Row, 0, len(rows))
	for _, row := range rows {
		if matchesAll(row, criteria) {
			out = append(out, row)
		}
	}
	return out
}

func matchesAll(row model.Row, criteria []model.FilterCriterion) bool {
	for _, c := range criteria {
		if !matches(row, c) {
			return false
		}
	}
	return true
}

// matches applies one criterion. A blank filter value or an unknown operator
// leaves the row in.
func matches(row model.Row, c model.FilterCriterion) bool {
	filterValue := strings.ToLower(utils.ToString(c.Value))
	if filterValue == "" {
		return true
	}

	// a missing field reads as the empty string
	cellValue := strings.ToLower(utils.ToString(row[c.Field]))

	switch c.Operator {
	case model.OpContains:
		return strings.Contains(cellValue, filterValue)
	case model.OpEquals:
		return cellValue == filterValue
	case model.OpStartsWith:
		return strings.HasPrefix(cellValue, filterValue)
	case model.OpEndsWith:
		return strings.HasSuffix(cellValue, filterValue)
	case model.OpGreaterThan:
		// NaN on either side compares false
		return utils.ToNumber(cellValue) > utils.ToNumber(filterValue)
	case model.OpLessThan:
		return utils.ToNumber(cellValue) < utils.ToNumber(filterValue)
	default:
		return true
	}
}
