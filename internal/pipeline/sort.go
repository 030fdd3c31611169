package pipeline

import (
	"sort"
	"strings"

	"go-grid-engine/internal/model"
	"go-grid-engine/pkg/utils"
)

// Sort returns a sorted copy of rows. Criteria are tried in order; the first
// one whose values differ decides, and SortNone entries are skipped. Ties keep
// their input order.
func Sort(rows []model.Row, criteria []model.SortCriterion) []model.Row {
	if len(criteria) == 0 {
		return rows
	}

	out := make([]model.Row, len(rows))
	copy(out, rows)

	sort.SliceStable(out, func(i, j int) bool {
		return compareRows(out[i], out[j], criteria) < 0
	})
	return out
}

func compareRows(a, b model.Row, criteria []model.SortCriterion) int {
	for _, c := range criteria {
		if c.Direction == model.SortNone {
			continue
		}

		cmp := compareValues(a[c.Field], b[c.Field])
		if cmp == 0 {
			continue
		}
		if c.Direction == model.SortDescending {
			return -cmp
		}
		return cmp
	}
	return 0
}

// kind ranks value types so mixed columns still get a consistent order:
// missing/null, then booleans, then numbers, then strings, then anything else.
func kind(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case string:
		return 3
	}
	if _, ok := utils.Numeric(v); ok {
		return 2
	}
	return 4
}

// compareValues orders two cell values by their native type: numeric for
// numbers, lexical for strings, false before true.
func compareValues(a, b interface{}) int {
	ka, kb := kind(a), kind(b)
	if ka != kb {
		if ka < kb {
			return -1
		}
		return 1
	}

	switch ka {
	case 0:
		return 0
	case 1:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case 2:
		af, _ := utils.Numeric(a)
		bf, _ := utils.Numeric(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case 3:
		return strings.Compare(a.(string), b.(string))
	default:
		return strings.Compare(utils.ToString(a), utils.ToString(b))
	}
}
