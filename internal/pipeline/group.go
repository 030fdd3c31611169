package pipeline

import (
	"fmt"
	"math"

	"go-grid-engine/internal/model"
	"go-grid-engine/pkg/utils"
)

// Group partitions rows by the first criterion's field and emits a header row
// before each partition. Partitions appear in first-seen order. Remaining
// criteria nest inside each partition one level deeper. The input rows are
// never modified; grouped children are copies.
func Group(rows []model.Row, criteria []model.GroupCriterion) []model.Row {
	if len(criteria) == 0 {
		return rows
	}
	return groupAt(rows, criteria, 0)
}

type partition struct {
	value interface{}
	rows  []model.Row
}

func groupAt(rows []model.Row, criteria []model.GroupCriterion, depth int) []model.Row {
	field := criteria[0].Field

	var parts []*partition
	index := make(map[interface{}]*partition)
	for _, row := range rows {
		value, present := row[field]
		key := groupKey(value)
		if !present {
			// a missing field and an explicit null are different groups
			key = missingKey{}
		}
		p, ok := index[key]
		if !ok {
			p = &partition{value: value}
			index[key] = p
			parts = append(parts, p)
		}
		p.rows = append(p.rows, row)
	}

	out := make([]model.Row, 0, len(rows)+len(parts))
	for _, p := range parts {
		out = append(out, model.NewGroupHeader(field, p.value, len(p.rows), depth))

		if len(criteria) > 1 {
			out = append(out, groupAt(p.rows, criteria[1:], depth+1)...)
			continue
		}

		for _, row := range p.rows {
			child := row.Clone()
			child[model.KeyGroupParent] = p.value
			child[model.KeyLevel] = depth + 1
			out = append(out, child)
		}
	}
	return out
}

// missingKey groups rows that do not have the field at all.
type missingKey struct{}

// opaqueKey holds the printed form of values that cannot be map keys.
type opaqueKey string

// groupKey maps a cell value to a comparable key. All numeric kinds share one
// key space so 1 and 1.0 land in the same group.
func groupKey(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, string, bool:
		return val
	}
	if f, ok := utils.Numeric(v); ok {
		if math.IsNaN(f) {
			return opaqueKey("NaN")
		}
		return f
	}
	return opaqueKey(fmt.Sprintf("%T:%v", v, v))
}
