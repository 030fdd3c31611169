package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"go-grid-engine/internal/model"
)

func TestGroupSingleField(t *testing.T) {
	rows := people()
	got := Group(rows, []model.GroupCriterion{{Field: "city"}})

	want := []model.Row{
		model.NewGroupHeader("city", "Paris", 2, 0),
		{"name": "Alice", "age": float64(30), "city": "Paris", model.KeyGroupParent: "Paris", model.KeyLevel: 1},
		{"name": "Carol", "age": float64(35), "city": "Paris", model.KeyGroupParent: "Paris", model.KeyLevel: 1},
		model.NewGroupHeader("city", "London", 1, 0),
		{"name": "Bob", "age": float64(25), "city": "London", model.KeyGroupParent: "London", model.KeyLevel: 1},
		model.NewGroupHeader("city", "Berlin", 1, 0),
		{"name": "Dan", "age": float64(25), "city": "Berlin", model.KeyGroupParent: "Berlin", model.KeyLevel: 1},
	}
	require.Empty(t, cmp.Diff(want, got))

	// grouping copies children
	require.Empty(t, cmp.Diff(people(), rows))
	require.Equal(t, 4, model.CountDataRows(got))
}

func TestGroupChildCountsSumToInput(t *testing.T) {
	got := Group(people(), []model.GroupCriterion{{Field: "age"}})

	sum := 0
	for _, r := range got {
		if r.IsGroupHeader() {
			sum += r.ChildCount()
		}
	}
	require.Equal(t, 4, sum)
	require.Len(t, got, 4+3)
}

func TestGroupNested(t *testing.T) {
	rows := []model.Row{
		{"name": "a", "region": "EU", "city": "Paris"},
		{"name": "b", "region": "US", "city": "NYC"},
		{"name": "c", "region": "EU", "city": "Berlin"},
		{"name": "d", "region": "EU", "city": "Paris"},
	}
	got := Group(rows, []model.GroupCriterion{{Field: "region"}, {Field: "city"}})

	type line struct {
		Header bool
		Value  interface{}
		Level  int
		Count  int
	}
	var lines []line
	for _, r := range got {
		if r.IsGroupHeader() {
			lines = append(lines, line{Header: true, Value: r[model.KeyGroupValue], Level: r.Level(), Count: r.ChildCount()})
			continue
		}
		lines = append(lines, line{Value: r["name"], Level: r.Level()})
	}

	want := []line{
		{Header: true, Value: "EU", Level: 0, Count: 3},
		{Header: true, Value: "Paris", Level: 1, Count: 2},
		{Value: "a", Level: 2},
		{Value: "d", Level: 2},
		{Header: true, Value: "Berlin", Level: 1, Count: 1},
		{Value: "c", Level: 2},
		{Header: true, Value: "US", Level: 0, Count: 1},
		{Header: true, Value: "NYC", Level: 1, Count: 1},
		{Value: "b", Level: 2},
	}
	require.Empty(t, cmp.Diff(want, lines))
}

func TestGroupKeys(t *testing.T) {
	rows := []model.Row{
		{"name": "a", "v": float64(1)},
		{"name": "b", "v": 1},
		{"name": "c"},
		{"name": "d", "v": nil},
		{"name": "e", "v": "1"},
		{"name": "f", "v": []interface{}{"x"}},
		{"name": "g", "v": []interface{}{"x"}},
	}
	got := Group(rows, []model.GroupCriterion{{Field: "v"}})

	var counts []int
	for _, r := range got {
		if r.IsGroupHeader() {
			counts = append(counts, r.ChildCount())
		}
	}
	// 1 and 1.0 share a group, missing and null are apart, "1" is text,
	// equal slices share a group
	require.Equal(t, []int{2, 1, 1, 1, 2}, counts)
}

func TestGroupMissingAndNullHeaders(t *testing.T) {
	rows := []model.Row{
		{"name": "a", "team": nil},
		{"name": "b"},
		{"name": "c", "team": nil},
	}
	got := Group(rows, []model.GroupCriterion{{Field: "team"}})

	want := []model.Row{
		model.NewGroupHeader("team", nil, 2, 0),
		{"name": "a", "team": nil, model.KeyGroupParent: nil, model.KeyLevel: 1},
		{"name": "c", "team": nil, model.KeyGroupParent: nil, model.KeyLevel: 1},
		model.NewGroupHeader("team", nil, 1, 0),
		{"name": "b", model.KeyGroupParent: nil, model.KeyLevel: 1},
	}
	require.Empty(t, cmp.Diff(want, got))
}
