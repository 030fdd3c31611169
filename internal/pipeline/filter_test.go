package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"go-grid-engine/internal/model"
)

func TestFilter(t *testing.T) {
	tests := map[string]struct {
		criteria []model.FilterCriterion
		want     []string
	}{
		`contains_case_insensitive`: {
			criteria: []model.FilterCriterion{{Field: "name", Value: "AL", Operator: model.OpContains}},
			want:     []string{"Alice"},
		},
		`equals`: {
			criteria: []model.FilterCriterion{{Field: "city", Value: "paris", Operator: model.OpEquals}},
			want:     []string{"Alice", "Carol"},
		},
		`equals_number_against_text`: {
			criteria: []model.FilterCriterion{{Field: "age", Value: "25", Operator: model.OpEquals}},
			want:     []string{"Bob", "Dan"},
		},
		`equals_number_value`: {
			criteria: []model.FilterCriterion{{Field: "age", Value: float64(30), Operator: model.OpEquals}},
			want:     []string{"Alice"},
		},
		`starts_with`: {
			criteria: []model.FilterCriterion{{Field: "city", Value: "Ber", Operator: model.OpStartsWith}},
			want:     []string{"Dan"},
		},
		`ends_with`: {
			criteria: []model.FilterCriterion{{Field: "city", Value: "ON", Operator: model.OpEndsWith}},
			want:     []string{"Bob"},
		},
		`greater_than`: {
			criteria: []model.FilterCriterion{{Field: "age", Value: "25", Operator: model.OpGreaterThan}},
			want:     []string{"Alice", "Carol"},
		},
		`less_than`: {
			criteria: []model.FilterCriterion{{Field: "age", Value: "30", Operator: model.OpLessThan}},
			want:     []string{"Bob", "Dan"},
		},
		`non_numeric_threshold_matches_nothing`: {
			criteria: []model.FilterCriterion{{Field: "age", Value: "old", Operator: model.OpGreaterThan}},
			want:     []string{},
		},
		`non_numeric_cell_never_matches`: {
			criteria: []model.FilterCriterion{{Field: "name", Value: "0", Operator: model.OpGreaterThan}},
			want:     []string{},
		},
		`conjunction`: {
			criteria: []model.FilterCriterion{
				{Field: "city", Value: "paris", Operator: model.OpEquals},
				{Field: "age", Value: "32", Operator: model.OpLessThan},
			},
			want: []string{"Alice"},
		},
		`missing_field_reads_empty`: {
			criteria: []model.FilterCriterion{{Field: "country", Value: "fr", Operator: model.OpContains}},
			want:     []string{},
		},
		`empty_value_is_inactive`: {
			criteria: []model.FilterCriterion{{Field: "name", Value: "", Operator: model.OpEquals}},
			want:     []string{"Alice", "Bob", "Carol", "Dan"},
		},
		`nil_value_is_inactive`: {
			criteria: []model.FilterCriterion{{Field: "name", Value: nil, Operator: model.OpContains}},
			want:     []string{"Alice", "Bob", "Carol", "Dan"},
		},
		`unknown_operator_matches_all`: {
			criteria: []model.FilterCriterion{{Field: "name", Value: "zzz", Operator: "regex"}},
			want:     []string{"Alice", "Bob", "Carol", "Dan"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, test.want, names(Filter(people(), test.criteria)))
		})
	}
}

func TestFilterIdempotent(t *testing.T) {
	criteria := []model.FilterCriterion{{Field: "city", Value: "a", Operator: model.OpContains}}
	once := Filter(people(), criteria)
	twice := Filter(once, criteria)
	require.Empty(t, cmp.Diff(once, twice))
}

func TestFilterFalsyValues(t *testing.T) {
	rows := []model.Row{
		{"name": "zero", "n": float64(0), "b": false},
		{"name": "one", "n": float64(1), "b": true},
		{"name": "none", "n": nil},
	}

	require.Equal(t, []string{"zero"}, names(Filter(rows, []model.FilterCriterion{{Field: "n", Value: "0", Operator: model.OpEquals}})))
	require.Equal(t, []string{"zero"}, names(Filter(rows, []model.FilterCriterion{{Field: "b", Value: false, Operator: model.OpEquals}})))
	// nil reads as "" which coerces to 0
	require.Equal(t, []string{"zero", "none"}, names(Filter(rows, []model.FilterCriterion{{Field: "n", Value: "1", Operator: model.OpLessThan}})))
}
