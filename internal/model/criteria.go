package model

import (
	"encoding/json"
	"strings"
)

// SortDirection is the order a sort criterion applies. The zero value is SortNone.
type SortDirection string

const (
	SortNone       SortDirection = ""
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// ParseSortDirection accepts the wire spellings and their long aliases.
// Anything unrecognised is SortNone.
func ParseSortDirection(s string) SortDirection {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return SortAscending
	case "desc", "descending":
		return SortDescending
	default:
		return SortNone
	}
}

// MarshalJSON writes null for SortNone.
func (d SortDirection) MarshalJSON() ([]byte, error) {
	if d == SortNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

// UnmarshalJSON never fails: null, non-strings and unknown values become SortNone.
func (d *SortDirection) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*d = SortNone
		return nil
	}
	*d = ParseSortDirection(s)
	return nil
}

// SortCriterion orders rows by one field.
type SortCriterion struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// FilterOperator selects how a filter value is matched against a cell.
type FilterOperator string

const (
	OpContains    FilterOperator = "contains"
	OpEquals      FilterOperator = "equals"
	OpStartsWith  FilterOperator = "startsWith"
	OpEndsWith    FilterOperator = "endsWith"
	OpGreaterThan FilterOperator = "greaterThan"
	OpLessThan    FilterOperator = "lessThan"
)

// Known reports whether op is one of the supported operators.
func (op FilterOperator) Known() bool {
	switch op {
	case OpContains, OpEquals, OpStartsWith, OpEndsWith, OpGreaterThan, OpLessThan:
		return true
	}
	return false
}

// FilterCriterion keeps rows whose Field matches Value under Operator.
// Value is usually a string but any scalar is coerced.
type FilterCriterion struct {
	Field    string         `json:"field"`
	Value    interface{}    `json:"value"`
	Operator FilterOperator `json:"operator"`
}

// GroupCriterion groups rows by the distinct values of Field.
type GroupCriterion struct {
	Field string `json:"field"`
}

// CellUpdate marks one cell of the stored dataset, addressed by its index in the
// dataset supplied on init.
type CellUpdate struct {
	RowIndex  int    `json:"rowIndex"`
	Field     string `json:"field"`
	Highlight *bool  `json:"highlight,omitempty"`
}

// Highlighted reports the effective highlight flag; an absent flag means true.
func (u CellUpdate) Highlighted() bool {
	return u.Highlight == nil || *u.Highlight
}
