package model

// Row is a schema-agnostic record: field name to scalar value
// (string, float64, bool or nil). Field presence is not uniform across rows.
type Row map[string]interface{}

// Keys carried by synthetic group header rows and by grouped child rows.
const (
	KeyIsGroupHeader = "isGroupHeader"
	KeyGroupField    = "groupField"
	KeyGroupValue    = "groupValue"
	KeyChildCount    = "childCount"
	KeyExpanded      = "expanded"
	KeyLevel         = "level"
	KeyGroupParent   = "groupParent"
)

// NewGroupHeader builds the synthetic row that opens a group.
func NewGroupHeader(field string, value interface{}, childCount, level int) Row {
	return Row{
		KeyIsGroupHeader: true,
		KeyGroupField:    field,
		KeyGroupValue:    value,
		KeyChildCount:    childCount,
		KeyExpanded:      true,
		KeyLevel:         level,
	}
}

// IsGroupHeader reports whether r was produced by the group stage as a header.
func (r Row) IsGroupHeader() bool {
	v, _ := r[KeyIsGroupHeader].(bool)
	return v
}

// Level returns the nesting depth stored on a grouped row, or 0.
func (r Row) Level() int {
	switch v := r[KeyLevel].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// ChildCount returns the number of data rows under a group header.
func (r Row) ChildCount() int {
	switch v := r[KeyChildCount].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// Clone returns a shallow copy of r. Values are scalars so this is a full copy.
func (r Row) Clone() Row {
	out := make(Row, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CloneRows copies the slice header and every row.
func CloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// CountDataRows counts rows that are not group headers.
func CountDataRows(rows []Row) int {
	n := 0
	for _, r := range rows {
		if !r.IsGroupHeader() {
			n++
		}
	}
	return n
}
