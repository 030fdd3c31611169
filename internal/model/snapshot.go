package model

// Column describes one displayed column of a grid.
type Column struct {
	Field      string `json:"field"`
	Header     string `json:"header"`
	Width      int    `json:"width,omitempty"`
	Sortable   bool   `json:"sortable,omitempty"`
	Filterable bool   `json:"filterable,omitempty"`
	Groupable  bool   `json:"groupable,omitempty"`
}

// Snapshot is the initial state a host hands to initializeGrid.
type Snapshot struct {
	Columns       []Column          `json:"columns"`
	Data          []Row             `json:"data"`
	InitialSort   []SortCriterion   `json:"initialSort,omitempty"`
	InitialFilter []FilterCriterion `json:"initialFilter,omitempty"`
	InitialGroup  []GroupCriterion  `json:"initialGroup,omitempty"`
	CellUpdates   []CellUpdate      `json:"cellUpdates,omitempty"`
}

// InitRequest maps the snapshot onto an init envelope.
func (s Snapshot) InitRequest() Request {
	data := s.Data
	if data == nil {
		data = []Row{}
	}
	return Request{
		Action:      ActionInit,
		Data:        data,
		Sort:        s.InitialSort,
		Filter:      s.InitialFilter,
		Group:       s.InitialGroup,
		CellUpdates: s.CellUpdates,
	}
}
