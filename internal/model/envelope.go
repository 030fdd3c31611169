package model

// Action names the kind of envelope crossing the host/engine boundary.
type Action string

const (
	ActionInit   Action = "init"
	ActionSort   Action = "sort"
	ActionFilter Action = "filter"
	ActionGroup  Action = "group"
	ActionUpdate Action = "update"

	// ActionReady is emitted once by the engine before it accepts requests.
	ActionReady Action = "ready"
	// ActionError is emitted when the engine context fails and stops.
	ActionError Action = "error"
)

// Request is the host → engine envelope. A nil criteria slice means "not
// supplied"; an empty non-nil slice clears that category.
type Request struct {
	ID          string            `json:"id,omitempty"`
	Action      Action            `json:"action"`
	Data        []Row             `json:"data,omitempty"`
	Sort        []SortCriterion   `json:"sort"`
	Filter      []FilterCriterion `json:"filter"`
	Group       []GroupCriterion  `json:"group"`
	CellUpdates []CellUpdate      `json:"cellUpdates,omitempty"`
	PageSize    *int              `json:"pageSize,omitempty"`
	Page        *int              `json:"page,omitempty"`
}

// WithPage returns a copy of r asking for one page of the output.
func (r Request) WithPage(page, pageSize int) Request {
	r.Page = &page
	r.PageSize = &pageSize
	return r
}

// GridData is the displayable row set.
type GridData struct {
	Rows []Row `json:"rows"`
	// TotalRows counts filtered data rows before pagination, group headers excluded.
	TotalRows int `json:"totalRows"`
	// DisplayRows is the length of the grouped sequence before pagination.
	DisplayRows int `json:"displayRows"`
}

// Response is the engine → host envelope.
type Response struct {
	ID     string    `json:"id,omitempty"`
	Action Action    `json:"action"`
	Data   *GridData `json:"data,omitempty"`
	// ProcessingTime is wall-clock milliseconds spent in the call.
	ProcessingTime float64        `json:"processingTime,omitempty"`
	Highlights     []CellUpdate   `json:"highlights,omitempty"`
	Stages         []StageMetrics `json:"stages,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// ReadyMessage is the one-time readiness signal.
func ReadyMessage() Response {
	return Response{Action: ActionReady}
}
