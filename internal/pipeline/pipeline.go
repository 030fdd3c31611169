package pipeline

import (
	"go-grid-engine/internal/model"
)

// Criteria is everything a run needs besides the rows.
type Criteria struct {
	Filter   []model.FilterCriterion
	Sort     []model.SortCriterion
	Group    []model.GroupCriterion
	Page     *int
	PageSize *int
}

// Result is the output of one run.
type Result struct {
	Rows []model.Row
	// TotalRows counts filtered data rows; group headers are not included.
	TotalRows int
	// DisplayRows is the grouped sequence length before pagination.
	DisplayRows int
}

// ------------------- Pipeline Runner -------------------

// Run applies filter → sort → group → paginate, always in that order, to rows.
// The input slice and its rows are left untouched. tracker may be nil.
func Run(rows []model.Row, c Criteria, tracker *Tracker) Result {
	// --- FILTER STAGE ---
	tracker.StartStage(model.StageFilter)
	filtered := Filter(rows, c.Filter)
	tracker.EndStage(model.StageFilter, len(rows), len(filtered))

	// --- SORT STAGE ---
	tracker.StartStage(model.StageSort)
	sorted := Sort(filtered, c.Sort)
	tracker.EndStage(model.StageSort, len(filtered), len(sorted))

	// --- GROUP STAGE ---
	tracker.StartStage(model.StageGroup)
	grouped := Group(sorted, c.Group)
	tracker.EndStage(model.StageGroup, len(sorted), len(grouped))

	// --- PAGINATE STAGE ---
	tracker.StartStage(model.StagePaginate)
	page := Paginate(grouped, c.Page, c.PageSize)
	tracker.EndStage(model.StagePaginate, len(grouped), len(page))

	out := make([]model.Row, len(page))
	copy(out, page)

	return Result{
		Rows:        out,
		TotalRows:   len(sorted),
		DisplayRows: len(grouped),
	}
}
