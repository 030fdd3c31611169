package model

import "time"

// Stage names, in the fixed order they run.
const (
	StageFilter   = "filter"
	StageSort     = "sort"
	StageGroup    = "group"
	StagePaginate = "paginate"
)

// StageMetrics tracks one stage of one pipeline run
type StageMetrics struct {
	Stage    string        `json:"stage"`
	RowsIn   int           `json:"rows_in"`
	RowsOut  int           `json:"rows_out"`
	Duration time.Duration `json:"duration"`
}

// RunMetrics tracks one full pipeline run
type RunMetrics struct {
	StartTime time.Time      `json:"start_time"`
	Duration  time.Duration  `json:"duration"`
	Stages    []StageMetrics `json:"stages"`
}
