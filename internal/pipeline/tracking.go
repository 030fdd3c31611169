package pipeline

import (
	"sync"
	"time"

	"go-grid-engine/internal/model"
)

// StageObserver is notified when a stage finishes.
type StageObserver func(stage string, metrics model.StageMetrics)

// Tracker records per-stage metrics for one pipeline run
type Tracker struct {
	mu        sync.Mutex
	start     time.Time
	current   map[string]time.Time
	stages    []model.StageMetrics
	observers []StageObserver
}

// NewTracker creates a tracker whose run starts now
func NewTracker(observers ...StageObserver) *Tracker {
	return &Tracker{
		start:     time.Now(),
		current:   make(map[string]time.Time),
		observers: observers,
	}
}

// StartStage marks the start of a pipeline stage
func (t *Tracker) StartStage(stage string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current[stage] = time.Now()
}

// EndStage marks the end of a pipeline stage
func (t *Tracker) EndStage(stage string, rowsIn, rowsOut int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	started, ok := t.current[stage]
	if !ok {
		started = time.Now()
	}
	delete(t.current, stage)

	m := model.StageMetrics{
		Stage:    stage,
		RowsIn:   rowsIn,
		RowsOut:  rowsOut,
		Duration: time.Since(started),
	}
	t.stages = append(t.stages, m)
	observers := t.observers
	t.mu.Unlock()

	for _, observe := range observers {
		observe(stage, m)
	}
}

// Metrics returns a copy of what has been recorded so far
func (t *Tracker) Metrics() model.RunMetrics {
	if t == nil {
		return model.RunMetrics{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	stages := make([]model.StageMetrics, len(t.stages))
	copy(stages, t.stages)
	return model.RunMetrics{
		StartTime: t.start,
		Duration:  time.Since(t.start),
		Stages:    stages,
	}
}
