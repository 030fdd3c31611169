// Package engine holds the grid processing session and the worker goroutine
// that isolates it from the host.
package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-grid-engine/internal/model"
	"go-grid-engine/internal/pipeline"
	"go-grid-engine/internal/store"
	"go-grid-engine/pkg/logger"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

type cellKey struct {
	row   int
	field string
}

// Session holds the authoritative dataset and the last-applied criteria for
// one grid. Every Process call re-runs the full pipeline from the stored
// dataset. A Session is owned by one goroutine at a time; the mutex only
// guards the read accessors used from other goroutines.
type Session struct {
	id           string
	logger       logger.Logger
	journal      *store.Journal
	metrics      bool
	stageMetrics bool

	mu         sync.RWMutex
	state      State
	rows       []model.Row
	sort       []model.SortCriterion
	filter     []model.FilterCriterion
	group      []model.GroupCriterion
	highlights map[cellKey]struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithJournal records every processed request in j.
func WithJournal(j *store.Journal) Option {
	return func(s *Session) {
		s.journal = j
	}
}

// WithMetrics toggles the prometheus collectors.
func WithMetrics(enabled bool) Option {
	return func(s *Session) {
		s.metrics = enabled
	}
}

// WithStageMetrics attaches per-stage timings to every response.
func WithStageMetrics(enabled bool) Option {
	return func(s *Session) {
		s.stageMetrics = enabled
	}
}

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// NewSession creates an uninitialized session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		id:         uuid.New().String(),
		logger:     logger.NewNoopLogger(),
		metrics:    true,
		highlights: make(map[cellKey]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session_id", s.id))

	if s.journal != nil {
		if err := s.journal.SaveSession(s.id, StateUninitialized.String()); err != nil {
			s.logger.Warn("journal: failed to save session", zap.Error(err))
		}
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// criteria returns the criteria that the next run will apply.
func (s *Session) criteria() pipeline.Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pipeline.Criteria{
		Filter: append([]model.FilterCriterion(nil), s.filter...),
		Sort:   append([]model.SortCriterion(nil), s.sort...),
		Group:  append([]model.GroupCriterion(nil), s.group...),
	}
}

// size returns the length of the stored dataset.
func (s *Session) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Highlights returns the highlighted cells ordered by row index then field.
func (s *Session) Highlights() []model.CellUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.highlightsLocked()
}

func (s *Session) highlightsLocked() []model.CellUpdate {
	if len(s.highlights) == 0 {
		return nil
	}
	out := make([]model.CellUpdate, 0, len(s.highlights))
	for k := range s.highlights {
		on := true
		out = append(out, model.CellUpdate{RowIndex: k.row, Field: k.field, Highlight: &on})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RowIndex != out[j].RowIndex {
			return out[i].RowIndex < out[j].RowIndex
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// Process applies req to the session state and returns the freshly computed
// row set. It never fails: malformed criteria are dropped and logged.
// Returned rows may share maps with the stored dataset and must not be mutated.
func (s *Session) Process(req model.Request) model.Response {
	start := time.Now()

	tracker := pipeline.NewTracker()
	if s.metrics {
		tracker = pipeline.NewTracker(observeStage)
	}
	result, highlights := s.apply(req, tracker)

	resp := model.Response{
		ID:     req.ID,
		Action: req.Action,
		Data: &model.GridData{
			Rows:        result.Rows,
			TotalRows:   result.TotalRows,
			DisplayRows: result.DisplayRows,
		},
		Highlights:     highlights,
		ProcessingTime: float64(time.Since(start).Microseconds()) / 1000,
	}
	if s.stageMetrics {
		resp.Stages = tracker.Metrics().Stages
	}

	if s.metrics {
		requestsCounter.WithLabelValues(string(req.Action)).Inc()
		processingHistogram.WithLabelValues(string(req.Action)).Observe(resp.ProcessingTime)
	}
	if s.journal != nil {
		if err := s.journal.SaveRequest(s.id, req, resp); err != nil {
			s.logger.Warn("journal: failed to save request", zap.String("request_id", req.ID), zap.Error(err))
		}
	}

	s.logger.Debug("processed request",
		zap.String("request_id", req.ID),
		zap.String("action", string(req.Action)),
		zap.Int("total_rows", result.TotalRows),
		zap.Int("returned_rows", len(result.Rows)),
		zap.Float64("processing_ms", resp.ProcessingTime),
	)
	return resp
}

// apply updates the stored state from req and runs the pipeline under the lock.
func (s *Session) apply(req model.Request, tracker *pipeline.Tracker) (pipeline.Result, []model.CellUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !knownAction(req.Action) {
		s.logger.Warn("unknown action; re-running pipeline with stored criteria", zap.String("action", string(req.Action)))
	}

	if req.Action == model.ActionInit {
		s.reset(req.Data)
	} else if s.state == StateUninitialized {
		s.logger.Warn("request before init; processing empty dataset", zap.String("action", string(req.Action)))
	}

	clean, problems := normalizeRequest(req, len(s.rows))
	for _, p := range problems {
		s.logger.Debug("absorbed malformed request part", zap.String("request_id", req.ID), zap.Error(p))
		if s.metrics {
			absorbedCounter.WithLabelValues(p.Kind).Inc()
		}
	}

	// each category overwrites only itself; absent categories persist
	if clean.Sort != nil {
		s.sort = clean.Sort
	}
	if clean.Filter != nil {
		s.filter = clean.Filter
	}
	if clean.Group != nil {
		s.group = clean.Group
	}
	s.applyCellUpdates(clean.CellUpdates)

	result := pipeline.Run(s.rows, pipeline.Criteria{
		Filter:   s.filter,
		Sort:     s.sort,
		Group:    s.group,
		Page:     clean.Page,
		PageSize: clean.PageSize,
	}, tracker)
	return result, s.highlightsLocked()
}

// reset replaces the dataset and clears accumulated criteria and highlights.
// Criteria supplied on the init request itself are applied afterwards.
func (s *Session) reset(data []model.Row) {
	s.rows = make([]model.Row, len(data))
	copy(s.rows, data)
	s.sort, s.filter, s.group = nil, nil, nil
	s.highlights = make(map[cellKey]struct{})

	if s.state != StateReady {
		s.state = StateReady
		if s.journal != nil {
			if err := s.journal.UpdateSessionStatus(s.id, StateReady.String()); err != nil {
				s.logger.Warn("journal: failed to update session", zap.Error(err))
			}
		}
	}
	if s.metrics {
		datasetRowsGauge.Set(float64(len(data)))
	}
	s.logger.Info("session initialized", zap.Int("rows", len(data)))
}

// applyCellUpdates records highlight marks. The rows themselves are not touched.
func (s *Session) applyCellUpdates(updates []model.CellUpdate) {
	for _, u := range updates {
		k := cellKey{row: u.RowIndex, field: u.Field}
		if u.Highlighted() {
			s.highlights[k] = struct{}{}
		} else {
			delete(s.highlights, k)
		}
	}
}

// Close marks the session as ended in the journal.
func (s *Session) Close() {
	if s.journal != nil {
		if err := s.journal.UpdateSessionStatus(s.id, "closed"); err != nil {
			s.logger.Warn("journal: failed to close session", zap.Error(err))
		}
	}
}

// RecordFailure stores a fatal error against the session.
func (s *Session) RecordFailure(err error) {
	s.logger.Error("session failed", zap.Error(err))
	if s.journal != nil {
		if jerr := s.journal.SaveSessionError(s.id, err); jerr != nil {
			s.logger.Warn("journal: failed to save error", zap.Error(jerr))
		}
		if jerr := s.journal.UpdateSessionStatus(s.id, "failed"); jerr != nil {
			s.logger.Warn("journal: failed to update session", zap.Error(jerr))
		}
	}
}
