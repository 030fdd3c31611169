// Package host is the host-side adapter for an engine worker: it serializes
// requests through a bounded queue, matches responses by request ID and keeps
// the state a renderer needs.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"go-grid-engine/internal/engine"
	"go-grid-engine/internal/model"
	"go-grid-engine/pkg/logger"
)

var (
	// ErrClosed is returned once the client has been closed.
	ErrClosed = errors.New("host: client closed")
	// ErrBoundary is returned when the engine context failed. It is fatal.
	ErrBoundary = errors.New("host: engine boundary failure")
)

// View is what a renderer needs after every response.
type View struct {
	Ready          bool
	Loading        bool
	Data           model.GridData
	Highlights     []model.CellUpdate
	ProcessingTime float64
	Err            error
}

type result struct {
	resp model.Response
	err  error
}

type call struct {
	req    model.Request
	result chan result
}

// Client owns one engine worker for its whole lifetime.
type Client struct {
	logger      logger.Logger
	queueSize   int
	sessionOpts []engine.Option
	workerOpts  []engine.WorkerOption
	renderers   []func(View)
	worker      *engine.Worker
	queue       chan *call
	closed      chan struct{}
	ready       chan struct{}
	closeOnce   sync.Once
	wg          conc.WaitGroup

	mu       sync.Mutex
	view     View
	inflight int
	fatal    error
	shut     bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger. It is also handed to the session and worker
// unless their own options override it.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithQueueSize bounds how many requests may wait to be sent.
func WithQueueSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithSessionOptions configures the session the worker runs.
func WithSessionOptions(opts ...engine.Option) Option {
	return func(c *Client) {
		c.sessionOpts = append(c.sessionOpts, opts...)
	}
}

// WithWorkerOptions configures the worker.
func WithWorkerOptions(opts ...engine.WorkerOption) Option {
	return func(c *Client) {
		c.workerOpts = append(c.workerOpts, opts...)
	}
}

// WithRenderer registers fn to receive the view after every state change.
// It runs on the client's dispatch goroutine and must not call back into the
// client's blocking methods.
func WithRenderer(fn func(View)) Option {
	return func(c *Client) {
		c.renderers = append(c.renderers, fn)
	}
}

// New spins up an engine worker and returns a client for it. Requests issued
// before the worker signals ready are queued and sent once it does.
func New(ctx context.Context, opts ...Option) *Client {
	c := &Client{
		logger:    logger.NewNoopLogger(),
		queueSize: 64,
		closed:    make(chan struct{}),
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.queue = make(chan *call, c.queueSize)

	sessionOpts := append([]engine.Option{engine.WithLogger(c.logger)}, c.sessionOpts...)
	workerOpts := append([]engine.WorkerOption{
		engine.WithWorkerLogger(c.logger),
		engine.WithInboxSize(c.queueSize),
	}, c.workerOpts...)
	session := engine.NewSession(sessionOpts...)
	c.worker = engine.StartWorker(ctx, session, workerOpts...)
	c.logger = c.logger.With(zap.String("session_id", session.ID()))
	c.view.Loading = true

	c.wg.Go(c.dispatch)
	return c
}

// Ready is closed when the worker has signalled readiness.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// SessionID identifies the engine session behind this client.
func (c *Client) SessionID() string {
	return c.worker.Session().ID()
}

// View returns a copy of the current render state.
func (c *Client) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Do sends req and waits for its response. Requests are delivered to the
// engine one at a time in the order Do was called. A request without an ID
// gets one. Cancelling ctx abandons the wait, not the request.
func (c *Client) Do(ctx context.Context, req model.Request) (model.Response, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	c.mu.Lock()
	if c.shut {
		c.mu.Unlock()
		return model.Response{}, ErrClosed
	}
	if c.fatal != nil {
		err := c.fatal
		c.mu.Unlock()
		return model.Response{}, err
	}
	c.inflight++
	c.view.Loading = true
	c.mu.Unlock()

	cl := &call{req: req, result: make(chan result, 1)}

	select {
	case <-c.closed:
		c.settle()
		return model.Response{}, ErrClosed
	case <-ctx.Done():
		c.settle()
		return model.Response{}, ctx.Err()
	case c.queue <- cl:
	}

	select {
	case r := <-cl.result:
		return r.resp, r.err
	case <-c.closed:
		return model.Response{}, ErrClosed
	case <-ctx.Done():
		return model.Response{}, ctx.Err()
	}
}

// InitializeGrid loads a snapshot into the engine.
func (c *Client) InitializeGrid(ctx context.Context, snapshot model.Snapshot) (model.Response, error) {
	return c.Do(ctx, snapshot.InitRequest())
}

// SortGrid replaces the sort with a single criterion.
func (c *Client) SortGrid(ctx context.Context, field string, direction model.SortDirection) (model.Response, error) {
	return c.Do(ctx, model.Request{
		Action: model.ActionSort,
		Sort:   []model.SortCriterion{{Field: field, Direction: direction}},
	})
}

// FilterGrid replaces the filter with a single criterion.
func (c *Client) FilterGrid(ctx context.Context, field string, value interface{}, operator model.FilterOperator) (model.Response, error) {
	return c.Do(ctx, model.Request{
		Action: model.ActionFilter,
		Filter: []model.FilterCriterion{{Field: field, Value: value, Operator: operator}},
	})
}

// GroupGrid replaces the grouping with a single field.
func (c *Client) GroupGrid(ctx context.Context, field string) (model.Response, error) {
	return c.Do(ctx, model.Request{
		Action: model.ActionGroup,
		Group:  []model.GroupCriterion{{Field: field}},
	})
}

// UpdateCells sends cell highlight updates.
func (c *Client) UpdateCells(ctx context.Context, updates []model.CellUpdate) (model.Response, error) {
	return c.Do(ctx, model.Request{
		Action:      model.ActionUpdate,
		CellUpdates: updates,
	})
}

// Close terminates the worker, discarding its session, and fails every
// pending request with ErrClosed. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.shut = true
		c.mu.Unlock()

		close(c.closed)
		c.worker.Terminate()
		c.wg.Wait()

		for drained := false; !drained; {
			select {
			case cl := <-c.queue:
				cl.result <- result{err: ErrClosed}
			default:
				drained = true
			}
		}

		// calls that raced the shutdown may never be settled by the dispatcher
		c.mu.Lock()
		c.inflight = 0
		c.view.Loading = false
		c.mu.Unlock()
	})
	return nil
}

// ------------------- Dispatch -------------------

func (c *Client) dispatch() {
	if err := c.awaitReady(); err != nil {
		c.rejectAll(err)
		return
	}

	for {
		select {
		case <-c.closed:
			return
		case cl := <-c.queue:
			resp, err := c.roundTrip(cl.req)
			c.settle()
			c.complete(resp, err)
			cl.result <- result{resp: resp, err: err}
			if errors.Is(err, ErrBoundary) {
				c.rejectAll(err)
				return
			}
		}
	}
}

// awaitReady holds queued requests back until the ready signal arrives.
func (c *Client) awaitReady() error {
	for {
		select {
		case <-c.closed:
			return ErrClosed
		case msg, ok := <-c.worker.Messages():
			if !ok {
				err := fmt.Errorf("%w: worker stopped before ready", ErrBoundary)
				c.complete(model.Response{}, err)
				return err
			}
			if msg.Action != model.ActionReady {
				c.logger.Warn("dropping message received before ready", zap.String("action", string(msg.Action)))
				continue
			}

			close(c.ready)
			c.mu.Lock()
			c.view.Ready = true
			c.view.Loading = c.inflight > 0
			c.mu.Unlock()
			c.render()
			c.logger.Debug("engine ready")
			return nil
		}
	}
}

// roundTrip posts one request and waits for the response carrying its ID.
func (c *Client) roundTrip(req model.Request) (model.Response, error) {
	if err := c.worker.Post(context.Background(), req); err != nil {
		if errors.Is(err, engine.ErrStopped) {
			return model.Response{}, c.stoppedErr()
		}
		return model.Response{}, err
	}

	for {
		select {
		case <-c.closed:
			return model.Response{}, ErrClosed
		case msg, ok := <-c.worker.Messages():
			if !ok {
				return model.Response{}, c.stoppedErr()
			}
			if msg.Action == model.ActionError {
				return model.Response{}, fmt.Errorf("%w: %s", ErrBoundary, msg.Error)
			}
			if msg.ID != req.ID {
				c.logger.Warn("dropping response for another request",
					zap.String("want_id", req.ID), zap.String("got_id", msg.ID))
				continue
			}
			return msg, nil
		}
	}
}

func (c *Client) stoppedErr() error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	if err := c.worker.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBoundary, err)
	}
	return fmt.Errorf("%w: worker stopped", ErrBoundary)
}

// complete folds one finished call into the view.
func (c *Client) complete(resp model.Response, err error) {
	c.mu.Lock()
	c.view.Loading = c.inflight > 0
	switch {
	case errors.Is(err, ErrBoundary):
		c.fatal = err
		c.view.Err = err
		c.view.Loading = false
	case err != nil:
		c.view.Err = err
	case resp.Data != nil:
		c.view.Data = *resp.Data
		c.view.Highlights = resp.Highlights
		c.view.Err = nil
		if resp.ProcessingTime > 0 {
			c.view.ProcessingTime = resp.ProcessingTime
		}
	}
	c.mu.Unlock()

	if errors.Is(err, ErrBoundary) {
		c.logger.Error("engine boundary failure", zap.Error(err))
	}
	c.render()
}

// settle ends the inflight accounting of one call.
func (c *Client) settle() {
	c.mu.Lock()
	if c.inflight > 0 {
		c.inflight--
	}
	c.view.Loading = c.inflight > 0
	c.mu.Unlock()
}

// rejectAll answers every queued and future call with err until the client
// is closed.
func (c *Client) rejectAll(err error) {
	for {
		select {
		case <-c.closed:
			return
		case cl := <-c.queue:
			c.settle()
			cl.result <- result{err: err}
		}
	}
}

func (c *Client) render() {
	if len(c.renderers) == 0 {
		return
	}
	v := c.View()
	for _, fn := range c.renderers {
		fn(v)
	}
}
