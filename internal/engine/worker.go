package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"go-grid-engine/internal/model"
	"go-grid-engine/pkg/logger"
)

// ErrStopped is returned when posting to a worker that is no longer running.
var ErrStopped = errors.New("engine: worker stopped")

// Worker runs one Session on its own goroutine. The host reaches it only by
// posting requests and reading messages; rows are copied both ways so neither
// side can observe the other's mutations. The first message is always the
// ready signal. Requests are processed one at a time, in receipt order.
type Worker struct {
	session  *Session
	logger   logger.Logger
	inbox    chan model.Request
	messages chan model.Response
	done     chan struct{}
	before   func(model.Request)
	cancel   context.CancelFunc
	wg       conc.WaitGroup

	mu  sync.Mutex
	err error
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the worker logger.
func WithWorkerLogger(l logger.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = l
	}
}

// WithInboxSize sets how many posted requests may wait unprocessed.
func WithInboxSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.inbox = make(chan model.Request, n)
			w.messages = make(chan model.Response, n+1)
		}
	}
}

// WithBeforeProcess calls fn with every request just before the session
// processes it, on the worker goroutine. A panic in fn is a boundary failure.
func WithBeforeProcess(fn func(model.Request)) WorkerOption {
	return func(w *Worker) {
		w.before = fn
	}
}

// StartWorker spins up the worker goroutine for session. It stops when ctx is
// cancelled, Terminate is called, or processing panics.
func StartWorker(ctx context.Context, session *Session, opts ...WorkerOption) *Worker {
	w := &Worker{
		session:  session,
		logger:   logger.NewNoopLogger(),
		inbox:    make(chan model.Request, 16),
		messages: make(chan model.Response, 17),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("session_id", session.ID()))

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Go(func() {
		w.run(ctx)
	})
	return w
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	defer close(w.messages)
	defer w.session.Close()

	if !w.emit(ctx, model.ReadyMessage()) {
		return
	}
	w.logger.Debug("worker ready")

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("worker terminated")
			return
		case req := <-w.inbox:
			resp, err := w.handle(req)
			if err != nil {
				w.fail(ctx, req, err)
				return
			}
			if !w.emit(ctx, resp) {
				return
			}
		}
	}
}

// handle processes one request and turns a panic into an error.
func (w *Worker) handle(req model.Request) (model.Response, error) {
	req.Data = model.CloneRows(req.Data)

	var resp model.Response
	var pc panics.Catcher
	pc.Try(func() {
		if w.before != nil {
			w.before(req)
		}
		resp = w.session.Process(req)
	})
	if r := pc.Recovered(); r != nil {
		return model.Response{}, fmt.Errorf("processing %s request %s: %w", req.Action, req.ID, r.AsError())
	}

	if resp.Data != nil {
		resp.Data.Rows = model.CloneRows(resp.Data.Rows)
	}
	return resp, nil
}

func (w *Worker) fail(ctx context.Context, req model.Request, err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()

	boundaryFailuresCounter.Inc()
	w.session.RecordFailure(err)
	w.emit(ctx, model.Response{ID: req.ID, Action: model.ActionError, Error: err.Error()})
}

func (w *Worker) emit(ctx context.Context, msg model.Response) bool {
	select {
	case <-ctx.Done():
		return false
	case w.messages <- msg:
		return true
	}
}

// Post hands req to the worker. It blocks while the inbox is full.
func (w *Worker) Post(ctx context.Context, req model.Request) error {
	select {
	case <-w.done:
		return ErrStopped
	default:
	}

	select {
	case <-w.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	case w.inbox <- req:
		return nil
	}
}

// Messages yields the ready signal, then one response per request. It is
// closed when the worker stops.
func (w *Worker) Messages() <-chan model.Response {
	return w.messages
}

// Done is closed once the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Err returns the fatal error that stopped the worker, if any.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Session returns the session the worker drives.
func (w *Worker) Session() *Session {
	return w.session
}

// Terminate stops the worker and waits for its goroutine to exit. Requests
// still in the inbox are discarded along with the session state.
func (w *Worker) Terminate() {
	w.cancel()
	w.wg.Wait()
}
