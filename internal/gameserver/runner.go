package gameserver

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Handler processes one event.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// Runner feeds a YAML event stream to a Handler one event at a time. It
// satisfies server.Service.
type Runner struct {
	src     io.Reader
	handler Handler
	logger  *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool

	handled int
	failed  int
}

// NewRunner creates a Runner reading from src.
//
// Precondition: all arguments must be non-nil.
func NewRunner(src io.Reader, handler Handler, logger *zap.Logger) *Runner {
	return &Runner{src: src, handler: handler, logger: logger}
}

// Start reads and dispatches events until the stream ends, ctx is done, or
// Stop is called.
//
// Postcondition: a handler error is logged and the next event is read. A
// document that does not match the event schema is logged and skipped. A
// malformed stream ends the run with an error.
func (r *Runner) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		cancel()
		return nil
	}
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	stream := NewStream(r.src)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			r.logger.Info("event stream finished", zap.Int("handled", r.handled), zap.Int("failed", r.failed))
			return nil
		}
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			r.failed++
			r.logger.Warn("skipping malformed event", zap.Error(err))
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if err := r.handler.Handle(ctx, ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.failed++
			r.logger.Warn("event failed", zap.String("type", string(ev.Type)), zap.Error(err))
			continue
		}
		r.handled++
	}
}

// Stop ends a running Start after the current event. A reader that is also
// an io.Closer is closed so a blocked read returns.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.cancel != nil {
		r.cancel()
	}
	if c, ok := r.src.(io.Closer); ok {
		_ = c.Close()
	}
}
