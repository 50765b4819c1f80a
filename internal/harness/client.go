package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/goscope/internal/protocol"
	"github.com/roach88/goscope/internal/store"
)

const shutdownTimeout = 5 * time.Second

// client talks to one running scope. Requests may be issued from several
// goroutines; a reader goroutine routes events to the pending request with
// the matching id.
type client struct {
	scopeID string
	proc    Process
	conn    *protocol.Conn
	log     *slog.Logger
	trace   *store.Recorder
	timeout time.Duration

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*pendingCall
	exitErr error

	done chan struct{}
}

type pendingCall struct {
	events chan *protocol.Event
	gone   chan struct{}
}

func newClient(scopeID string, proc Process, timeout time.Duration, trace *store.Recorder, log *slog.Logger) *client {
	c := &client{
		scopeID: scopeID,
		proc:    proc,
		conn:    protocol.NewConn(proc.Stdout(), proc.Stdin()),
		log:     log,
		trace:   trace,
		timeout: timeout,
		pending: make(map[uint64]*pendingCall),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *client) readLoop() {
	for {
		ev, err := c.conn.ReadEvent()
		if errors.Is(err, protocol.ErrMalformedFrame) {
			c.log.Warn("skipping malformed event", "scope", c.scopeID, "error", err)
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrScopeExited
			} else {
				err = fmt.Errorf("%w: %w", ErrScopeExited, err)
			}
			c.mu.Lock()
			c.exitErr = err
			c.mu.Unlock()
			close(c.done)
			return
		}

		c.record(func(ctx context.Context) error { return c.trace.Event(ctx, c.scopeID, *ev) })

		c.mu.Lock()
		p := c.pending[ev.ID]
		c.mu.Unlock()
		if p == nil {
			c.log.Debug("dropping event for unknown request", "scope", c.scopeID, "id", ev.ID, "type", ev.Type)
			continue
		}
		select {
		case p.events <- ev:
		case <-p.gone:
		}
	}
}

func (c *client) record(write func(context.Context) error) {
	if c.trace == nil {
		return
	}
	if err := write(context.Background()); err != nil {
		c.log.Warn("trace write failed", "scope", c.scopeID, "error", err)
	}
}

// call sends a request and passes every non-terminal event to handle. It
// returns the terminal event. An error event becomes a *RemoteError. If
// handle fails, the remaining events are still drained and the first handle
// error is returned.
func (c *client) call(ctx context.Context, method protocol.Method, params any, handle func(*protocol.Event) error) (*protocol.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scope %s: %s: %w", c.scopeID, method, context.Cause(ctx))
	}
	id, p, err := c.register()
	if err != nil {
		return nil, err
	}
	defer c.unregister(id, p)

	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}
	if err := c.send(req); err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, c.timeout, ErrTimeout)
		defer cancel()
	}

	var handleErr error
	for {
		select {
		case ev := <-p.events:
			if ev.Type == protocol.EventError {
				var payload protocol.ErrorPayload
				if err := ev.Decode(&payload); err != nil {
					payload.Message = err.Error()
				}
				return nil, &RemoteError{ScopeID: c.scopeID, Method: string(method), Message: payload.Message}
			}
			if ev.Type.Terminal() {
				return ev, handleErr
			}
			if handle != nil && handleErr == nil {
				handleErr = handle(ev)
			}
		case <-c.done:
			return nil, c.exited()
		case <-ctx.Done():
			c.cancelRequest(id)
			return nil, fmt.Errorf("scope %s: %s request %d: %w", c.scopeID, method, id, context.Cause(ctx))
		}
	}
}

func (c *client) register() (uint64, *pendingCall, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return 0, nil, c.exitErr
	default:
	}
	c.nextID++
	p := &pendingCall{events: make(chan *protocol.Event), gone: make(chan struct{})}
	c.pending[c.nextID] = p
	return c.nextID, p, nil
}

func (c *client) unregister(id uint64, p *pendingCall) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
	close(p.gone)
}

func (c *client) send(req *protocol.Request) error {
	c.record(func(ctx context.Context) error { return c.trace.Request(ctx, c.scopeID, *req) })
	if err := c.conn.WriteRequest(req); err != nil {
		select {
		case <-c.done:
			return c.exited()
		default:
		}
		return fmt.Errorf("scope %s: send %s: %w", c.scopeID, req.Method, err)
	}
	return nil
}

// cancelRequest asks the scope to abandon request target without waiting
// for the answer.
func (c *client) cancelRequest(target uint64) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()

	req, err := protocol.NewRequest(id, protocol.MethodCancel, protocol.CancelParams{Target: target})
	if err != nil {
		return
	}
	if err := c.send(req); err != nil {
		c.log.Debug("cancel failed", "scope", c.scopeID, "target", target, "error", err)
	}
}

func (c *client) exited() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exitErr != nil {
		return fmt.Errorf("scope %s: %w", c.scopeID, c.exitErr)
	}
	return fmt.Errorf("scope %s: %w", c.scopeID, ErrScopeExited)
}

// close shuts the scope down and waits for it to exit. A scope that does
// not exit within shutdownTimeout is killed.
func (c *client) close() error {
	select {
	case <-c.done:
	default:
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if _, err := c.call(ctx, protocol.MethodShutdown, nil, nil); err != nil {
			c.log.Debug("shutdown failed", "scope", c.scopeID, "error", err)
		}
		cancel()
	}
	c.proc.Stdin().Close()

	waited := make(chan error, 1)
	go func() { waited <- c.proc.Wait() }()
	select {
	case err := <-waited:
		return err
	case <-time.After(shutdownTimeout):
		c.log.Warn("scope did not exit, killing", "scope", c.scopeID)
		if err := c.proc.Kill(); err != nil {
			return err
		}
		return <-waited
	}
}
