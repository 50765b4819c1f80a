package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/goscope/internal/config"
	"github.com/roach88/goscope/internal/protocol"
	"github.com/roach88/goscope/internal/registry"
	"github.com/roach88/goscope/internal/store"
)

// DefaultTimeout bounds every request when Parameters.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Parameters configures a ScopeHarness.
type Parameters struct {
	// ScopeList holds the scope .ini files to register, in order.
	ScopeList []string

	// RuntimeConfig is the runtime .ini passed to every scope. Empty uses
	// config.DefaultRuntimeConfig.
	RuntimeConfig string

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// Trace is the path of a SQLite trace database. Empty disables tracing.
	Trace string

	// Cardinality limits the number of results per search. Zero is
	// unlimited.
	Cardinality int

	// Locale and FormFactor override the runtime config when non-empty.
	Locale     string
	FormFactor string

	// Launcher starts scopes. Nil uses ExecLauncher.
	Launcher Launcher

	// Logger receives harness diagnostics and scope stderr. Nil discards.
	Logger *slog.Logger
}

// ScopeHarness drives scopes registered from a list of .ini files. Scopes
// are started on first use and run until Close.
type ScopeHarness struct {
	params    Parameters
	registry  *registry.Registry
	runtime   *config.RuntimeConfig
	launcher  Launcher
	log       *slog.Logger
	sessionID string

	store    *store.Store
	recorder *store.Recorder

	mu     sync.Mutex
	slots  map[string]*slot
	closed bool

	view *ResultsView
}

// NewFromScopeList builds a harness for p.ScopeList. No scope is started
// until it is first searched, or Start is called.
func NewFromScopeList(ctx context.Context, p Parameters) (*ScopeHarness, error) {
	reg, err := registry.New(p.ScopeList)
	if err != nil {
		return nil, err
	}
	rc, err := config.LoadRuntimeConfig(p.RuntimeConfig)
	if err != nil {
		return nil, err
	}
	if p.Locale != "" {
		rc.Locale = p.Locale
	}
	if p.FormFactor != "" {
		rc.FormFactor = p.FormFactor
	}
	if p.Timeout == 0 {
		p.Timeout = DefaultTimeout
	}
	if p.Launcher == nil {
		p.Launcher = ExecLauncher{}
	}
	if p.Logger == nil {
		p.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	h := &ScopeHarness{
		params:    p,
		registry:  reg,
		runtime:   rc,
		launcher:  p.Launcher,
		log:       p.Logger.With("session", id.String()),
		sessionID: id.String(),
		slots:     make(map[string]*slot),
	}

	if p.Trace != "" {
		st, err := store.Open(p.Trace)
		if err != nil {
			return nil, err
		}
		rec, err := st.StartSession(ctx, store.Session{
			ID:        h.sessionID,
			StartedAt: time.Now(),
			Scopes:    reg.IDs(),
		})
		if err != nil {
			st.Close()
			return nil, err
		}
		h.store = st
		h.recorder = rec
	}

	h.view = newResultsView(h)
	return h, nil
}

// SessionID identifies this harness run in traces.
func (h *ScopeHarness) SessionID() string { return h.sessionID }

// Registry returns the scopes known to the harness.
func (h *ScopeHarness) Registry() *registry.Registry { return h.registry }

// ResultsView returns the harness's results view.
func (h *ScopeHarness) ResultsView() *ResultsView { return h.view }

// Start launches the given scopes concurrently, or every registered scope
// when ids is empty.
func (h *ScopeHarness) Start(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		ids = h.registry.IDs()
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			_, err := h.client(gctx, id)
			return err
		})
	}
	return g.Wait()
}

// slot serializes the start of one scope.
type slot struct {
	mu sync.Mutex
	c  *client
}

// client returns the running client for scope id, starting the scope if
// needed.
func (h *ScopeHarness) client(ctx context.Context, id string) (*client, error) {
	entry, err := h.registry.Get(id)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	s, ok := h.slots[id]
	if !ok {
		s = &slot{}
		h.slots[id] = s
	}
	h.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		select {
		case <-s.c.done:
			h.log.Info("restarting scope", "scope", id)
			if err := s.c.close(); err != nil {
				h.log.Debug("scope exited", "scope", id, "error", err)
			}
			s.c = nil
		default:
			return s.c, nil
		}
	}

	c, err := h.launch(ctx, entry)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		c.close()
		return nil, ErrClosed
	}
	s.c = c
	return c, nil
}

func (h *ScopeHarness) launch(ctx context.Context, entry *registry.Entry) (*client, error) {
	id := entry.ID
	argv, err := h.registry.Runner(id, h.params.RuntimeConfig)
	if err != nil {
		return nil, err
	}
	spec := LaunchSpec{
		ScopeID:  id,
		ScopeDir: entry.Config.ScopeDir,
		CacheDir: filepath.Join(h.runtime.CacheDir, id),
		TmpDir:   filepath.Join(h.runtime.TmpDir, id),
		Argv:     argv,
		Stderr:   &logWriter{log: h.log, scopeID: id},
	}
	h.log.Debug("starting scope", "scope", id, "argv", argv)
	proc, err := h.launcher.Launch(ctx, spec)
	if err != nil {
		return nil, err
	}

	c := newClient(id, proc, h.params.Timeout, h.recorder, h.log)
	init := protocol.InitParams{
		ScopeID:  id,
		ScopeDir: spec.ScopeDir,
		CacheDir: spec.CacheDir,
		TmpDir:   spec.TmpDir,
		Registry: h.registry.Metadata(),
	}
	if _, err := c.call(ctx, protocol.MethodInit, init, nil); err != nil {
		if cerr := c.close(); cerr != nil {
			h.log.Debug("scope exit after failed init", "scope", id, "error", cerr)
		}
		return nil, fmt.Errorf("init scope %s: %w", id, err)
	}
	return c, nil
}

// Close stops every running scope, waits for it to exit and closes the
// trace store. It is safe to call more than once.
func (h *ScopeHarness) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	slots := h.slots
	h.slots = nil
	h.mu.Unlock()

	var g errgroup.Group
	for id, s := range slots {
		g.Go(func() error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.c == nil {
				return nil
			}
			err := s.c.close()
			s.c = nil
			if err != nil {
				return fmt.Errorf("scope %s: %w", id, err)
			}
			return nil
		})
	}
	errs := []error{g.Wait()}
	if h.store != nil {
		errs = append(errs, h.store.Close())
	}
	return errors.Join(errs...)
}

func (h *ScopeHarness) searchMetadata() protocol.SearchMetadata {
	return protocol.SearchMetadata{
		Locale:      h.runtime.Locale,
		FormFactor:  h.runtime.FormFactor,
		Cardinality: h.params.Cardinality,
	}
}

func (h *ScopeHarness) actionMetadata() protocol.ActionMetadata {
	return protocol.ActionMetadata{
		Locale:     h.runtime.Locale,
		FormFactor: h.runtime.FormFactor,
	}
}

// logWriter forwards scope stderr lines to the logger.
type logWriter struct {
	log     *slog.Logger
	scopeID string
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.log.Debug("scope stderr", "scope", w.scopeID, "output", string(trimNewline(p)))
	return len(p), nil
}

func trimNewline(p []byte) []byte {
	for len(p) > 0 && (p[len(p)-1] == '\n' || p[len(p)-1] == '\r') {
		p = p[:len(p)-1]
	}
	return p
}
