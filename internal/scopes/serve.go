package scopes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/goscope/internal/config"
	"github.com/roach88/goscope/internal/protocol"
)

// LogLevelEnv names the environment variable holding the scope's log level.
const LogLevelEnv = "SCOPE_LOG_LEVEL"

var (
	// ErrNoScopeConfig is returned by Run without --scope.
	ErrNoScopeConfig = errors.New("scope configuration file not set on command line")

	// ErrNotIni is returned by Run when --scope does not name an .ini file.
	ErrNotIni = errors.New("scope configuration file does not end in '.ini'")
)

// ServeOptions configures Serve.
type ServeOptions struct {
	// In carries requests and Out carries events.
	In  io.Reader
	Out io.Writer

	// Defaults for the ScopeBase; values sent by the harness in the init
	// request take precedence.
	ScopeID  string
	ScopeDir string
	CacheDir string
	TmpDir   string

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Run initialises the scope runtime from the command line and serves the
// scope on stdin and stdout until the harness shuts it down or closes stdin.
// It is intended to be called from the program's main function.
func Run(scope Scope) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, scope, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, scope Scope, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("scope", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	runtimeConfig := fs.String("runtime", "", "The runtime configuration file")
	scopeConfig := fs.String("scope", "", "The scope configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *scopeConfig == "" {
		return ErrNoScopeConfig
	}
	base := filepath.Base(*scopeConfig)
	if !strings.HasSuffix(base, ".ini") {
		return ErrNotIni
	}
	scopeID := strings.TrimSuffix(base, ".ini")

	scopeDir, err := filepath.Abs(filepath.Dir(*scopeConfig))
	if err != nil {
		return err
	}
	rc, err := config.LoadRuntimeConfig(*runtimeConfig)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: levelFromEnv()})).
		With("scope", scopeID)

	return Serve(ctx, scope, ServeOptions{
		In:       stdin,
		Out:      stdout,
		ScopeID:  scopeID,
		ScopeDir: scopeDir,
		CacheDir: filepath.Join(rc.CacheDir, scopeID),
		TmpDir:   filepath.Join(rc.TmpDir, scopeID),
		Logger:   logger,
	})
}

func levelFromEnv() slog.Level {
	var level slog.Level
	if v := os.Getenv(LogLevelEnv); v != "" {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return slog.LevelInfo
		}
	}
	return level
}

// Serve answers requests read from opts.In until a shutdown request, the end
// of the input or the cancellation of ctx. Every search, preview, activate
// and perform_action request runs on its own goroutine; Serve waits for them
// before returning.
func Serve(ctx context.Context, scope Scope, opts ServeOptions) error {
	if opts.In == nil || opts.Out == nil {
		return errors.New("serve: In and Out must be set")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &server{
		scope:    scope,
		conn:     protocol.NewConn(opts.In, opts.Out),
		opts:     opts,
		log:      logger,
		inflight: make(map[uint64]context.CancelFunc),
	}
	return s.serve(ctx)
}

type server struct {
	scope Scope
	conn  *protocol.Conn
	opts  ServeOptions
	log   *slog.Logger

	mu       sync.Mutex
	inflight map[uint64]context.CancelFunc
}

func (s *server) serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	requests := make(chan *protocol.Request)
	readErr := make(chan error, 1)
	go s.readLoop(gctx, requests, readErr)

	var loopErr error
	var shutdown *protocol.Request
loop:
	for {
		select {
		case <-gctx.Done():
			break loop
		case err := <-readErr:
			if !errors.Is(err, io.EOF) {
				loopErr = fmt.Errorf("read request: %w", err)
			}
			break loop
		case req := <-requests:
			if req.Method == protocol.MethodShutdown {
				shutdown = req
				break loop
			}
			s.dispatch(gctx, g, req)
		}
	}

	if loopErr != nil {
		s.cancelAll()
	}
	waitErr := g.Wait()
	if shutdown != nil && waitErr == nil {
		s.log.Debug("shutting down")
		waitErr = s.send(shutdown.ID, protocol.EventFinished, nil)
	}

	switch {
	case loopErr != nil:
		return loopErr
	case waitErr != nil:
		return waitErr
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return nil
}

func (s *server) readLoop(ctx context.Context, out chan<- *protocol.Request, errc chan<- error) {
	for {
		req, err := s.conn.ReadRequest()
		if errors.Is(err, protocol.ErrMalformedFrame) {
			s.log.Warn("skipping malformed request", "error", err)
			continue
		}
		if err != nil {
			errc <- err
			return
		}
		select {
		case out <- req:
		case <-ctx.Done():
			return
		}
	}
}

func (s *server) dispatch(ctx context.Context, g *errgroup.Group, req *protocol.Request) {
	s.log.Debug("request", "id", req.ID, "method", req.Method)

	switch req.Method {
	case protocol.MethodInit:
		g.Go(func() error { return s.handleInit(req) })

	case protocol.MethodSearch, protocol.MethodPreview, protocol.MethodActivate, protocol.MethodPerformAction:
		rctx, cancel := context.WithCancel(ctx)
		s.track(req.ID, cancel)
		g.Go(func() error {
			defer s.untrack(req.ID)
			defer cancel()
			return s.handle(rctx, req)
		})

	case protocol.MethodCancel:
		g.Go(func() error {
			var p protocol.CancelParams
			if err := req.Decode(&p); err != nil {
				return s.fail(req.ID, err)
			}
			s.cancel(p.Target)
			return s.send(req.ID, protocol.EventFinished, nil)
		})

	default:
		g.Go(func() error {
			return s.fail(req.ID, fmt.Errorf("unknown method %q", req.Method))
		})
	}
}

func (s *server) handleInit(req *protocol.Request) error {
	var p protocol.InitParams
	if len(req.Params) > 0 {
		if err := req.Decode(&p); err != nil {
			return s.fail(req.ID, err)
		}
	}
	base := newScopeBase(p, s.opts, s.log)
	if err := safeCall(func() error {
		s.scope.SetScopeBase(base)
		return nil
	}); err != nil {
		return s.fail(req.ID, err)
	}
	return s.send(req.ID, protocol.EventReady, protocol.ReadyPayload{ScopeID: base.ScopeID()})
}

func (s *server) handle(ctx context.Context, req *protocol.Request) error {
	emit := func(typ protocol.EventType, payload any) error {
		return s.send(req.ID, typ, payload)
	}

	switch req.Method {
	case protocol.MethodSearch:
		var p protocol.SearchParams
		if err := req.Decode(&p); err != nil {
			return s.fail(req.ID, err)
		}
		reply := newSearchReply(ctx, emit, p.Metadata.Cardinality)
		err := safeCall(func() error {
			return s.scope.Search(ctx, queryFromWire(p.Query), searchMetadataFromWire(p.Metadata), reply)
		})
		reply.finish()
		return s.complete(ctx, req.ID, err)

	case protocol.MethodPreview:
		var p protocol.PreviewParams
		if err := req.Decode(&p); err != nil {
			return s.fail(req.ID, err)
		}
		reply := newPreviewReply(ctx, emit)
		err := safeCall(func() error {
			return s.scope.Preview(ctx, resultFromWire(p.Result), actionMetadataFromWire(p.Metadata), reply)
		})
		reply.finish()
		return s.complete(ctx, req.ID, err)

	case protocol.MethodActivate:
		var p protocol.PreviewParams
		if err := req.Decode(&p); err != nil {
			return s.fail(req.ID, err)
		}
		resp := NewActivationResponse(ActivationNotHandled)
		if a, ok := s.scope.(Activator); ok {
			err := safeCall(func() (err error) {
				resp, err = a.Activate(ctx, resultFromWire(p.Result), actionMetadataFromWire(p.Metadata))
				return err
			})
			if err != nil {
				return s.fail(req.ID, err)
			}
		}
		return s.respond(req.ID, resp)

	case protocol.MethodPerformAction:
		var p protocol.ActionParams
		if err := req.Decode(&p); err != nil {
			return s.fail(req.ID, err)
		}
		resp := NewActivationResponse(ActivationNotHandled)
		if a, ok := s.scope.(PerformActioner); ok {
			err := safeCall(func() (err error) {
				resp, err = a.PerformAction(ctx, resultFromWire(p.Result), actionMetadataFromWire(p.Metadata), p.WidgetID, p.ActionID)
				return err
			})
			if err != nil {
				return s.fail(req.ID, err)
			}
		}
		return s.respond(req.ID, resp)
	}
	return s.fail(req.ID, fmt.Errorf("unknown method %q", req.Method))
}

// complete sends the terminal event of a search or preview.
func (s *server) complete(ctx context.Context, id uint64, err error) error {
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return s.fail(id, err)
	}
	return s.send(id, protocol.EventFinished, nil)
}

func (s *server) respond(id uint64, resp *ActivationResponse) error {
	if resp == nil {
		resp = NewActivationResponse(ActivationNotHandled)
	}
	payload, err := resp.wire()
	if err != nil {
		return s.fail(id, err)
	}
	return s.send(id, protocol.EventActivation, payload)
}

func (s *server) fail(id uint64, err error) error {
	s.log.Debug("request failed", "id", id, "error", err)
	return s.send(id, protocol.EventError, protocol.ErrorPayload{Message: err.Error()})
}

func (s *server) send(id uint64, typ protocol.EventType, payload any) error {
	ev, err := protocol.NewEvent(id, typ, payload)
	if err != nil {
		return err
	}
	if err := s.conn.WriteEvent(ev); err != nil {
		return fmt.Errorf("write %s event: %w", typ, err)
	}
	return nil
}

func (s *server) track(id uint64, cancel context.CancelFunc) {
	s.mu.Lock()
	s.inflight[id] = cancel
	s.mu.Unlock()
}

func (s *server) untrack(id uint64) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

func (s *server) cancel(id uint64) {
	s.mu.Lock()
	cancel, ok := s.inflight[id]
	s.mu.Unlock()
	if ok {
		s.log.Debug("cancelling request", "id", id)
		cancel()
	}
}

func (s *server) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.inflight {
		cancel()
	}
}

// safeCall runs fn and turns a panic into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scope panicked: %v", p)
		}
	}()
	return fn()
}
