package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/roach88/goscope/internal/scopes"
)

// Process is a running scope. Requests are written to Stdin and events are
// read from Stdout.
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	// Wait blocks until the process has exited.
	Wait() error
	// Kill stops the process without waiting for it.
	Kill() error
}

// LaunchSpec describes how to start one scope.
type LaunchSpec struct {
	ScopeID  string
	ScopeDir string
	CacheDir string
	TmpDir   string
	Argv     []string
	// Stderr receives the scope's diagnostics.
	Stderr io.Writer
}

// Launcher starts scope processes.
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) (Process, error)
}

// ExecLauncher starts each scope as a child process running spec.Argv.
type ExecLauncher struct {
	// Env is appended to the harness environment.
	Env []string
}

// Launch implements Launcher.
func (l ExecLauncher) Launch(_ context.Context, spec LaunchSpec) (Process, error) {
	if len(spec.Argv) == 0 {
		return nil, fmt.Errorf("launch %s: empty command line", spec.ScopeID)
	}
	if _, err := os.Stat(spec.Argv[0]); err != nil {
		if _, lookErr := exec.LookPath(spec.Argv[0]); lookErr != nil {
			return nil, fmt.Errorf("launch %s: %w", spec.ScopeID, err)
		}
	}

	// The process outlives the launch context; Close stops it.
	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.ScopeDir
	cmd.Env = append(os.Environ(), l.Env...)
	cmd.Stderr = spec.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("launch %s: %w", spec.ScopeID, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("launch %s: %w", spec.ScopeID, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch %s: %w", spec.ScopeID, err)
	}
	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader

	once sync.Once
	err  error
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader     { return p.stdout }

func (p *execProcess) Wait() error {
	p.once.Do(func() { p.err = p.cmd.Wait() })
	return p.err
}

func (p *execProcess) Kill() error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// InProcessLauncher serves scopes on goroutines connected by pipes instead
// of child processes. Scopes are looked up by id.
type InProcessLauncher map[string]scopes.Scope

// Launch implements Launcher.
func (l InProcessLauncher) Launch(ctx context.Context, spec LaunchSpec) (Process, error) {
	scope, ok := l[spec.ScopeID]
	if !ok {
		return nil, fmt.Errorf("launch %s: no in-process scope registered", spec.ScopeID)
	}

	reqR, reqW := io.Pipe()
	evR, evW := io.Pipe()
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	p := &pipeProcess{
		reqR:   reqR,
		reqW:   reqW,
		evR:    evR,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		err := scopes.Serve(sctx, scope, scopes.ServeOptions{
			In:       reqR,
			Out:      evW,
			ScopeID:  spec.ScopeID,
			ScopeDir: spec.ScopeDir,
			CacheDir: spec.CacheDir,
			TmpDir:   spec.TmpDir,
		})
		evW.CloseWithError(err)
		p.err = err
		close(p.done)
	}()
	return p, nil
}

type pipeProcess struct {
	reqR   *io.PipeReader
	reqW   *io.PipeWriter
	evR    *io.PipeReader
	cancel context.CancelFunc

	done chan struct{}
	err  error
}

func (p *pipeProcess) Stdin() io.WriteCloser { return p.reqW }
func (p *pipeProcess) Stdout() io.Reader     { return p.evR }

func (p *pipeProcess) Wait() error {
	<-p.done
	if errors.Is(p.err, context.Canceled) {
		return nil
	}
	return p.err
}

func (p *pipeProcess) Kill() error {
	p.cancel()
	p.reqR.CloseWithError(ErrScopeExited)
	p.evR.CloseWithError(ErrScopeExited)
	return nil
}
