// Package fixture installs a compiled scope next to its .ini file so a
// harness can launch it.
//
// The scope binary is taken from $<BuildPathEnv>/bin/<ScopeName>, copied into
// DataDir, and <ConfigFile>.in is rendered to <ConfigFile> with
// $<BuildPathEnv>$ replaced by the environment variable's value.
package fixture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/roach88/goscope/internal/config"
)

// DefaultBuildPathEnv is used when Options.BuildPathEnv is empty.
const DefaultBuildPathEnv = "GOPATH"

// ErrBuildPathUnset is returned when the build path variable is not set.
var ErrBuildPathUnset = errors.New("build path environment variable is not set")

// Options describes the scope to install.
type Options struct {
	// ScopeName is the binary name under $<BuildPathEnv>/bin.
	ScopeName string
	// ConfigFile is the .ini file to render. The template is ConfigFile
	// with an .in suffix.
	ConfigFile string
	// DataDir receives the copied binary.
	DataDir string
	// TemplateDir holds ConfigFile.in. Empty means the directory of
	// ConfigFile.
	TemplateDir string
	// BuildPathEnv names the environment variable holding the build path.
	BuildPathEnv string
}

// Fixture is an installed scope.
type Fixture struct {
	// Binary is the path of the copied scope binary.
	Binary string
	// Config is the path of the rendered scope .ini.
	Config string

	once sync.Once
	err  error
}

// Prepare copies the scope binary and renders its .ini.
func Prepare(opts Options) (*Fixture, error) {
	if opts.ScopeName == "" || opts.ConfigFile == "" || opts.DataDir == "" {
		return nil, errors.New("fixture: ScopeName, ConfigFile and DataDir are required")
	}
	envName := opts.BuildPathEnv
	if envName == "" {
		envName = DefaultBuildPathEnv
	}
	buildPath, ok := os.LookupEnv(envName)
	if !ok || buildPath == "" {
		return nil, fmt.Errorf("fixture: %w: %s", ErrBuildPathUnset, envName)
	}

	src := filepath.Join(buildPath, "bin", opts.ScopeName)
	if _, err := os.Stat(src); err != nil {
		return nil, fmt.Errorf("fixture: binary %s does not exist", src)
	}

	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}
	f := &Fixture{
		Binary: filepath.Join(opts.DataDir, opts.ScopeName),
		Config: opts.ConfigFile,
	}
	if err := copyExecutable(src, f.Binary); err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}

	tmplDir := opts.TemplateDir
	if tmplDir == "" {
		tmplDir = filepath.Dir(opts.ConfigFile)
	}
	tmpl := filepath.Join(tmplDir, filepath.Base(opts.ConfigFile)+".in")
	if err := config.RenderTemplate(tmpl, opts.ConfigFile, map[string]string{envName: buildPath}); err != nil {
		os.Remove(f.Binary)
		return nil, fmt.Errorf("fixture: %w", err)
	}
	return f, nil
}

// Setup is Prepare for tests: it fails t on error and registers Close as
// cleanup.
func Setup(t testing.TB, opts Options) *Fixture {
	t.Helper()
	f, err := Prepare(opts)
	if err != nil {
		t.Fatalf("setup scope fixture: %v", err)
	}
	t.Cleanup(func() {
		if err := f.Close(); err != nil {
			t.Errorf("close scope fixture: %v", err)
		}
	})
	return f
}

// Close removes the copied binary and the rendered .ini. Only the first call
// does any work.
func (f *Fixture) Close() error {
	f.once.Do(func() {
		var errs []error
		for _, p := range []string{f.Binary, f.Config} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
		f.err = errors.Join(errs...)
	})
	return f.err
}

func copyExecutable(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
