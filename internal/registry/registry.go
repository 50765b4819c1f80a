// Package registry knows every scope a harness session may talk to and how to
// launch it.
package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/goscope/internal/config"
	"github.com/roach88/goscope/internal/protocol"
	"github.com/roach88/goscope/internal/variant"
)

var (
	// ErrUnknownScope is returned for an id that is not registered.
	ErrUnknownScope = errors.New("unknown scope")

	// ErrDuplicateScope is returned when two .ini files share an id.
	ErrDuplicateScope = errors.New("duplicate scope id")
)

// Entry is one registered scope.
type Entry struct {
	ID     string
	Config *config.ScopeConfig
}

// Registry holds scopes in registration order.
type Registry struct {
	entries map[string]*Entry
	order   []string
}

// New loads every scope .ini in iniPaths. A scope's id is its file name
// without the .ini extension.
func New(iniPaths []string) (*Registry, error) {
	r := &Registry{entries: make(map[string]*Entry, len(iniPaths))}
	for _, path := range iniPaths {
		base := filepath.Base(path)
		if !strings.HasSuffix(base, ".ini") {
			return nil, fmt.Errorf("scope config %s: file name must end in .ini", path)
		}
		id := strings.TrimSuffix(base, ".ini")
		if _, dup := r.entries[id]; dup {
			return nil, fmt.Errorf("%w: %q (%s)", ErrDuplicateScope, id, path)
		}
		cfg, err := config.LoadScopeConfig(path)
		if err != nil {
			return nil, err
		}
		r.entries[id] = &Entry{ID: id, Config: cfg}
		r.order = append(r.order, id)
	}
	return r, nil
}

// Get returns the entry for id.
func (r *Registry) Get(id string) (*Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScope, id)
	}
	return e, nil
}

// IDs returns every scope id in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Entries returns every entry in registration order.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, len(r.order))
	for i, id := range r.order {
		out[i] = r.entries[id]
	}
	return out
}

// Metadata returns the metadata of every scope in registration order.
func (r *Registry) Metadata() []protocol.ScopeMetadata {
	out := make([]protocol.ScopeMetadata, len(r.order))
	for i, id := range r.order {
		out[i] = r.entries[id].Metadata()
	}
	return out
}

// Runner returns the command line that starts scope id with the runtime
// config at runtimeConfig. A ScopeRunner key in the scope's .ini is split
// into fields with %R and %S replaced by the runtime and scope config paths;
// otherwise the scope binary is expected next to its .ini and named after
// the scope id.
func (r *Registry) Runner(id, runtimeConfig string) ([]string, error) {
	e, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	cfg := e.Config
	if runner := strings.TrimSpace(cfg.ScopeRunner); runner != "" {
		fields := strings.Fields(runner)
		for i, f := range fields {
			f = strings.ReplaceAll(f, "%R", runtimeConfig)
			fields[i] = strings.ReplaceAll(f, "%S", cfg.Path)
		}
		return fields, nil
	}
	return []string{
		filepath.Join(cfg.ScopeDir, id),
		"--runtime", runtimeConfig,
		"--scope", cfg.Path,
	}, nil
}

// Metadata converts the entry into wire metadata.
func (e *Entry) Metadata() protocol.ScopeMetadata {
	cfg := e.Config
	md := protocol.ScopeMetadata{
		ScopeID:            e.ID,
		DisplayName:        cfg.DisplayName,
		Description:        cfg.Description,
		Author:             cfg.Author,
		Art:                cfg.Art,
		Icon:               cfg.Icon,
		SearchHint:         cfg.SearchHint,
		HotKey:             cfg.HotKey,
		Invisible:          cfg.Invisible,
		IsAggregator:       cfg.IsAggregator,
		LocationDataNeeded: cfg.LocationDataNeeded,
		ScopeDir:           cfg.ScopeDir,
		Keywords:           append([]string(nil), cfg.Keywords...),
	}
	if len(cfg.Customizations) > 0 {
		if v, err := variant.FromGo(cfg.Customizations); err == nil {
			md.AppearanceAttributes, _ = v.(variant.Map)
		}
	}
	return md
}
