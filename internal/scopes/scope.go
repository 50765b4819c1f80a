package scopes

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/roach88/goscope/internal/protocol"
	"github.com/roach88/goscope/internal/variant"
)

// Scope defines the interface that scope implementations must implement.
type Scope interface {
	SetScopeBase(base *ScopeBase)
	Search(ctx context.Context, query *CannedQuery, metadata *SearchMetadata, reply *SearchReply) error
	Preview(ctx context.Context, result *Result, metadata *ActionMetadata, reply *PreviewReply) error
}

// Activator is implemented by scopes that handle result activation directly.
type Activator interface {
	Scope
	Activate(ctx context.Context, result *Result, metadata *ActionMetadata) (*ActivationResponse, error)
}

// PerformActioner is implemented by scopes that handle preview actions
// directly.
type PerformActioner interface {
	Scope
	PerformAction(ctx context.Context, result *Result, metadata *ActionMetadata, widgetID, actionID string) (*ActivationResponse, error)
}

// ScopeMetadata describes a scope known to the registry.
type ScopeMetadata = protocol.ScopeMetadata

// ScopeBase exposes information about the running scope.
type ScopeBase struct {
	scopeID  string
	scopeDir string
	cacheDir string
	tmpDir   string
	settings variant.Map
	registry map[string]*ScopeMetadata
	log      *slog.Logger
}

func newScopeBase(p protocol.InitParams, opts ServeOptions, log *slog.Logger) *ScopeBase {
	b := &ScopeBase{
		scopeID:  firstNonEmpty(p.ScopeID, opts.ScopeID),
		scopeDir: firstNonEmpty(p.ScopeDir, opts.ScopeDir),
		cacheDir: firstNonEmpty(p.CacheDir, opts.CacheDir),
		tmpDir:   firstNonEmpty(p.TmpDir, opts.TmpDir),
		settings: p.Settings,
		registry: make(map[string]*ScopeMetadata, len(p.Registry)),
		log:      log,
	}
	for i := range p.Registry {
		md := p.Registry[i]
		b.registry[md.ScopeID] = &md
	}
	return b
}

// ScopeID returns the id the scope was started with.
func (b *ScopeBase) ScopeID() string { return b.scopeID }

// ScopeDirectory returns the directory where the scope is installed.
func (b *ScopeBase) ScopeDirectory() string { return b.scopeDir }

// CacheDirectory returns a directory the scope can use for cache files.
func (b *ScopeBase) CacheDirectory() string { return b.cacheDir }

// TmpDirectory returns a directory the scope can use for temporary files.
func (b *ScopeBase) TmpDirectory() string { return b.tmpDir }

// Logger returns the logger of the scope runtime. Its output goes to the
// harness through stderr.
func (b *ScopeBase) Logger() *slog.Logger { return b.log }

// ListRegistryScopes lists every scope in the registry, keyed by id.
func (b *ScopeBase) ListRegistryScopes() map[string]*ScopeMetadata {
	out := make(map[string]*ScopeMetadata, len(b.registry))
	for id, md := range b.registry {
		cp := *md
		out[id] = &cp
	}
	return out
}

// Settings decodes the scope's settings into value with the rules
// json.Unmarshal uses.
func (b *ScopeBase) Settings(value any) error {
	data, err := json.Marshal(b.settings)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
