package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/ini.v1"
)

const (
	scopeSection      = "ScopeConfig"
	appearanceSection = "Appearance"
)

// ErrMissingDisplayName is returned for a scope .ini without DisplayName.
var ErrMissingDisplayName = errors.New("scope config: DisplayName is required")

// ScopeConfig is the parsed content of a scope .ini file.
type ScopeConfig struct {
	// Path is the absolute path of the .ini file.
	Path string
	// ScopeDir is the directory holding the .ini file.
	ScopeDir string

	DisplayName        string
	Description        string
	Author             string
	Art                string
	Icon               string
	SearchHint         string
	HotKey             string
	Invisible          bool
	ScopeRunner        string
	IdleTimeout        int
	ResultsTTLType     string
	LocationDataNeeded bool
	IsAggregator       bool
	Keywords           []string

	// Customizations holds the [Appearance] section as nested maps with
	// kebab-case keys, e.g. PageHeader.Logo becomes
	// {"page-header": {"logo": ...}}.
	Customizations map[string]any
}

// LoadScopeConfig parses the scope .ini file at path.
func LoadScopeConfig(path string) (*ScopeConfig, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("scope config %s: %w", path, err)
	}
	f, err := ini.LoadSources(ini.LoadOptions{Insensitive: false, IgnoreInlineComment: true}, abs)
	if err != nil {
		return nil, fmt.Errorf("scope config %s: %w", path, err)
	}
	sec, err := f.GetSection(scopeSection)
	if err != nil {
		return nil, fmt.Errorf("scope config %s: missing [%s] section", path, scopeSection)
	}

	cfg := &ScopeConfig{
		Path:               abs,
		ScopeDir:           filepath.Dir(abs),
		DisplayName:        sec.Key("DisplayName").String(),
		Description:        sec.Key("Description").String(),
		Author:             sec.Key("Author").String(),
		Art:                sec.Key("Art").String(),
		Icon:               sec.Key("Icon").String(),
		SearchHint:         sec.Key("SearchHint").String(),
		HotKey:             sec.Key("HotKey").String(),
		Invisible:          sec.Key("Invisible").MustBool(false),
		ScopeRunner:        sec.Key("ScopeRunner").String(),
		IdleTimeout:        sec.Key("IdleTimeout").MustInt(0),
		ResultsTTLType:     sec.Key("ResultsTtlType").String(),
		LocationDataNeeded: sec.Key("LocationDataNeeded").MustBool(false),
		IsAggregator:       sec.Key("IsAggregator").MustBool(false),
	}
	if cfg.DisplayName == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrMissingDisplayName)
	}
	if sec.HasKey("Keywords") {
		for _, kw := range sec.Key("Keywords").Strings(",") {
			if kw != "" {
				cfg.Keywords = append(cfg.Keywords, kw)
			}
		}
	}
	cfg.Icon = resolveAgainst(cfg.ScopeDir, cfg.Icon)
	cfg.Art = resolveAgainst(cfg.ScopeDir, cfg.Art)

	cfg.Customizations = map[string]any{}
	if app, err := f.GetSection(appearanceSection); err == nil {
		for _, key := range app.Keys() {
			if err := setNested(cfg.Customizations, key.Name(), appearanceValue(key.String())); err != nil {
				return nil, fmt.Errorf("scope config %s: [%s] %s: %w", path, appearanceSection, key.Name(), err)
			}
		}
	}
	return cfg, nil
}

// resolveAgainst makes a relative file path absolute against dir. URIs and
// absolute paths are returned unchanged.
func resolveAgainst(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(dir, p)
}

func appearanceValue(s string) any {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// setNested stores value under a dotted key, creating intermediate maps.
func setNested(root map[string]any, dotted string, value any) error {
	parts := strings.Split(dotted, ".")
	m := root
	for i, part := range parts {
		name := KebabCase(part)
		if name == "" {
			return fmt.Errorf("empty key segment")
		}
		if i == len(parts)-1 {
			if _, isMap := m[name].(map[string]any); isMap {
				return fmt.Errorf("%q is already a group", name)
			}
			m[name] = value
			return nil
		}
		next, ok := m[name].(map[string]any)
		if !ok {
			if _, exists := m[name]; exists {
				return fmt.Errorf("%q is already a value", name)
			}
			next = map[string]any{}
			m[name] = next
		}
		m = next
	}
	return nil
}

// KebabCase converts a CamelCase identifier to kebab-case:
// ForegroundColor becomes foreground-color and URLPath becomes url-path.
func KebabCase(s string) string {
	runes := []rune(strings.TrimSpace(s))
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('-')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '_' || r == ' ' {
			b.WriteByte('-')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
