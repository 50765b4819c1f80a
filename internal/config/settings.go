package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment variables read into Settings.
const EnvPrefix = "SCOPEHARNESS_"

// Settings configures the scope harness and its CLI.
type Settings struct {
	// Timeout bounds every request sent to a scope.
	Timeout time.Duration `koanf:"timeout"`
	// TraceDB is the SQLite file sessions are recorded to. Empty disables
	// recording.
	TraceDB string `koanf:"trace_db"`
	// Runtime is the runtime .ini passed to scopes.
	Runtime string `koanf:"runtime"`
	// Locale and FormFactor override the runtime config when set.
	Locale      string `koanf:"locale"`
	FormFactor  string `koanf:"form_factor"`
	Cardinality int    `koanf:"cardinality"`
	LogLevel    string `koanf:"log_level"`
}

// Defaults returns the settings used when nothing overrides them.
func Defaults() map[string]any {
	return map[string]any{
		"timeout":     "10s",
		"trace_db":    "",
		"runtime":     "",
		"locale":      "",
		"form_factor": "",
		"cardinality": 0,
		"log_level":   "info",
	}
}

// LoadSettings builds Settings from, in increasing priority: defaults, the
// YAML file at path (if non-empty), SCOPEHARNESS_* environment variables and
// flags that were set explicitly. Flag names use kebab-case (--trace-db) and
// map onto snake_case keys.
func LoadSettings(path string, flags *pflag.FlagSet) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading settings file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("unable to decode settings: %w", err)
	}
	if s.Timeout <= 0 {
		return nil, fmt.Errorf("invalid timeout %s: must be positive", s.Timeout)
	}
	if s.Cardinality < 0 {
		return nil, fmt.Errorf("invalid cardinality %d: must not be negative", s.Cardinality)
	}
	return &s, nil
}
