package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

const runtimeSection = "Runtime"

// Default values used when no runtime config is given.
const (
	DefaultLocale     = "C"
	DefaultFormFactor = "phone"
)

// RuntimeConfig is the parsed content of a runtime .ini file.
type RuntimeConfig struct {
	CacheDir    string
	TmpDir      string
	SettingsDir string
	Locale      string
	FormFactor  string
}

// DefaultRuntimeConfig returns the configuration used without a file.
func DefaultRuntimeConfig() *RuntimeConfig {
	base := filepath.Join(os.TempDir(), "scopeharness")
	return &RuntimeConfig{
		CacheDir:    filepath.Join(base, "cache"),
		TmpDir:      filepath.Join(base, "tmp"),
		SettingsDir: filepath.Join(base, "settings"),
		Locale:      DefaultLocale,
		FormFactor:  DefaultFormFactor,
	}
}

// LoadRuntimeConfig parses the runtime .ini at path. An empty path yields
// DefaultRuntimeConfig. Keys missing from the file keep their defaults and
// relative directories resolve against the file's directory.
func LoadRuntimeConfig(path string) (*RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("runtime config %s: %w", path, err)
	}
	sec := f.Section(runtimeSection)
	dir := filepath.Dir(path)

	cfg.CacheDir = resolveDir(dir, sec.Key("CacheDir").MustString(cfg.CacheDir))
	cfg.TmpDir = resolveDir(dir, sec.Key("TmpDir").MustString(cfg.TmpDir))
	cfg.SettingsDir = resolveDir(dir, sec.Key("SettingsDir").MustString(cfg.SettingsDir))
	cfg.Locale = sec.Key("Locale").MustString(cfg.Locale)
	cfg.FormFactor = sec.Key("FormFactor").MustString(cfg.FormFactor)
	return cfg, nil
}

func resolveDir(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
