package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScopeConfig(t *testing.T) {
	cfg, err := LoadScopeConfig("testdata/mock.ini")
	require.NoError(t, err)

	dir, err := filepath.Abs("testdata")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "mock.ini"), cfg.Path)
	assert.Equal(t, dir, cfg.ScopeDir)
	assert.Equal(t, "mock.DisplayName", cfg.DisplayName)
	assert.Equal(t, "mock.Description", cfg.Description)
	assert.Equal(t, "mock.Author", cfg.Author)
	assert.Equal(t, "/mock.Icon", cfg.Icon)
	assert.Equal(t, filepath.Join(dir, "art.png"), cfg.Art)
	assert.Equal(t, "mock.SearchHint", cfg.SearchHint)
	assert.Equal(t, "mock.HotKey", cfg.HotKey)
	assert.Equal(t, 20, cfg.IdleTimeout)
	assert.Equal(t, "small", cfg.ResultsTTLType)
	assert.True(t, cfg.LocationDataNeeded)
	assert.False(t, cfg.Invisible)
	assert.Equal(t, []string{"music", "rock"}, cfg.Keywords)
}

func TestLoadScopeConfig_Customizations(t *testing.T) {
	cfg, err := LoadScopeConfig("testdata/mock.ini")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"page-header": map[string]any{
			"logo":             "http://assets.ubuntu.com/sites/ubuntu/1110/u/img/logos/logo-ubuntu-orange.svg",
			"background":       "color://black",
			"foreground-color": "white",
		},
		"shape-images": false,
	}, cfg.Customizations)
}

func TestLoadScopeConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing section", "[Other]\nKey = v\n", "missing [ScopeConfig] section"},
		{"missing display name", "[ScopeConfig]\nIcon = x\n", "DisplayName is required"},
		{"key conflicts with group", "[ScopeConfig]\nDisplayName = x\n[Appearance]\nPageHeader = a\nPageHeader.Logo = b\n", "already a value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "scope.ini")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadScopeConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := LoadScopeConfig(filepath.Join(dir, "missing.ini"))
	require.Error(t, err)
}

func TestLoadScopeConfig_MissingDisplayNameIsSentinel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.ini")
	require.NoError(t, os.WriteFile(path, []byte("[ScopeConfig]\n"), 0o644))

	_, err := LoadScopeConfig(path)
	assert.ErrorIs(t, err, ErrMissingDisplayName)
}

func TestKebabCase(t *testing.T) {
	tests := map[string]string{
		"PageHeader":      "page-header",
		"ForegroundColor": "foreground-color",
		"Logo":            "logo",
		"ShapeImages":     "shape-images",
		"URLPath":         "url-path",
		"Preview2Col":     "preview2-col",
		"already-kebab":   "already-kebab",
		"snake_case":      "snake-case",
	}
	for in, want := range tests {
		assert.Equal(t, want, KebabCase(in), in)
	}
}
