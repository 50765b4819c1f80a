package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/goscope/internal/variant"
)

func TestNew_LoadsInOrder(t *testing.T) {
	r, err := New([]string{"testdata/beta.ini", "testdata/alpha.ini"})
	require.NoError(t, err)
	assert.Equal(t, []string{"beta", "alpha"}, r.IDs())

	e, err := r.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", e.Config.DisplayName)

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "beta", entries[0].ID)
}

func TestNew_Errors(t *testing.T) {
	_, err := New([]string{"testdata/alpha.ini", "testdata/alpha.ini"})
	assert.ErrorIs(t, err, ErrDuplicateScope)

	_, err = New([]string{"testdata/alpha.conf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must end in .ini")

	_, err = New([]string{"testdata/missing.ini"})
	require.Error(t, err)
}

func TestGet_Unknown(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	_, err = r.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownScope)

	_, err = r.Runner("nope", "")
	assert.ErrorIs(t, err, ErrUnknownScope)
}

func TestRunner(t *testing.T) {
	r, err := New([]string{"testdata/alpha.ini", "testdata/beta.ini"})
	require.NoError(t, err)
	dir, err := filepath.Abs("testdata")
	require.NoError(t, err)

	argv, err := r.Runner("alpha", "/etc/Runtime.ini")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "alpha"),
		"--runtime", "/etc/Runtime.ini",
		"--scope", filepath.Join(dir, "alpha.ini"),
	}, argv)

	argv, err = r.Runner("beta", "/etc/Runtime.ini")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/opt/bin/scoperunner",
		"--config=/etc/Runtime.ini",
		filepath.Join(dir, "beta.ini"),
	}, argv)
}

func TestMetadata(t *testing.T) {
	r, err := New([]string{"testdata/alpha.ini"})
	require.NoError(t, err)
	dir, err := filepath.Abs("testdata")
	require.NoError(t, err)

	md := r.Metadata()
	require.Len(t, md, 1)
	assert.Equal(t, "alpha", md[0].ScopeID)
	assert.Equal(t, "First scope", md[0].Description)
	assert.Equal(t, filepath.Join(dir, "icon.png"), md[0].Icon)
	assert.Equal(t, dir, md[0].ScopeDir)
	assert.Equal(t, []string{"a", "b"}, md[0].Keywords)
	assert.Equal(t, variant.Map{"shape-images": variant.Bool(false)}, md[0].AppearanceAttributes)
}

func TestNew_SameIDDifferentDirs(t *testing.T) {
	a := filepath.Join(t.TempDir(), "dup.ini")
	b := filepath.Join(t.TempDir(), "dup.ini")
	for _, p := range []string{a, b} {
		require.NoError(t, os.WriteFile(p, []byte("[ScopeConfig]\nDisplayName = x\n"), 0o644))
	}
	_, err := New([]string{a, b})
	assert.ErrorIs(t, err, ErrDuplicateScope)
}
