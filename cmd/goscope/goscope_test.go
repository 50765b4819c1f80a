package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/goscope/internal/fixture"
	"github.com/roach88/goscope/internal/harness"
)

const buildPathEnv = "GOSCOPE_BUILD_PATH"

// buildErr is set when the scope binary could not be built; the tests skip
// instead of failing.
var buildErr error

func TestMain(m *testing.M) {
	os.Exit(runTests(m))
}

func runTests(m *testing.M) int {
	dir, err := os.MkdirTemp("", "goscope-build")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer os.RemoveAll(dir)

	if err := buildScope(dir); err != nil {
		buildErr = err
	} else {
		os.Setenv(buildPathEnv, dir)
	}
	return m.Run()
}

func buildScope(dir string) error {
	goBin, err := exec.LookPath("go")
	if err != nil {
		return err
	}
	out, err := exec.Command(goBin, "build", "-o", filepath.Join(dir, "bin", "goscope"), ".").CombinedOutput()
	if err != nil {
		return fmt.Errorf("go build: %w\n%s", err, out)
	}
	return nil
}

// newHarness installs the goscope binary into a temporary directory and
// returns a harness with goscope active and searched with the empty query.
func newHarness(t *testing.T) *harness.ScopeHarness {
	t.Helper()
	if buildErr != nil {
		t.Skipf("scope binary unavailable: %v", buildErr)
	}

	dataDir := t.TempDir()
	f := fixture.Setup(t, fixture.Options{
		ScopeName:    "goscope",
		ConfigFile:   filepath.Join(dataDir, "goscope.ini"),
		DataDir:      dataDir,
		TemplateDir:  "testdata",
		BuildPathEnv: buildPathEnv,
	})

	h, err := harness.NewFromScopeList(context.Background(), harness.Parameters{
		ScopeList: []string{f.Config},
		Timeout:   10 * time.Second,
		Logger:    slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	v := h.ResultsView()
	require.NoError(t, v.SetActiveScope("goscope"))
	require.NoError(t, v.SetSearchQuery(context.Background(), ""))
	return h
}

func TestResults(t *testing.T) {
	h := newHarness(t)
	v := h.ResultsView()

	t.Run("basic result", func(t *testing.T) {
		harness.AssertMatchResult(t, harness.NewCategoryListMatcher().
			HasAtLeast(1).
			Mode(harness.CategoryListByID).
			Category(harness.NewCategoryMatcher("category").
				HasAtLeast(1).
				Mode(harness.CategoryByURI).
				Title("Category").
				Icon("")).
			Match(v.Categories()))
	})

	t.Run("scope properties", func(t *testing.T) {
		assert.Equal(t, "goscope", v.ScopeID())
		assert.Equal(t, "mock.DisplayName", v.DisplayName())
		assert.Equal(t, "/mock.Icon", v.IconHint())
		assert.Equal(t, "mock.Description", v.Description())
		assert.Equal(t, "mock.SearchHint", v.SearchHint())
		assert.Equal(t, "mock.HotKey", v.Shortcut())

		custom := v.Customizations()
		require.NotEmpty(t, custom)
		header, ok := custom["page-header"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "http://assets.ubuntu.com/sites/ubuntu/1110/u/img/logos/logo-ubuntu-orange.svg", header["logo"])
		assert.Equal(t, "color://black", header["background"])
		assert.Equal(t, "white", header["foreground-color"])
		assert.Equal(t, false, custom["shape-images"])
	})

	for _, query := range []string{"", "test_query"} {
		t.Run(fmt.Sprintf("result data %q", query), func(t *testing.T) {
			require.NoError(t, v.SetSearchQuery(context.Background(), query))

			harness.AssertMatchResult(t, harness.NewCategoryListMatcher().
				HasAtLeast(1).
				Mode(harness.CategoryListByID).
				Category(harness.NewCategoryMatcher("category").
					HasAtLeast(1).
					Mode(harness.CategoryByURI).
					Result(harness.NewResultMatcher("http://localhost/"+query).
						Properties(map[string]any{"test_value_bool": true}).
						Properties(map[string]any{"test_value_string": "test_value" + query}).
						Properties(map[string]any{"test_value_int": 1999}).
						Properties(map[string]any{"test_value_float": 1.999}).
						DndURI("http://localhost_dnduri" + query).
						Art(artURL))).
				Match(v.Categories()))

			harness.AssertMatchResult(t, harness.NewCategoryListMatcher().
				HasAtLeast(1).
				Mode(harness.CategoryListByID).
				Category(harness.NewCategoryMatcher("category").
					HasAtLeast(1).
					Mode(harness.CategoryByURI).
					Result(harness.NewResultMatcher("http://localhost2/"+query).
						Properties(map[string]any{"test_value_bool": false}).
						Properties(map[string]any{"test_value_string": "test_value2" + query}).
						Properties(map[string]any{"test_value_int": 2000}).
						Properties(map[string]any{"test_value_float": 2.1}).
						DndURI("http://localhost_dnduri2" + query).
						Properties(map[string]any{"test_value_map": map[string]any{"value1": 1, "value2": "string_value"}}).
						Properties(map[string]any{"test_value_array": []any{1999, "string_value"}}).
						Art(artURL))).
				Match(v.Categories()))
		})
	}

	t.Run("filters", func(t *testing.T) {
		require.Len(t, v.Filters(), 1)
	})
}

func TestDepartments(t *testing.T) {
	h := newHarness(t)
	v := h.ResultsView()

	t.Run("root", func(t *testing.T) {
		deps, err := v.BrowseDepartment(context.Background(), "")
		require.NoError(t, err)
		assert.True(t, v.HasDepartments())
		require.Equal(t, 2, deps.Len())
		assert.Equal(t, deps.Child(0).ID(), deps.Children()[0].ID())

		harness.AssertMatchResult(t, harness.NewDepartmentMatcher().
			HasExactly(2).
			Label("Browse Music").
			AllLabel("Browse Music Alt").
			ParentID("").
			ParentLabel("").
			IsRoot(true).
			IsHidden(false).
			Child(harness.NewChildDepartmentMatcher("Rock").
				Label("Rock Music").
				HasChildren(true).
				IsActive(false)).
			Child(harness.NewChildDepartmentMatcher("Soul").
				Label("Soul Music").
				HasChildren(true).
				IsActive(false)).
			Match(deps))
	})

	t.Run("child", func(t *testing.T) {
		deps, err := v.BrowseDepartment(context.Background(), "Rock")
		require.NoError(t, err)
		require.Equal(t, 2, deps.Len())

		harness.AssertMatchResult(t, harness.NewDepartmentMatcher().
			HasExactly(2).
			Label("Rock Music").
			AllLabel("Rock Music Alt").
			ParentID("").
			ParentLabel("Browse Music").
			IsRoot(false).
			IsHidden(false).
			Child(harness.NewChildDepartmentMatcher("60s").
				Label("Rock from the 60s").
				HasChildren(false).
				IsActive(false)).
			Child(harness.NewChildDepartmentMatcher("70s").
				Label("Rock from the 70s").
				HasChildren(false).
				IsActive(false)).
			Match(deps))
	})
}

func TestPreview(t *testing.T) {
	h := newHarness(t)
	v := h.ResultsView()

	tap := func(t *testing.T) *harness.PreviewView {
		t.Helper()
		pv, err := v.Category(0).Result(0).Tap(context.Background())
		require.NoError(t, err)
		return pv
	}

	oneColumn := harness.NewPreviewColumnMatcher().
		Column(harness.NewPreviewMatcher().
			Widget(harness.NewPreviewWidgetMatcher("image")).
			Widget(harness.NewPreviewWidgetMatcher("header")).
			Widget(harness.NewPreviewWidgetMatcher("summary")).
			Widget(harness.NewPreviewWidgetMatcher("actions")))

	t.Run("layouts", func(t *testing.T) {
		pv := tap(t)

		require.NoError(t, pv.SetColumnCount(3))
		harness.AssertMatchResult(t, harness.NewPreviewColumnMatcher().
			Column(harness.NewPreviewMatcher().
				Widget(harness.NewPreviewWidgetMatcher("image"))).
			Column(harness.NewPreviewMatcher().
				Widget(harness.NewPreviewWidgetMatcher("header")).
				Widget(harness.NewPreviewWidgetMatcher("summary")).
				Widget(harness.NewPreviewWidgetMatcher("actions"))).
			Column(harness.NewPreviewMatcher()).
			Match(pv.Widgets()))

		require.NoError(t, pv.SetColumnCount(2))
		harness.AssertMatchResult(t, harness.NewPreviewColumnMatcher().
			Column(harness.NewPreviewMatcher().
				Widget(harness.NewPreviewWidgetMatcher("image"))).
			Column(harness.NewPreviewMatcher().
				Widget(harness.NewPreviewWidgetMatcher("header")).
				Widget(harness.NewPreviewWidgetMatcher("summary")).
				Widget(harness.NewPreviewWidgetMatcher("actions"))).
			Match(pv.Widgets()))

		require.NoError(t, pv.SetColumnCount(1))
		harness.AssertMatchResult(t, oneColumn.Match(pv.Widgets()))
	})

	t.Run("action", func(t *testing.T) {
		pv := tap(t)
		require.NoError(t, pv.SetColumnCount(1))
		harness.AssertMatchResult(t, oneColumn.Match(pv.Widgets()))

		next, err := pv.WidgetsInFirstColumn()["actions"].Trigger(context.Background(), "hide", nil)
		require.NoError(t, err)
		assert.Same(t, pv, next)
	})

	t.Run("scope data adds a widget", func(t *testing.T) {
		pv := tap(t)
		assert.Nil(t, pv.Widget("extra"))

		next, err := pv.Widget("actions").Trigger(context.Background(), "download", "more details")
		require.NoError(t, err)
		require.Same(t, pv, next)
		assert.NotNil(t, pv.Widget("extra"))
	})
}
