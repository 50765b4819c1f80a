package harness

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioPath(name string) string {
	return filepath.Join("testdata", "scenarios", name)
}

func testRunOptions() RunOptions {
	return RunOptions{
		Launcher: testLauncher(),
		Logger:   slog.New(slog.DiscardHandler),
		Timeout:  5 * time.Second,
	}
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(scenarioPath("browse_and_preview.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "browse_and_preview", s.Name)
	assert.Equal(t, "goscope", s.ActiveScope)
	require.Len(t, s.Scopes, 1)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "..", "goscope.ini"), s.Scopes[0])
	require.Len(t, s.Steps, 6)

	require.NotNil(t, s.Steps[0].Search)
	assert.Equal(t, "", *s.Steps[0].Search)
	require.NotNil(t, s.Steps[1].Department)
	assert.Equal(t, "Rock", *s.Steps[1].Department)
	assert.Equal(t, &TapStep{Category: 0, Result: 0}, s.Steps[2].Tap)
	assert.Equal(t, &TriggerStep{Widget: "actions", Action: "hide"}, s.Steps[3].Trigger)
	assert.Equal(t, 3, s.Steps[4].ColumnCount)

	preview := s.Steps[2].Expect.Preview
	require.Len(t, preview, 1)
	require.Len(t, preview[0], 4)
	assert.Equal(t, "image", preview[0][0].ID)
	require.NotNil(t, preview[0][0].Type)
	assert.Equal(t, "image", *preview[0][0].Type)
	assert.Equal(t, WidgetExpect{ID: "summary"}, preview[0][2])

	cols := s.Steps[4].Expect.Preview
	require.Len(t, cols, 3)
	assert.Empty(t, cols[2])
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{"two actions", "invalid_two_actions.yaml", "2 actions given"},
		{"unknown field", "invalid_unknown_field.yaml", "field serach not found"},
		{"missing file", "nope.yaml", "failed to read scenario file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(scenarioPath(tt.file))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateScenario(t *testing.T) {
	q := "q"
	valid := func() *Scenario {
		return &Scenario{
			Name:        "s",
			Description: "d",
			Scopes:      []string{testdataPath("goscope.ini")},
			ActiveScope: "goscope",
			Steps:       []Step{{Search: &q}},
		}
	}
	require.NoError(t, validateScenario(valid()))

	tests := []struct {
		name   string
		modify func(*Scenario)
		want   string
	}{
		{"no name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"no description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"no scopes", func(s *Scenario) { s.Scopes = nil }, "scopes list is required"},
		{"missing scope file", func(s *Scenario) { s.Scopes = []string{"testdata/none.ini"} }, "scope file not found"},
		{"no active scope", func(s *Scenario) { s.ActiveScope = "" }, "active_scope is required"},
		{"no steps", func(s *Scenario) { s.Steps = nil }, "steps list is required"},
		{"empty step", func(s *Scenario) { s.Steps = []Step{{}} }, "needs an action or expect"},
		{"negative columns", func(s *Scenario) { s.Steps = []Step{{ColumnCount: -1}} }, "column_count must be positive"},
		{"trigger without action", func(s *Scenario) {
			s.Steps = []Step{{Trigger: &TriggerStep{Widget: "actions"}}}
		}, "widget and action are required"},
		{"unknown view", func(s *Scenario) {
			s.Steps = []Step{{Expect: &Expect{View: "settings"}}}
		}, `unknown view "settings"`},
		{"unknown mode", func(s *Scenario) {
			s.Steps = []Step{{Expect: &Expect{Departments: &DepartmentsExpect{Mode: "fuzzy"}}}}
		}, `unknown mode "fuzzy"`},
		{"result without uri", func(s *Scenario) {
			s.Steps = []Step{{Expect: &Expect{Categories: &CategoriesExpect{
				Items: []CategoryExpect{{ID: "c", Results: []ResultExpect{{}}}},
			}}}}
		}, "uri is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.modify(s)
			err := validateScenario(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunScenario_Golden(t *testing.T) {
	s, err := LoadScenario(scenarioPath("browse_and_preview.yaml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, s, testRunOptions())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Snapshot, 6)
}

func TestRunScenario_StepError(t *testing.T) {
	s, err := LoadScenario(scenarioPath("failing_step.yaml"))
	require.NoError(t, err)

	result, err := RunScenario(context.Background(), s, testRunOptions())
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `steps[0] (search "fail")`)
	assert.Contains(t, result.Errors[0], "search failed")
	assert.Empty(t, result.Snapshot, "no snapshot after a failed step")
}

func TestRunScenario_Mismatch(t *testing.T) {
	s, err := LoadScenario(scenarioPath("mismatch.yaml"))
	require.NoError(t, err)

	result, err := RunScenario(context.Background(), s, testRunOptions())
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{
		`steps[0] (search "q"): view is results, expected preview`,
		`steps[0] (search "q"): Category with ID 'nope' could not be found`,
	}, result.Errors)
	assert.Len(t, result.Snapshot, 1)
}

func TestRunScenario_UnknownActiveScope(t *testing.T) {
	s, err := LoadScenario(scenarioPath("browse_and_preview.yaml"))
	require.NoError(t, err)
	s.ActiveScope = "nope"

	_, err = RunScenario(context.Background(), s, testRunOptions())
	assert.Error(t, err)
}

func TestRunScenario_Trace(t *testing.T) {
	s, err := LoadScenario(scenarioPath("browse_and_preview.yaml"))
	require.NoError(t, err)

	opts := testRunOptions()
	opts.Trace = filepath.Join(t.TempDir(), "trace.db")
	result, err := RunScenario(context.Background(), s, opts)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	info, err := os.Stat(opts.Trace)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestSnapshotJSON_Deterministic(t *testing.T) {
	result := NewRunResult()
	result.Snapshot = append(result.Snapshot, StepSnapshot{
		Step: 0,
		Do:   "expect",
		View: map[string]any{"b": 1.5, "a": []any{"x", 2}},
	})

	data, err := SnapshotJSON("s", result)
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"s","steps":[{"do":"expect","step":0,"view":{"a":["x",2],"b":1.5}}]}`, string(data))
}
