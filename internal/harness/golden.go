package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/goscope/internal/variant"
)

// SnapshotJSON renders the snapshot of a result as canonical JSON. It is the
// content of the scenario's golden file.
func SnapshotJSON(name string, result *RunResult) ([]byte, error) {
	steps := make([]any, len(result.Snapshot))
	for i, s := range result.Snapshot {
		steps[i] = map[string]any{
			"step": s.Step,
			"do":   s.Do,
			"view": s.View,
		}
	}
	return variant.Canonical(map[string]any{
		"scenario_name": name,
		"steps":         steps,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./... -update
//
// Returns error if the scenario could not be run. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts RunOptions) (*RunResult, error) {
	t.Helper()

	result, err := RunScenario(context.Background(), scenario, opts)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's snapshot against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *RunResult) error {
	t.Helper()

	data, err := SnapshotJSON(scenarioName, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
