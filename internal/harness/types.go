package harness

// RunResult is the outcome of a scenario run.
type RunResult struct {
	// Pass is true if every step ran and every expectation held.
	Pass bool `json:"pass"`

	// Errors contains step failures and expectation mismatches.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Snapshot holds one entry per executed step describing the view the
	// step ended on. Used for golden comparison.
	Snapshot []StepSnapshot `json:"snapshot"`
}

// StepSnapshot is the canonical description of the view after a step.
type StepSnapshot struct {
	Step int            `json:"step"`
	Do   string         `json:"do"`
	View map[string]any `json:"view"`
}

// NewRunResult creates a new passing result.
func NewRunResult() *RunResult {
	return &RunResult{
		Pass:     true,
		Errors:   []string{},
		Snapshot: []StepSnapshot{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *RunResult) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
