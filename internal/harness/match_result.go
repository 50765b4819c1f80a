package harness

import (
	"strings"

	"github.com/stretchr/testify/assert"
)

// MatchResult collects the failures of a matcher run.
type MatchResult struct {
	failures []string
}

// Failure records a failed expectation.
func (r *MatchResult) Failure(msg string) {
	r.failures = append(r.failures, msg)
}

// Success reports whether every expectation held.
func (r MatchResult) Success() bool { return len(r.failures) == 0 }

// Failures returns the failure messages in the order they were found.
func (r MatchResult) Failures() []string {
	return append([]string(nil), r.failures...)
}

// ConciseMessage joins the failures, one per line.
func (r MatchResult) ConciseMessage() string {
	return strings.Join(r.failures, "\n")
}

// Err returns nil on success and an *AssertionError otherwise.
func (r MatchResult) Err() error {
	if r.Success() {
		return nil
	}
	return &AssertionError{
		Type:     "match",
		Expected: "all matchers to succeed",
		Actual:   r.ConciseMessage(),
	}
}

// merge appends the failures of other.
func (r *MatchResult) merge(other MatchResult) {
	r.failures = append(r.failures, other.failures...)
}

// AssertMatchResult fails t with the concise message unless r succeeded.
func AssertMatchResult(t assert.TestingT, r MatchResult) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	if r.Success() {
		return true
	}
	return assert.Fail(t, "match failed", r.ConciseMessage())
}
