package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/goscope/internal/harness"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Scenario failure or a scope answering with an error
	ExitCommandError = 2 // Command error (invalid paths, bad settings, etc.)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Error codes reported in JSON error responses.
const (
	CodeCommand    = "E_COMMAND"     // bad arguments, settings or scope files
	CodeScope      = "E_SCOPE"       // the scope answered with an error or could not be driven
	CodeTimeout    = "E_TIMEOUT"     // the scope did not answer in time
	CodeTestFailed = "E_TEST_FAILED" // at least one scenario failed
)

// OutputFormatter writes command results either for humans or as a
// CLIResponse per command.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose and diagnostic output; defaults to Writer
	Verbose   bool

	// SessionID is reported as trace_id so a response can be matched with
	// the session recorded in the trace database.
	SessionID string
}

// CLIResponse is the JSON envelope of every command's output.
type CLIResponse struct {
	Status  string    `json:"status"` // "ok" or "error"
	Data    any       `json:"data,omitempty"`
	Error   *CLIError `json:"error,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Details *ScopeErrorDetails `json:"details,omitempty"`
}

// ScopeErrorDetails names the request a scope failed.
type ScopeErrorDetails struct {
	Scope   string `json:"scope"`
	Method  string `json:"method"`
	Message string `json:"message"`
}

// Render writes data as a JSON response, or hands the writer to text in
// text mode.
func (f *OutputFormatter) Render(data any, text func(w io.Writer) error) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data, TraceID: f.SessionID})
	}
	return text(f.Writer)
}

// Fail reports err. JSON output gets an error response. In text mode the
// message itself is printed by the caller, so only the failing scope
// request is logged, and only when verbose.
func (f *OutputFormatter) Fail(err error) error {
	cliErr := newCLIError(err)
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "error", Error: cliErr, TraceID: f.SessionID})
	}
	if d := cliErr.Details; d != nil {
		f.VerboseLog("scope %s: %s failed: %s", d.Scope, d.Method, d.Message)
	}
	if f.SessionID != "" {
		f.VerboseLog("trace session %s", f.SessionID)
	}
	return nil
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}

// VerboseLog writes a line to ErrWriter in verbose mode, so it never mixes
// with JSON on Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

func newCLIError(err error) *CLIError {
	e := &CLIError{Code: errorCode(err), Message: err.Error()}
	var remote *harness.RemoteError
	if errors.As(err, &remote) {
		e.Details = &ScopeErrorDetails{Scope: remote.ScopeID, Method: remote.Method, Message: remote.Message}
	}
	return e
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, harness.ErrTimeout):
		return CodeTimeout
	case GetExitCode(err) == ExitCommandError:
		return CodeCommand
	default:
		return CodeScope
	}
}
