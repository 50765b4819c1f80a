package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/goscope/internal/protocol"
	"github.com/roach88/goscope/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	List     bool
	Scope    string // optional - filter to one scope
}

// TraceEvent represents a single event in the trace timeline.
type TraceEvent struct {
	Seq       int64           `json:"seq"`
	Kind      string          `json:"kind"` // "request" or "event"
	ScopeID   string          `json:"scope_id"`
	RequestID uint64          `json:"request_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	SessionID string       `json:"session_id"`
	StartedAt time.Time    `json:"started_at"`
	Scopes    []string     `json:"scopes"`
	Timeline  []TraceEvent `json:"timeline"`
	Stats     TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int `json:"total_events"`
	Requests    int `json:"requests"`
	Events      int `json:"events"`
	Errors      int `json:"errors"`
	Unanswered  int `json:"unanswered"`
}

// SessionSummary is one row of the session list.
type SessionSummary struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Scopes    []string  `json:"scopes"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show a recorded harness session",
		Long: `Show the requests a harness sent to its scopes and the events they
answered with, as recorded with --trace-db.

Without --session the most recent session is shown.

Examples:
  scopeharness trace --db ./trace.db --list
  scopeharness trace --db ./trace.db
  scopeharness trace --db ./trace.db --session 0190... --scope goscope -v
  scopeharness trace --db ./trace.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.report(cmd, runTrace(opts, cmd))
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (default: latest)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded sessions")
	cmd.Flags().StringVar(&opts.Scope, "scope", "", "only show frames exchanged with this scope")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.List {
		return listSessions(ctx, st, opts, cmd)
	}

	var sess store.Session
	if opts.Session != "" {
		sess, err = st.GetSession(ctx, opts.Session)
	} else {
		sess, err = st.LatestSession(ctx)
	}
	if errors.Is(err, store.ErrSessionNotFound) {
		empty := TraceResult{SessionID: opts.Session, Scopes: []string{}, Timeline: []TraceEvent{}}
		return opts.formatter(cmd).Render(empty, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, "No session found.")
			return err
		})
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	exchanges, err := st.Exchanges(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read records", err)
	}

	result := TraceResult{
		SessionID: sess.ID,
		StartedAt: sess.StartedAt,
		Scopes:    sess.Scopes,
		Timeline:  buildTimeline(exchanges, opts.Scope),
	}
	result.Stats = buildStats(result.Timeline, exchanges, opts.Scope)

	f := opts.formatter(cmd)
	f.SessionID = sess.ID
	return f.Render(result, func(w io.Writer) error {
		return outputTraceText(w, result, opts.Verbose)
	})
}

func listSessions(ctx context.Context, st *store.Store, opts *TraceOptions, cmd *cobra.Command) error {
	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	summaries := make([]SessionSummary, len(sessions))
	for i, s := range sessions {
		summaries[i] = SessionSummary{ID: s.ID, StartedAt: s.StartedAt, Scopes: s.Scopes}
	}
	return opts.formatter(cmd).Render(summaries, func(w io.Writer) error {
		if len(summaries) == 0 {
			_, err := fmt.Fprintln(w, "No sessions recorded.")
			return err
		}
		t := newTable(w)
		t.AppendHeader(table.Row{"Session", "Started", "Scopes"})
		for _, s := range summaries {
			t.AppendRow(table.Row{s.ID, s.StartedAt.Format(time.RFC3339), strings.Join(s.Scopes, ", ")})
		}
		t.Render()
		return nil
	})
}

// buildTimeline flattens exchanges into seq order. Each request is followed
// by its events, which is the order they were recorded in.
func buildTimeline(exchanges []store.Exchange, scopeFilter string) []TraceEvent {
	timeline := []TraceEvent{}
	for _, ex := range exchanges {
		if scopeFilter != "" && ex.Request.ScopeID != scopeFilter {
			continue
		}
		timeline = append(timeline, traceEvent(ex.Request))
		for _, ev := range ex.Events {
			timeline = append(timeline, traceEvent(ev))
		}
	}
	// Events of concurrent requests interleave, so restore recording order.
	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].Seq < timeline[j].Seq })
	return timeline
}

func traceEvent(rec store.Record) TraceEvent {
	return TraceEvent{
		Seq:       rec.Seq,
		Kind:      rec.Kind,
		ScopeID:   rec.ScopeID,
		RequestID: rec.RequestID,
		Type:      rec.Type,
		Payload:   rec.Payload,
	}
}

// buildStats counts frames. A request other than cancel is unanswered when
// no terminal event was recorded for it.
func buildStats(timeline []TraceEvent, exchanges []store.Exchange, scopeFilter string) TraceStats {
	stats := TraceStats{TotalEvents: len(timeline)}
	for _, ev := range timeline {
		switch {
		case ev.Kind == store.KindRequest:
			stats.Requests++
		case ev.Type == string(protocol.EventError):
			stats.Events++
			stats.Errors++
		default:
			stats.Events++
		}
	}
	for _, ex := range exchanges {
		if scopeFilter != "" && ex.Request.ScopeID != scopeFilter {
			continue
		}
		if ex.Request.Type != string(protocol.MethodCancel) && !answered(ex) {
			stats.Unanswered++
		}
	}
	return stats
}

func answered(ex store.Exchange) bool {
	for _, ev := range ex.Events {
		switch protocol.EventType(ev.Type) {
		case protocol.EventFinished, protocol.EventError, protocol.EventReady, protocol.EventActivation:
			return true
		}
	}
	return false
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Session: %s\n", result.SessionID)
	fmt.Fprintf(w, "Started: %s\n", result.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Scopes: %s\n", strings.Join(result.Scopes, ", "))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no frames)")
	}
	for _, ev := range result.Timeline {
		arrow := "->"
		if ev.Kind == store.KindEvent {
			arrow = "<-"
		}
		fmt.Fprintf(w, "  [%d] %s %s #%d %s\n", ev.Seq, arrow, ev.ScopeID, ev.RequestID, ev.Type)
		if verbose && len(ev.Payload) > 0 && string(ev.Payload) != "null" {
			fmt.Fprintf(w, "       %s\n", truncate(string(ev.Payload), 200))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Frames: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Requests:     %d\n", result.Stats.Requests)
	fmt.Fprintf(w, "  Events:       %d\n", result.Stats.Events)
	fmt.Fprintf(w, "  Errors:       %d\n", result.Stats.Errors)
	fmt.Fprintf(w, "  Unanswered:   %d\n", result.Stats.Unanswered)

	return nil
}

// truncate shortens s for display.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
