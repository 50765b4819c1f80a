package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/goscope/internal/protocol"
)

// Record kinds.
const (
	KindRequest = "request"
	KindEvent   = "event"
)

// ErrEmptySessionID is returned when a session is created without an id.
var ErrEmptySessionID = errors.New("session id must not be empty")

// Session describes one harness run.
type Session struct {
	ID        string
	StartedAt time.Time
	Scopes    []string
}

// Record is one frame exchanged with a scope.
type Record struct {
	SessionID string
	Seq       int64
	ScopeID   string
	RequestID uint64
	Kind      string
	Type      string
	Payload   json.RawMessage
}

// Recorder appends records for one session, assigning seq numbers in
// the order frames are recorded. It is safe for concurrent use.
type Recorder struct {
	store     *Store
	sessionID string

	mu  sync.Mutex
	seq int64
}

// StartSession inserts sess (a no-op if it already exists) and returns a
// Recorder that continues after the session's last recorded seq.
func (s *Store) StartSession(ctx context.Context, sess Session) (*Recorder, error) {
	if sess.ID == "" {
		return nil, ErrEmptySessionID
	}
	scopes, err := marshalScopes(sess.Scopes)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, scopes)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.StartedAt.UTC().Format(time.RFC3339Nano), scopes)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	var last int64
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM records WHERE session_id = ?`, sess.ID,
	).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	return &Recorder{store: s, sessionID: sess.ID, seq: last}, nil
}

// SessionID returns the id of the session being recorded.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Request records a request sent to scopeID.
func (r *Recorder) Request(ctx context.Context, scopeID string, req protocol.Request) error {
	return r.append(ctx, scopeID, req.ID, KindRequest, string(req.Method), req.Params)
}

// Event records an event received from scopeID.
func (r *Recorder) Event(ctx context.Context, scopeID string, ev protocol.Event) error {
	return r.append(ctx, scopeID, ev.ID, KindEvent, string(ev.Type), ev.Payload)
}

func (r *Recorder) append(ctx context.Context, scopeID string, requestID uint64, kind, typ string, payload json.RawMessage) error {
	text, err := marshalPayload(payload)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	// Holding the lock across the insert keeps seq order equal to row order.
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.seq + 1
	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO records
		(session_id, seq, scope_id, request_id, kind, type, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.sessionID, seq, scopeID, int64(requestID), kind, typ, text)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	r.seq = seq
	return nil
}
