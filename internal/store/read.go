package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when a session id is not in the store.
var ErrSessionNotFound = errors.New("session not found")

// Exchange groups a request with the events the scope sent for it.
type Exchange struct {
	Request Record
	Events  []Record
}

// ListSessions returns all sessions, oldest first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, scopes
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns a single session.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, scopes FROM sessions WHERE id = ?
	`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, err
}

// LatestSession returns the most recently created session.
func (s *Store) LatestSession(ctx context.Context) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, scopes FROM sessions
		ORDER BY id COLLATE BINARY DESC LIMIT 1
	`)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	return sess, err
}

// ReadSession returns every record of a session in seq order.
// Returns an empty slice (not nil) if the session has no records.
func (s *Store) ReadSession(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, scope_id, request_id, kind, type, payload
		FROM records
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			rec     Record
			reqID   int64
			payload string
		)
		if err := rows.Scan(&rec.SessionID, &rec.Seq, &rec.ScopeID, &reqID, &rec.Kind, &rec.Type, &payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.RequestID = uint64(reqID)
		rec.Payload = []byte(payload)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Exchanges groups a session's records by request, in the order the
// requests were sent. Events whose request was not recorded are dropped.
func (s *Store) Exchanges(ctx context.Context, sessionID string) ([]Exchange, error) {
	records, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	type key struct {
		scope string
		id    uint64
	}
	index := make(map[key]int)
	exchanges := []Exchange{}
	for _, rec := range records {
		k := key{rec.ScopeID, rec.RequestID}
		switch rec.Kind {
		case KindRequest:
			index[k] = len(exchanges)
			exchanges = append(exchanges, Exchange{Request: rec, Events: []Record{}})
		case KindEvent:
			if i, ok := index[k]; ok {
				exchanges[i].Events = append(exchanges[i].Events, rec)
			}
		}
	}
	return exchanges, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		sess      Session
		startedAt string
		scopes    string
	)
	if err := row.Scan(&sess.ID, &startedAt, &scopes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Session{}, fmt.Errorf("parse started_at: %w", err)
	}
	sess.StartedAt = t
	if sess.Scopes, err = unmarshalScopes(scopes); err != nil {
		return Session{}, err
	}
	return sess, nil
}
