package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mizutama/kotoba/common/redact"
	"github.com/mizutama/kotoba/internal/kotoba/audit"
)

// AuditLog is the SQLite-backed audit.Log. Entries with an idempotency key
// are written at most once: a retry with an identical payload returns the
// stored row ID, a retry with a different payload fails with
// audit.ErrConflict.
type AuditLog struct {
	db  *sql.DB
	now func() time.Time
}

var _ audit.Log = (*AuditLog)(nil)

// NewAuditLog returns an AuditLog backed by the given store.
func NewAuditLog(s *Store) *AuditLog {
	return &AuditLog{db: s.db, now: time.Now}
}

// Write appends the entry, redacting credential-looking request values
// before they reach disk.
func (l *AuditLog) Write(ctx context.Context, e audit.Entry) (int64, error) {
	var requestJSON sql.NullString
	if e.Request != nil {
		jsonBytes, err := json.Marshal(redact.Map(e.Request))
		if err != nil {
			return 0, fmt.Errorf("store: marshal audit request: %w", err)
		}
		requestJSON = sql.NullString{String: string(jsonBytes), Valid: true}
	}

	var key sql.NullString
	if e.IdempotencyKey != "" {
		key = sql.NullString{String: e.IdempotencyKey, Valid: true}
	}

	res, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_log (ts, trace_id, user, action_type, ok, target, request_json, result, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
	`, l.now().UTC().Format(time.RFC3339Nano), e.TraceID, e.User, e.ActionType,
		boolToInt(e.OK), e.Target, requestJSON, e.Result, key)
	if err != nil {
		return 0, fmt.Errorf("store: write audit entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: write audit entry: %w", err)
	}
	if n > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("store: write audit entry: %w", err)
		}
		return id, nil
	}

	// The key is already stored. Identical payload → idempotent success;
	// diverging payload → conflict the caller must decide about.
	return l.resolveExisting(ctx, e, requestJSON)
}

// resolveExisting compares a duplicate-key submission against the stored
// row.
func (l *AuditLog) resolveExisting(ctx context.Context, e audit.Entry, requestJSON sql.NullString) (int64, error) {
	var (
		id         int64
		user       string
		actionType string
		okInt      int
		target     string
		storedReq  sql.NullString
		result     string
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT id, user, action_type, ok, target, request_json, result
		FROM audit_log
		WHERE idempotency_key = ?
	`, e.IdempotencyKey).Scan(&id, &user, &actionType, &okInt, &target, &storedReq, &result)
	if errors.Is(err, sql.ErrNoRows) {
		// Row vanished between insert and lookup; treat as conflict rather
		// than risk a duplicate side-effect record.
		return 0, audit.ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("store: look up audit entry: %w", err)
	}

	same := user == e.User &&
		actionType == e.ActionType &&
		okInt == boolToInt(e.OK) &&
		target == e.Target &&
		storedReq.String == requestJSON.String &&
		result == e.Result
	if !same {
		return 0, fmt.Errorf("%w: key %q", audit.ErrConflict, e.IdempotencyKey)
	}
	return id, nil
}

// Entry is one stored audit row, as returned by Recent.
type Entry struct {
	ID             int64
	Timestamp      time.Time
	TraceID        string
	User           string
	ActionType     string
	OK             bool
	Target         string
	RequestJSON    string
	Result         string
	IdempotencyKey string
}

// Recent returns the newest audit entries, most recent first.
func (l *AuditLog) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, ts, trace_id, user, action_type, ok, target, request_json, result, idempotency_key
		FROM audit_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			e       Entry
			ts      string
			okInt   int
			reqJSON sql.NullString
			key     sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &e.TraceID, &e.User, &e.ActionType,
			&okInt, &e.Target, &reqJSON, &e.Result, &key); err != nil {
			return nil, fmt.Errorf("store: scan audit entry: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		e.OK = okInt != 0
		e.RequestJSON = reqJSON.String
		e.IdempotencyKey = key.String
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate audit log: %w", err)
	}

	return entries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
