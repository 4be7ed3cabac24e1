package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gate_control/internal/models"

	"github.com/google/uuid"
)

// EntrySQLite is the query index over the activity log.
type EntrySQLite struct {
	db *sql.DB
}

func NewEntrySQLite(db *sql.DB) *EntrySQLite { return &EntrySQLite{db: db} }

var _ EntryIndex = (*EntrySQLite)(nil)

const (
	insertEntrySQL = `INSERT INTO log_entries (id, ts, command_id, source, command, outcome, reason) VALUES (?, ?, ?, ?, ?, ?, ?)`
	selectEntrySQL = `SELECT id, ts, command_id, source, command, outcome, reason FROM log_entries`
)

// Append inserts an entry. A missing ID or timestamp is filled in.
func (r *EntrySQLite) Append(ctx context.Context, e models.LogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := r.db.ExecContext(ctx, insertEntrySQL,
		e.ID,
		e.Timestamp.UTC().UnixNano(),
		e.CommandID,
		string(e.Source),
		string(e.Command),
		e.Outcome,
		e.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert log entry %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns at most n entries, newest first. n <= 0 yields none.
func (r *EntrySQLite) Recent(ctx context.Context, n int) ([]models.LogEntry, error) {
	if n <= 0 {
		return []models.LogEntry{}, nil
	}
	return r.query(ctx, selectEntrySQL+" ORDER BY seq DESC LIMIT ?", n)
}

// List returns entries matching q, newest first.
func (r *EntrySQLite) List(ctx context.Context, q EntryQuery) ([]models.LogEntry, error) {
	var (
		conds []string
		args  []any
	)

	if !q.From.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, q.From.UTC().UnixNano())
	}
	if !q.To.IsZero() {
		conds = append(conds, "ts <= ?")
		args = append(args, q.To.UTC().UnixNano())
	}
	if q.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, string(q.Source))
	}
	if q.Command != "" {
		conds = append(conds, "command = ?")
		args = append(args, string(q.Command))
	}

	stmt := selectEntrySQL
	if len(conds) > 0 {
		stmt += " WHERE " + strings.Join(conds, " AND ")
	}
	stmt += " ORDER BY seq DESC"
	if q.Limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, q.Limit)
	}
	return r.query(ctx, stmt, args...)
}

func (r *EntrySQLite) query(ctx context.Context, stmt string, args ...any) ([]models.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query log entries: %w", err)
	}
	defer rows.Close()

	out := make([]models.LogEntry, 0, 32)
	for rows.Next() {
		var (
			e        models.LogEntry
			ts       int64
			src, cmd string
		)
		if err := rows.Scan(&e.ID, &ts, &e.CommandID, &src, &cmd, &e.Outcome, &e.Reason); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		e.Source = models.Source(src)
		e.Command = models.CommandKind(cmd)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
