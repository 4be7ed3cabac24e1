package repository

import (
	"context"
	"database/sql"
	"time"

	"gate_control/internal/models"
)

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// EntryQuery narrows a List call. Zero values mean "no constraint".
type EntryQuery struct {
	From    time.Time
	To      time.Time
	Source  models.Source
	Command models.CommandKind
	Limit   int
}

// EntryIndex answers activity-log queries. Results are newest first.
type EntryIndex interface {
	Append(ctx context.Context, e models.LogEntry) error
	Recent(ctx context.Context, n int) ([]models.LogEntry, error)
	List(ctx context.Context, q EntryQuery) ([]models.LogEntry, error)
}

// Journal is the append-only textual activity log.
type Journal interface {
	Append(e models.LogEntry) error
	Tail(n int) ([]models.LogEntry, error)
}

type Repository struct {
	Entries EntryIndex
	Journal Journal
	Auth    Authorization
}

// NewRepository wires the SQLite index and user table on db with the text
// journal at journalPath, timestamps rendered in loc.
func NewRepository(db *sql.DB, journalPath string, loc *time.Location) *Repository {
	return &Repository{
		Entries: NewEntrySQLite(db),
		Journal: NewEntryFile(journalPath, loc),
		Auth:    NewUserRepository(db),
	}
}
