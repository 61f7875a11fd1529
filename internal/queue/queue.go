// Package queue persists pending/running/done work items so many
// releases can be transcoded in batch, modeled on the teacher's
// internal/db: database/sql plus hand-written SQL, no ORM.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Status is the lifecycle state of one queued release.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Item is one release queued for processing.
type Item struct {
	ID           int64
	ContentDir   string
	IndexerID    string
	Targets      []string
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// DB wraps a SQLite connection holding the queue's schema.
type DB struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS queue_items (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	content_dir   TEXT NOT NULL,
	indexer_id    TEXT NOT NULL DEFAULT '',
	targets       TEXT NOT NULL DEFAULT '[]',
	status        TEXT NOT NULL DEFAULT 'pending',
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	started_at    TEXT,
	completed_at  TEXT
);
CREATE INDEX IF NOT EXISTS idx_queue_items_status ON queue_items(status);
`

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("queue: open %s: %w", path, err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("queue: create schema: %w", err)
	}
	return &DB{db: sqlDB}, nil
}

// OpenInMemory opens a throwaway in-memory database, for tests.
func OpenInMemory() (*DB, error) {
	return Open(":memory:")
}

// Close closes the underlying connection.
func (d *DB) Close() error { return d.db.Close() }

// Enqueue inserts a new pending item and sets its ID.
func (d *DB) Enqueue(ctx context.Context, item *Item) error {
	targetsJSON, err := json.Marshal(item.Targets)
	if err != nil {
		return fmt.Errorf("queue: marshal targets: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := d.db.ExecContext(ctx, `
		INSERT INTO queue_items (content_dir, indexer_id, targets, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, item.ContentDir, item.IndexerID, string(targetsJSON), StatusPending, now, now)
	if err != nil {
		return fmt.Errorf("queue: insert item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("queue: get last insert id: %w", err)
	}
	item.ID = id
	item.Status = StatusPending
	return nil
}

// Get retrieves an item by id.
func (d *DB) Get(ctx context.Context, id int64) (*Item, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, content_dir, indexer_id, targets, status, error_message, created_at, updated_at, started_at, completed_at
		FROM queue_items WHERE id = ?
	`, id)
	return scanItem(row)
}

// NextPending atomically claims the oldest pending item and marks it
// running, or returns nil and an error wrapping sql.ErrNoRows if no item
// is pending.
func (d *DB) NextPending(ctx context.Context) (*Item, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("queue: begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, content_dir, indexer_id, targets, status, error_message, created_at, updated_at, started_at, completed_at
		FROM queue_items WHERE status = ? ORDER BY id ASC LIMIT 1
	`, StatusPending)
	item, err := scanItem(row)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
		UPDATE queue_items SET status = ?, started_at = ?, updated_at = ? WHERE id = ?
	`, StatusRunning, now, now, item.ID); err != nil {
		return nil, fmt.Errorf("queue: claim item %d: %w", item.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("queue: commit claim: %w", err)
	}

	item.Status = StatusRunning
	return item, nil
}

// MarkCompleted transitions an item to completed.
func (d *DB) MarkCompleted(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := d.db.ExecContext(ctx, `
		UPDATE queue_items SET status = ?, completed_at = ?, updated_at = ? WHERE id = ?
	`, StatusCompleted, now, now, id)
	if err != nil {
		return fmt.Errorf("queue: mark completed %d: %w", id, err)
	}
	return nil
}

// MarkFailed transitions an item to failed, recording errMsg.
func (d *DB) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := d.db.ExecContext(ctx, `
		UPDATE queue_items SET status = ?, error_message = ?, completed_at = ?, updated_at = ? WHERE id = ?
	`, StatusFailed, errMsg, now, now, id)
	if err != nil {
		return fmt.Errorf("queue: mark failed %d: %w", id, err)
	}
	return nil
}

// List returns every item, most recently created first, optionally
// filtered by status (empty means all).
func (d *DB) List(ctx context.Context, status Status) ([]Item, error) {
	query := `
		SELECT id, content_dir, indexer_id, targets, status, error_message, created_at, updated_at, started_at, completed_at
		FROM queue_items
	`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY id DESC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("queue: list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItemRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row *sql.Row) (*Item, error) {
	return scanGeneric(row)
}

func scanItemRows(rows *sql.Rows) (*Item, error) {
	return scanGeneric(rows)
}

func scanGeneric(s scanner) (*Item, error) {
	var item Item
	var targetsJSON, createdAt, updatedAt string
	var startedAt, completedAt sql.NullString

	if err := s.Scan(&item.ID, &item.ContentDir, &item.IndexerID, &targetsJSON, &item.Status,
		&item.ErrorMessage, &createdAt, &updatedAt, &startedAt, &completedAt); err != nil {
		return nil, fmt.Errorf("queue: scan item: %w", err)
	}

	if err := json.Unmarshal([]byte(targetsJSON), &item.Targets); err != nil {
		return nil, fmt.Errorf("queue: unmarshal targets: %w", err)
	}
	item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	item.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if startedAt.Valid {
		t, _ := time.Parse(time.RFC3339, startedAt.String)
		item.StartedAt = &t
	}
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		item.CompletedAt = &t
	}
	return &item, nil
}
