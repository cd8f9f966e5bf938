package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dhowell/go-offline-cache/queue"
)

//go:embed create_tables.sql
var queryCreateTables string

// Queue is a SQLite-backed durable write queue. The two pending-write tables
// live in one database file so queued completions survive process restarts.
type Queue struct {
	db *sql.DB

	now func() time.Time
}

// Open opens (or creates) the queue database at path and applies the schema.
// Schema creation is idempotent: existing tables and indexes are left
// untouched, only missing ones are created.
func Open(ctx context.Context, path string) (*Queue, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("queue path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := db.ExecContext(ctx, queryCreateTables); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create queue tables: %w", err)
	}

	return &Queue{db: db, now: time.Now}, nil
}

// Close releases the SQLite connection.
func (q *Queue) Close() error {
	if q == nil || q.db == nil {
		return nil
	}
	return q.db.Close()
}

func (q *Queue) Insert(ctx context.Context, t queue.Table, rec queue.NewRecord) (int64, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = q.now()
	}

	var res sql.Result
	var err error
	switch t {
	case queue.TableWorkouts:
		res, err = q.db.ExecContext(ctx,
			`INSERT INTO pending_workouts (payload, created_at) VALUES (?, ?)`,
			[]byte(rec.Payload), createdAt.UnixMilli())
	case queue.TableSets:
		res, err = q.db.ExecContext(ctx,
			`INSERT INTO pending_sets (workout_id, payload, created_at) VALUES (?, ?, ?)`,
			rec.WorkoutID, []byte(rec.Payload), createdAt.UnixMilli())
	default:
		return 0, queue.ErrUnknownTable
	}
	if err != nil {
		return 0, fmt.Errorf("insert pending write: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read insert id: %w", err)
	}
	return id, nil
}

func (q *Queue) GetAll(ctx context.Context, t queue.Table) ([]queue.Record, error) {
	var query string
	switch t {
	case queue.TableWorkouts:
		query = `SELECT id, '', payload, created_at FROM pending_workouts ORDER BY id`
	case queue.TableSets:
		query = `SELECT id, workout_id, payload, created_at FROM pending_sets ORDER BY id`
	default:
		return nil, queue.ErrUnknownTable
	}

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending writes: %w", err)
	}
	defer rows.Close()

	var recs []queue.Record
	for rows.Next() {
		var rec queue.Record
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.WorkoutID, &rec.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending write: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (q *Queue) DeleteByID(ctx context.Context, t queue.Table, id int64) error {
	var query string
	switch t {
	case queue.TableWorkouts:
		query = `DELETE FROM pending_workouts WHERE id = ?`
	case queue.TableSets:
		query = `DELETE FROM pending_sets WHERE id = ?`
	default:
		return queue.ErrUnknownTable
	}

	if _, err := q.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete pending write: %w", err)
	}
	return nil
}
