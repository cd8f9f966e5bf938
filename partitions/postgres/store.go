package postgres

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"encoding/gob"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/dhowell/go-offline-cache/partitions"
)

var (
	// ErrPingFailed is returned if the initial ping to the database returns an error
	ErrPingFailed = errors.New("ping returned error")
)

var (
	//go:embed create_table.sql
	queryCreateTable string
	//go:embed fetch_entry.sql
	queryFetchEntry string
	//go:embed upsert_entry.sql
	queryUpsertEntry string
	//go:embed delete_entry.sql
	queryDeleteEntry string
	//go:embed list_keys.sql
	queryListKeys string
	//go:embed list_partitions.sql
	queryListPartitions string
	//go:embed delete_partition.sql
	queryDeletePartition string
)

// Store implements the partitions.Store interface using PostgreSQL as the
// storage backend. Entries from every partition share one table keyed by
// (partition, key); a write replaces the previous row for the same pair.
type Store struct {
	db *sql.DB

	now func() time.Time
}

// Match retrieves an entry from PostgreSQL by partition and key.
// Returns partitions.ErrNoEntry if the entry doesn't exist.
func (p *Store) Match(ctx context.Context, partition, key string) (*partitions.Entry, error) {
	stmt, err := p.db.PrepareContext(ctx, queryFetchEntry)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var raw []byte
	if err := stmt.QueryRowContext(ctx, partition, key).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, partitions.ErrNoEntry
		}
		return nil, err
	}

	dec := gob.NewDecoder(bytes.NewBuffer(raw))

	var entry partitions.Entry
	if err := dec.Decode(&entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

// Put stores an entry in PostgreSQL under the provided partition and key.
// It handles the serialization of the entry using gob encoding.
func (p *Store) Put(ctx context.Context, partition, key string, e *partitions.Entry) error {
	stmt, err := p.db.PrepareContext(ctx, queryUpsertEntry)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var buff bytes.Buffer
	enc := gob.NewEncoder(&buff)
	if err := enc.Encode(e); err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx, partition, key, buff.Bytes(), p.now().UTC())
	return err
}

func (p *Store) Delete(ctx context.Context, partition, key string) error {
	stmt, err := p.db.PrepareContext(ctx, queryDeleteEntry)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, partition, key)
	return err
}

func (p *Store) Keys(ctx context.Context, partition string) ([]string, error) {
	stmt, err := p.db.PrepareContext(ctx, queryListKeys)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, partition)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (p *Store) Partitions(ctx context.Context) ([]string, error) {
	stmt, err := p.db.PrepareContext(ctx, queryListPartitions)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (p *Store) DeletePartition(ctx context.Context, partition string) error {
	stmt, err := p.db.PrepareContext(ctx, queryDeletePartition)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, partition)
	return err
}

func createTable(ctx context.Context, db *sql.DB) error {
	stmt, err := db.PrepareContext(ctx, queryCreateTable)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx)
	return err
}

// New creates a new PostgreSQL partition store. It verifies the database
// connection and creates the necessary table structure.
//
// Returns an error if:
// - The database connection test fails
// - Table creation fails
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(ErrPingFailed, err)
	}

	if err := createTable(ctx, db); err != nil {
		return nil, err
	}

	return &Store{
		db: db,

		now: time.Now,
	}, nil
}
