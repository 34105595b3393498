package repository

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// PostgresBlob implements Blob over a single row of the kv_store table.
//
// Expected schema:
//
//	CREATE TABLE kv_store (
//	    key        TEXT PRIMARY KEY,
//	    value      TEXT NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
type PostgresBlob struct {
	db  *sql.DB
	key string
}

// NewPostgresBlob creates a blob bound to the given key.
func NewPostgresBlob(db *sql.DB, key string) *PostgresBlob {
	return &PostgresBlob{db: db, key: key}
}

// Load reads the stored value for the key.
func (b *PostgresBlob) Load(ctx context.Context) ([]byte, bool, error) {
	query := `
		SELECT value
		FROM kv_store
		WHERE key = $1
	`

	var data []byte
	err := b.db.QueryRowContext(ctx, query, b.key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return data, true, nil
}

// Save upserts the value for the key.
func (b *PostgresBlob) Save(ctx context.Context, data []byte) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3
	`

	_, err := b.db.ExecContext(ctx, query, b.key, data, time.Now())
	return err
}

// Delete removes the key.
func (b *PostgresBlob) Delete(ctx context.Context) error {
	query := `
		DELETE FROM kv_store
		WHERE key = $1
	`

	_, err := b.db.ExecContext(ctx, query, b.key)
	return err
}

// MemoryBlob is an in-process Blob for tests and database-less runs.
type MemoryBlob struct {
	mu   sync.Mutex
	data []byte
	ok   bool
}

// NewMemoryBlob creates an empty in-memory blob.
func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{}
}

// Load returns the stored value, if any.
func (b *MemoryBlob) Load(ctx context.Context) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ok {
		return nil, false, nil
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, true, nil
}

// Save stores the value.
func (b *MemoryBlob) Save(ctx context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make([]byte, len(data))
	copy(b.data, data)
	b.ok = true
	return nil
}

// Delete clears the value.
func (b *MemoryBlob) Delete(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
	b.ok = false
	return nil
}
