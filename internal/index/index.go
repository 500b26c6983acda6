// Package index is the persistent mapping C1 in the design: one row per
// live object, (bucket, object_key) -> (cid, size, content_type,
// updated_at), backed by SQLite.
package index

import (
	"context"
	_ "embed"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned by Get when no row exists for (bucket, key).
var ErrNotFound = errors.New("index: object not found")

// Metadata is one row of the metadata table.
type Metadata struct {
	Bucket      string
	Key         string
	CID         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
}

// Index wraps the single-writer SQLite metadata store.
type Index struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite file at path, configuring
// it the way a single-writer embedded engine should be driven: WAL
// journaling, a 30 second busy timeout, and a connection pool sized for
// one writer plus a handful of readers.
func Open(ctx context.Context, dsn string) (*Index, error) {
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=30000&_foreign_keys=on", dsn)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("index: open: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("index: migrate: %w", err)
	}

	return &Index{db: db}, nil
}

// Close closes the pool.
func (x *Index) Close() error {
	return x.db.Close()
}

// Ping verifies the store is reachable, for the health probe.
func (x *Index) Ping(ctx context.Context) error {
	return x.db.PingContext(ctx)
}

// Upsert inserts or replaces the row for (bucket, key), refreshing cid,
// size, content_type and updated_at. Invariant 1 in spec.md §3.
func (x *Index) Upsert(ctx context.Context, bucket, key, cid string, size int64, contentType string) error {
	_, err := x.db.ExecContext(ctx, `
		INSERT INTO metadata (cid, bucket, object_key, content_type, size, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (bucket, object_key) DO UPDATE SET
			cid = excluded.cid,
			size = excluded.size,
			content_type = excluded.content_type,
			updated_at = excluded.updated_at
	`, cid, bucket, key, contentType, size)
	if err != nil {
		return fmt.Errorf("index: upsert: %w", err)
	}
	return nil
}

// Get returns the metadata row for (bucket, key), or ErrNotFound.
func (x *Index) Get(ctx context.Context, bucket, key string) (*Metadata, error) {
	row := x.db.QueryRowContext(ctx, `
		SELECT cid, bucket, object_key, content_type, size, updated_at
		FROM metadata WHERE bucket = ? AND object_key = ?
	`, bucket, key)

	var m Metadata
	if err := row.Scan(&m.CID, &m.Bucket, &m.Key, &m.ContentType, &m.Size, &m.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("index: get: %w", err)
	}
	return &m, nil
}

// Delete removes the row for (bucket, key). Deleting an absent row is not
// an error; callers check existence via Get first per spec.md's
// DeleteObject sequence.
func (x *Index) Delete(ctx context.Context, bucket, key string) error {
	_, err := x.db.ExecContext(ctx, `DELETE FROM metadata WHERE bucket = ? AND object_key = ?`, bucket, key)
	if err != nil {
		return fmt.Errorf("index: delete: %w", err)
	}
	return nil
}

// CIDRefCount returns the number of live rows referencing cid.
func (x *Index) CIDRefCount(ctx context.Context, cid string) (int64, error) {
	var count int64
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM metadata WHERE cid = ?`, cid).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("index: cid_ref_count: %w", err)
	}
	return count, nil
}

// FindShallowestEmptyAncestor walks the ancestors of key (within bucket)
// from the shallowest non-trivial one down toward key itself, and returns
// the shallowest ancestor A such that no live row has a key with prefix
// "A/". Returns ("", nil) if no such ancestor exists (e.g. key has no
// directory component, or every ancestor still has children).
//
// This is deliberately an N+1 series of prefix-count queries rather than
// a single recursive query: SQLite lacks the string-splitting primitives
// (split_part, a portable recursive CTE over path segments) that would
// let this collapse into one statement. spec.md §4.1 and §9 call this
// trade-off out explicitly; the contract (shallowest empty ancestor) does
// not change if a future backend can do it in one round trip.
func (x *Index) FindShallowestEmptyAncestor(ctx context.Context, bucket, key string) (string, error) {
	ancestors := ancestorsOf(key)

	for _, ancestor := range ancestors {
		like := ancestor + "/%"
		var count int64
		err := x.db.QueryRowContext(ctx, `
			SELECT COUNT(1) FROM metadata WHERE bucket = ? AND object_key LIKE ?
		`, bucket, like).Scan(&count)
		if err != nil {
			return "", fmt.Errorf("index: ancestor scan: %w", err)
		}
		if count == 0 {
			return ancestor, nil
		}
	}
	return "", nil
}

// ancestorsOf returns the proper directory ancestors of key, shallowest
// first, excluding key itself and the empty root. For "a/x/y/z" this is
// ["a", "a/x", "a/x/y"].
func ancestorsOf(key string) []string {
	dir := path.Dir(key)
	if dir == "." || dir == "/" {
		return nil
	}

	segments := strings.Split(dir, "/")
	ancestors := make([]string, 0, len(segments))
	for i := range segments {
		ancestors = append(ancestors, strings.Join(segments[:i+1], "/"))
	}
	return ancestors
}
