// Package sqlite provides a durable FlashcoreAdapter backed by a single
// SQLite database file. It lives in its own package so the cgo sqlite driver
// is only linked by bots that opt in.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/botmesh/core"
)

//go:embed schema.sql
var schema string

// Adapter implements core.FlashcoreAdapter over a SQLite database. WAL mode
// and a busy timeout make it safe for the bot process plus the occasional
// inspection tool.
type Adapter struct {
	db *sql.DB
}

// New opens (creating if necessary) the database at path and ensures the
// schema exists.
func New(path string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open flashcore db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init flashcore schema: %w", err)
	}
	return &Adapter{db: db}, nil
}

// Get returns the value for key, or core.ErrKeyNotFound.
func (a *Adapter) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := a.db.QueryRowContext(ctx, `SELECT v FROM flashcore WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get flashcore key %q: %w", key, err)
	}
	return v, nil
}

// Set upserts the value under key.
func (a *Adapter) Set(ctx context.Context, key string, value []byte) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO flashcore (k, v, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(k) DO UPDATE SET v = excluded.v, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set flashcore key %q: %w", key, err)
	}
	return nil
}

// Delete removes key; deleting a missing key succeeds.
func (a *Adapter) Delete(ctx context.Context, key string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM flashcore WHERE k = ?`, key); err != nil {
		return fmt.Errorf("delete flashcore key %q: %w", key, err)
	}
	return nil
}

// Has reports whether key exists.
func (a *Adapter) Has(ctx context.Context, key string) (bool, error) {
	var one int
	err := a.db.QueryRowContext(ctx, `SELECT 1 FROM flashcore WHERE k = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check flashcore key %q: %w", key, err)
	}
	return true, nil
}

// Keys returns all keys with the given prefix, sorted.
func (a *Adapter) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeLike(prefix) + "%"
	rows, err := a.db.QueryContext(ctx,
		`SELECT k FROM flashcore WHERE k LIKE ? ESCAPE '\' ORDER BY k`, pattern)
	if err != nil {
		return nil, fmt.Errorf("list flashcore keys: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("list flashcore keys: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list flashcore keys: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// escapeLike protects LIKE metacharacters in a literal prefix.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var _ core.FlashcoreAdapter = (*Adapter)(nil)
