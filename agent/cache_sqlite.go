package agent

import (
	"context"
	"database/sql"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"github.com/tbxark/mailagent/dbutil"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS agent_cache (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteCache persists JSON-encoded values in a single key/value table.
type SQLiteCache[S any] struct {
	db *sql.DB
}

func OpenSQLiteCache[S any](ctx context.Context, path string) (*SQLiteCache[S], error) {
	db, err := dbutil.OpenSQLite(ctx, path, false)
	if err != nil {
		return nil, err
	}
	c, err := NewSQLiteCache[S](ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func NewSQLiteCache[S any](ctx context.Context, db *sql.DB) (*SQLiteCache[S], error) {
	if _, err := db.ExecContext(ctx, cacheSchema); err != nil {
		return nil, errors.Wrap(err, "create agent_cache")
	}
	return &SQLiteCache[S]{db: db}, nil
}

func (c *SQLiteCache[S]) Set(ctx context.Context, key string, val S) error {
	raw, err := sonic.MarshalString(val)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	_, err = c.db.ExecContext(ctx, `
INSERT INTO agent_cache (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, raw, time.Now().UTC().Format(time.RFC3339Nano))
	return errors.Wrapf(err, "store %s", key)
}

func (c *SQLiteCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	var zero S
	var raw string
	err := dbutil.Conn(ctx, c.db, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `SELECT value FROM agent_cache WHERE key = ?`, key).Scan(&raw)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, errors.Wrapf(err, "load %s", key)
	}
	var val S
	if err := sonic.UnmarshalString(raw, &val); err != nil {
		return zero, false, errors.Wrapf(err, "decode %s", key)
	}
	return val, true, nil
}

func (c *SQLiteCache[S]) Del(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM agent_cache WHERE key = ?`, key)
	return errors.Wrapf(err, "delete %s", key)
}

func (c *SQLiteCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM agent_cache WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, errors.Wrapf(err, "check %s", key)
	}
	return n > 0, nil
}

func (c *SQLiteCache[S]) Close() error {
	return c.db.Close()
}
