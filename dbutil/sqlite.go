package dbutil

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens a SQLite database with WAL journaling and a busy timeout.
// readOnly opens the file with mode=ro.
func OpenSQLite(ctx context.Context, path string, readOnly bool) (*sql.DB, error) {
	dsn := path
	params := []string{"_pragma=busy_timeout(5000)"}
	if readOnly {
		params = append(params, "mode=ro")
	} else {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	if strings.Contains(dsn, "?") {
		dsn += "&" + strings.Join(params, "&")
	} else {
		dsn += "?" + strings.Join(params, "&")
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "database ping failed")
	}
	return db, nil
}

// Conn runs fn on a dedicated connection that is released on every exit path.
func Conn(ctx context.Context, db *sql.DB, fn func(conn *sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire connection")
	}
	defer func() { _ = conn.Close() }()
	return fn(conn)
}
