package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"github.com/tbxark/mailagent/dbutil"
	"github.com/tbxark/mailagent/types"
)

const registrySchema = `
CREATE TABLE IF NOT EXISTS vector_collections (
	name TEXT PRIMARY KEY,
	table_name TEXT NOT NULL UNIQUE,
	dim INTEGER NOT NULL
)`

// SQLiteBackend keeps one table per collection and scores with brute-force cosine.
type SQLiteBackend struct {
	db *sql.DB

	mu     sync.Mutex
	tables map[string]string
}

func OpenSQLiteBackend(ctx context.Context, path string) (*SQLiteBackend, error) {
	db, err := dbutil.OpenSQLite(ctx, path, false)
	if err != nil {
		return nil, err
	}
	b, err := NewSQLiteBackend(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func NewSQLiteBackend(ctx context.Context, db *sql.DB) (*SQLiteBackend, error) {
	if _, err := db.ExecContext(ctx, registrySchema); err != nil {
		return nil, errors.Wrap(err, "create collection registry")
	}
	return &SQLiteBackend{db: db, tables: make(map[string]string)}, nil
}

func (b *SQLiteBackend) tableFor(ctx context.Context, name string) (string, error) {
	b.mu.Lock()
	table, ok := b.tables[name]
	b.mu.Unlock()
	if ok {
		return table, nil
	}
	err := b.db.QueryRowContext(ctx, `SELECT table_name FROM vector_collections WHERE name = ?`, name).Scan(&table)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	b.tables[name] = table
	b.mu.Unlock()
	return table, nil
}

func (b *SQLiteBackend) HasCollection(ctx context.Context, name string) (bool, error) {
	table, err := b.tableFor(ctx, name)
	if err != nil {
		return false, err
	}
	return table != "", nil
}

func (b *SQLiteBackend) EnsureCollection(ctx context.Context, name string, dim int) error {
	table, err := b.tableFor(ctx, name)
	if err != nil {
		return err
	}
	if table != "" {
		return nil
	}
	table = "vec_" + physicalName(name)
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	embedding BLOB NOT NULL,
	text TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}'
)`, table)); err != nil {
		return errors.Wrapf(err, "create table for %s", name)
	}
	// a table_name clash with another collection must fail, never share rows
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vector_collections (name, table_name, dim) VALUES (?, ?, ?) ON CONFLICT(name) DO NOTHING`, name, table, dim); err != nil {
		return errors.Wrap(err, "register collection")
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	b.mu.Lock()
	b.tables[name] = table
	b.mu.Unlock()
	return nil
}

func (b *SQLiteBackend) Insert(ctx context.Context, name string, docs []types.VectorDocument) error {
	table, err := b.tableFor(ctx, name)
	if err != nil {
		return err
	}
	if table == "" {
		return errors.Errorf("collection %s does not exist", name)
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q (embedding, text, metadata) VALUES (?, ?, ?)`, table))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, d := range docs {
		meta := d.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		raw, err := sonic.MarshalString(meta)
		if err != nil {
			return errors.Wrap(err, "encode metadata")
		}
		if _, err := stmt.ExecContext(ctx, embeddingToBytes(d.Embedding), d.Text, raw); err != nil {
			return errors.Wrap(err, "insert document")
		}
	}
	return tx.Commit()
}

func (b *SQLiteBackend) Search(ctx context.Context, name string, vector []float32, k int, threshold float32) ([]types.ScoredDocument, error) {
	table, err := b.tableFor(ctx, name)
	if err != nil {
		return nil, err
	}
	if table == "" {
		return nil, nil
	}
	var scored []types.ScoredDocument
	err = dbutil.Conn(ctx, b.db, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, fmt.Sprintf(`SELECT embedding, text, metadata FROM %q`, table))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				blob []byte
				text string
				meta string
			)
			if err := rows.Scan(&blob, &text, &meta); err != nil {
				return errors.Wrap(err, "scan failed")
			}
			score := CosineSimilarity(vector, bytesToEmbedding(blob))
			if score < threshold {
				continue
			}
			doc := types.VectorDocument{Text: text}
			if err := sonic.UnmarshalString(meta, &doc.Metadata); err != nil {
				return errors.Wrap(err, "decode metadata")
			}
			scored = append(scored, types.ScoredDocument{VectorDocument: doc, Score: score})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return topK(scored, k, threshold), nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
