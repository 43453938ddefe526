package imagestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens an image database at path with WAL journaling.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// SQLiteStore keeps images as BLOBs in an images table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) EnsureNamespace(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS images (
		name       TEXT PRIMARY KEY,
		data       BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create images table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, id, format string, data []byte) (string, error) {
	name, err := FileName(id, format)
	if err != nil {
		return "", err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO images (name, data) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`, name, data)
	if err != nil {
		return "", fmt.Errorf("insert image: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", fmt.Errorf("%w: %s", ErrExists, name)
	}
	return Namespace + "/" + name, nil
}

func (s *SQLiteStore) Get(ctx context.Context, ref string) ([]byte, error) {
	name, err := NameOf(ref)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = s.db.QueryRowContext(ctx, `SELECT data FROM images WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select image: %w", err)
	}
	return data, nil
}
