package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/dgallion1/docread/internal/document"
)

// OpenPostgres opens a pooled connection through the pgx stdlib driver and
// pings it.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PostgresRepo stores documents in a documents table.
type PostgresRepo struct{ DB *sql.DB }

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

// EnsureSchema creates the documents table if needed.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	const q = `
create table if not exists documents (
	id                text primary key,
	filename          text not null,
	extension         text not null,
	source_page_count integer not null default 0,
	content           text not null,
	issues            jsonb not null default '[]',
	created_at        timestamptz not null default now(),
	updated_at        timestamptz not null default now()
)`
	if _, err := r.DB.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Save(ctx context.Context, id string, doc *document.Document) error {
	issues := doc.Issues
	if issues == nil {
		issues = []document.Issue{}
	}
	js, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}
	const q = `
insert into documents (id, filename, extension, source_page_count, content, issues)
values ($1, $2, $3, $4, $5, $6)
on conflict (id) do update set
	filename = excluded.filename,
	extension = excluded.extension,
	source_page_count = excluded.source_page_count,
	content = excluded.content,
	issues = excluded.issues,
	updated_at = now()`
	_, err = r.DB.ExecContext(ctx, q, id, doc.Metadata.Filename, doc.Metadata.Extension,
		doc.Metadata.SourcePageCount, doc.Content, string(js))
	if err != nil {
		return fmt.Errorf("save document %s: %w", id, err)
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	const q = `
select filename, extension, source_page_count, content, issues
from documents
where id = $1`
	var (
		doc document.Document
		js  []byte
	)
	err := r.DB.QueryRowContext(ctx, q, id).Scan(
		&doc.Metadata.Filename, &doc.Metadata.Extension, &doc.Metadata.SourcePageCount, &doc.Content, &js)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	if err := json.Unmarshal(js, &doc.Issues); err != nil {
		return nil, fmt.Errorf("decode issues: %w", err)
	}
	if len(doc.Issues) == 0 {
		doc.Issues = nil
	}
	return &doc, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `delete from documents where id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
