package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS import_runs (
	id             TEXT PRIMARY KEY,
	corpus         TEXT NOT NULL,
	embedder       TEXT NOT NULL,
	status         TEXT NOT NULL,
	chunks_written INTEGER NOT NULL DEFAULT 0,
	chunks_failed  INTEGER NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT '',
	started_at     TIMESTAMPTZ NOT NULL,
	finished_at    TIMESTAMPTZ
)`

// Catalog persists import run records in Postgres. It is bookkeeping on
// the side of the pipeline: the importer treats it as optional and the
// vector store never depends on it.
type Catalog struct {
	db *sql.DB
}

func Open(dsn string) (*Catalog, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "open catalog", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "ping catalog", err)
	}
	return &Catalog{db: db}, nil
}

// NewWithDB wraps an existing handle, used by tests.
func NewWithDB(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "ensure catalog schema", err)
	}
	return nil
}

func (c *Catalog) CreateRun(ctx context.Context, run *domain.ImportRun) error {
	const q = `INSERT INTO import_runs (id, corpus, embedder, status, started_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := c.db.ExecContext(ctx, q, run.ID, run.Corpus, run.Embedder, string(run.Status), run.StartedAt); err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "create import run", err)
	}
	return nil
}

func (c *Catalog) FinishRun(ctx context.Context, run *domain.ImportRun) error {
	const q = `UPDATE import_runs
		SET status = $2, chunks_written = $3, chunks_failed = $4, error = $5, finished_at = $6
		WHERE id = $1`
	res, err := c.db.ExecContext(ctx, q,
		run.ID, string(run.Status), run.ChunksWritten, run.ChunksFailed, run.Error, run.FinishedAt)
	if err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "finish import run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "finish import run",
			fmt.Errorf("run %s not found", run.ID))
	}
	return nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
