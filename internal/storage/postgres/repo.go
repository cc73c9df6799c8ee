// Package postgres implements storage.Repository on Postgres with pgx v5.
// Bulk inserts use the COPY protocol.
//
// repo_adapter.go wires the postgres backend into the storage registry at init
// time, so report sinks obtain a Repository through storage.New by kind alone
// and never import this package directly (internal/storage/all does the
// blank import).
//
// It also reconciles the concrete *Repository with storage.Repository: the
// constructor hands back a separate close function, which wrappedRepo turns
// into the interface's Close.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rxreport/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN string // pgxpool connection string
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository and returns a close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &Repository{pool: pool}, pool.Close, nil
}

// EnsureTable issues CREATE TABLE IF NOT EXISTS for t.
func (r *Repository) EnsureTable(ctx context.Context, t storage.TableDef) error {
	stmt, err := createTableSQL(t)
	if err != nil {
		return err
	}
	return r.Exec(ctx, stmt)
}

// CopyFrom streams rows into table with COPY FROM STDIN.
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, splitFQN(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, pgError("copy", err)
	}
	return n, nil
}

// Exec runs one statement.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return fmt.Errorf("postgres: Exec: empty statement")
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return pgError("exec", err)
	}
	return nil
}

// pgError surfaces the server detail when there is one.
func pgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("postgres %s: %s (%s): %w", op, pgErr.Detail, pgErr.SQLState(), err)
	}
	return fmt.Errorf("postgres %s: %w", op, err)
}

func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
