// Package mysql implements storage.Repository on MySQL/MariaDB with the
// go-sql-driver connector. Rows go in as multi-row INSERT statements.
//
// repo_adapter.go wires the mysql backend into the storage registry at init
// time, so report sinks obtain a Repository through storage.New by kind alone
// and never import this package directly (internal/storage/all does the
// blank import).
//
// It also reconciles the concrete *Repository with storage.Repository: the
// constructor hands back a separate close function, which wrappedRepo turns
// into the interface's Close.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"rxreport/internal/storage"
)

// maxPlaceholders is the server's prepared statement parameter limit.
const maxPlaceholders = 65535

// Config holds MySQL repository configuration.
type Config struct {
	// DSN in go-sql-driver form, e.g. "rx:rx@tcp(localhost:3306)/rx".
	DSN string
}

// Repository is a MySQL-backed storage.Repository.
type Repository struct {
	db *sql.DB
}

// NewRepository parses the DSN, opens and pings the server, and returns a
// close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	mc.ParseTime = true
	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(conn)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", mysqlError(err))
	}
	return &Repository{db: db}, func() { _ = db.Close() }, nil
}

// EnsureTable issues CREATE TABLE IF NOT EXISTS for t.
func (r *Repository) EnsureTable(ctx context.Context, t storage.TableDef) error {
	stmt, err := createTableSQL(t)
	if err != nil {
		return err
	}
	return r.Exec(ctx, stmt)
}

// CopyFrom inserts rows in one transaction, as few statements as the
// placeholder limit allows.
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	per := maxPlaceholders / len(columns)
	var inserted int64
	for lo := 0; lo < len(rows); lo += per {
		hi := min(lo+per, len(rows))
		args := make([]any, 0, (hi-lo)*len(columns))
		for _, row := range rows[lo:hi] {
			if len(row) != len(columns) {
				_ = tx.Rollback()
				return 0, fmt.Errorf("mysql: CopyFrom: row length %d != columns length %d", len(row), len(columns))
			}
			args = append(args, row...)
		}
		res, err := tx.ExecContext(ctx, insertSQL(table, columns, hi-lo), args...)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert: %w", mysqlError(err))
		}
		n, _ := res.RowsAffected()
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", mysqlError(err))
	}
	return inserted, nil
}

// Exec runs one statement.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return fmt.Errorf("mysql: Exec: empty statement")
	}
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("exec: %w", mysqlError(err))
	}
	return nil
}

func insertSQL(table string, columns []string, n int) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", myFQN(table), strings.Join(mapIdent(columns), ", "))
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	return b.String()
}

// mysqlError adds the server error number when there is one.
func mysqlError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return fmt.Errorf("mysql error %d: %s: %w", me.Number, me.Message, err)
	}
	return err
}
