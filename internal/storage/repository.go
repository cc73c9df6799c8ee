// Package storage defines the backend-agnostic contract report sinks write
// through, plus a small registry so backends can be selected by name.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ColumnType is the portable column type; each backend maps it to its own
// dialect.
type ColumnType int

const (
	Text ColumnType = iota
	Real
	Integer
)

func (t ColumnType) String() string {
	switch t {
	case Text:
		return "text"
	case Real:
		return "real"
	case Integer:
		return "integer"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// Column is one destination column.
type Column struct {
	Name string
	Type ColumnType
}

// TableDef describes a destination table. Name may be schema-qualified
// ("dbo.rx_master"); backends quote each part.
type TableDef struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the column names in declaration order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Validate rejects tables with no name, no columns, or blank/repeated
// column names.
func (t TableDef) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("storage: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("storage: table %s has no columns", t.Name)
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return fmt.Errorf("storage: table %s has a column with empty name", t.Name)
		}
		k := strings.ToLower(name)
		if _, dup := seen[k]; dup {
			return fmt.Errorf("storage: table %s repeats column %s", t.Name, name)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// Repository is what the SQL report sink needs from a backend.
type Repository interface {
	// EnsureTable creates the table when it does not exist. An existing table
	// is left as is.
	EnsureTable(ctx context.Context, t TableDef) error
	// CopyFrom bulk-inserts rows aligned to columns and returns the number of
	// rows the backend reports as written.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	// Exec runs a single statement.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string // "postgres", "mssql", "mysql", "sqlite"
	DSN  string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. It panics on an empty kind,
// a nil factory, or a second registration of the same kind.
func Register(kind string, f Factory) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" || f == nil {
		panic("storage: Register requires a kind and a factory")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[kind]; dup {
		panic("storage: backend registered twice: " + kind)
	}
	factories[kind] = f
}

// New opens the backend named by cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	mu.RLock()
	f, ok := factories[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown kind %q (registered: %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
	return f(ctx, cfg)
}

// Kinds lists registered backends, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
