package mysql

import (
	"fmt"
	"strings"

	"rxreport/internal/storage"
)

func sqlType(t storage.ColumnType) string {
	switch t {
	case storage.Real:
		return "DOUBLE"
	case storage.Integer:
		return "BIGINT"
	default:
		return "TEXT"
	}
}

// createTableSQL renders CREATE TABLE IF NOT EXISTS with backtick-quoted
// identifiers and a utf8mb4 default charset.
func createTableSQL(t storage.TableDef) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("mysql ddl: %w", err)
	}
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = myIdent(strings.TrimSpace(c.Name)) + " " + sqlType(c.Type) + " NULL"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n) DEFAULT CHARSET=utf8mb4",
		myFQN(t.Name), strings.Join(cols, ",\n  ")), nil
}

func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func myFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = myIdent(p)
	}
	return strings.Join(parts, ".")
}

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = myIdent(c)
	}
	return out
}
