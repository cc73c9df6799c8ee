package postgres

import (
	"fmt"
	"strings"

	"rxreport/internal/storage"
)

func sqlType(t storage.ColumnType) string {
	switch t {
	case storage.Real:
		return "DOUBLE PRECISION"
	case storage.Integer:
		return "BIGINT"
	default:
		return "TEXT"
	}
}

// createTableSQL renders a deterministic CREATE TABLE IF NOT EXISTS.
// Identifiers are double-quoted; embedded quotes are doubled.
func createTableSQL(t storage.TableDef) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("postgres ddl: %w", err)
	}
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = pgIdent(strings.TrimSpace(c.Name)) + " " + sqlType(c.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		pgFQN(t.Name), strings.Join(cols, ",\n  ")), nil
}

func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes "public.rx_master" as "public"."rx_master".
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}
