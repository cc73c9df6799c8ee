package mssql

import (
	"fmt"
	"strings"

	"rxreport/internal/storage"
)

func sqlType(t storage.ColumnType) string {
	switch t {
	case storage.Real:
		return "FLOAT"
	case storage.Integer:
		return "BIGINT"
	default:
		return "NVARCHAR(400)"
	}
}

// createTableSQL renders an IF OBJECT_ID(...) IS NULL guarded CREATE TABLE,
// since SQL Server has no CREATE TABLE IF NOT EXISTS.
func createTableSQL(t storage.TableDef) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("mssql ddl: %w", err)
	}
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = msIdent(strings.TrimSpace(c.Name)) + " " + sqlType(c.Type) + " NULL"
	}
	fqn := msFQN(t.Name)
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE %s (\n  %s\n)",
		strings.ReplaceAll(fqn, "'", "''"), fqn, strings.Join(cols, ",\n  ")), nil
}

func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// msFQN quotes "dbo.rx_master" as [dbo].[rx_master].
func msFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = msIdent(p)
	}
	return strings.Join(parts, ".")
}
