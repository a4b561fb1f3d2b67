// Package sqlsink writes extracted records into a SQL table.
package sqlsink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nonibytes/esextract/esextract/column"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Adapter abstracts the database-specific parts of the sink.
type Adapter interface {
	Backend() Backend
	PlaceholderStyle() PlaceholderStyle
	Target() string

	Connect(ctx context.Context) (*sql.DB, error)
	Close() error

	// ColumnType is the DDL type for a declared column type. An empty t
	// means the column was not declared.
	ColumnType(t column.Type) string
	// Arg converts a column value into a driver argument for a table
	// column declared as t.
	Arg(c column.Column, t column.Type) any
}

// ColumnDef is one table column. Type may be left empty.
type ColumnDef struct {
	Name string
	Type column.Type
}

// Table describes the destination table.
type Table struct {
	Name    string
	Columns []ColumnDef
}

// Columns builds untyped column definitions from output names.
func Columns(names []string) []ColumnDef {
	out := make([]ColumnDef, len(names))
	for i, n := range names {
		out[i] = ColumnDef{Name: n}
	}
	return out
}

func quoteIdent(ident string) (string, error) {
	if ident == "" || strings.ContainsAny(ident, "\"\x00") {
		return "", fmt.Errorf("invalid identifier %q", ident)
	}
	return `"` + ident + `"`, nil
}

func createTableSQL(a Adapter, t Table) (string, error) {
	name, err := quoteIdent(t.Name)
	if err != nil {
		return "", err
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("table %s has no columns", t.Name)
	}
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		q, err := quoteIdent(c.Name)
		if err != nil {
			return "", err
		}
		if typ := a.ColumnType(c.Type); typ != "" {
			q += " " + typ
		}
		defs[i] = q
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(defs, ", ")), nil
}
