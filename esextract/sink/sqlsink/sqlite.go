package sqlsink

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/nonibytes/esextract/esextract/column"
)

// SQLite writes to a database file. DriverName selects the driver the
// binary registered: "sqlite" (modernc.org/sqlite) or "sqlite3"
// (github.com/mattn/go-sqlite3).
type SQLite struct {
	Path       string
	DriverName string
}

func NewSQLite(path string) *SQLite {
	return &SQLite{Path: path, DriverName: "sqlite"}
}

func NewSQLiteWithDriver(path, driver string) *SQLite {
	return &SQLite{Path: path, DriverName: driver}
}

func (a *SQLite) Backend() Backend { return BackendSQLite }

func (a *SQLite) PlaceholderStyle() PlaceholderStyle { return PlaceholderQuestion }

func (a *SQLite) Target() string { return a.Path }

func (a *SQLite) Close() error { return nil }

func (a *SQLite) Connect(ctx context.Context) (*sql.DB, error) {
	params := "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if a.DriverName == "sqlite3" {
		params = "_busy_timeout=5000&_journal_mode=WAL"
	}
	dsn := a.Path
	if !strings.Contains(dsn, "?") {
		dsn = dsn + "?" + params
	} else {
		dsn = dsn + "&" + params
	}
	db, err := sql.Open(a.DriverName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ColumnType leaves undeclared columns without a type so SQLite keeps
// each value's own storage class.
func (a *SQLite) ColumnType(t column.Type) string {
	switch t {
	case column.TypeString:
		return "TEXT"
	case column.TypeLong, column.TypeBool:
		return "INTEGER"
	case column.TypeDecimal:
		return "NUMERIC"
	case column.TypeDate:
		return "TEXT"
	case column.TypeBytes:
		return "BLOB"
	}
	return ""
}

func (a *SQLite) Arg(c column.Column, t column.Type) any {
	if c.IsNull() {
		return nil
	}
	switch v := c.(type) {
	case column.Date:
		return v.Value.UTC().Format(time.RFC3339Nano)
	case column.Bool:
		if v.Value {
			return int64(1)
		}
		return int64(0)
	}
	if t == column.TypeString {
		return c.Text()
	}
	return c.Raw()
}
