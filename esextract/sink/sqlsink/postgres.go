package sqlsink

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/nonibytes/esextract/esextract/column"
)

// Postgres writes into a dedicated schema, created on connect.
type Postgres struct {
	DSN    string
	Schema string
}

func NewPostgres(dsn, schema string) *Postgres {
	return &Postgres{DSN: dsn, Schema: schema}
}

func (a *Postgres) Backend() Backend { return BackendPostgres }

func (a *Postgres) PlaceholderStyle() PlaceholderStyle { return PlaceholderDollar }

func (a *Postgres) Target() string { return "postgres:" + a.Schema }

func (a *Postgres) Close() error { return nil }

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (a *Postgres) ensureSchema(ctx context.Context, db *sql.DB) error {
	if a.Schema == "" || !schemaNameRe.MatchString(a.Schema) {
		return fmt.Errorf("invalid postgres schema name %q (must match %s)", a.Schema, schemaNameRe.String())
	}
	_, err := db.ExecContext(ctx, `CREATE SCHEMA IF NOT EXISTS "`+a.Schema+`"`)
	return err
}

func (a *Postgres) Connect(ctx context.Context) (*sql.DB, error) {
	cfg0, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	db0 := stdlib.OpenDB(*cfg0)
	if err := db0.PingContext(ctx); err != nil {
		_ = db0.Close()
		return nil, err
	}
	if err := a.ensureSchema(ctx, db0); err != nil {
		_ = db0.Close()
		return nil, err
	}
	_ = db0.Close()

	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string)
	}
	cfg.RuntimeParams["search_path"] = fmt.Sprintf(`"%s",public`, a.Schema)
	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ColumnType maps undeclared columns to text.
func (a *Postgres) ColumnType(t column.Type) string {
	switch t {
	case column.TypeLong:
		return "bigint"
	case column.TypeDecimal:
		return "numeric"
	case column.TypeBool:
		return "boolean"
	case column.TypeDate:
		return "timestamptz"
	case column.TypeBytes:
		return "bytea"
	}
	return "text"
}

func (a *Postgres) Arg(c column.Column, t column.Type) any {
	if c.IsNull() {
		return nil
	}
	switch t {
	case "", column.TypeString, column.TypeDecimal:
		return c.Text()
	}
	return c.Raw()
}
