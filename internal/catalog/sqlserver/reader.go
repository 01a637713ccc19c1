// Package sqlserver reads the index catalog of a SQL Server database.
package sqlserver

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/pgindex/pgindex/internal/catalog"
	"github.com/pgindex/pgindex/internal/errs"
)

// DriverName is the database/sql driver registered by go-mssqldb.
const DriverName = "sqlserver"

// SystemSchemas are never exported.
var SystemSchemas = []string{
	"db_accessadmin",
	"db_backupoperator",
	"db_datareader",
	"db_datawriter",
	"db_ddladmin",
	"db_denydatareader",
	"db_denydatawriter",
	"db_owner",
	"db_securityadmin",
	"guest",
	"INFORMATION_SCHEMA",
	"sys",
}

//go:embed queries/schemas.sql
var schemasQuery string

//go:embed queries/tables.sql
var tablesQuery string

//go:embed queries/indexes.sql
var indexesQuery string

// Queries holds the catalog query text. Tables binds @SchemaName; Indexes
// binds @SchemaName and @TableName and yields (name, statement) rows.
type Queries struct {
	Schemas string
	Tables  string
	Indexes string
}

// DefaultQueries returns the queries run against SQL Server.
func DefaultQueries() Queries {
	return Queries{
		Schemas: schemasQuery,
		Tables:  tablesQuery,
		Indexes: indexesQuery,
	}
}

// Reader implements catalog.Reader. Each call opens its own connection and
// closes it before returning.
type Reader struct {
	driverName   string
	dsn          string
	queries      Queries
	queryTimeout time.Duration
}

var _ catalog.Reader = (*Reader)(nil)

// Option configures a Reader.
type Option func(*Reader)

// WithDriver selects a different database/sql driver.
func WithDriver(name string) Option {
	return func(r *Reader) { r.driverName = name }
}

// WithQueries replaces the catalog query text.
func WithQueries(q Queries) Option {
	return func(r *Reader) { r.queries = q }
}

// WithQueryTimeout bounds each catalog call. Zero means no bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(r *Reader) { r.queryTimeout = d }
}

// NewReader returns a reader for the database at dsn.
func NewReader(dsn string, opts ...Option) *Reader {
	r := &Reader{
		driverName: DriverName,
		dsn:        dsn,
		queries:    DefaultQueries(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reader) ListSchemas(ctx context.Context) ([]string, error) {
	names, err := r.queryNames(ctx, "list schemas", r.queries.Schemas)
	if err != nil {
		return nil, err
	}

	schemas := names[:0]
	for _, name := range names {
		if !isSystemSchema(name) {
			schemas = append(schemas, name)
		}
	}
	return schemas, nil
}

func (r *Reader) ListTables(ctx context.Context, schema string) ([]string, error) {
	return r.queryNames(ctx, fmt.Sprintf("list tables of %s", schema), r.queries.Tables,
		sql.Named("SchemaName", schema))
}

func (r *Reader) ListIndexes(ctx context.Context, schema, table string) ([]catalog.IndexStatement, error) {
	op := fmt.Sprintf("list indexes of %s.%s", schema, table)

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	db, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, r.queries.Indexes,
		sql.Named("SchemaName", schema),
		sql.Named("TableName", table))
	if err != nil {
		return nil, errs.Query(op, err)
	}
	defer func() { _ = rows.Close() }()

	var indexes []catalog.IndexStatement
	for rows.Next() {
		var name, statement sql.NullString
		if err := rows.Scan(&name, &statement); err != nil {
			return nil, errs.Query(op, err)
		}
		if !name.Valid || !catalog.ValidName(name.String) {
			return nil, errs.Query(op, catalog.ErrEmptyName)
		}
		if !statement.Valid {
			return nil, errs.Query(op, fmt.Errorf("index %s has no statement", name.String))
		}
		indexes = append(indexes, catalog.IndexStatement{Name: name.String, Statement: statement.String})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Query(op, err)
	}
	return indexes, nil
}

func (r *Reader) queryNames(ctx context.Context, op, query string, args ...any) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	db, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Query(op, err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, errs.Query(op, err)
		}
		if !name.Valid || !catalog.ValidName(name.String) {
			return nil, errs.Query(op, catalog.ErrEmptyName)
		}
		names = append(names, name.String)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Query(op, err)
	}
	return names, nil
}

// open connects and pings so that an unreachable server is reported as a
// connectivity failure rather than a query failure.
func (r *Reader) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(r.driverName, r.dsn)
	if err != nil {
		return nil, errs.Connectivity("open source connection", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errs.Connectivity("connect to source", err)
	}
	return db, nil
}

func (r *Reader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

func isSystemSchema(name string) bool {
	for _, s := range SystemSchemas {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}
