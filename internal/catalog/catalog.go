// Package catalog defines the read-only view of a source catalog that the
// exporter walks: schemas, their tables, and each table's indexes rendered
// as executable statements.
package catalog

import (
	"context"
	"errors"
	"strings"
)

// IndexStatement pairs an index name with the statement that recreates it.
// The statement text is passed through untouched.
type IndexStatement struct {
	Name      string `json:"name"`
	Statement string `json:"statement"`
}

// Reader lists catalog objects. Schemas and tables come back in lexical
// order; indexes come back primary keys first, then unique indexes, then
// the rest, each group ordered by name.
type Reader interface {
	// ListSchemas returns all user schemas, system schemas excluded
	ListSchemas(ctx context.Context) ([]string, error)

	// ListTables returns all tables owned by schema
	ListTables(ctx context.Context, schema string) ([]string, error)

	// ListIndexes returns every index defined on schema.table
	ListIndexes(ctx context.Context, schema, table string) ([]IndexStatement, error)
}

// ErrEmptyName is returned when the catalog yields an empty identifier.
var ErrEmptyName = errors.New("catalog returned an empty name")

// ValidName reports whether name is usable as a schema, table or index name.
func ValidName(name string) bool {
	return strings.TrimSpace(name) != ""
}
