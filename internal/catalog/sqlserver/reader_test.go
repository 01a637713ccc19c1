package sqlserver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pgindex/pgindex/internal/catalog"
	"github.com/pgindex/pgindex/internal/errs"
	"github.com/pgindex/pgindex/internal/testdb"
)

// fakeQueries mirror the shape of the SQL Server catalog queries against a
// small sqlite fixture.
var fakeQueries = Queries{
	Schemas: `SELECT name FROM schemata ORDER BY name`,
	Tables:  `SELECT name FROM tbls WHERE schema_name = @SchemaName ORDER BY name`,
	Indexes: `SELECT name, stmt FROM idx
		WHERE schema_name = @SchemaName AND table_name = @TableName
		ORDER BY is_pk DESC, is_unique DESC, name`,
}

func setupCatalog(t *testing.T) string {
	t.Helper()
	return testdb.SQLite(t,
		`CREATE TABLE schemata (name TEXT)`,
		`CREATE TABLE tbls (schema_name TEXT, name TEXT)`,
		`CREATE TABLE idx (schema_name TEXT, table_name TEXT, name TEXT, stmt TEXT, is_pk INTEGER, is_unique INTEGER)`,
		`INSERT INTO schemata VALUES ('sales'), ('dbo'), ('sys'), ('guest'), ('INFORMATION_SCHEMA'), ('db_owner')`,
		`INSERT INTO tbls VALUES ('dbo', 'Orders'), ('dbo', 'Customers'), ('sales', 'Invoices')`,
		`INSERT INTO idx VALUES
			('dbo', 'Orders', '[IX_Orders_Date]', 'CREATE INDEX ix_date ON orders (date);', 0, 0),
			('dbo', 'Orders', '[UQ_Orders_Number]', 'CREATE UNIQUE INDEX uq_number ON orders (number);', 0, 1),
			('dbo', 'Orders', '[PK_Orders]', 'ALTER TABLE orders ADD PRIMARY KEY (id);', 1, 1),
			('dbo', 'Orders', '[AX_Orders_Customer]', 'CREATE INDEX ax_customer ON orders (customer_id);', 0, 0)`,
	)
}

func newTestReader(dsn string) *Reader {
	return NewReader(dsn, WithDriver("sqlite"), WithQueries(fakeQueries))
}

func TestListSchemasExcludesSystemSchemas(t *testing.T) {
	r := newTestReader(setupCatalog(t))

	schemas, err := r.ListSchemas(context.Background())
	if err != nil {
		t.Fatalf("ListSchemas returned error: %v", err)
	}

	want := []string{"dbo", "sales"}
	if strings.Join(schemas, ",") != strings.Join(want, ",") {
		t.Errorf("Expected schemas %v, got %v", want, schemas)
	}
}

func TestListTables(t *testing.T) {
	r := newTestReader(setupCatalog(t))

	tables, err := r.ListTables(context.Background(), "dbo")
	if err != nil {
		t.Fatalf("ListTables returned error: %v", err)
	}
	if strings.Join(tables, ",") != "Customers,Orders" {
		t.Errorf("Expected [Customers Orders], got %v", tables)
	}

	tables, err = r.ListTables(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ListTables returned error: %v", err)
	}
	if len(tables) != 0 {
		t.Errorf("Expected no tables for unknown schema, got %v", tables)
	}
}

func TestListIndexesOrdering(t *testing.T) {
	r := newTestReader(setupCatalog(t))

	indexes, err := r.ListIndexes(context.Background(), "dbo", "Orders")
	if err != nil {
		t.Fatalf("ListIndexes returned error: %v", err)
	}

	want := []string{"[PK_Orders]", "[UQ_Orders_Number]", "[AX_Orders_Customer]", "[IX_Orders_Date]"}
	if len(indexes) != len(want) {
		t.Fatalf("Expected %d indexes, got %d", len(want), len(indexes))
	}
	for i, name := range want {
		if indexes[i].Name != name {
			t.Errorf("index %d: expected %s, got %s", i, name, indexes[i].Name)
		}
	}
	if indexes[0].Statement != "ALTER TABLE orders ADD PRIMARY KEY (id);" {
		t.Errorf("Expected statement to pass through untouched, got %q", indexes[0].Statement)
	}
}

func TestListIndexesEmptyTable(t *testing.T) {
	r := newTestReader(setupCatalog(t))

	indexes, err := r.ListIndexes(context.Background(), "dbo", "Customers")
	if err != nil {
		t.Fatalf("ListIndexes returned error: %v", err)
	}
	if len(indexes) != 0 {
		t.Errorf("Expected no indexes, got %v", indexes)
	}
}

func TestRejectedQueryIsQueryError(t *testing.T) {
	dsn := setupCatalog(t)
	r := NewReader(dsn, WithDriver("sqlite"), WithQueries(Queries{Schemas: "SELECT name FROM no_such_table"}))

	_, err := r.ListSchemas(context.Background())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errs.Is(err, errs.KindQuery) {
		t.Errorf("Expected query error, got %v (%s)", err, errs.KindOf(err))
	}
}

func TestEmptyNameIsQueryError(t *testing.T) {
	dsn := setupCatalog(t)
	r := NewReader(dsn, WithDriver("sqlite"), WithQueries(Queries{Schemas: "SELECT ''"}))

	_, err := r.ListSchemas(context.Background())
	if !errors.Is(err, catalog.ErrEmptyName) {
		t.Errorf("Expected ErrEmptyName, got %v", err)
	}
}

func TestUnreachableSourceIsConnectivityError(t *testing.T) {
	r := NewReader(testdb.UnreachableSQLiteURL(t), WithDriver("sqlite"), WithQueries(fakeQueries))

	_, err := r.ListSchemas(context.Background())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errs.Is(err, errs.KindConnectivity) {
		t.Errorf("Expected connectivity error, got %v (%s)", err, errs.KindOf(err))
	}
}

func TestUnknownDriverIsConnectivityError(t *testing.T) {
	r := NewReader("whatever", WithDriver("no-such-driver"))

	_, err := r.ListTables(context.Background(), "dbo")
	if !errs.Is(err, errs.KindConnectivity) {
		t.Errorf("Expected connectivity error, got %v", err)
	}
}

func TestDefaultQueriesEmbedded(t *testing.T) {
	q := DefaultQueries()
	if !strings.Contains(q.Tables, "@SchemaName") {
		t.Error("Expected tables query to bind @SchemaName")
	}
	if !strings.Contains(q.Indexes, "@TableName") {
		t.Error("Expected indexes query to bind @TableName")
	}
	if !strings.Contains(q.Indexes, "ORDER BY i.is_primary_key DESC, i.is_unique DESC, i.name") {
		t.Error("Expected indexes query to order primary keys first, then unique, then by name")
	}
	for _, schema := range SystemSchemas {
		if !strings.Contains(q.Schemas, "'"+schema+"'") {
			t.Errorf("Expected schemas query to exclude %s", schema)
		}
	}
}

func TestIndexesQueryStorageOptions(t *testing.T) {
	q := DefaultQueries().Indexes

	tests := []struct {
		name     string
		fragment string
	}{
		{"pad index", "PAD_INDEX = "},
		{"fill factor", "FILLFACTOR = "},
		{"ignore dup key", "IGNORE_DUP_KEY = "},
		{"row locks", "ALLOW_ROW_LOCKS = "},
		{"page locks", "ALLOW_PAGE_LOCKS = "},
		{"uniform compression", "DATA_COMPRESSION = "},
		{"per partition compression", "ON PARTITIONS ("},
		{"data spaces", "sys.data_spaces"},
		{"partitions", "sys.partitions"},
		{"partition column", "partition_ordinal = 1"},
		{"filegroup", "data_space_type = N'FG'"},
		{"partition scheme", "data_space_type = N'PS'"},
		{"nonclustered fallback", "ELSE N'NONCLUSTERED'"},
		{"hypothetical excluded", "is_hypothetical = 0"},
		{"unique constraint", "is_unique_constraint = 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(q, tt.fragment) {
				t.Errorf("Expected indexes query to contain %q", tt.fragment)
			}
		})
	}

	// type_desc is never spliced into DDL; COLUMNSTORE and friends are not valid there
	if strings.Contains(q, "i.type_desc, N' INDEX '") {
		t.Error("Expected type_desc to be mapped to CLUSTERED or NONCLUSTERED, got raw type_desc in DDL")
	}
}

func TestSQLServerCatalog(t *testing.T) {
	r := NewReader(testdb.SQLServer(t))
	ctx := context.Background()

	schemas, err := r.ListSchemas(ctx)
	if err != nil {
		t.Fatalf("ListSchemas returned error: %v", err)
	}
	for _, s := range schemas {
		if isSystemSchema(s) {
			t.Errorf("Expected system schema %s to be excluded", s)
		}
	}

	for _, schema := range schemas {
		tables, err := r.ListTables(ctx, schema)
		if err != nil {
			t.Fatalf("ListTables(%s) returned error: %v", schema, err)
		}
		for _, table := range tables {
			indexes, err := r.ListIndexes(ctx, schema, table)
			if err != nil {
				t.Fatalf("ListIndexes(%s.%s) returned error: %v", schema, table, err)
			}
			for _, idx := range indexes {
				if !strings.HasPrefix(idx.Name, "[") || idx.Statement == "" {
					t.Errorf("Unexpected index %+v", idx)
				}
				if !strings.Contains(idx.Statement, " WITH (PAD_INDEX = ") {
					t.Errorf("Expected storage options in %s, got %s", idx.Name, idx.Statement)
				}
				if strings.Contains(idx.Statement, "COLUMNSTORE INDEX") {
					t.Errorf("Expected columnstore index %s exported as NONCLUSTERED, got %s", idx.Name, idx.Statement)
				}
			}
		}
	}
}
