package collect

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pgindex/pgindex/internal/errs"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
}

func TestCollectRecursive(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"sales/orders/PK_Orders.sql":      "ALTER TABLE orders ADD PRIMARY KEY (id);",
		"sales/orders/IX_Orders_Date.sql": "CREATE INDEX ix_orders_date ON orders (date);",
		"sales/orders/README.md":          "not a statement",
		"dbo/customers/UQ_Email.SQL":      "CREATE UNIQUE INDEX uq_email ON customers (email);",
		"top.sql":                         "CREATE INDEX top ON t (a);",
	})

	files, err := Collect(root, ".sql")
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	want := []string{
		filepath.Join(root, "dbo/customers/UQ_Email.SQL"),
		filepath.Join(root, "sales/orders/IX_Orders_Date.sql"),
		filepath.Join(root, "sales/orders/PK_Orders.sql"),
		filepath.Join(root, "top.sql"),
	}
	var got []string
	for _, f := range files {
		got = append(got, f.Path)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if files[2].Content != "ALTER TABLE orders ADD PRIMARY KEY (id);" {
		t.Errorf("Expected file content to be loaded verbatim, got %q", files[2].Content)
	}
}

func TestCollectIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/1.sql": "one",
		"a/2.sql": "two",
		"b/3.sql": "three",
	})

	first, err := Collect(root, ".sql")
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	second, err := Collect(root, ".sql")
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	toMap := func(files []File) map[string]string {
		m := make(map[string]string, len(files))
		for _, f := range files {
			m[f.Path] = f.Content
		}
		return m
	}
	if !reflect.DeepEqual(toMap(first), toMap(second)) {
		t.Errorf("Expected identical results, got %v and %v", first, second)
	}
}

func TestCollectSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"real.sql": "x"})

	outside := t.TempDir()
	writeTree(t, outside, map[string]string{"sub/target.sql": "y"})

	if err := os.Symlink(filepath.Join(root, "real.sql"), filepath.Join(root, "link.sql")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "sub"), filepath.Join(root, "linkdir")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	files, err := Collect(root, ".sql")
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0].Path) != "real.sql" {
		t.Errorf("Expected only real.sql, got %v", files)
	}
}

func TestCollectEmptyTree(t *testing.T) {
	files, err := Collect(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("Expected no files, got %v", files)
	}
}

func TestCollectErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.sql")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		root string
	}{
		{"missing root", filepath.Join(t.TempDir(), "nope")},
		{"root is a file", file},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := Collect(tt.root, ".sql")
			if !errs.Is(err, errs.KindFilesystem) {
				t.Errorf("Expected filesystem error, got %v", err)
			}
			if files != nil {
				t.Errorf("Expected no partial result, got %v", files)
			}
		})
	}
}
