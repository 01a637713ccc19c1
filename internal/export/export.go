// Package export writes one statement file per source index, laid out as
// <output>/<schema>/<table>/<index>.sql.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pgindex/pgindex/internal/catalog"
	"github.com/pgindex/pgindex/internal/config"
	"github.com/pgindex/pgindex/internal/errs"
	"github.com/pgindex/pgindex/internal/report"
)

// FileSuffix is appended to every exported index file.
const FileSuffix = ".sql"

// ErrPathSeparator is returned for index names that cannot be a single file name.
var ErrPathSeparator = errors.New("index name contains a path separator")

// Result counts what a run exported.
type Result struct {
	RunID   string        `json:"run_id"`
	Schemas int           `json:"schemas"`
	Tables  int           `json:"tables"`
	Indexes int           `json:"indexes"`
	Files   []string      `json:"files"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Walker traverses the source catalog and materializes index statements.
// Traversal is sequential; the first failure stops the run.
type Walker struct {
	reader   catalog.Reader
	reporter report.Reporter
}

// NewWalker returns a walker reading from r. A nil reporter discards events.
func NewWalker(r catalog.Reader, reporter report.Reporter) *Walker {
	if reporter == nil {
		reporter = report.Discard
	}
	return &Walker{reader: r, reporter: reporter}
}

// Run exports every index selected by mode.
func (w *Walker) Run(ctx context.Context, mode config.ExportMode) (*Result, error) {
	if err := mode.Validate(); err != nil {
		return nil, errs.E(errs.KindConfig, "export", err)
	}

	start := time.Now()
	res := &Result{RunID: uuid.NewString()}

	schemas, err := w.schemas(ctx, mode.Schema)
	if err != nil {
		return res, err
	}

	for _, schema := range schemas {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		w.reporter.Report(report.SchemaStarted{Schema: schema})

		schemaDir := filepath.Join(mode.OutputDir, schema)
		if err := ResetDir(schemaDir); err != nil {
			return res, err
		}
		res.Schemas++

		tables, err := w.tables(ctx, schema, mode.Table)
		if err != nil {
			return res, err
		}

		for _, table := range tables {
			if err := w.exportTable(ctx, res, schemaDir, schema, table); err != nil {
				return res, err
			}
		}
	}

	res.Elapsed = time.Since(start)
	w.reporter.Report(report.ExportFinished{
		RunID:   res.RunID,
		Schemas: res.Schemas,
		Tables:  res.Tables,
		Indexes: res.Indexes,
		Elapsed: res.Elapsed,
	})
	return res, nil
}

func (w *Walker) exportTable(ctx context.Context, res *Result, schemaDir, schema, table string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.reporter.Report(report.TableStarted{Schema: schema, Table: table})

	tableDir := filepath.Join(schemaDir, table)
	if err := ResetDir(tableDir); err != nil {
		return err
	}
	res.Tables++

	indexes, err := w.reader.ListIndexes(ctx, schema, table)
	if err != nil {
		return err
	}

	for _, idx := range indexes {
		path, err := WriteStatement(tableDir, idx)
		if err != nil {
			return err
		}
		res.Indexes++
		res.Files = append(res.Files, path)
		w.reporter.Report(report.IndexExported{Schema: schema, Table: table, Index: idx.Name, Path: path})
	}
	return nil
}

func (w *Walker) schemas(ctx context.Context, filter string) ([]string, error) {
	if config.IsWildcard(filter) {
		return w.reader.ListSchemas(ctx)
	}
	return []string{strings.TrimSpace(filter)}, nil
}

func (w *Walker) tables(ctx context.Context, schema, filter string) ([]string, error) {
	if config.IsWildcard(filter) {
		return w.reader.ListTables(ctx, schema)
	}
	return []string{strings.TrimSpace(filter)}, nil
}

// ResetDir creates dir if needed and deletes the regular files directly
// inside it. Subdirectories and other entries are left alone.
func ResetDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Filesystem("create "+dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errs.Filesystem("list "+dir, err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			return errs.Filesystem("remove "+path, err)
		}
	}
	return nil
}

// IndexFileName strips square brackets from an index name and adds FileSuffix.
func IndexFileName(index string) string {
	name := strings.NewReplacer("[", "", "]", "").Replace(index)
	return name + FileSuffix
}

// WriteStatement writes idx's statement verbatim into dir and returns the
// file path.
func WriteStatement(dir string, idx catalog.IndexStatement) (string, error) {
	if !catalog.ValidName(idx.Name) {
		return "", errs.Filesystem("write statement", catalog.ErrEmptyName)
	}
	name := IndexFileName(idx.Name)
	if name == FileSuffix {
		return "", errs.Filesystem("write statement", fmt.Errorf("index name %q is empty once brackets are removed", idx.Name))
	}
	if strings.ContainsAny(name, `/\`) {
		return "", errs.Filesystem("write statement", fmt.Errorf("%w: %s", ErrPathSeparator, idx.Name))
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(idx.Statement), 0o644); err != nil {
		return "", errs.Filesystem("write "+path, err)
	}
	return path, nil
}
