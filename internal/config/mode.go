package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Limits on the import settings.
const (
	MinThreads      = 1
	MaxThreads      = 10
	MinTimeoutHours = 1
	MaxTimeoutHours = 72
)

// Mode is what a run does: either ExportMode or ImportMode.
type Mode interface {
	mode()
	Validate() error
}

// ExportMode writes one statement file per source index.
type ExportMode struct {
	Schema    string
	Table     string
	OutputDir string
}

// ImportMode replays statement files against the target.
type ImportMode struct {
	InputDir             string
	Threads              int
	TimeoutHours         int
	StatementTimeout     time.Duration
	Extension            string
	QueueSize            int
	Concurrently         bool
	ValidateFirst        bool
	FailOnStatementError bool
	ReportPath           string
}

func (ExportMode) mode() {}
func (ImportMode) mode() {}

// ExportMode returns the export settings from the file.
func (c *Config) ExportMode() ExportMode {
	return ExportMode{
		Schema:    c.Export.Schema,
		Table:     c.Export.Table,
		OutputDir: c.Export.OutputDir,
	}
}

// ImportMode returns the import settings from the file.
func (c *Config) ImportMode() ImportMode {
	return ImportMode{
		InputDir:         c.Import.InputDir,
		Threads:          c.Import.Threads,
		TimeoutHours:     c.Import.TimeoutHours,
		StatementTimeout: c.Import.StatementTimeout.Duration,
		Extension:        c.Import.Extension,
		QueueSize:        c.Import.QueueSize,
		Concurrently:     c.Import.Concurrently,
	}
}

func (m ExportMode) Validate() error {
	var errs []error
	if strings.TrimSpace(m.Schema) == "" {
		errs = append(errs, errors.New("source schema is required (use '*' for all schemas)"))
	}
	if strings.TrimSpace(m.Table) == "" {
		errs = append(errs, errors.New("source table is required (use '*' for all tables)"))
	}
	if strings.TrimSpace(m.OutputDir) == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	return errors.Join(errs...)
}

func (m ImportMode) Validate() error {
	var errs []error
	if strings.TrimSpace(m.InputDir) == "" {
		errs = append(errs, errors.New("input directory is required"))
	}
	if m.Threads < MinThreads || m.Threads > MaxThreads {
		errs = append(errs, fmt.Errorf("threads must be between %d and %d, got %d", MinThreads, MaxThreads, m.Threads))
	}
	if m.TimeoutHours < MinTimeoutHours || m.TimeoutHours > MaxTimeoutHours {
		errs = append(errs, fmt.Errorf("timeout must be between %d and %d hours, got %d", MinTimeoutHours, MaxTimeoutHours, m.TimeoutHours))
	}
	if m.StatementTimeout < 0 {
		errs = append(errs, fmt.Errorf("statement timeout must not be negative, got %s", m.StatementTimeout))
	}
	if !strings.HasPrefix(m.Extension, ".") || len(m.Extension) < 2 {
		errs = append(errs, fmt.Errorf("extension must start with a dot, got %q", m.Extension))
	}
	if m.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("queue size must not be negative, got %d", m.QueueSize))
	}
	return errors.Join(errs...)
}

// AcquireTimeout is how long a worker may wait for a pooled connection.
func (m ImportMode) AcquireTimeout() time.Duration {
	return time.Duration(m.TimeoutHours) * time.Hour
}

// IsWildcard reports whether a schema or table filter selects everything.
func IsWildcard(filter string) bool {
	return strings.TrimSpace(filter) == Wildcard
}
