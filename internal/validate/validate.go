// Package validate checks statement files with the PostgreSQL parser before
// they are replayed.
package validate

import (
	"errors"
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/pganalyze/pg_query_go/v6/parser"

	"github.com/pgindex/pgindex/internal/collect"
	"github.com/pgindex/pgindex/internal/locks"
)

// Severity levels
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Issue codes
const (
	CodeSyntax       = "syntax_error"
	CodeEmpty        = "empty_file"
	CodeNotIndexDDL  = "not_index_ddl"
	CodeTransaction  = "transaction_control"
	CodeMultipleStmt = "multiple_statements"
	CodeBlockingLock = "blocking_lock"
)

// Issue is one problem found in a statement file.
type Issue struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", i.File, i.Line, i.Column, strings.ToUpper(i.Severity), i.Message)
}

// Result holds every issue found across a set of files.
type Result struct {
	Files  int     `json:"files"`
	Issues []Issue `json:"issues"`
}

// Valid reports whether no error-level issue was found.
func (r Result) Valid() bool {
	return r.Errors() == 0
}

// Errors counts error-level issues.
func (r Result) Errors() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Statements parses every file. Files are never modified.
func Statements(files []collect.File) Result {
	res := Result{Files: len(files)}
	for _, f := range files {
		res.Issues = append(res.Issues, File(f.Path, f.Content)...)
	}
	return res
}

// File checks the content of a single statement file.
func File(path, content string) []Issue {
	if strings.TrimSpace(content) == "" {
		return []Issue{{File: path, Line: 1, Column: 1, Severity: SeverityWarning, Message: "file contains no statement", Code: CodeEmpty}}
	}

	tree, err := pg_query.Parse(content)
	if err != nil {
		return []Issue{syntaxIssue(path, content, err)}
	}

	if len(tree.Stmts) == 0 {
		return []Issue{{File: path, Line: 1, Column: 1, Severity: SeverityWarning, Message: "file contains only comments", Code: CodeEmpty}}
	}

	var issues []Issue
	if len(tree.Stmts) > 1 {
		issues = append(issues, Issue{
			File:     path,
			Line:     1,
			Column:   1,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("file contains %d statements; they are sent to the target as one batch", len(tree.Stmts)),
			Code:     CodeMultipleStmt,
		})
	}

	for _, raw := range tree.Stmts {
		line, col := findPositionFromOffset(content, int(raw.StmtLocation))
		switch n := raw.Stmt.Node.(type) {
		case *pg_query.Node_IndexStmt, *pg_query.Node_AlterTableStmt, *pg_query.Node_CommentStmt:
		case *pg_query.Node_TransactionStmt:
			issues = append(issues, Issue{
				File:     path,
				Line:     line,
				Column:   col,
				Severity: SeverityError,
				Message:  "transaction control is not allowed; each file is applied on its own",
				Code:     CodeTransaction,
			})
		default:
			issues = append(issues, Issue{
				File:     path,
				Line:     line,
				Column:   col,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("%s is not an index or constraint statement", nodeName(n)),
				Code:     CodeNotIndexDDL,
			})
		}
	}
	return issues
}

// Locks reports, as info-level issues, every statement that blocks writes
// to its table while it runs on a PostgreSQL target. Files that do not parse
// are skipped; Statements reports those.
func Locks(files []collect.File) []Issue {
	var issues []Issue
	for _, f := range files {
		stmts, err := pg_query.SplitWithParser(f.Content, true)
		if err != nil {
			continue
		}
		offset := 0
		for _, stmt := range stmts {
			pos := strings.Index(f.Content[offset:], stmt)
			if pos >= 0 {
				pos += offset
				offset = pos + len(stmt)
			} else {
				pos = 0
			}

			impact := locks.Analyze(stmt)
			if !impact.BlocksWrites {
				continue
			}
			line, col := findPositionFromOffset(f.Content, pos)
			msg := fmt.Sprintf("takes %s lock: %s", impact.Mode, impact.Explanation)
			if _, ok := locks.Concurrently(stmt); ok {
				msg += " (import --concurrently builds it without blocking writes)"
			}
			issues = append(issues, Issue{
				File:     f.Path,
				Line:     line,
				Column:   col,
				Severity: SeverityInfo,
				Message:  msg,
				Code:     CodeBlockingLock,
			})
		}
	}
	return issues
}

func syntaxIssue(path, content string, err error) Issue {
	issue := Issue{
		File:     path,
		Line:     1,
		Column:   1,
		Severity: SeverityError,
		Message:  strings.TrimPrefix(err.Error(), "failed to parse SQL: "),
		Code:     CodeSyntax,
	}

	var perr *parser.Error
	if errors.As(err, &perr) {
		issue.Message = perr.Message
		if perr.Cursorpos > 0 {
			issue.Line, issue.Column = findPositionFromOffset(content, perr.Cursorpos-1)
		}
	}
	return issue
}

// nodeName turns *pg_query.Node_CreateStmt into "CreateStmt".
func nodeName(n any) string {
	name := fmt.Sprintf("%T", n)
	name = strings.TrimPrefix(name, "*pg_query.Node_")
	if name == "" || name == "<nil>" {
		return "statement"
	}
	return name
}

// findPositionFromOffset converts a byte offset into a 1-based line and column.
func findPositionFromOffset(content string, offset int) (int, int) {
	if offset < 0 || offset >= len(content) {
		return 1, 1
	}

	line := 1
	col := 1
	for i := 0; i < offset; i++ {
		if content[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
