// Package errs classifies failures of the export and import pipelines.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the failure class used to decide whether a failure is fatal.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnectivity
	KindQuery
	KindFilesystem
	KindStatementExecution
	KindPoolTimeout
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindQuery:
		return "query"
	case KindFilesystem:
		return "filesystem"
	case KindStatementExecution:
		return "statement"
	case KindPoolTimeout:
		return "pool timeout"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Fatal reports whether a failure of this kind stops the whole run.
// Statement failures are recorded against a single item instead.
func (k Kind) Fatal() bool {
	return k != KindStatementExecution
}

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and operation. A nil err yields nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Connectivity wraps err as a connectivity failure.
func Connectivity(op string, err error) error { return E(KindConnectivity, op, err) }

// Query wraps err as a rejected metadata query.
func Query(op string, err error) error { return E(KindQuery, op, err) }

// Filesystem wraps err as a filesystem failure.
func Filesystem(op string, err error) error { return E(KindFilesystem, op, err) }

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
