package replay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Describe renders a statement failure for operators, prefixing the
// SQLSTATE when the target driver exposes one.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		msg := fmt.Sprintf("SQLSTATE %s: %s", pqErr.Code, pqErr.Message)
		if pqErr.Detail != "" {
			msg += " (" + pqErr.Detail + ")"
		}
		if pqErr.Hint != "" {
			msg += " hint: " + pqErr.Hint
		}
		return msg
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		state := strings.TrimRight(string(myErr.SQLState[:]), "\x00")
		if state == "" {
			return fmt.Sprintf("error %d: %s", myErr.Number, myErr.Message)
		}
		return fmt.Sprintf("SQLSTATE %s (error %d): %s", state, myErr.Number, myErr.Message)
	}

	return err.Error()
}

// SQLState returns the five character SQLSTATE carried by err, if any.
func SQLState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return strings.TrimRight(string(myErr.SQLState[:]), "\x00")
	}
	return ""
}
