package locks

import (
	"regexp"
	"strings"
)

var createIndexPrefix = regexp.MustCompile(`(?is)^((?:\s*--[^\n]*\n)*\s*CREATE\s+(?:UNIQUE\s+)?INDEX)\s+`)

// Concurrently rewrites a plain CREATE [UNIQUE] INDEX into CREATE [UNIQUE]
// INDEX CONCURRENTLY, preserving the original case and any leading comments.
// It reports false and returns stmt unchanged for anything else.
//
// A concurrent build cannot run inside a transaction block and leaves an
// INVALID index behind when it fails.
func Concurrently(stmt string) (string, bool) {
	upper := normalize(stmt)
	if !isCreateIndex(upper) || strings.Contains(upper, "CONCURRENTLY") {
		return stmt, false
	}
	if !createIndexPrefix.MatchString(stmt) {
		return stmt, false
	}
	return createIndexPrefix.ReplaceAllString(stmt, "$1 CONCURRENTLY "), true
}
