// Package locks estimates the table lock an index statement takes on a
// PostgreSQL target and rewrites plain index builds to their non-blocking
// form.
package locks

import (
	"strings"
)

// Detect returns the lock mode stmt acquires on its table.
func Detect(stmt string) LockMode {
	upper := normalize(stmt)
	if upper == "" {
		return LockAccessShare
	}

	switch {
	case isCreateIndex(upper):
		if strings.Contains(upper, "CONCURRENTLY") {
			return LockShareUpdateExclusive
		}
		return LockShare
	case strings.HasPrefix(upper, "ALTER TABLE"):
		if strings.Contains(upper, "VALIDATE CONSTRAINT") {
			return LockShareUpdateExclusive
		}
		return LockAccessExclusive
	case strings.HasPrefix(upper, "DROP INDEX"):
		if strings.Contains(upper, "CONCURRENTLY") {
			return LockShareUpdateExclusive
		}
		return LockAccessExclusive
	case strings.HasPrefix(upper, "COMMENT ON"):
		return LockShareUpdateExclusive
	case strings.HasPrefix(upper, "SELECT"):
		return LockAccessShare
	}

	// unknown statements are assumed to take the strongest lock
	return LockAccessExclusive
}

// Analyze returns the lock impact of stmt.
func Analyze(stmt string) Impact {
	mode := Detect(stmt)
	return Impact{
		Mode:         mode,
		BlocksReads:  mode.BlocksReads(),
		BlocksWrites: mode.BlocksWrites(),
		Explanation:  explain(normalize(stmt), mode),
	}
}

func explain(upper string, mode LockMode) string {
	switch mode {
	case LockAccessExclusive:
		if strings.Contains(upper, "PRIMARY KEY") || strings.Contains(upper, "UNIQUE") {
			return "ADD CONSTRAINT builds its index under ACCESS EXCLUSIVE, blocking reads and writes"
		}
		if strings.HasPrefix(upper, "ALTER TABLE") {
			return "ALTER TABLE requires exclusive access to the table"
		}
		return "This statement requires exclusive table access"
	case LockShare:
		return "CREATE INDEX requires SHARE lock, blocking writes during index build"
	case LockShareUpdateExclusive:
		return "This statement allows concurrent reads and writes"
	default:
		return "Read-only statement"
	}
}

func isCreateIndex(upper string) bool {
	return strings.HasPrefix(upper, "CREATE INDEX") || strings.HasPrefix(upper, "CREATE UNIQUE INDEX")
}

// normalize drops leading line comments and blank lines, collapses runs of
// whitespace and upper-cases the rest.
func normalize(stmt string) string {
	lines := strings.Split(stmt, "\n")
	for len(lines) > 0 {
		l := strings.TrimSpace(lines[0])
		if l != "" && !strings.HasPrefix(l, "--") {
			break
		}
		lines = lines[1:]
	}
	return strings.ToUpper(strings.Join(strings.Fields(strings.Join(lines, " ")), " "))
}
