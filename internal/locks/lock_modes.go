package locks

import "fmt"

// LockMode is a PostgreSQL table lock mode.
// See: https://www.postgresql.org/docs/current/explicit-locking.html
type LockMode int

const (
	// LockAccessShare is taken by SELECT. Conflicts only with ACCESS EXCLUSIVE.
	LockAccessShare LockMode = iota

	// LockShareUpdateExclusive is taken by CREATE INDEX CONCURRENTLY and
	// VALIDATE CONSTRAINT. Reads and writes continue.
	LockShareUpdateExclusive

	// LockShare is taken by a plain CREATE INDEX. Blocks writes, allows reads.
	LockShare

	// LockAccessExclusive is taken by most ALTER TABLE forms. Blocks everything.
	LockAccessExclusive
)

func (l LockMode) String() string {
	switch l {
	case LockAccessShare:
		return "ACCESS SHARE"
	case LockShareUpdateExclusive:
		return "SHARE UPDATE EXCLUSIVE"
	case LockShare:
		return "SHARE"
	case LockAccessExclusive:
		return "ACCESS EXCLUSIVE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// BlocksReads returns true if this lock mode blocks SELECT queries
func (l LockMode) BlocksReads() bool {
	return l == LockAccessExclusive
}

// BlocksWrites returns true if this lock mode blocks INSERT/UPDATE/DELETE
func (l LockMode) BlocksWrites() bool {
	return l >= LockShare
}

// Impact describes the lock a replayed statement takes on its table.
type Impact struct {
	Mode         LockMode
	BlocksReads  bool
	BlocksWrites bool
	Explanation  string
}
