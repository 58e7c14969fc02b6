package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
)

// Op names used for error context.
const (
	OpBegin   = "BEGIN"
	OpTune    = "SET hnsw.ef_search"
	OpSearch  = "SELECT candidates"
	OpScan    = "SCAN candidates"
	OpCommit  = "COMMIT"
	OpPing    = "PING"
	OpGet     = "GET"
	OpSet     = "SET"
	OpConnect = "CONNECT"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
