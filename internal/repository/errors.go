package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a record that may exist only once already exists.
var ErrDuplicate = errors.New("record already exists")

// ErrGalaLocked and ErrSubmitted are returned when a note write is refused
// because the gala closed for the judge.
var (
	ErrGalaLocked = errors.New("gala is locked")
	ErrSubmitted  = errors.New("evaluations already submitted")
)

// ErrInvalidTable is returned when attempting to clear a table that is not whitelisted.
// This prevents SQL injection attacks.
var ErrInvalidTable = errors.New("invalid table name")
