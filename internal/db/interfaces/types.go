package interfaces

import "errors"

// Common database errors
var (
	ErrNotFound             = errors.New("record not found")
	ErrForeignKeyConstraint = errors.New("foreign key constraint violation")
	ErrDatabaseNotConnected = errors.New("database not connected")
)

// DatabaseError wraps backend-specific errors with the failing operation
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
