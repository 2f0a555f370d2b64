package rowstore

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrMissingID     = errors.New("rowstore: must provide id")
	ErrMissingName   = errors.New("rowstore: must provide id and name to put row")
	ErrCaching       = errors.New("rowstore: cannot put row when caching")
	ErrNotCached     = errors.New("not found in cache")
	ErrNoSchema      = errors.New("rowstore: no column headers")
	ErrUnknownColumn = errors.New("rowstore: invalid column header")
	ErrRowLength     = errors.New("rowstore: incorrect number of row values")
	ErrConflict      = errors.New("rowstore: timestamp mismatch")
	ErrNoResponse    = errors.New("rowstore: empty response")
)

// SchemaError reports a column name that is not declared in the sheet headers.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%v: %v", ErrUnknownColumn, e.Column)
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrUnknownColumn
}

// ConflictError is returned when a response reports a previous row timestamp that does not match the
// last timestamp recorded for the row, i.e. the row was modified by another session.
type ConflictError struct {
	Expected float64
	Received float64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("Timestamp mismatch; expected %v but received %v. Conflicting modifications from another active browser session?",
		timestamp(e.Expected), timestamp(e.Received))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ServerError is an application error reported by the remote store, optionally combined with a
// local transport error.
type ServerError struct {
	Local  string
	Remote string
}

func (e *ServerError) Error() string {
	if e.Local != "" {
		return e.Local + ";" + e.Remote
	}

	return e.Remote
}

func timestamp(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}
