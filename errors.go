package mapgraph

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a signature id is unknown to the graph.
	ErrNotFound = errors.New("signature not found")

	// ErrNoArchive is returned by archival operations when no archive store
	// is configured.
	ErrNoArchive = errors.New("no archive store configured")
)

// ErrDuplicateID indicates an attempt to register a signature under an id
// the graph already holds.
type ErrDuplicateID struct {
	ID int
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("duplicate signature id: %d", e.ID)
}

// ErrBadRecord indicates an archived record that could not be decoded.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrBadRecord struct {
	Name  string
	cause error
}

func (e *ErrBadRecord) Error() string {
	return fmt.Sprintf("bad archive record %q: %v", e.Name, e.cause)
}

func (e *ErrBadRecord) Unwrap() error { return e.cause }
