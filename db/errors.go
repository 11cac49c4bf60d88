package db

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrNotAvailable    = errors.New("asset not available")
	ErrAssetNotFound   = errors.New("asset does not exist")
	ErrAlreadyBorrowed = errors.New("asset already borrowed")
	ErrNotBorrowed     = errors.New("asset is not borrowed")
	ErrUnauthenticated = errors.New("login required")
)

// ValidationError lists the required fields that were missing or invalid.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid or missing fields: " + strings.Join(e.Fields, ", ")
}

// InvalidDateError is returned when a borrow date is not YYYY-MM-DD.
type InvalidDateError struct {
	Input string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", e.Input)
}

// StorageError wraps an unexpected database failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// notAvailable keeps the generic kind while exposing the concrete cause.
func notAvailable(cause error) error {
	return fmt.Errorf("%w: %w", ErrNotAvailable, cause)
}

// returnNotFound is what a return on a missing or available asset reports.
func returnNotFound(cause error) error {
	return fmt.Errorf("%w: %w", ErrNotFound, cause)
}
