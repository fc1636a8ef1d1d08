package models

import (
	"errors"
	"fmt"
)

// ErrInvalidProduct is returned when a product cannot be keyed by a positive productId.
var ErrInvalidProduct = errors.New("product has no valid productId")

// ErrBodyTooLarge means a fetched document exceeded the size limit.
var ErrBodyTooLarge = errors.New("response body too large")

// FetchError means the source page could not be retrieved.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Temporary reports whether another attempt may succeed.
func (e *FetchError) Temporary() bool {
	if errors.Is(e.Err, ErrBodyTooLarge) {
		return false
	}
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// ParseError means an expected structural element is missing from a document.
type ParseError struct {
	Source string
	Field  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: missing %s", e.Source, e.Field)
}

// UnknownGradeError means a verbal grade is outside the known vocabulary.
type UnknownGradeError struct {
	Grade string
}

func (e *UnknownGradeError) Error() string {
	return fmt.Sprintf("unknown grade %q", e.Grade)
}

// NotFoundError means a delete or update target does not exist.
type NotFoundError struct {
	Kind string
	ID   string
	// Where, when set, names the place the lookup happened (e.g. the source catalog).
	Where string
}

func (e *NotFoundError) Error() string {
	if e.Where != "" {
		return fmt.Sprintf("%s with Id: %s was not found in %s", e.Kind, e.ID, e.Where)
	}
	return fmt.Sprintf("%s with Id: %s was not found", e.Kind, e.ID)
}

// PersistenceError wraps a storage failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ErrorMessage renders err the way batch envelopes and HTTP responses show it.
func ErrorMessage(err error) string {
	return "An error has occured: " + err.Error()
}
