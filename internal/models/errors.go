package models

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrFetch ErrorType = iota
	ErrVersionParse
	ErrCacheCorruption
	ErrInvalidConfig
	ErrFileOp
	ErrSigning
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrFetch:
		return "Fetch"
	case ErrVersionParse:
		return "VersionParse"
	case ErrCacheCorruption:
		return "CacheCorruption"
	case ErrInvalidConfig:
		return "InvalidConfig"
	case ErrFileOp:
		return "FileOp"
	case ErrSigning:
		return "Signing"
	default:
		return "Unknown"
	}
}

// BranchDiffError represents an error raised while comparing branches
type BranchDiffError struct {
	Type ErrorType
	// Branch or package the error is about, if any
	Subject string
	Err     error
}

// Error implements the error interface
func (e *BranchDiffError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Subject, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *BranchDiffError) Unwrap() error {
	return e.Err
}

// NewError builds a BranchDiffError of the given type
func NewError(t ErrorType, subject string, err error) *BranchDiffError {
	return &BranchDiffError{Type: t, Subject: subject, Err: err}
}

// IsType reports whether err, or any error it wraps, is a BranchDiffError of type t
func IsType(err error, t ErrorType) bool {
	var bdErr *BranchDiffError
	for err != nil {
		if !errors.As(err, &bdErr) {
			return false
		}
		if bdErr.Type == t {
			return true
		}
		err = bdErr.Err
	}
	return false
}
