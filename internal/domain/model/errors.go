package model

import (
	"errors"
	"strings"
)

var (
	ErrMissingOrMalformedField = errors.New("missing or malformed field")
	ErrInvalidField            = errors.New("invalid field")
	ErrStorageUnavailable      = errors.New("storage unavailable")
	ErrUnsupportedOperation    = errors.New("unsupported operation")
)

type ViolationCode string

const (
	CodeMissingOrMalformed ViolationCode = "missing_or_malformed"
	CodeInvalid            ViolationCode = "invalid"
)

// Violation describes why a single field was rejected.
type Violation struct {
	Field   string        `json:"field"`
	Code    ViolationCode `json:"code"`
	Message string        `json:"message"`
}

func (v Violation) Err() error {
	if v.Code == CodeMissingOrMalformed {
		return ErrMissingOrMalformedField
	}
	return ErrInvalidField
}

// ValidationError carries every field violation found in one submission,
// in field order. It matches ErrMissingOrMalformedField and ErrInvalidField
// through errors.Is.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, 2)
	seen := make(map[error]bool, 2)
	for _, v := range e.Violations {
		err := v.Err()
		if !seen[err] {
			seen[err] = true
			errs = append(errs, err)
		}
	}
	return errs
}
