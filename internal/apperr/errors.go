// Package apperr defines the closed set of failure kinds the asset service
// reports to its transports.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport boundary.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindStorage
	KindUpstreamStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	case KindUpstreamStore:
		return "upstream_store"
	default:
		return "unknown"
	}
}

// Subject tells which half of an asset is missing.
type Subject string

const (
	SubjectRecord Subject = "record"
	SubjectBlob   Subject = "blob"
)

// Validation codes.
const (
	CodeFileRequired     = "FILE_REQUIRED"
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidFileType  = "INVALID_FILE_TYPE"
	CodeInvalidTags      = "INVALID_TAGS"
	CodeInvalidTypeQuery = "INVALID_TYPE_FILTER"
	CodeInvalidDate      = "INVALID_DATE"
	CodeInvalidID        = "INVALID_ID"
)

// ValidationError reports client input that is malformed or out of policy.
type ValidationError struct {
	Code    string
	Message string
	Details map[string]any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Code, e.Message)
}

// NewValidation builds a ValidationError. details may be nil.
func NewValidation(code, message string, details map[string]any) *ValidationError {
	return &ValidationError{Code: code, Message: message, Details: details}
}

// NotFoundError reports a missing record, or a missing blob behind an existing record.
type NotFoundError struct {
	Subject Subject
	ID      string
}

func (e *NotFoundError) Error() string {
	if e.Subject == SubjectBlob {
		return fmt.Sprintf("file for asset %s not found", e.ID)
	}
	return fmt.Sprintf("asset %s not found", e.ID)
}

// StorageError reports a blob store failure not explained by absence.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// UpstreamStoreError reports a metadata store validation or constraint failure.
type UpstreamStoreError struct {
	Op  string
	Err error
}

func (e *UpstreamStoreError) Error() string {
	return fmt.Sprintf("metadata store rejected %s: %v", e.Op, e.Err)
}

func (e *UpstreamStoreError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var (
		ve *ValidationError
		ne *NotFoundError
		se *StorageError
		ue *UpstreamStoreError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ne):
		return KindNotFound
	case errors.As(err, &se):
		return KindStorage
	case errors.As(err, &ue):
		return KindUpstreamStore
	default:
		return KindUnknown
	}
}
