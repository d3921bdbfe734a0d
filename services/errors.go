package services

import (
	"errors"
	"fmt"
)

// Batch-fatal failure classes. Structural errors mean the file itself is
// unusable; referential errors mean the upload names configuration that does
// not exist or is inactive. In both cases the batch pass stops before any
// record is written.
var (
	ErrTemplateNotFound   = errors.New("no active field mapping template")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrEmptyFile          = errors.New("file has no header row or no data rows")
	ErrFileRead           = errors.New("file could not be fetched or parsed")
	ErrExtraHeaders       = errors.New("file has more columns than the template defines")
	ErrUnexpectedHeader   = errors.New("header does not match any template field")
	ErrMissingHeader      = errors.New("required template field has no column")
	ErrMissingAccountCol  = errors.New("loan account number column is missing")
	ErrDuplicateAccounts  = errors.New("duplicate loan account numbers in file")
	ErrInconsistentPseudo = errors.New("process/product column carries more than one value")
	ErrUnknownAccount     = errors.New("loan account number not part of this batch")
	ErrUnknownCycle       = errors.New("unknown monthly cycle")
	ErrBatchNotFound      = errors.New("allocation batch not found")
)

// BatchInputError wraps a batch-fatal sentinel with the payload or header
// key the failure refers to, so callers can point at the offending input.
type BatchInputError struct {
	Key     string
	Message string
	err     error
}

func (e *BatchInputError) Error() string { return e.Message }

func (e *BatchInputError) Unwrap() error { return e.err }

// InputKey returns the key of the offending input if err is a
// BatchInputError, or "" otherwise.
func InputKey(err error) string {
	var be *BatchInputError
	if errors.As(err, &be) {
		return be.Key
	}
	return ""
}

func inputErr(sentinel error, key, format string, args ...any) *BatchInputError {
	return &BatchInputError{
		Key:     key,
		Message: fmt.Sprintf(format, args...),
		err:     sentinel,
	}
}
