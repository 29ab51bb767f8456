package errors

import (
	stderrors "errors"
	"fmt"
)

type Category string

const (
	CategoryInvalidInput     Category = "invalid_input"
	CategoryVerification     Category = "verification_failed"
	CategoryNotFound         Category = "not_found"
	CategoryConflict         Category = "conflict"
	CategoryIOFailure        Category = "io_failure"
	CategoryStateContention  Category = "state_contention"
	CategoryNetworkTransient Category = "network_transient"
	CategoryNetworkPermanent Category = "network_permanent"
	CategoryCancelled        Category = "cancelled"
	CategoryInternalFailure  Category = "internal_failure"
)

// Error kinds. Match with errors.Is.
var (
	ErrTransferFailed     = stderrors.New("transfer failed")
	ErrTransferTimeout    = stderrors.New("download timeout")
	ErrTransferCancelled  = stderrors.New("download cancelled")
	ErrIntegrityMismatch  = stderrors.New("integrity mismatch")
	ErrTooManyRedirects   = stderrors.New("too many redirects")
	ErrManifestNotFound   = stderrors.New("manifest not found")
	ErrWorkspaceNotFound  = stderrors.New("workspace not found")
	ErrAlreadyExists      = stderrors.New("already exists")
	ErrCatalogUnavailable = stderrors.New("catalog unavailable")
	ErrStateContention    = stderrors.New("directory is locked by another operation")
)

type classifiedError struct {
	category  Category
	code      string
	hint      string
	retryable bool
	cause     error
}

func (e *classifiedError) Error() string {
	if e.cause == nil {
		return "unknown error"
	}
	return e.cause.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

func Wrap(cause error, category Category, code, hint string, retryable bool) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{
		category:  category,
		code:      code,
		hint:      hint,
		retryable: retryable,
		cause:     cause,
	}
}

// Kind wraps a sentinel with a formatted detail message, keeping errors.Is
// working against the sentinel.
func Kind(kind error, category Category, format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)
	return Wrap(fmt.Errorf("%w: %s", kind, detail), category, codeFor(kind), "", category == CategoryNetworkTransient)
}

func CategoryOf(err error) Category {
	var classified *classifiedError
	if stderrors.As(err, &classified) {
		return classified.category
	}
	return ""
}

func CodeOf(err error) string {
	var classified *classifiedError
	if stderrors.As(err, &classified) {
		return classified.code
	}
	return ""
}

func HintOf(err error) string {
	var classified *classifiedError
	if stderrors.As(err, &classified) {
		return classified.hint
	}
	return ""
}

func RetryableOf(err error) bool {
	var classified *classifiedError
	if stderrors.As(err, &classified) {
		return classified.retryable
	}
	return false
}

// StatusError is a non-success HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Failed to download: HTTP %d", e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrTransferFailed
}

// MismatchError reports a digest that differs from the declared one.
type MismatchError struct {
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("Hash mismatch: expected %s, got %s", e.Expected, e.Actual)
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrIntegrityMismatch
}

// StatusCodeOf returns the HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	var statusErr *StatusError
	if stderrors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func codeFor(kind error) string {
	switch kind {
	case ErrTransferFailed:
		return "transfer_failed"
	case ErrTransferTimeout:
		return "transfer_timeout"
	case ErrTransferCancelled:
		return "transfer_cancelled"
	case ErrIntegrityMismatch:
		return "integrity_mismatch"
	case ErrTooManyRedirects:
		return "too_many_redirects"
	case ErrManifestNotFound:
		return "manifest_not_found"
	case ErrWorkspaceNotFound:
		return "workspace_not_found"
	case ErrAlreadyExists:
		return "already_exists"
	case ErrCatalogUnavailable:
		return "catalog_unavailable"
	case ErrStateContention:
		return "state_contention"
	default:
		return "internal_failure"
	}
}
