package engine

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/apembroke/switchboard/pkg/storage"
)

// ErrNoMatch reports that no endpoint definition matches a request. It is a
// control-flow signal rather than a client-visible failure: the engine hands
// the request to its fallback handler when Resolve returns it.
var ErrNoMatch = errors.New("no matching endpoint definition")

// Kind classifies an execution failure. Each kind maps to exactly one HTTP
// status code so handlers never pick statuses ad hoc.
type Kind string

const (
	KindValidationFailed      Kind = "validation_failed"
	KindMissingIdentifier     Kind = "missing_identifier"
	KindInvalidCollectionName Kind = "invalid_collection_name"
	KindAlreadyExists         Kind = "already_exists"
	KindAuthRequired          Kind = "auth_required"
	KindAuthInvalid           Kind = "auth_invalid"
	KindInvalidCredentials    Kind = "invalid_credentials"
	KindNotFound              Kind = "not_found"
	KindMethodNotAllowed      Kind = "method_not_allowed"
	KindConfiguration         Kind = "configuration_error"
	KindInternal              Kind = "internal_error"
)

// HTTPStatus returns the status code for the kind. Unknown kinds are treated
// as internal errors.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidationFailed, KindMissingIdentifier, KindInvalidCollectionName, KindAlreadyExists:
		return http.StatusBadRequest
	case KindAuthRequired, KindAuthInvalid, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindConfiguration, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is an execution failure with a client-safe message. Details carries
// per-field validation messages when the kind is KindValidationFailed.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// classifyStorageError maps storage-layer sentinel errors onto the engine
// taxonomy so executors never leak raw backend errors to clients.
func classifyStorageError(err error, notFoundMessage string) *Error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return newError(KindNotFound, notFoundMessage)
	case errors.Is(err, storage.ErrAlreadyExists):
		return newError(KindAlreadyExists, "resource already exists")
	case errors.Is(err, storage.ErrInvalidCollectionName):
		return wrapError(KindInvalidCollectionName, "invalid collection name", err)
	case errors.Is(err, storage.ErrInvalidDocumentID):
		return wrapError(KindValidationFailed, "invalid record identifier", err)
	default:
		return wrapError(KindInternal, "storage operation failed", err)
	}
}
