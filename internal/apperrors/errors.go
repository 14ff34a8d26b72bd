package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so the HTTP layer can map it to a status code
// without inspecting messages.
type Kind string

const (
	KindValidation             Kind = "validation"
	KindNotFound               Kind = "not_found"
	KindShapeNotFound          Kind = "shape_not_found"
	KindInsufficientQuantity   Kind = "insufficient_quantity"
	KindAlreadySold            Kind = "already_sold"
	KindAlreadyCancelled       Kind = "already_cancelled"
	KindItemDeleted            Kind = "item_deleted"
	KindReferentialIntegrity   Kind = "referential_integrity_violation"
	KindConcurrentModification Kind = "concurrent_modification"
	KindConflict               Kind = "conflict"
	KindUnauthorized           Kind = "unauthorized"
	KindForbidden              Kind = "forbidden"
	KindInfrastructure         Kind = "infrastructure"
)

// Error is the structured failure returned by services and repositories.
type Error struct {
	Kind    Kind                   `json:"kind"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithDetail attaches a key/value pair shown to the caller.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Wrap turns an unexpected error into an infrastructure error. Typed errors
// pass through unchanged.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: KindInfrastructure, Message: message, Err: err}
}

// KindOf reports the kind of err, defaulting to infrastructure for untyped errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInfrastructure
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to the response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindShapeNotFound, KindInsufficientQuantity:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadySold, KindAlreadyCancelled, KindItemDeleted,
		KindReferentialIntegrity, KindConcurrentModification, KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the error as it may be shown to a client. Infrastructure
// failures are replaced by a generic message.
func Public(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInfrastructure {
		return appErr
	}
	return &Error{Kind: KindInfrastructure, Message: "temporary failure, please retry later"}
}

// Constructors for the domain kinds.

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func NotFound(entity string) *Error {
	return Newf(KindNotFound, "%s not found", entity)
}

func ShapeNotFound(shape string) *Error {
	if shape == "" {
		return New(KindShapeNotFound, "a shape name is required for mix items").WithDetail("shape", shape)
	}
	return Newf(KindShapeNotFound, "shape %q not found on this item", shape).WithDetail("shape", shape)
}

func InsufficientQuantity(shape string, requestedPieces, availablePieces uint, requestedWeight, availableWeight string) *Error {
	label := shape
	if label == "" {
		label = "item"
	}
	return Newf(KindInsufficientQuantity,
		"insufficient quantity for %s: requested %d pcs / %s, available %d pcs / %s",
		label, requestedPieces, requestedWeight, availablePieces, availableWeight).
		WithDetail("shape", shape).
		WithDetail("requested", map[string]interface{}{"pieces": requestedPieces, "weight": requestedWeight}).
		WithDetail("available", map[string]interface{}{"pieces": availablePieces, "weight": availableWeight})
}

func AlreadySold(message string) *Error {
	return New(KindAlreadySold, message)
}

func AlreadyCancelled() *Error {
	return New(KindAlreadyCancelled, "sale has already been cancelled")
}

func ItemDeleted() *Error {
	return New(KindItemDeleted, "inventory item is in the recycle bin")
}

func ReferentialIntegrity(message string) *Error {
	return New(KindReferentialIntegrity, message)
}

func ConcurrentModification() *Error {
	return New(KindConcurrentModification, "record was modified concurrently, please retry")
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// InternalConsistency flags a broken invariant. It is reported as an
// infrastructure failure so callers never see it as a business rule.
func InternalConsistency(message string) *Error {
	return &Error{Kind: KindInfrastructure, Message: "internal consistency violation", Err: errors.New(message)}
}
