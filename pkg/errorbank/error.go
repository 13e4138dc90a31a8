// Package errorbank defines the error taxonomy shared by every transport.
// Services return *AppError values; handlers translate them into HTTP or
// gRPC responses without inspecting message text.
package errorbank

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Kind names an error category. The kind, not the message, decides the
// wire representation.
type Kind string

const (
	KindBadRequest          Kind = "bad_request"
	KindConflict            Kind = "conflict"
	KindNotFound            Kind = "not_found"
	KindUnprocessableEntity Kind = "unprocessable_entity"
	KindUnavailable         Kind = "unavailable"
	KindInternal            Kind = "internal"
)

var httpStatusByKind = map[Kind]int{
	KindBadRequest:          http.StatusBadRequest,
	KindConflict:            http.StatusConflict,
	KindNotFound:            http.StatusNotFound,
	KindUnprocessableEntity: http.StatusUnprocessableEntity,
	KindUnavailable:         http.StatusBadGateway,
	KindInternal:            http.StatusInternalServerError,
}

var grpcCodeByKind = map[Kind]codes.Code{
	KindBadRequest:          codes.InvalidArgument,
	KindConflict:            codes.AlreadyExists,
	KindNotFound:            codes.NotFound,
	KindUnprocessableEntity: codes.FailedPrecondition,
	KindUnavailable:         codes.Unavailable,
	KindInternal:            codes.Internal,
}

// AppError is the canonical application error. Fields stay unexported so
// callers go through the constructors and the kind mapping stays closed.
type AppError struct {
	kind    Kind
	message string
	details map[string]any
	cause   error
}

// Option customises an AppError at construction time.
type Option func(*AppError)

// WithCause records the underlying error for errors.Is/errors.As chains.
func WithCause(err error) Option {
	return func(e *AppError) { e.cause = err }
}

// WithDetail attaches one named value to the error payload.
func WithDetail(key string, value any) Option {
	return WithDetails(map[string]any{key: value})
}

// WithDetails merges the given values into the error payload.
func WithDetails(details map[string]any) Option {
	return func(e *AppError) {
		if len(details) == 0 {
			return
		}
		if e.details == nil {
			e.details = make(map[string]any, len(details))
		}
		for k, v := range details {
			e.details[k] = v
		}
	}
}

// New builds an AppError of the given kind. An empty message falls back
// to the kind name.
func New(kind Kind, message string, opts ...Option) *AppError {
	e := &AppError{kind: kind, message: message}
	if e.message == "" {
		e.message = string(kind)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.cause)
}

// Unwrap exposes the cause so errors.Is can see through the AppError.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Kind reports the error category; a nil receiver counts as internal.
func (e *AppError) Kind() Kind {
	if e == nil {
		return KindInternal
	}
	return e.kind
}

// Message returns the operator-facing description.
func (e *AppError) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Details returns structured context for the response body, or nil.
func (e *AppError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return e.details
}

// StatusCode maps the kind onto an HTTP status. Unknown kinds degrade
// to 500 rather than leaking as 200s.
func (e *AppError) StatusCode() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	if status, ok := httpStatusByKind[e.kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// GRPCCode maps the kind onto a gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if e == nil {
		return codes.Internal
	}
	if code, ok := grpcCodeByKind[e.kind]; ok {
		return code
	}
	return codes.Internal
}

// BadRequest flags malformed or missing client input.
func BadRequest(message string, opts ...Option) *AppError {
	return New(KindBadRequest, message, opts...)
}

// Conflict flags a state collision, such as a duplicate unique key.
func Conflict(message string, opts ...Option) *AppError {
	return New(KindConflict, message, opts...)
}

// NotFound flags a missing resource.
func NotFound(message string, opts ...Option) *AppError {
	return New(KindNotFound, message, opts...)
}

// Unprocessable flags input that parsed but failed domain validation.
func Unprocessable(message string, opts ...Option) *AppError {
	return New(KindUnprocessableEntity, message, opts...)
}

// Unavailable flags a failing upstream dependency. Callers receiving
// this kind are expected to retry.
func Unavailable(message string, opts ...Option) *AppError {
	return New(KindUnavailable, message, opts...)
}

// Internal flags an unexpected fault. The message should stay generic;
// the cause carries the specifics for the log.
func Internal(message string, opts ...Option) *AppError {
	return New(KindInternal, message, opts...)
}

// From coerces any error into an *AppError, wrapping foreign values as
// internal so unclassified failures never surface raw.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal error", WithCause(err))
}
