package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"time"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// Checkout and delivery outcomes shown to the buyer.
	CodeNotServiceable     Code = "NOT_SERVICEABLE"
	CodeIneligibleOrder    Code = "INELIGIBLE_ORDER"
	CodePricingUnavailable Code = "PRICING_UNAVAILABLE"
	CodeSubmission         Code = "SUBMISSION_FAILED"
	CodeConfiguration      Code = "CONFIGURATION_ERROR"
)

// Metadata describes how a code is rendered over HTTP. ExposeMessage lets the
// error's own message replace PublicMessage in the response body.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	ExposeMessage  bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:         {http.StatusBadRequest, false, "validation failed", true, true},
	CodeNotFound:           {http.StatusNotFound, false, "resource not found", false, true},
	CodeConflict:           {http.StatusConflict, false, "conflict detected", false, true},
	CodeStateConflict:      {http.StatusUnprocessableEntity, false, "state transition disallowed", true, true},
	CodeIdempotency:        {http.StatusConflict, false, "idempotency key reused", false, true},
	CodeRateLimit:          {http.StatusTooManyRequests, true, "rate limit exceeded", true, true},
	CodeInternal:           {http.StatusInternalServerError, true, "internal server error", false, false},
	CodeDependency:         {http.StatusServiceUnavailable, true, "dependency unavailable", true, false},
	CodeNotServiceable:     {http.StatusUnprocessableEntity, false, "address is outside delivery coverage", true, true},
	CodeIneligibleOrder:    {http.StatusUnprocessableEntity, false, "order does not meet the zone minimum", true, true},
	CodePricingUnavailable: {http.StatusServiceUnavailable, true, "pricing temporarily unavailable", false, false},
	CodeSubmission:         {http.StatusBadGateway, true, "order could not be placed", true, true},
	CodeConfiguration:      {http.StatusInternalServerError, false, "delivery configuration error", false, false},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code       Code
	message    string
	details    any
	cause      error
	retryAfter time.Duration
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

// WithRetryAfter records how long a client should wait before retrying.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	if e != nil {
		e.retryAfter = d
	}
	return e
}

func (e *Error) RetryAfter() time.Duration {
	if e == nil {
		return 0
	}
	return e.retryAfter
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether the outermost typed error in err's chain has code.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// Retryable reports whether a client may repeat the call that produced err.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return MetadataFor(CodeOf(err)).Retryable
}
