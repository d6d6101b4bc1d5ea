package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeEmptyCart          Code = "EMPTY_CART"
	CodeProductUnavailable Code = "PRODUCT_UNAVAILABLE"
	CodeInsufficientStock  Code = "INSUFFICIENT_STOCK"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeCheckoutFailed     Code = "CHECKOUT_FAILED"
	CodeIdempotency        Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit          Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeDependency         Code = "DEPENDENCY_ERROR"
)

// Metadata drives how a code is rendered over HTTP. DetailsAllowed gates
// whether structured details reach the client.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:         {http.StatusBadRequest, false, "validation failed", true},
	CodeUnauthorized:       {http.StatusUnauthorized, false, "authentication required", false},
	CodeForbidden:          {http.StatusForbidden, false, "access denied", false},
	CodeNotFound:           {http.StatusNotFound, false, "resource not found", false},
	CodeConflict:           {http.StatusConflict, false, "conflict detected", false},
	CodeEmptyCart:          {http.StatusBadRequest, false, "cart is empty", true},
	CodeProductUnavailable: {http.StatusUnprocessableEntity, false, "product unavailable", true},
	CodeInsufficientStock:  {http.StatusUnprocessableEntity, false, "insufficient stock", true},
	CodeInvalidTransition:  {http.StatusUnprocessableEntity, false, "status transition disallowed", true},
	CodeCheckoutFailed:     {http.StatusUnprocessableEntity, true, "checkout failed", true},
	CodeIdempotency:        {http.StatusConflict, false, "idempotency key reused", true},
	CodeRateLimit:          {http.StatusTooManyRequests, false, "rate limit exceeded", false},
	CodeInternal:           {http.StatusInternalServerError, true, "internal server error", false},
	CodeDependency:         {http.StatusServiceUnavailable, true, "dependency unavailable", true},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
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
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
