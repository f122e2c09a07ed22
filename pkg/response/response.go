package response

import (
	"errors"

	"github.com/fatflowers/gymdesk/pkg/apperr"
)

// APIResponseCode is the code field of the JSON envelope.
type APIResponseCode int

const (
	APIResponseCodeOK           APIResponseCode = 0
	APIResponseCodeBadRequest   APIResponseCode = 40000
	APIResponseCodeUnauthorized APIResponseCode = 40100
	APIResponseCodeForbidden    APIResponseCode = 40300
	APIResponseCodeNotFound     APIResponseCode = 40400
	APIResponseCodeConflict     APIResponseCode = 40900
	APIResponseCodeTooMany      APIResponseCode = 42900
	APIResponseCodeError        APIResponseCode = 50000
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:           "ok",
	APIResponseCodeBadRequest:   "invalid request",
	APIResponseCodeUnauthorized: "unauthorized",
	APIResponseCodeForbidden:    "forbidden",
	APIResponseCodeNotFound:     "not found",
	APIResponseCodeConflict:     "rejected",
	APIResponseCodeTooMany:      "too many requests",
	APIResponseCodeError:        "unexpected error",
}

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Code    APIResponseCode `json:"code"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: codeToMsg[APIResponseCodeOK], Data: data}
}

// ErrorT returns an error response with message and optional data.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: codeToMsg[code], Data: data}
}

// ErrorBody is the payload of a failed call.
type ErrorBody struct {
	Kind   apperr.Kind `json:"kind"`
	Reason string      `json:"reason"`
	Detail string      `json:"detail,omitempty"`
}

// CodeOf maps a classified error onto the envelope code.
func CodeOf(err error) APIResponseCode {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return APIResponseCodeBadRequest
	case apperr.KindUnauthorized:
		return APIResponseCodeUnauthorized
	case apperr.KindForbidden:
		return APIResponseCodeForbidden
	case apperr.KindDomain:
		if apperr.IsNotFound(err) {
			return APIResponseCodeNotFound
		}
		return APIResponseCodeConflict
	default:
		return APIResponseCodeError
	}
}

// FromError builds the error envelope for err. Store failures never leak
// their cause to the client.
func FromError(err error) *APIResponse[ErrorBody] {
	body := ErrorBody{Kind: apperr.KindStore, Reason: "store unavailable"}
	var e *apperr.Error
	if errors.As(err, &e) && e.Kind != apperr.KindStore {
		body = ErrorBody{Kind: e.Kind, Reason: e.Reason, Detail: e.Detail}
	}
	return ErrorT(CodeOf(err), body)
}
