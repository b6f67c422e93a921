package capi

import "net/http"

// Kind classifies normalizer and submission failures. Each kind has a fixed
// client-facing HTTP status; upstream failures carry the vendor's status
// instead (see UpstreamError).
type Kind int

const (
	KindMalformedJSON Kind = iota
	KindMissingIdentifier
	KindInsufficientIdentifiers
	KindPaymentNotSucceeded
	KindSessionNotFound
	KindServerMisconfiguration
	KindUpstreamSubmissionFailed
	KindUnexpected
)

// HTTPStatus maps an error kind to the status returned to the caller.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindMalformedJSON, KindMissingIdentifier, KindInsufficientIdentifiers, KindPaymentNotSucceeded:
		return http.StatusBadRequest
	case KindSessionNotFound:
		return http.StatusNotFound
	case KindUpstreamSubmissionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a client-facing failure with a classified kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError builds a classified error.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}
