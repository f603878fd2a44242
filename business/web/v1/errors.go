// Package v1 provides the errors the node's web layer understands, and
// the mapping from an error kind to an HTTP status code, as described by
// the node's error handling design.
package v1

import (
	"errors"
	"net/http"

	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/database"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/state"
)

// ErrorKind tags an error with the category of failure it represents.
// These mirror the error kinds the node's business rules can produce.
type ErrorKind string

// Set of known error kinds.
const (
	KindMalformedInput   ErrorKind = "malformed-input"
	KindUnknownSender    ErrorKind = "unknown-sender"
	KindInsufficientFund ErrorKind = "insufficient-funds"
	KindBadSignature     ErrorKind = "bad-signature"
	KindMalformedReward  ErrorKind = "malformed-reward"
	KindDuplicateNode    ErrorKind = "duplicate-node"
	KindBadBlock         ErrorKind = "bad-block"
	KindBadChain         ErrorKind = "bad-chain"
	KindTransport        ErrorKind = "transport"
	KindInternal         ErrorKind = "internal"
)

// kindStatus maps each error kind to the HTTP status code the server
// boundary should respond with.
var kindStatus = map[ErrorKind]int{
	KindMalformedInput:   http.StatusBadRequest,
	KindUnknownSender:    http.StatusBadRequest,
	KindInsufficientFund: http.StatusBadRequest,
	KindBadSignature:     http.StatusBadRequest,
	KindMalformedReward:  http.StatusBadRequest,
	KindDuplicateNode:    http.StatusBadRequest,
	KindBadBlock:         http.StatusBadRequest,
	KindBadChain:         http.StatusBadRequest,
	KindTransport:        http.StatusBadGateway,
	KindInternal:         http.StatusInternalServerError,
}

// RequestError is used to pass an error during the request through the
// application with web specific context. RequestError satisfies the
// error interface so it can be returned from a handler like any other
// error.
type RequestError struct {
	Err    error
	Kind   ErrorKind
	Status int
	Fields map[string]string
}

// NewRequestError wraps a business error with a specific HTTP status
// code. The kind is left empty; use NewRequestErrorKind to derive the
// status from a kind.
func NewRequestError(err error, status int) error {
	return &RequestError{Err: err, Status: status}
}

// NewRequestErrorKind wraps a business error with an explicit error kind,
// deriving the HTTP status from the kind-to-status table.
func NewRequestErrorKind(err error, kind ErrorKind) error {
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &RequestError{Err: err, Kind: kind, Status: status}
}

// Error implements the error interface. It uses the default message of
// the wrapped error. This is what will be shown in the services' logs.
func (re *RequestError) Error() string {
	return re.Err.Error()
}

// IsRequestError checks if an error of type RequestError exists.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

// GetRequestError returns a copy of the RequestError pointer.
func GetRequestError(err error) *RequestError {
	var re *RequestError
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// KindFor classifies a business error returned by the database or state
// packages into the ErrorKind the wire protocol expects, falling back to
// KindInternal for anything it doesn't recognize.
func KindFor(err error) ErrorKind {
	switch {
	case errors.Is(err, database.ErrUnknownSender):
		return KindUnknownSender
	case errors.Is(err, database.ErrInsufficientFunds):
		return KindInsufficientFund
	case errors.Is(err, database.ErrBadSignature):
		return KindBadSignature
	case errors.Is(err, database.ErrMalformedReward):
		return KindMalformedReward
	case errors.Is(err, state.ErrDuplicateNode):
		return KindDuplicateNode
	case errors.Is(err, database.ErrBadPrevHash),
		errors.Is(err, database.ErrPOWFailed),
		errors.Is(err, database.ErrForeignTransactionsInBlock):
		return KindBadBlock
	case errors.Is(err, database.ErrGenesisMalformed),
		errors.Is(err, database.ErrEmptyChain):
		return KindBadChain
	default:
		return KindInternal
	}
}

// NewBusinessError wraps err with the kind KindFor derives for it.
func NewBusinessError(err error) error {
	return NewRequestErrorKind(err, KindFor(err))
}
