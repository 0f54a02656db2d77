// Package mcp exposes the hybrid retriever over the Model Context
// Protocol, so AI clients can search indexed documentation as a tool.
package mcp

import (
	"context"
	"errors"
	"fmt"

	aerrors "github.com/AnefuIII/aihero/internal/errors"
)

// Protocol error codes. Negative custom codes live below the JSON-RPC
// reserved range.
const (
	ErrCodeIndexNotBuilt = -32001
	ErrCodeTimeout       = -32003

	ErrCodeInvalidParams = -32602
	ErrCodeInternal      = -32603
)

// ProtocolError is an MCP protocol error with a JSON-RPC style code.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an invalid-parameters error.
func NewInvalidParamsError(msg string) *ProtocolError {
	return &ProtocolError{Code: ErrCodeInvalidParams, Message: msg}
}

// MapError converts internal errors to protocol errors, carrying the
// structured error's suggestion into the message when present.
func MapError(err error) *ProtocolError {
	if err == nil {
		return nil
	}

	var ae *aerrors.Error
	if errors.As(err, &ae) {
		message := ae.Message
		if ae.Suggestion != "" {
			message = fmt.Sprintf("%s. %s", ae.Message, ae.Suggestion)
		}
		switch {
		case ae.Code == aerrors.ErrCodeIndexNotBuilt:
			return &ProtocolError{Code: ErrCodeIndexNotBuilt, Message: message}
		case ae.Category == aerrors.CategoryNetwork:
			return &ProtocolError{Code: ErrCodeTimeout, Message: message}
		case ae.Category == aerrors.CategoryValidation:
			return &ProtocolError{Code: ErrCodeInvalidParams, Message: message}
		default:
			return &ProtocolError{Code: ErrCodeInternal, Message: message}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ProtocolError{Code: ErrCodeTimeout, Message: "request timed out"}
	}
	return &ProtocolError{Code: ErrCodeInternal, Message: "internal server error"}
}
