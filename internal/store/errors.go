// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"fmt"
)

// Error variables for store operations.
var (
	// ErrRemoteOperation matches every failed remote call, whatever the
	// underlying cause (transport, GraphQL error, decode, timeout).
	ErrRemoteOperation = errors.New("remote operation failed")

	// ErrEmptyContent is returned by SendMessage for blank content.
	ErrEmptyContent = errors.New("message content is empty")

	// ErrNotCleared is returned when clearMessages answers false.
	ErrNotCleared = errors.New("server did not clear messages")
)

// OperationError describes a failed remote operation.
// errors.Is(err, ErrRemoteOperation) is true for every OperationError.
type OperationError struct {
	Op  string // GraphQL operation name: messages, sendMessage, clearMessages
	Err error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRemoteOperation.
func (e *OperationError) Is(target error) bool {
	return target == ErrRemoteOperation
}

func opError(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *OperationError
	if errors.As(err, &existing) {
		return err
	}
	return &OperationError{Op: op, Err: err}
}
