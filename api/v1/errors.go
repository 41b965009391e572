/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package v1

import "errors"

var (
	// ErrNotFound indicates an unknown contribution or session id.
	ErrNotFound = errors.New("not found")

	// ErrNotConfigured indicates that no debug adapter executable could be
	// resolved for a contribution.
	ErrNotConfigured = errors.New("debug adapter executable is not configured")

	// ErrUnsupportedExecutable indicates an executable descriptor that matches
	// neither the command shape nor the module shape.
	ErrUnsupportedExecutable = errors.New("unsupported debug adapter executable")
)

// Wire error codes. Errors cross the remote-call boundary as {code, message}
// pairs and rehydrate to the sentinel errors above on the other side.
const (
	CodeNotFound              = "not-found"
	CodeNotConfigured         = "not-configured"
	CodeUnsupportedExecutable = "unsupported-executable"
	CodeInternal              = "internal"
)

// ErrorCode maps an error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNotConfigured):
		return CodeNotConfigured
	case errors.Is(err, ErrUnsupportedExecutable):
		return CodeUnsupportedExecutable
	default:
		return CodeInternal
	}
}

// ErrorSentinel maps a wire code back to its sentinel error, or nil when the
// code has no sentinel (the caller should surface the message as-is).
func ErrorSentinel(code string) error {
	switch code {
	case CodeNotFound:
		return ErrNotFound
	case CodeNotConfigured:
		return ErrNotConfigured
	case CodeUnsupportedExecutable:
		return ErrUnsupportedExecutable
	default:
		return nil
	}
}
