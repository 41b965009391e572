/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package host implements the host side of the debug bridge: the contributor
// proxy table, the handlers for extension-originated commands, and the event
// relays that carry host-authority state to the extension side.
package host

import (
	"context"
	"encoding/json"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
)

// The interfaces below are the host authorities the bridge calls into. They
// own canonical debugging state; the bridge never reimplements them.

// SessionManager owns the host-side session objects wrapping extension-side
// session ids.
type SessionManager interface {
	// CustomRequest issues a protocol request against one of the manager's
	// sessions. Fails with apiv1.ErrNotFound for an unknown session id.
	CustomRequest(ctx context.Context, sessionID string, command string, args json.RawMessage) (json.RawMessage, error)

	// Start starts a debug session from a configuration.
	Start(ctx context.Context, folder string, config apiv1.DebugConfiguration) error
}

// ConfigurationManager owns the host's store of named debug configurations.
type ConfigurationManager interface {
	// Find resolves a configuration by name within a folder. The second
	// return is false when no matching configuration exists.
	Find(folder string, name string) (apiv1.DebugConfiguration, bool)
}

// BreakpointStore owns the host's internal breakpoint markers.
type BreakpointStore interface {
	Add(ctx context.Context, breakpoints []StoredBreakpoint) error
	Remove(ctx context.Context, breakpoints []StoredBreakpoint) error
}

// ContributionManager receives contributor proxies as extension-side
// contributions register and unregister.
type ContributionManager interface {
	// Register hands the manager a proxy for a newly-announced contribution,
	// keyed under the advertised debug type.
	Register(debugType string, contributor *ContributorProxy)

	// Unregister removes the proxy for the debug type.
	Unregister(debugType string)
}

// DebugConsole is the host's UI-facing debug console.
type DebugConsole interface {
	Append(text string)
	AppendLine(text string)
}
