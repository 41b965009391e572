/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package extension

import (
	"sync"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
)

// DebugState mirrors host-authority state on the extension side: the
// active-session pointer and the current breakpoint set. It is updated by
// the fire-and-forget notifications from the host side; readers always
// observe a fully-applied update.
type DebugState struct {
	mu sync.RWMutex

	// activeSessionID is empty when no session is active.
	activeSessionID string

	breakpoints []apiv1.Breakpoint
}

func NewDebugState() *DebugState {
	return &DebugState{}
}

// SetActiveSession updates the active-session pointer. An empty id clears it.
func (s *DebugState) SetActiveSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeSessionID = sessionID
}

// ActiveSession returns the active session id, and false when none is active.
func (s *DebugState) ActiveSession() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSessionID, s.activeSessionID != ""
}

// ApplyBreakpointsChange replaces the mirrored breakpoint set with the full
// snapshot carried by a combined change notification.
func (s *DebugState) ApplyBreakpointsChange(change apiv1.BreakpointsChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.breakpoints = change.All
}

// Breakpoints returns the mirrored breakpoint set.
func (s *DebugState) Breakpoints() []apiv1.Breakpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	breakpoints := make([]apiv1.Breakpoint, len(s.breakpoints))
	copy(breakpoints, s.breakpoints)
	return breakpoints
}
