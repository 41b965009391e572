/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package host

import (
	apiv1 "github.com/microsoft/debugbridge/api/v1"
)

// StoredBreakpoint is the host's internal breakpoint marker. Unlike the wire
// form, it always carries a location.
type StoredBreakpoint struct {
	URI    string
	Line   int
	Column int

	Enabled      bool
	Condition    string
	HitCondition string
	LogMessage   string
}

// BreakpointsToWire converts internal breakpoint markers to the wire form
// exchanged over the bridge.
func BreakpointsToWire(stored []StoredBreakpoint) []apiv1.Breakpoint {
	wire := make([]apiv1.Breakpoint, 0, len(stored))
	for _, bp := range stored {
		wire = append(wire, apiv1.Breakpoint{
			Enabled:      bp.Enabled,
			Condition:    bp.Condition,
			HitCondition: bp.HitCondition,
			LogMessage:   bp.LogMessage,
			Location: &apiv1.SourceLocation{
				URI:    bp.URI,
				Line:   bp.Line,
				Column: bp.Column,
			},
		})
	}
	return wire
}

// BreakpointsFromWire converts wire breakpoints to internal markers.
// Breakpoints without a location have no marker to map to and are dropped.
func BreakpointsFromWire(wire []apiv1.Breakpoint) []StoredBreakpoint {
	stored := make([]StoredBreakpoint, 0, len(wire))
	for _, bp := range wire {
		if bp.Location == nil {
			continue
		}
		stored = append(stored, StoredBreakpoint{
			URI:          bp.Location.URI,
			Line:         bp.Location.Line,
			Column:       bp.Location.Column,
			Enabled:      bp.Enabled,
			Condition:    bp.Condition,
			HitCondition: bp.HitCondition,
			LogMessage:   bp.LogMessage,
		})
	}
	return stored
}
