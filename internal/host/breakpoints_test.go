/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
)

func TestBreakpoints_RoundTripPreservesLocationAndCondition(t *testing.T) {
	stored := []StoredBreakpoint{
		{
			URI:       "file:///a",
			Line:      5,
			Column:    0,
			Enabled:   true,
			Condition: "x",
		},
	}

	wire := BreakpointsToWire(stored)
	require.Len(t, wire, 1)
	require.NotNil(t, wire[0].Location)
	assert.Equal(t, "file:///a", wire[0].Location.URI)
	assert.Equal(t, 5, wire[0].Location.Line)
	assert.Equal(t, "x", wire[0].Condition)

	back := BreakpointsFromWire(wire)
	assert.Equal(t, stored, back)
}

func TestBreakpointsFromWire_DropsLocationlessBreakpoints(t *testing.T) {
	wire := []apiv1.Breakpoint{
		{Enabled: true, Condition: "x"},
		{Enabled: true, Location: &apiv1.SourceLocation{URI: "file:///b", Line: 2}},
	}

	stored := BreakpointsFromWire(wire)
	require.Len(t, stored, 1)
	assert.Equal(t, "file:///b", stored[0].URI)
}

func TestBreakpointsToWire_EmptySetYieldsEmptySlice(t *testing.T) {
	assert.Empty(t, BreakpointsToWire(nil))
	assert.Empty(t, BreakpointsFromWire(nil))
}
