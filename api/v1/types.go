/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package v1 contains the wire types exchanged between the extension side and
// the host side of the debug bridge. Only plain data and opaque ids cross the
// boundary; live object references never do.
package v1

import "encoding/json"

// DebugConfiguration is an opaque key/value document describing how a debug
// session should be started. The bridge only interprets the well-known
// "type", "name" and "request" keys; everything else is passed through to the
// debug adapter contribution unmodified.
type DebugConfiguration map[string]any

// Type returns the debug type of the configuration, or "" if not set.
func (c DebugConfiguration) Type() string {
	return c.stringValue("type")
}

// Name returns the display name of the configuration, or "" if not set.
func (c DebugConfiguration) Name() string {
	return c.stringValue("name")
}

// Request returns the request kind ("launch" or "attach"), or "" if not set.
func (c DebugConfiguration) Request() string {
	return c.stringValue("request")
}

func (c DebugConfiguration) stringValue(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// DebuggerDescription is the lightweight description a contribution announces
// to the host side when it registers.
type DebuggerDescription struct {
	// Type is the debug type the contribution handles (e.g. "node").
	Type string `json:"type"`

	// Label is the human-readable name advertised for the debug type.
	Label string `json:"label"`
}

// ConfigurationSnippet is a JSON-schema snippet a contribution offers for
// authoring debug configurations. The bridge treats it as opaque JSON.
type ConfigurationSnippet = json.RawMessage

// SchemaAttributes is an opaque JSON-schema document describing the
// attributes a debug configuration of a given type may carry.
type SchemaAttributes = json.RawMessage

// EnvVar is a single environment variable for an adapter process.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SourceLocation identifies a position in a debuggable resource.
type SourceLocation struct {
	// URI identifies the resource (e.g. "file:///a").
	URI string `json:"uri"`

	Line   int `json:"line"`
	Column int `json:"column"`
}

// Breakpoint is the wire representation of a breakpoint exchanged over the
// bridge. It is produced from the host's internal breakpoint store on every
// state-change notification and is never persisted by the bridge.
type Breakpoint struct {
	Enabled      bool   `json:"enabled"`
	Condition    string `json:"condition,omitempty"`
	HitCondition string `json:"hitCondition,omitempty"`
	LogMessage   string `json:"logMessage,omitempty"`

	// Location is optional. A breakpoint without a location is excluded when
	// translating to the host's internal form.
	Location *SourceLocation `json:"location,omitempty"`
}

// BreakpointsChange is the single combined notification the host emits per
// marker-change batch. All carries the full current breakpoint set; the delta
// fields are restricted to the affected resource. The bridge forwards this
// as-is without computing a finer per-item diff.
type BreakpointsChange struct {
	All     []Breakpoint `json:"all"`
	Added   []Breakpoint `json:"added,omitempty"`
	Removed []Breakpoint `json:"removed,omitempty"`
	Changed []Breakpoint `json:"changed,omitempty"`
}
