/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package v1

import "encoding/json"

// Extension-side entry points (invoked by the host side).
const (
	MethodCreateDebugSession        = "debug/createSession"
	MethodTerminateDebugSession     = "debug/terminateSession"
	MethodGetSupportedLanguages     = "debug/supportedLanguages"
	MethodGetSchemaAttributes       = "debug/schemaAttributes"
	MethodGetConfigurationSnippets  = "debug/configurationSnippets"
	MethodProvideDebugConfigs       = "debug/provideConfigurations"
	MethodResolveDebugConfig        = "debug/resolveConfiguration"
	MethodSessionCustomRequest      = "debug/sessionCustomRequest"
	MethodOnSessionCustomEvent      = "debug/onSessionCustomEvent"
	MethodSessionDidCreate          = "debug/sessionDidCreate"
	MethodSessionDidDestroy         = "debug/sessionDidDestroy"
	MethodSessionDidChange          = "debug/sessionDidChange"
	MethodBreakpointsDidChange      = "debug/breakpointsDidChange"
)

// Host-side entry points (invoked by the extension side).
const (
	MethodAppendToDebugConsole     = "debug/appendToConsole"
	MethodAppendLineToDebugConsole = "debug/appendLineToConsole"
	MethodRegisterProvider         = "debug/registerConfigurationProvider"
	MethodUnregisterProvider       = "debug/unregisterConfigurationProvider"
	MethodAddBreakpoints           = "debug/addBreakpoints"
	MethodRemoveBreakpoints        = "debug/removeBreakpoints"
	MethodCustomRequest            = "debug/customRequest"
	MethodStartDebugging           = "debug/startDebugging"
)

type CreateDebugSessionParams struct {
	ContributionID string             `json:"contributionId"`
	Configuration  DebugConfiguration `json:"configuration"`
}

type CreateDebugSessionResult struct {
	SessionID string `json:"sessionId"`
}

type TerminateDebugSessionParams struct {
	SessionID string `json:"sessionId"`
}

type ContributionParams struct {
	ContributionID string `json:"contributionId"`
}

type SupportedLanguagesResult struct {
	Languages []string `json:"languages"`
}

type SchemaAttributesResult struct {
	Attributes []SchemaAttributes `json:"attributes"`
}

type ConfigurationSnippetsResult struct {
	Snippets []ConfigurationSnippet `json:"snippets"`
}

type ProvideConfigurationsParams struct {
	ContributionID string `json:"contributionId"`
	Folder         string `json:"folder,omitempty"`
}

type ProvideConfigurationsResult struct {
	Configurations []DebugConfiguration `json:"configurations"`
}

type ResolveConfigurationParams struct {
	ContributionID string             `json:"contributionId"`
	Configuration  DebugConfiguration `json:"configuration"`
	Folder         string             `json:"folder,omitempty"`
}

type ResolveConfigurationResult struct {
	// Configuration is nil when the provider declined to resolve.
	Configuration DebugConfiguration `json:"configuration,omitempty"`
}

type SessionCustomEventParams struct {
	SessionID string          `json:"sessionId"`
	Event     string          `json:"event"`
	Body      json.RawMessage `json:"body,omitempty"`
}

type SessionLifecycleParams struct {
	SessionID string `json:"sessionId"`
}

type SessionDidChangeParams struct {
	// SessionID is empty when no session is active.
	SessionID string `json:"sessionId,omitempty"`
}

type AppendToConsoleParams struct {
	Text string `json:"text"`
}

type RegisterProviderParams struct {
	ContributionID string              `json:"contributionId"`
	Description    DebuggerDescription `json:"description"`
}

type UnregisterProviderParams struct {
	ContributionID string `json:"contributionId"`
}

type BreakpointsParams struct {
	Breakpoints []Breakpoint `json:"breakpoints"`
}

type CustomRequestParams struct {
	SessionID string          `json:"sessionId"`
	Command   string          `json:"command"`
	Args      json.RawMessage `json:"args,omitempty"`
}

type CustomRequestResult struct {
	Body json.RawMessage `json:"body,omitempty"`
}

// StartDebuggingParams carries either the name of a configuration to resolve
// against the host's configuration store, or an inline configuration.
// Exactly one of Name and Configuration is set.
type StartDebuggingParams struct {
	Folder        string             `json:"folder,omitempty"`
	Name          string             `json:"name,omitempty"`
	Configuration DebugConfiguration `json:"configuration,omitempty"`
}

type StartDebuggingResult struct {
	Started bool `json:"started"`
}
