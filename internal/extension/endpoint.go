/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package extension

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
	"github.com/microsoft/debugbridge/pkg/rpc"
)

// CustomEventHandler observes adapter custom events relayed from the host
// side.
type CustomEventHandler func(sessionID string, event string, body json.RawMessage)

// EndpointConfig contains configuration for creating an Endpoint.
type EndpointConfig struct {
	Contributions *ContributionRegistry
	Sessions      *SessionRegistry

	// State receives the session-lifecycle and breakpoint notifications the
	// host side pushes. Optional.
	State *DebugState

	// CustomEvents, when set, observes session custom events. Optional.
	CustomEvents CustomEventHandler

	Logger logr.Logger
}

// Endpoint binds the extension-side entry points onto a remote-call channel.
type Endpoint struct {
	contributions *ContributionRegistry
	sessions      *SessionRegistry
	state         *DebugState
	customEvents  CustomEventHandler
	log           logr.Logger
}

func NewEndpoint(config EndpointConfig) *Endpoint {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	return &Endpoint{
		contributions: config.Contributions,
		sessions:      config.Sessions,
		state:         config.State,
		customEvents:  config.CustomEvents,
		log:           log.WithName("endpoint"),
	}
}

// Attach registers handlers for every extension-side entry point.
func (e *Endpoint) Attach(channel *rpc.Channel) {
	channel.Handle(apiv1.MethodCreateDebugSession, e.createDebugSession)
	channel.Handle(apiv1.MethodTerminateDebugSession, e.terminateDebugSession)
	channel.Handle(apiv1.MethodGetSupportedLanguages, e.getSupportedLanguages)
	channel.Handle(apiv1.MethodGetSchemaAttributes, e.getSchemaAttributes)
	channel.Handle(apiv1.MethodGetConfigurationSnippets, e.getConfigurationSnippets)
	channel.Handle(apiv1.MethodProvideDebugConfigs, e.provideDebugConfigurations)
	channel.Handle(apiv1.MethodResolveDebugConfig, e.resolveDebugConfiguration)
	channel.Handle(apiv1.MethodSessionCustomRequest, e.sessionCustomRequest)
	channel.Handle(apiv1.MethodOnSessionCustomEvent, e.onSessionCustomEvent)
	channel.Handle(apiv1.MethodSessionDidCreate, e.sessionDidCreate)
	channel.Handle(apiv1.MethodSessionDidDestroy, e.sessionDidDestroy)
	channel.Handle(apiv1.MethodSessionDidChange, e.sessionDidChange)
	channel.Handle(apiv1.MethodBreakpointsDidChange, e.breakpointsDidChange)
}

func (e *Endpoint) createDebugSession(ctx context.Context, params json.RawMessage) (any, error) {
	var p apiv1.CreateDebugSessionParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	sessionID, createErr := e.sessions.CreateSession(ctx, p.ContributionID, p.Configuration)
	if createErr != nil {
		return nil, createErr
	}

	return apiv1.CreateDebugSessionResult{SessionID: sessionID}, nil
}

func (e *Endpoint) terminateDebugSession(_ context.Context, params json.RawMessage) (any, error) {
	var p apiv1.TerminateDebugSessionParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	e.sessions.TerminateSession(p.SessionID)
	return nil, nil
}

func (e *Endpoint) getSupportedLanguages(_ context.Context, params json.RawMessage) (any, error) {
	var p apiv1.ContributionParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	return apiv1.SupportedLanguagesResult{
		Languages: e.contributions.SupportedLanguages(p.ContributionID),
	}, nil
}

func (e *Endpoint) getSchemaAttributes(_ context.Context, params json.RawMessage) (any, error) {
	var p apiv1.ContributionParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	return apiv1.SchemaAttributesResult{
		Attributes: e.contributions.SchemaAttributes(p.ContributionID),
	}, nil
}

func (e *Endpoint) getConfigurationSnippets(_ context.Context, params json.RawMessage) (any, error) {
	var p apiv1.ContributionParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	return apiv1.ConfigurationSnippetsResult{
		Snippets: e.contributions.ConfigurationSnippets(p.ContributionID),
	}, nil
}

func (e *Endpoint) provideDebugConfigurations(ctx context.Context, params json.RawMessage) (any, error) {
	var p apiv1.ProvideConfigurationsParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	configs, provideErr := e.contributions.ProvideConfigurations(ctx, p.ContributionID, p.Folder)
	if provideErr != nil {
		return nil, provideErr
	}

	return apiv1.ProvideConfigurationsResult{Configurations: configs}, nil
}

func (e *Endpoint) resolveDebugConfiguration(ctx context.Context, params json.RawMessage) (any, error) {
	var p apiv1.ResolveConfigurationParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	resolved, resolveErr := e.contributions.ResolveConfiguration(ctx, p.ContributionID, p.Configuration, p.Folder)
	if resolveErr != nil {
		return nil, resolveErr
	}

	return apiv1.ResolveConfigurationResult{Configuration: resolved}, nil
}

func (e *Endpoint) sessionCustomRequest(ctx context.Context, params json.RawMessage) (any, error) {
	var p apiv1.CustomRequestParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	body, requestErr := e.sessions.CustomRequest(ctx, p.SessionID, p.Command, p.Args)
	if requestErr != nil {
		return nil, requestErr
	}

	return apiv1.CustomRequestResult{Body: body}, nil
}

func (e *Endpoint) onSessionCustomEvent(_ context.Context, params json.RawMessage) (any, error) {
	var p apiv1.SessionCustomEventParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	if e.customEvents != nil {
		e.customEvents(p.SessionID, p.Event, p.Body)
	}
	return nil, nil
}

func (e *Endpoint) sessionDidCreate(_ context.Context, params json.RawMessage) (any, error) {
	var p apiv1.SessionLifecycleParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	e.log.V(1).Info("Host session created", "sessionID", p.SessionID)
	return nil, nil
}

func (e *Endpoint) sessionDidDestroy(_ context.Context, params json.RawMessage) (any, error) {
	var p apiv1.SessionLifecycleParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	if e.state != nil {
		// The active-session pointer must never reference a destroyed session.
		if active, ok := e.state.ActiveSession(); ok && active == p.SessionID {
			e.state.SetActiveSession("")
		}
	}

	e.log.V(1).Info("Host session destroyed", "sessionID", p.SessionID)
	return nil, nil
}

func (e *Endpoint) sessionDidChange(_ context.Context, params json.RawMessage) (any, error) {
	var p apiv1.SessionDidChangeParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	if e.state != nil {
		e.state.SetActiveSession(p.SessionID)
	}
	return nil, nil
}

func (e *Endpoint) breakpointsDidChange(_ context.Context, params json.RawMessage) (any, error) {
	var p apiv1.BreakpointsChange
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	if e.state != nil {
		e.state.ApplyBreakpointsChange(p)
	}
	return nil, nil
}

func unmarshalParams(params json.RawMessage, target any) error {
	if len(params) == 0 {
		return nil
	}
	if unmarshalErr := json.Unmarshal(params, target); unmarshalErr != nil {
		return fmt.Errorf("failed to unmarshal params: %w", unmarshalErr)
	}
	return nil
}
