/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package extension

import (
	"context"
	"encoding/json"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
	"github.com/microsoft/debugbridge/pkg/rpc"
)

// HostProxy is the extension side's view of the host authorities, implemented
// as outbound calls over the remote-call channel.
type HostProxy struct {
	channel *rpc.Channel
}

func NewHostProxy(channel *rpc.Channel) *HostProxy {
	return &HostProxy{channel: channel}
}

func (p *HostProxy) RegisterDebugConfigurationProvider(ctx context.Context, contributionID string, description apiv1.DebuggerDescription) error {
	return p.channel.Call(ctx, apiv1.MethodRegisterProvider, apiv1.RegisterProviderParams{
		ContributionID: contributionID,
		Description:    description,
	}, nil)
}

func (p *HostProxy) UnregisterDebugConfigurationProvider(ctx context.Context, contributionID string) error {
	return p.channel.Call(ctx, apiv1.MethodUnregisterProvider, apiv1.UnregisterProviderParams{
		ContributionID: contributionID,
	}, nil)
}

func (p *HostProxy) AppendToDebugConsole(text string) error {
	return p.channel.Notify(apiv1.MethodAppendToDebugConsole, apiv1.AppendToConsoleParams{Text: text})
}

func (p *HostProxy) AppendLineToDebugConsole(text string) error {
	return p.channel.Notify(apiv1.MethodAppendLineToDebugConsole, apiv1.AppendToConsoleParams{Text: text})
}

func (p *HostProxy) AddBreakpoints(breakpoints []apiv1.Breakpoint) error {
	return p.channel.Notify(apiv1.MethodAddBreakpoints, apiv1.BreakpointsParams{Breakpoints: breakpoints})
}

func (p *HostProxy) RemoveBreakpoints(breakpoints []apiv1.Breakpoint) error {
	return p.channel.Notify(apiv1.MethodRemoveBreakpoints, apiv1.BreakpointsParams{Breakpoints: breakpoints})
}

// CustomRequest asks the host's session manager to issue a request against
// one of its sessions.
func (p *HostProxy) CustomRequest(ctx context.Context, sessionID string, command string, args json.RawMessage) (json.RawMessage, error) {
	var result apiv1.CustomRequestResult
	callErr := p.channel.Call(ctx, apiv1.MethodCustomRequest, apiv1.CustomRequestParams{
		SessionID: sessionID,
		Command:   command,
		Args:      args,
	}, &result)
	if callErr != nil {
		return nil, callErr
	}
	return result.Body, nil
}

// StartDebugging asks the host to start a session from a named configuration
// or an inline one. Returns false, without error, when a named configuration
// does not exist in the host's configuration store.
func (p *HostProxy) StartDebugging(ctx context.Context, folder string, name string, config apiv1.DebugConfiguration) (bool, error) {
	var result apiv1.StartDebuggingResult
	callErr := p.channel.Call(ctx, apiv1.MethodStartDebugging, apiv1.StartDebuggingParams{
		Folder:        folder,
		Name:          name,
		Configuration: config,
	}, &result)
	if callErr != nil {
		return false, callErr
	}
	return result.Started, nil
}
