/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package host

import (
	"context"
	"encoding/json"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
	"github.com/microsoft/debugbridge/pkg/rpc"
)

// ContributorProxy is the host side's stand-in for one extension-side
// contribution. It exposes the contribution's capability surface and session
// lifecycle as outbound calls over the remote-call channel, bound to the
// contribution id minted at registration.
type ContributorProxy struct {
	contributionID string
	description    apiv1.DebuggerDescription
	channel        *rpc.Channel
}

func newContributorProxy(contributionID string, description apiv1.DebuggerDescription, channel *rpc.Channel) *ContributorProxy {
	return &ContributorProxy{
		contributionID: contributionID,
		description:    description,
		channel:        channel,
	}
}

// Description returns the {type, label} pair the contribution advertised.
func (p *ContributorProxy) Description() apiv1.DebuggerDescription {
	return p.description
}

// CreateSession creates a debug session for this contribution and returns
// the minted session id.
func (p *ContributorProxy) CreateSession(ctx context.Context, config apiv1.DebugConfiguration) (string, error) {
	var result apiv1.CreateDebugSessionResult
	callErr := p.channel.Call(ctx, apiv1.MethodCreateDebugSession, apiv1.CreateDebugSessionParams{
		ContributionID: p.contributionID,
		Configuration:  config,
	}, &result)
	if callErr != nil {
		return "", callErr
	}
	return result.SessionID, nil
}

// TerminateSession tears the session down on the extension side.
func (p *ContributorProxy) TerminateSession(ctx context.Context, sessionID string) error {
	return p.channel.Call(ctx, apiv1.MethodTerminateDebugSession, apiv1.TerminateDebugSessionParams{
		SessionID: sessionID,
	}, nil)
}

func (p *ContributorProxy) SupportedLanguages(ctx context.Context) ([]string, error) {
	var result apiv1.SupportedLanguagesResult
	callErr := p.channel.Call(ctx, apiv1.MethodGetSupportedLanguages, apiv1.ContributionParams{
		ContributionID: p.contributionID,
	}, &result)
	if callErr != nil {
		return nil, callErr
	}
	return result.Languages, nil
}

func (p *ContributorProxy) SchemaAttributes(ctx context.Context) ([]apiv1.SchemaAttributes, error) {
	var result apiv1.SchemaAttributesResult
	callErr := p.channel.Call(ctx, apiv1.MethodGetSchemaAttributes, apiv1.ContributionParams{
		ContributionID: p.contributionID,
	}, &result)
	if callErr != nil {
		return nil, callErr
	}
	return result.Attributes, nil
}

func (p *ContributorProxy) ConfigurationSnippets(ctx context.Context) ([]apiv1.ConfigurationSnippet, error) {
	var result apiv1.ConfigurationSnippetsResult
	callErr := p.channel.Call(ctx, apiv1.MethodGetConfigurationSnippets, apiv1.ContributionParams{
		ContributionID: p.contributionID,
	}, &result)
	if callErr != nil {
		return nil, callErr
	}
	return result.Snippets, nil
}

func (p *ContributorProxy) ProvideConfigurations(ctx context.Context, folder string) ([]apiv1.DebugConfiguration, error) {
	var result apiv1.ProvideConfigurationsResult
	callErr := p.channel.Call(ctx, apiv1.MethodProvideDebugConfigs, apiv1.ProvideConfigurationsParams{
		ContributionID: p.contributionID,
		Folder:         folder,
	}, &result)
	if callErr != nil {
		return nil, callErr
	}
	return result.Configurations, nil
}

// ResolveConfiguration returns a nil configuration when the contribution's
// provider declined to resolve.
func (p *ContributorProxy) ResolveConfiguration(ctx context.Context, config apiv1.DebugConfiguration, folder string) (apiv1.DebugConfiguration, error) {
	var result apiv1.ResolveConfigurationResult
	callErr := p.channel.Call(ctx, apiv1.MethodResolveDebugConfig, apiv1.ResolveConfigurationParams{
		ContributionID: p.contributionID,
		Configuration:  config,
		Folder:         folder,
	}, &result)
	if callErr != nil {
		return nil, callErr
	}
	return result.Configuration, nil
}

// SessionCustomRequest forwards a protocol request to the extension-side
// session's adapter.
func (p *ContributorProxy) SessionCustomRequest(ctx context.Context, sessionID string, command string, args json.RawMessage) (json.RawMessage, error) {
	var result apiv1.CustomRequestResult
	callErr := p.channel.Call(ctx, apiv1.MethodSessionCustomRequest, apiv1.CustomRequestParams{
		SessionID: sessionID,
		Command:   command,
		Args:      args,
	}, &result)
	if callErr != nil {
		return nil, callErr
	}
	return result.Body, nil
}
