/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package host

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
	"github.com/microsoft/debugbridge/pkg/rpc"
	"github.com/microsoft/debugbridge/pkg/syncmap"
)

// BridgeConfig contains configuration for creating a Bridge. The authority
// fields are optional; commands arriving for an absent authority fail (or are
// dropped, for fire-and-forget notifications).
type BridgeConfig struct {
	Sessions      SessionManager
	Configs       ConfigurationManager
	Breakpoints   BreakpointStore
	Contributions ContributionManager
	Console       DebugConsole
	Logger        logr.Logger
}

// Bridge is the host-side counterpart of the extension endpoint. It keeps the
// contributor-proxy table, handles extension-originated commands by calling
// into the host authorities, and relays host-authority events back to the
// extension side.
type Bridge struct {
	channel *rpc.Channel

	// contributors maps contribution id to its proxy. The debug type is kept
	// alongside so unregistration can release the contribution manager entry.
	contributors syncmap.Map[string, *ContributorProxy]

	sessions      SessionManager
	configs       ConfigurationManager
	breakpoints   BreakpointStore
	contributions ContributionManager
	console       DebugConsole
	log           logr.Logger
}

func NewBridge(channel *rpc.Channel, config BridgeConfig) *Bridge {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	b := &Bridge{
		channel:       channel,
		sessions:      config.Sessions,
		configs:       config.Configs,
		breakpoints:   config.Breakpoints,
		contributions: config.Contributions,
		console:       config.Console,
		log:           log.WithName("bridge"),
	}
	b.attach()
	return b
}

func (b *Bridge) attach() {
	b.channel.Handle(apiv1.MethodAppendToDebugConsole, b.appendToConsole)
	b.channel.Handle(apiv1.MethodAppendLineToDebugConsole, b.appendLineToConsole)
	b.channel.Handle(apiv1.MethodRegisterProvider, b.registerProvider)
	b.channel.Handle(apiv1.MethodUnregisterProvider, b.unregisterProvider)
	b.channel.Handle(apiv1.MethodAddBreakpoints, b.addBreakpoints)
	b.channel.Handle(apiv1.MethodRemoveBreakpoints, b.removeBreakpoints)
	b.channel.Handle(apiv1.MethodCustomRequest, b.customRequest)
	b.channel.Handle(apiv1.MethodStartDebugging, b.startDebugging)
}

// Contributor returns the proxy for a contribution id.
func (b *Bridge) Contributor(contributionID string) (*ContributorProxy, bool) {
	return b.contributors.Load(contributionID)
}

// Extension-originated command handlers.

func (b *Bridge) appendToConsole(_ context.Context, params json.RawMessage) (any, error) {
	var p apiv1.AppendToConsoleParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	if b.console != nil {
		b.console.Append(p.Text)
	}
	return nil, nil
}

func (b *Bridge) appendLineToConsole(_ context.Context, params json.RawMessage) (any, error) {
	var p apiv1.AppendToConsoleParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	if b.console != nil {
		b.console.AppendLine(p.Text)
	}
	return nil, nil
}

func (b *Bridge) registerProvider(_ context.Context, params json.RawMessage) (any, error) {
	var p apiv1.RegisterProviderParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	proxy := newContributorProxy(p.ContributionID, p.Description, b.channel)
	b.contributors.Store(p.ContributionID, proxy)

	if b.contributions != nil {
		b.contributions.Register(p.Description.Type, proxy)
	}

	b.log.Info("Registered debug contributor", "contributionID", p.ContributionID, "type", p.Description.Type)
	return nil, nil
}

func (b *Bridge) unregisterProvider(_ context.Context, params json.RawMessage) (any, error) {
	var p apiv1.UnregisterProviderParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	proxy, found := b.contributors.LoadAndDelete(p.ContributionID)
	if !found {
		return nil, nil
	}

	if b.contributions != nil {
		b.contributions.Unregister(proxy.Description().Type)
	}

	b.log.Info("Unregistered debug contributor", "contributionID", p.ContributionID, "type", proxy.Description().Type)
	return nil, nil
}

func (b *Bridge) addBreakpoints(ctx context.Context, params json.RawMessage) (any, error) {
	var p apiv1.BreakpointsParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	if b.breakpoints == nil {
		return nil, nil
	}
	return nil, b.breakpoints.Add(ctx, BreakpointsFromWire(p.Breakpoints))
}

func (b *Bridge) removeBreakpoints(ctx context.Context, params json.RawMessage) (any, error) {
	var p apiv1.BreakpointsParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	if b.breakpoints == nil {
		return nil, nil
	}
	return nil, b.breakpoints.Remove(ctx, BreakpointsFromWire(p.Breakpoints))
}

func (b *Bridge) customRequest(ctx context.Context, params json.RawMessage) (any, error) {
	var p apiv1.CustomRequestParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	if b.sessions == nil {
		return nil, fmt.Errorf("%w: session %q", apiv1.ErrNotFound, p.SessionID)
	}

	body, requestErr := b.sessions.CustomRequest(ctx, p.SessionID, p.Command, p.Args)
	if requestErr != nil {
		return nil, requestErr
	}
	return apiv1.CustomRequestResult{Body: body}, nil
}

// startDebugging starts a session from an inline configuration or one named
// in the host's configuration store. A name with no matching configuration
// yields started=false, not an error.
func (b *Bridge) startDebugging(ctx context.Context, params json.RawMessage) (any, error) {
	var p apiv1.StartDebuggingParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	config := p.Configuration
	if config == nil {
		if b.configs == nil {
			return apiv1.StartDebuggingResult{Started: false}, nil
		}
		named, found := b.configs.Find(p.Folder, p.Name)
		if !found {
			return apiv1.StartDebuggingResult{Started: false}, nil
		}
		config = named
	}

	if b.sessions == nil {
		return apiv1.StartDebuggingResult{Started: false}, nil
	}
	if startErr := b.sessions.Start(ctx, p.Folder, config); startErr != nil {
		return nil, startErr
	}
	return apiv1.StartDebuggingResult{Started: true}, nil
}

// Event relays: each fires exactly once per underlying host-authority event.

func (b *Bridge) SessionDidCreate(sessionID string) {
	b.notify(apiv1.MethodSessionDidCreate, apiv1.SessionLifecycleParams{SessionID: sessionID})
}

func (b *Bridge) SessionDidDestroy(sessionID string) {
	b.notify(apiv1.MethodSessionDidDestroy, apiv1.SessionLifecycleParams{SessionID: sessionID})
}

// SessionDidChange relays the active-session pointer; an empty id means no
// session is active.
func (b *Bridge) SessionDidChange(sessionID string) {
	b.notify(apiv1.MethodSessionDidChange, apiv1.SessionDidChangeParams{SessionID: sessionID})
}

func (b *Bridge) OnSessionCustomEvent(sessionID string, event string, body json.RawMessage) {
	b.notify(apiv1.MethodOnSessionCustomEvent, apiv1.SessionCustomEventParams{
		SessionID: sessionID,
		Event:     event,
		Body:      body,
	})
}

// BreakpointsDidChange relays one combined notification per marker-change
// batch: the full current set plus the delta for the affected resource. No
// finer per-item diff is computed.
func (b *Bridge) BreakpointsDidChange(all, added, removed, changed []StoredBreakpoint) {
	b.notify(apiv1.MethodBreakpointsDidChange, apiv1.BreakpointsChange{
		All:     BreakpointsToWire(all),
		Added:   BreakpointsToWire(added),
		Removed: BreakpointsToWire(removed),
		Changed: BreakpointsToWire(changed),
	})
}

func (b *Bridge) notify(method string, params any) {
	if notifyErr := b.channel.Notify(method, params); notifyErr != nil {
		b.log.Error(notifyErr, "Failed to send notification", "method", method)
	}
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
