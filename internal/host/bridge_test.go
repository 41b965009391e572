/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package host

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
	"github.com/microsoft/debugbridge/internal/adapter"
	"github.com/microsoft/debugbridge/internal/extension"
	"github.com/microsoft/debugbridge/pkg/rpc"
)

type fakeContributionManager struct {
	mu      sync.Mutex
	proxies map[string]*ContributorProxy
}

func newFakeContributionManager() *fakeContributionManager {
	return &fakeContributionManager{proxies: make(map[string]*ContributorProxy)}
}

func (m *fakeContributionManager) Register(debugType string, contributor *ContributorProxy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proxies[debugType] = contributor
}

func (m *fakeContributionManager) Unregister(debugType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.proxies, debugType)
}

func (m *fakeContributionManager) proxy(debugType string) (*ContributorProxy, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proxies[debugType]
	return p, ok
}

type fakeSessionManager struct {
	mu      sync.Mutex
	started []apiv1.DebugConfiguration
}

func (m *fakeSessionManager) CustomRequest(_ context.Context, sessionID string, _ string, _ json.RawMessage) (json.RawMessage, error) {
	return nil, fmt.Errorf("%w: session %q", apiv1.ErrNotFound, sessionID)
}

func (m *fakeSessionManager) Start(_ context.Context, _ string, config apiv1.DebugConfiguration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, config)
	return nil
}

func (m *fakeSessionManager) startedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.started)
}

type fakeConfigurationManager struct {
	configs map[string]apiv1.DebugConfiguration
}

func (m *fakeConfigurationManager) Find(_ string, name string) (apiv1.DebugConfiguration, bool) {
	config, found := m.configs[name]
	return config, found
}

// bridgeHarness runs both sides of the bridge over an in-process pipe.
type bridgeHarness struct {
	bridge        *Bridge
	contribMgr    *fakeContributionManager
	sessionMgr    *fakeSessionManager
	contributions *extension.ContributionRegistry
	state         *extension.DebugState
	hostProxy     *extension.HostProxy
	ctx           context.Context
}

func newBridgeHarness(t *testing.T) *bridgeHarness {
	t.Helper()

	log := testr.New(t)
	extChannel, hostChannel := rpc.Pipe(log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &bridgeHarness{
		contribMgr: newFakeContributionManager(),
		sessionMgr: &fakeSessionManager{},
		ctx:        ctx,
	}

	h.bridge = NewBridge(hostChannel, BridgeConfig{
		Sessions:      h.sessionMgr,
		Configs:       &fakeConfigurationManager{configs: map[string]apiv1.DebugConfiguration{"Launch": {"type": "node", "name": "Launch"}}},
		Contributions: h.contribMgr,
		Logger:        log,
	})

	h.hostProxy = extension.NewHostProxy(extChannel)
	h.contributions = extension.NewContributionRegistry(h.hostProxy, log)
	sessions := extension.NewSessionRegistry(extension.SessionRegistryConfig{
		Contributions: h.contributions,
		Logger:        log,
	})
	t.Cleanup(sessions.DisposeAll)

	h.state = extension.NewDebugState()
	endpoint := extension.NewEndpoint(extension.EndpointConfig{
		Contributions: h.contributions,
		Sessions:      sessions,
		State:         h.state,
		Logger:        log,
	})
	endpoint.Attach(extChannel)

	go func() { _ = extChannel.Serve(ctx) }()
	go func() { _ = hostChannel.Serve(ctx) }()

	return h
}

func TestBridge_RegistrationBuildsContributorProxy(t *testing.T) {
	h := newBridgeHarness(t)

	expected := []apiv1.DebugConfiguration{
		{"type": "node", "name": "Launch", "request": "launch"},
	}
	contributionID, dispose := h.contributions.Register(h.ctx, &extension.Contribution{
		Type:      "node",
		Languages: []string{"javascript"},
		Provider: &stubProvider{
			capabilities:   extension.ProviderCapabilities{ProvideConfigurations: true},
			configurations: expected,
		},
	})

	require.Eventually(t, func() bool {
		_, found := h.contribMgr.proxy("node")
		return found
	}, 5*time.Second, 10*time.Millisecond)

	proxy, _ := h.contribMgr.proxy("node")
	assert.Equal(t, "node", proxy.Description().Type)

	registered, found := h.bridge.Contributor(contributionID)
	require.True(t, found)
	assert.Same(t, proxy, registered)

	configs, err := proxy.ProvideConfigurations(h.ctx, "")
	require.NoError(t, err)
	assert.Equal(t, expected, configs)

	languages, err := proxy.SupportedLanguages(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"javascript"}, languages)

	dispose()
	require.Eventually(t, func() bool {
		_, found := h.contribMgr.proxy("node")
		return !found
	}, 5*time.Second, 10*time.Millisecond)
}

func TestBridge_StartDebugging(t *testing.T) {
	h := newBridgeHarness(t)

	// Unknown named configuration: false, not an error.
	started, err := h.hostProxy.StartDebugging(h.ctx, "", "missing", nil)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, 0, h.sessionMgr.startedCount())

	// Known named configuration.
	started, err = h.hostProxy.StartDebugging(h.ctx, "", "Launch", nil)
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, 1, h.sessionMgr.startedCount())

	// Inline configuration bypasses the store.
	started, err = h.hostProxy.StartDebugging(h.ctx, "", "", apiv1.DebugConfiguration{"type": "node", "name": "Inline"})
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, 2, h.sessionMgr.startedCount())
}

func TestBridge_CustomRequestUnknownSession(t *testing.T) {
	h := newBridgeHarness(t)

	_, err := h.hostProxy.CustomRequest(h.ctx, "unknown-id", "evaluate", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, apiv1.ErrNotFound)
}

func TestBridge_EventRelaysUpdateExtensionState(t *testing.T) {
	h := newBridgeHarness(t)

	h.bridge.SessionDidChange("session-1")
	require.Eventually(t, func() bool {
		active, ok := h.state.ActiveSession()
		return ok && active == "session-1"
	}, 5*time.Second, 10*time.Millisecond)

	h.bridge.BreakpointsDidChange(
		[]StoredBreakpoint{{URI: "file:///a", Line: 5, Enabled: true}},
		nil, nil, nil)
	require.Eventually(t, func() bool {
		return len(h.state.Breakpoints()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "file:///a", h.state.Breakpoints()[0].Location.URI)

	// Destroying the active session clears the pointer.
	h.bridge.SessionDidDestroy("session-1")
	require.Eventually(t, func() bool {
		_, ok := h.state.ActiveSession()
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}

// stubProvider is a minimal ConfigurationProvider for bridge tests.
type stubProvider struct {
	capabilities   extension.ProviderCapabilities
	configurations []apiv1.DebugConfiguration
}

func (p *stubProvider) Capabilities() extension.ProviderCapabilities {
	return p.capabilities
}

func (p *stubProvider) ProvideConfigurations(context.Context, string) ([]apiv1.DebugConfiguration, error) {
	return p.configurations, nil
}

func (p *stubProvider) ResolveConfiguration(context.Context, apiv1.DebugConfiguration, string) (apiv1.DebugConfiguration, error) {
	return nil, nil
}

func (p *stubProvider) ProvideExecutable(context.Context, apiv1.DebugConfiguration) (*adapter.ExecutableDescriptor, error) {
	return nil, nil
}
