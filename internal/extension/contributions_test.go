/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package extension

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
	"github.com/microsoft/debugbridge/internal/adapter"
)

// fakeNotifier records contribution announcements.
type fakeNotifier struct {
	mu           sync.Mutex
	registered   map[string]apiv1.DebuggerDescription
	unregistered []string
	failWith     error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{registered: make(map[string]apiv1.DebuggerDescription)}
}

func (n *fakeNotifier) RegisterDebugConfigurationProvider(_ context.Context, contributionID string, description apiv1.DebuggerDescription) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failWith != nil {
		return n.failWith
	}
	n.registered[contributionID] = description
	return nil
}

func (n *fakeNotifier) UnregisterDebugConfigurationProvider(_ context.Context, contributionID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unregistered = append(n.unregistered, contributionID)
	return nil
}

func (n *fakeNotifier) description(contributionID string) (apiv1.DebuggerDescription, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	d, ok := n.registered[contributionID]
	return d, ok
}

func (n *fakeNotifier) unregisterCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.unregistered)
}

// fakeProvider implements ConfigurationProvider with canned results.
type fakeProvider struct {
	capabilities ProviderCapabilities

	configurations []apiv1.DebugConfiguration
	provideErr     error

	resolved   apiv1.DebugConfiguration
	resolveErr error

	executable    *adapter.ExecutableDescriptor
	executableErr error
}

func (p *fakeProvider) Capabilities() ProviderCapabilities {
	return p.capabilities
}

func (p *fakeProvider) ProvideConfigurations(context.Context, string) ([]apiv1.DebugConfiguration, error) {
	return p.configurations, p.provideErr
}

func (p *fakeProvider) ResolveConfiguration(context.Context, apiv1.DebugConfiguration, string) (apiv1.DebugConfiguration, error) {
	return p.resolved, p.resolveErr
}

func (p *fakeProvider) ProvideExecutable(context.Context, apiv1.DebugConfiguration) (*adapter.ExecutableDescriptor, error) {
	return p.executable, p.executableErr
}

func TestRegister_AnnouncesDescription(t *testing.T) {
	notifier := newFakeNotifier()
	registry := NewContributionRegistry(notifier, testr.New(t))

	id, dispose := registry.Register(context.Background(), &Contribution{Type: "node", Label: "Node Debug"})
	defer dispose()

	require.NotEmpty(t, id)
	description, found := notifier.description(id)
	require.True(t, found)
	assert.Equal(t, apiv1.DebuggerDescription{Type: "node", Label: "Node Debug"}, description)
}

func TestRegister_LabelDefaultsToType(t *testing.T) {
	notifier := newFakeNotifier()
	registry := NewContributionRegistry(notifier, testr.New(t))

	id, dispose := registry.Register(context.Background(), &Contribution{Type: "python"})
	defer dispose()

	description, found := notifier.description(id)
	require.True(t, found)
	assert.Equal(t, "python", description.Label)
}

func TestRegister_SucceedsWhenAnnouncementFails(t *testing.T) {
	notifier := newFakeNotifier()
	notifier.failWith = errors.New("host unavailable")
	registry := NewContributionRegistry(notifier, testr.New(t))

	id, dispose := registry.Register(context.Background(), &Contribution{Type: "node", Languages: []string{"javascript"}})
	defer dispose()

	assert.Equal(t, []string{"javascript"}, registry.SupportedLanguages(id))
}

func TestCapabilityQueries_UnknownIDYieldEmptyResults(t *testing.T) {
	registry := NewContributionRegistry(newFakeNotifier(), testr.New(t))

	assert.Empty(t, registry.SupportedLanguages("missing"))
	assert.Empty(t, registry.SchemaAttributes("missing"))
	assert.Empty(t, registry.ConfigurationSnippets("missing"))

	configs, err := registry.ProvideConfigurations(context.Background(), "missing", "")
	require.NoError(t, err)
	assert.Empty(t, configs)

	resolved, err := registry.ResolveConfiguration(context.Background(), "missing", apiv1.DebugConfiguration{}, "")
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestUnregister_RemovesContribution(t *testing.T) {
	notifier := newFakeNotifier()
	registry := NewContributionRegistry(notifier, testr.New(t))

	id, dispose := registry.Register(context.Background(), &Contribution{
		Type:      "node",
		Languages: []string{"javascript", "typescript"},
	})

	assert.Equal(t, []string{"javascript", "typescript"}, registry.SupportedLanguages(id))

	dispose()

	assert.Empty(t, registry.SupportedLanguages(id))
	assert.Equal(t, 1, notifier.unregisterCount())

	// Disposing twice does not announce twice.
	dispose()
	assert.Equal(t, 1, notifier.unregisterCount())
}

func TestSchemaAttributes_ReturnedWheneverDefined(t *testing.T) {
	registry := NewContributionRegistry(newFakeNotifier(), testr.New(t))

	attributes := []apiv1.SchemaAttributes{apiv1.SchemaAttributes(`{"properties":{}}`)}
	snippets := []apiv1.ConfigurationSnippet{apiv1.ConfigurationSnippet(`{"label":"Launch"}`)}

	id, dispose := registry.Register(context.Background(), &Contribution{
		Type:                  "node",
		SchemaAttributes:      attributes,
		ConfigurationSnippets: snippets,
	})
	defer dispose()

	// Attributes must come back even though snippets are also present.
	assert.Equal(t, attributes, registry.SchemaAttributes(id))
	assert.Equal(t, snippets, registry.ConfigurationSnippets(id))
}

func TestProvideConfigurations_ForwardsToProvider(t *testing.T) {
	registry := NewContributionRegistry(newFakeNotifier(), testr.New(t))

	expected := []apiv1.DebugConfiguration{
		{"type": "node", "name": "Launch", "request": "launch"},
	}
	provider := &fakeProvider{
		capabilities:   ProviderCapabilities{ProvideConfigurations: true},
		configurations: expected,
	}

	id, dispose := registry.Register(context.Background(), &Contribution{Type: "node", Provider: provider})
	defer dispose()

	configs, err := registry.ProvideConfigurations(context.Background(), id, "")
	require.NoError(t, err)
	assert.Equal(t, expected, configs)
}

func TestProvideConfigurations_UndeclaredCapabilityYieldsEmpty(t *testing.T) {
	registry := NewContributionRegistry(newFakeNotifier(), testr.New(t))

	provider := &fakeProvider{
		configurations: []apiv1.DebugConfiguration{{"type": "node"}},
	}

	id, dispose := registry.Register(context.Background(), &Contribution{Type: "node", Provider: provider})
	defer dispose()

	configs, err := registry.ProvideConfigurations(context.Background(), id, "")
	require.NoError(t, err)
	assert.Empty(t, configs)
}

func TestResolveConfiguration_PropagatesProviderError(t *testing.T) {
	registry := NewContributionRegistry(newFakeNotifier(), testr.New(t))

	providerErr := errors.New("bad configuration")
	provider := &fakeProvider{
		capabilities: ProviderCapabilities{ResolveConfiguration: true},
		resolveErr:   providerErr,
	}

	id, dispose := registry.Register(context.Background(), &Contribution{Type: "node", Provider: provider})
	defer dispose()

	_, err := registry.ResolveConfiguration(context.Background(), id, apiv1.DebugConfiguration{"type": "node"}, "")
	assert.ErrorIs(t, err, providerErr)
}
