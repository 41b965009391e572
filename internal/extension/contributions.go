/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package extension implements the extension side of the debug bridge: the
// registries that hold debug-adapter contributions and live debug sessions,
// and the endpoint that exposes them over the remote-call channel.
package extension

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
	"github.com/microsoft/debugbridge/internal/adapter"
	"github.com/microsoft/debugbridge/pkg/syncmap"
)

// ProviderCapabilities declares which optional operations a configuration
// provider implements. Capabilities are declared once at registration time;
// calls for undeclared capabilities degrade to empty results.
type ProviderCapabilities struct {
	ProvideConfigurations bool
	ResolveConfiguration  bool
	ProvideExecutable     bool
}

// ConfigurationProvider is the capability surface a contribution may offer
// beyond its static package metadata. Only the operations declared in
// Capabilities are ever invoked.
type ConfigurationProvider interface {
	Capabilities() ProviderCapabilities

	// ProvideConfigurations returns initial debug configurations for a folder.
	ProvideConfigurations(ctx context.Context, folder string) ([]apiv1.DebugConfiguration, error)

	// ResolveConfiguration fills in or validates a configuration before a
	// session starts. Returning a nil configuration declines resolution.
	ResolveConfiguration(ctx context.Context, config apiv1.DebugConfiguration, folder string) (apiv1.DebugConfiguration, error)

	// ProvideExecutable resolves the adapter executable for a configuration,
	// overriding the package metadata resolution.
	ProvideExecutable(ctx context.Context, config apiv1.DebugConfiguration) (*adapter.ExecutableDescriptor, error)
}

// Contribution is a registered debug-adapter type: its advertised
// description, static package metadata and optional provider.
type Contribution struct {
	// Type is the debug type (e.g. "node").
	Type string

	// Label is the human-readable name; the debug type is advertised when
	// empty.
	Label string

	// Languages the debug type applies to.
	Languages []string

	// SchemaAttributes are JSON-schema documents for configuration validation.
	SchemaAttributes []apiv1.SchemaAttributes

	// ConfigurationSnippets are JSON-schema snippets for configuration
	// authoring.
	ConfigurationSnippets []apiv1.ConfigurationSnippet

	// Executables is the per-platform executable table from the package
	// metadata.
	Executables *adapter.ExecutableMetadata

	// PluginPath is the plugin root path relative runtimes resolve against.
	PluginPath string

	// Provider is the optional capability provider.
	Provider ConfigurationProvider
}

func (c *Contribution) description() apiv1.DebuggerDescription {
	label := c.Label
	if label == "" {
		label = c.Type
	}
	return apiv1.DebuggerDescription{Type: c.Type, Label: label}
}

// HostNotifier carries contribution registration state to the host side.
type HostNotifier interface {
	RegisterDebugConfigurationProvider(ctx context.Context, contributionID string, description apiv1.DebuggerDescription) error
	UnregisterDebugConfigurationProvider(ctx context.Context, contributionID string) error
}

// ContributionRegistry is the extension-side table of registered
// debug-adapter contributions, keyed by generated contribution id.
//
// Capability lookups are best-effort: a contribution that disappears
// mid-flight must not crash the caller, since every call races against the
// other side of the boundary. Unknown ids therefore yield empty results, not
// errors.
type ContributionRegistry struct {
	contributions syncmap.Map[string, *Contribution]
	host          HostNotifier
	log           logr.Logger
}

func NewContributionRegistry(host HostNotifier, log logr.Logger) *ContributionRegistry {
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	return &ContributionRegistry{
		host: host,
		log:  log.WithName("contributions"),
	}
}

// Register stores the contribution under a fresh contribution id, announces
// its description to the host side, and returns the id together with a
// disposer that removes the entry and notifies the host of unregistration.
// Registration never fails; announcement errors are logged only.
func (r *ContributionRegistry) Register(ctx context.Context, contribution *Contribution) (string, func()) {
	contributionID := uuid.NewString()
	r.contributions.Store(contributionID, contribution)

	if notifyErr := r.host.RegisterDebugConfigurationProvider(ctx, contributionID, contribution.description()); notifyErr != nil {
		r.log.Error(notifyErr, "Failed to announce debug contribution", "contributionID", contributionID, "type", contribution.Type)
	}

	r.log.Info("Registered debug contribution", "contributionID", contributionID, "type", contribution.Type)

	dispose := func() {
		if _, found := r.contributions.LoadAndDelete(contributionID); !found {
			return
		}

		if notifyErr := r.host.UnregisterDebugConfigurationProvider(context.Background(), contributionID); notifyErr != nil {
			r.log.Error(notifyErr, "Failed to announce debug contribution removal", "contributionID", contributionID)
		}

		r.log.Info("Unregistered debug contribution", "contributionID", contributionID, "type", contribution.Type)
	}

	return contributionID, dispose
}

// lookup returns the contribution for the id, if still registered.
func (r *ContributionRegistry) lookup(contributionID string) (*Contribution, bool) {
	return r.contributions.Load(contributionID)
}

// SupportedLanguages returns the languages of the contribution, or an empty
// list for unknown ids.
func (r *ContributionRegistry) SupportedLanguages(contributionID string) []string {
	contribution, found := r.lookup(contributionID)
	if !found {
		return nil
	}
	return contribution.Languages
}

// SchemaAttributes returns the contribution's JSON-schema attributes whenever
// they are defined, or an empty list otherwise.
func (r *ContributionRegistry) SchemaAttributes(contributionID string) []apiv1.SchemaAttributes {
	contribution, found := r.lookup(contributionID)
	if !found {
		return nil
	}
	return contribution.SchemaAttributes
}

// ConfigurationSnippets returns the contribution's configuration snippets, or
// an empty list for unknown ids.
func (r *ContributionRegistry) ConfigurationSnippets(contributionID string) []apiv1.ConfigurationSnippet {
	contribution, found := r.lookup(contributionID)
	if !found {
		return nil
	}
	return contribution.ConfigurationSnippets
}

// ProvideConfigurations asks the contribution's provider for initial debug
// configurations. Unknown ids and undeclared capabilities yield an empty
// list; provider errors propagate unmodified.
func (r *ContributionRegistry) ProvideConfigurations(ctx context.Context, contributionID string, folder string) ([]apiv1.DebugConfiguration, error) {
	contribution, found := r.lookup(contributionID)
	if !found || contribution.Provider == nil || !contribution.Provider.Capabilities().ProvideConfigurations {
		return nil, nil
	}
	return contribution.Provider.ProvideConfigurations(ctx, folder)
}

// ResolveConfiguration asks the contribution's provider to resolve a
// configuration. Unknown ids and undeclared capabilities yield a nil
// configuration; provider errors propagate unmodified.
func (r *ContributionRegistry) ResolveConfiguration(ctx context.Context, contributionID string, config apiv1.DebugConfiguration, folder string) (apiv1.DebugConfiguration, error) {
	contribution, found := r.lookup(contributionID)
	if !found || contribution.Provider == nil || !contribution.Provider.Capabilities().ResolveConfiguration {
		return nil, nil
	}
	return contribution.Provider.ResolveConfiguration(ctx, config, folder)
}
