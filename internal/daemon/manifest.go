/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
	"github.com/microsoft/debugbridge/internal/adapter"
	"github.com/microsoft/debugbridge/internal/extension"
)

// ContributionManifest is the on-disk description of a debug-adapter
// contribution, loaded at daemon startup. It mirrors the "debuggers" section
// of a plugin's package metadata.
type ContributionManifest struct {
	Type      string   `json:"type"`
	Label     string   `json:"label,omitempty"`
	Languages []string `json:"languages,omitempty"`

	ConfigurationAttributes []apiv1.SchemaAttributes     `json:"configurationAttributes,omitempty"`
	ConfigurationSnippets   []apiv1.ConfigurationSnippet `json:"configurationSnippets,omitempty"`

	Executables *adapter.ExecutableMetadata `json:"executables,omitempty"`

	// PluginPath is the root relative runtimes resolve against. Defaults to
	// the manifest's own directory.
	PluginPath string `json:"pluginPath,omitempty"`
}

// LoadContributionManifest reads and validates a manifest file.
func LoadContributionManifest(path string) (*ContributionManifest, error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read contribution manifest: %w", readErr)
	}

	var manifest ContributionManifest
	if unmarshalErr := json.Unmarshal(data, &manifest); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse contribution manifest %s: %w", path, unmarshalErr)
	}

	if manifest.Type == "" {
		return nil, fmt.Errorf("contribution manifest %s has no debug type", path)
	}

	if manifest.PluginPath == "" {
		absDir, absErr := filepath.Abs(filepath.Dir(path))
		if absErr != nil {
			return nil, fmt.Errorf("failed to resolve plugin path for manifest %s: %w", path, absErr)
		}
		manifest.PluginPath = absDir
	}

	return &manifest, nil
}

// Contribution converts the manifest to a registrable contribution.
// Manifest-described contributions carry no provider; their capability calls
// degrade to empty results and executables resolve from the metadata table.
func (m *ContributionManifest) Contribution() *extension.Contribution {
	return &extension.Contribution{
		Type:                  m.Type,
		Label:                 m.Label,
		Languages:             m.Languages,
		SchemaAttributes:      m.ConfigurationAttributes,
		ConfigurationSnippets: m.ConfigurationSnippets,
		Executables:           m.Executables,
		PluginPath:            m.PluginPath,
	}
}
