/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package adapter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
)

func TestResolvePlatform(t *testing.T) {
	testCases := []struct {
		goos     string
		wow64    bool
		expected PlatformKey
	}{
		{"windows", false, PlatformWin},
		{"windows", true, PlatformWinX86},
		{"darwin", false, PlatformOSX},
		{"darwin", true, PlatformOSX},
		{"linux", false, PlatformLinux},
		{"freebsd", false, PlatformLinux},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, ResolvePlatform(tc.goos, tc.wow64), "goos=%s wow64=%v", tc.goos, tc.wow64)
	}
}

func TestResolveExecutable_PicksPlatformRecord(t *testing.T) {
	metadata := &ExecutableMetadata{
		Win:   &PlatformExecutable{Program: "a"},
		OSX:   &PlatformExecutable{Program: "b"},
		Linux: &PlatformExecutable{Program: "c"},
	}

	descriptor, err := ResolveExecutable(metadata, "/plugin", PlatformLinux)
	require.NoError(t, err)
	assert.Equal(t, "c", descriptor.Command)
	assert.Empty(t, descriptor.Args)
}

func TestResolveExecutable_WinX86PreferredUnderWow64(t *testing.T) {
	metadata := &ExecutableMetadata{
		Win:    &PlatformExecutable{Program: "adapter64.exe"},
		WinX86: &PlatformExecutable{Program: "adapter32.exe"},
	}

	descriptor, err := ResolveExecutable(metadata, "/plugin", PlatformWinX86)
	require.NoError(t, err)
	assert.Equal(t, "adapter32.exe", descriptor.Command)

	// Without an x86 record the windows default applies.
	metadata.WinX86 = nil
	descriptor, err = ResolveExecutable(metadata, "/plugin", PlatformWinX86)
	require.NoError(t, err)
	assert.Equal(t, "adapter64.exe", descriptor.Command)
}

func TestResolveExecutable_FallsBackToUnqualifiedValues(t *testing.T) {
	metadata := &ExecutableMetadata{
		PlatformExecutable: PlatformExecutable{Program: "adapter", Args: []string{"--stdio"}},
	}

	descriptor, err := ResolveExecutable(metadata, "/plugin", PlatformOSX)
	require.NoError(t, err)
	assert.Equal(t, "adapter", descriptor.Command)
	assert.Equal(t, []string{"--stdio"}, descriptor.Args)
}

func TestResolveExecutable_PlatformRecordOverridesFieldByField(t *testing.T) {
	metadata := &ExecutableMetadata{
		PlatformExecutable: PlatformExecutable{Program: "adapter", Args: []string{"--stdio"}},
		Linux:              &PlatformExecutable{Args: []string{"--socket"}},
	}

	descriptor, err := ResolveExecutable(metadata, "/plugin", PlatformLinux)
	require.NoError(t, err)
	assert.Equal(t, "adapter", descriptor.Command)
	assert.Equal(t, []string{"--socket"}, descriptor.Args)
}

func TestResolveExecutable_RuntimeProducesRuntimeCommand(t *testing.T) {
	metadata := &ExecutableMetadata{
		PlatformExecutable: PlatformExecutable{
			Runtime:     "node",
			RuntimeArgs: []string{"--nolazy"},
			Program:     "adapter.js",
			Args:        []string{"--server"},
		},
	}

	descriptor, err := ResolveExecutable(metadata, "/plugin", PlatformLinux)
	require.NoError(t, err)
	assert.Equal(t, "node", descriptor.Command)
	assert.Equal(t, []string{"--nolazy", "adapter.js", "--server"}, descriptor.Args)
}

func TestResolveExecutable_RelativeRuntimeJoinsPluginPath(t *testing.T) {
	metadata := &ExecutableMetadata{
		PlatformExecutable: PlatformExecutable{
			Runtime: "./r",
			Program: "adapter.js",
		},
	}

	descriptor, err := ResolveExecutable(metadata, "/p", PlatformLinux)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/p", "r"), descriptor.Command)
	assert.Equal(t, []string{"adapter.js"}, descriptor.Args)
}

func TestResolveExecutable_NoProgramIsNotConfigured(t *testing.T) {
	_, err := ResolveExecutable(&ExecutableMetadata{}, "/plugin", PlatformLinux)
	assert.ErrorIs(t, err, apiv1.ErrNotConfigured)

	_, err = ResolveExecutable(nil, "/plugin", PlatformLinux)
	assert.ErrorIs(t, err, apiv1.ErrNotConfigured)
}
