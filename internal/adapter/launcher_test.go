/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package adapter

import (
	"bufio"
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
)

func TestLaunch_RejectsUnrecognizedDescriptors(t *testing.T) {
	launcher := NewProcessLauncher(LauncherConfig{})

	testCases := []struct {
		name       string
		descriptor *ExecutableDescriptor
	}{
		{"nil descriptor", nil},
		{"empty descriptor", &ExecutableDescriptor{}},
		{"both shapes", &ExecutableDescriptor{Command: "x", ModulePath: "m.js"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := launcher.Launch(context.Background(), tc.descriptor)
			assert.ErrorIs(t, err, apiv1.ErrUnsupportedExecutable)
		})
	}
}

func TestLaunch_CommandShapeRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on cat")
	}

	launcher := NewProcessLauncher(LauncherConfig{})

	channel, err := launcher.Launch(context.Background(), &ExecutableDescriptor{Command: "cat"})
	require.NoError(t, err)
	defer channel.Dispose()

	_, err = channel.Write([]byte("hello\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(channel).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "hello\n", line)
}

func TestLaunch_ModuleShapeRunsUnderModuleRuntime(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on sh")
	}

	// The module runtime is the launching program and the module path is its
	// first argument, with the descriptor args following.
	launcher := NewProcessLauncher(LauncherConfig{ModuleRuntime: "sh"})

	channel, err := launcher.Launch(context.Background(), &ExecutableDescriptor{
		ModulePath: "-c",
		Args:       []string{`echo "fd=$NODE_CHANNEL_FD"`},
	})
	require.NoError(t, err)
	defer channel.Dispose()

	// The auxiliary IPC channel is announced on fd 3.
	line, err := bufio.NewReader(channel).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "fd=3\n", line)
}

func TestLaunch_AppliesDescriptorEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on sh")
	}

	launcher := NewProcessLauncher(LauncherConfig{})

	channel, err := launcher.Launch(context.Background(), &ExecutableDescriptor{
		Command: "sh",
		Args:    []string{"-c", `echo "$ADAPTER_TOKEN"`},
		Env:     []apiv1.EnvVar{{Name: "ADAPTER_TOKEN", Value: "secret"}},
	})
	require.NoError(t, err)
	defer channel.Dispose()

	line, err := bufio.NewReader(channel).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "secret\n", line)
}

func TestDispose_IsIdempotent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on cat")
	}

	launcher := NewProcessLauncher(LauncherConfig{})

	channel, err := launcher.Launch(context.Background(), &ExecutableDescriptor{Command: "cat"})
	require.NoError(t, err)

	assert.NoError(t, channel.Dispose())
	assert.NoError(t, channel.Dispose())
}
