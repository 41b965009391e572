/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package adapter resolves and launches debug adapter executables and exposes
// a running adapter's stdio as a duplex communication channel.
package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
)

// PlatformKey identifies the platform section of a contribution's executable
// metadata.
type PlatformKey string

const (
	// PlatformWinX86 is a 32-bit process on 64-bit Windows.
	PlatformWinX86 PlatformKey = "winx86"

	PlatformWin   PlatformKey = "win"
	PlatformOSX   PlatformKey = "osx"
	PlatformLinux PlatformKey = "linux"
)

// wow64Marker is set by Windows in the environment of 32-bit processes
// running on a 64-bit OS.
const wow64Marker = "PROCESSOR_ARCHITEW6432"

// ResolvePlatform maps an operating system name (runtime.GOOS values) and the
// presence of the WOW64 environment marker to a platform key.
func ResolvePlatform(goos string, wow64 bool) PlatformKey {
	switch goos {
	case "windows":
		if wow64 {
			return PlatformWinX86
		}
		return PlatformWin
	case "darwin":
		return PlatformOSX
	default:
		return PlatformLinux
	}
}

// CurrentPlatform resolves the platform key for the running process.
func CurrentPlatform() PlatformKey {
	_, wow64 := os.LookupEnv(wow64Marker)
	return ResolvePlatform(runtime.GOOS, wow64)
}

// PlatformExecutable describes how to launch a debug adapter: an optional
// runtime (e.g. an interpreter) with its arguments, and the adapter program
// with its arguments.
type PlatformExecutable struct {
	Runtime     string   `json:"runtime,omitempty"`
	RuntimeArgs []string `json:"runtimeArgs,omitempty"`
	Program     string   `json:"program,omitempty"`
	Args        []string `json:"args,omitempty"`
}

// ExecutableMetadata is the per-platform executable table from a
// contribution's package metadata. Platform records override the unqualified
// values field by field.
type ExecutableMetadata struct {
	PlatformExecutable

	Win    *PlatformExecutable `json:"win,omitempty"`
	WinX86 *PlatformExecutable `json:"winx86,omitempty"`
	OSX    *PlatformExecutable `json:"osx,omitempty"`
	Linux  *PlatformExecutable `json:"linux,omitempty"`
}

// ExecutableDescriptor is the resolved recipe for launching a debug adapter
// process. Exactly one of Command and ModulePath is set.
type ExecutableDescriptor struct {
	// Command is a program to spawn directly.
	Command string `json:"command,omitempty"`

	// ModulePath is a script to start under a module-aware launcher.
	ModulePath string `json:"modulePath,omitempty"`

	Args []string `json:"args"`

	// Env is applied on top of the inherited environment.
	Env []apiv1.EnvVar `json:"env,omitempty"`
}

// forPlatform returns the platform record for the key, with the WOW64
// variant preferring winx86 over the windows default.
func (m *ExecutableMetadata) forPlatform(platform PlatformKey) *PlatformExecutable {
	switch platform {
	case PlatformWinX86:
		if m.WinX86 != nil {
			return m.WinX86
		}
		return m.Win
	case PlatformWin:
		return m.Win
	case PlatformOSX:
		return m.OSX
	case PlatformLinux:
		return m.Linux
	default:
		return nil
	}
}

// ResolveExecutable picks the concrete program, runtime and arguments for the
// given platform from a contribution's executable metadata.
//
// A runtime that is a relative path beginning with "./" is resolved against
// the plugin root. With a runtime present, the produced command is the
// runtime and the argument list is [...runtimeArgs, program, ...args];
// without one it is the program with its args alone.
func ResolveExecutable(metadata *ExecutableMetadata, pluginPath string, platform PlatformKey) (*ExecutableDescriptor, error) {
	if metadata == nil {
		return nil, fmt.Errorf("%w: contribution has no executable metadata", apiv1.ErrNotConfigured)
	}

	program := metadata.Program
	programArgs := metadata.Args
	runtimeName := metadata.Runtime
	runtimeArgs := metadata.RuntimeArgs

	if info := metadata.forPlatform(platform); info != nil {
		if info.Program != "" {
			program = info.Program
		}
		if info.Args != nil {
			programArgs = info.Args
		}
		if info.Runtime != "" {
			runtimeName = info.Runtime
		}
		if info.RuntimeArgs != nil {
			runtimeArgs = info.RuntimeArgs
		}
	}

	if program == "" {
		return nil, fmt.Errorf("%w: no debug adapter program for platform %q", apiv1.ErrNotConfigured, platform)
	}

	if strings.HasPrefix(runtimeName, "./") {
		runtimeName = filepath.Join(pluginPath, runtimeName)
	}

	if runtimeName != "" {
		args := make([]string, 0, len(runtimeArgs)+1+len(programArgs))
		args = append(args, runtimeArgs...)
		args = append(args, program)
		args = append(args, programArgs...)
		return &ExecutableDescriptor{Command: runtimeName, Args: args}, nil
	}

	args := make([]string, len(programArgs))
	copy(args, programArgs)
	return &ExecutableDescriptor{Command: program, Args: args}, nil
}
