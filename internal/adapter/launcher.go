/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package adapter

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/go-logr/logr"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
	"github.com/microsoft/debugbridge/pkg/process"
)

// DefaultModuleRuntime is the launcher used for {modulePath, args} descriptors.
const DefaultModuleRuntime = "node"

// moduleChannelFDEnv tells the module runtime which file descriptor carries
// the auxiliary IPC control channel.
const moduleChannelFDEnv = "NODE_CHANNEL_FD"

// Launcher turns a resolved executable descriptor into a running adapter
// process exposed as a duplex channel.
type Launcher interface {
	Launch(ctx context.Context, descriptor *ExecutableDescriptor) (DuplexChannel, error)
}

// LauncherConfig contains configuration for creating a ProcessLauncher.
type LauncherConfig struct {
	// Executor manages adapter process lifetimes. If nil, an OS executor is
	// created.
	Executor process.Executor

	// ModuleRuntime is the program used to start {modulePath} descriptors.
	// If empty, DefaultModuleRuntime is used.
	ModuleRuntime string

	// Logger for launch operations.
	Logger logr.Logger
}

// ProcessLauncher launches debug adapters as subprocesses with their stdin
// and stdout piped into the returned channel and stderr shared with this
// process.
type ProcessLauncher struct {
	executor      process.Executor
	moduleRuntime string
	log           logr.Logger
}

func NewProcessLauncher(config LauncherConfig) *ProcessLauncher {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	executor := config.Executor
	if executor == nil {
		executor = process.NewOSExecutor(log)
	}

	moduleRuntime := config.ModuleRuntime
	if moduleRuntime == "" {
		moduleRuntime = DefaultModuleRuntime
	}

	return &ProcessLauncher{
		executor:      executor,
		moduleRuntime: moduleRuntime,
		log:           log,
	}
}

// Launch starts the adapter described by the descriptor.
// Descriptors matching neither the command shape nor the module shape fail
// with ErrUnsupportedExecutable.
func (l *ProcessLauncher) Launch(ctx context.Context, descriptor *ExecutableDescriptor) (DuplexChannel, error) {
	switch {
	case descriptor == nil:
		return nil, fmt.Errorf("%w: no descriptor", apiv1.ErrUnsupportedExecutable)

	case descriptor.Command != "" && descriptor.ModulePath == "":
		cmd := exec.Command(descriptor.Command, descriptor.Args...)
		cmd.Env = buildEnv(descriptor.Env)
		return l.launch(ctx, cmd, nil)

	case descriptor.ModulePath != "" && descriptor.Command == "":
		return l.launchModule(ctx, descriptor)

	default:
		return nil, fmt.Errorf("%w: descriptor must carry exactly one of command or modulePath", apiv1.ErrUnsupportedExecutable)
	}
}

// launchModule starts a module under the module runtime with an auxiliary
// IPC pipe on a well-known file descriptor, mirroring what module-aware
// launchers expect.
func (l *ProcessLauncher) launchModule(ctx context.Context, descriptor *ExecutableDescriptor) (DuplexChannel, error) {
	args := make([]string, 0, len(descriptor.Args)+1)
	args = append(args, descriptor.ModulePath)
	args = append(args, descriptor.Args...)

	controlRead, controlWrite, pipeErr := os.Pipe()
	if pipeErr != nil {
		return nil, fmt.Errorf("failed to create control pipe: %w", pipeErr)
	}

	cmd := exec.Command(l.moduleRuntime, args...)
	// ExtraFiles start at fd 3 in the child.
	cmd.ExtraFiles = []*os.File{controlWrite}
	cmd.Env = append(buildEnv(descriptor.Env), fmt.Sprintf("%s=%d", moduleChannelFDEnv, 3))

	channel, launchErr := l.launch(ctx, cmd, controlRead)

	// The child holds its own copy of the write end.
	_ = controlWrite.Close()

	if launchErr != nil {
		_ = controlRead.Close()
		return nil, launchErr
	}
	return channel, nil
}

// buildEnv layers descriptor environment variables over the inherited
// environment.
func buildEnv(extra []apiv1.EnvVar) []string {
	env := os.Environ()
	for _, v := range extra {
		env = append(env, fmt.Sprintf("%s=%s", v.Name, v.Value))
	}
	return env
}

func (l *ProcessLauncher) launch(ctx context.Context, cmd *exec.Cmd, control *os.File) (*Channel, error) {
	// Stderr is deliberately not captured by the bridge.
	cmd.Stderr = os.Stderr

	stdin, stdinErr := cmd.StdinPipe()
	if stdinErr != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", stdinErr)
	}

	stdout, stdoutErr := cmd.StdoutPipe()
	if stdoutErr != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", stdoutErr)
	}

	channel := newChannel(stdin, stdout, control, l.executor)

	exitHandler := process.ExitHandlerFunc(func(handle process.Handle, exitCode int32, err error) {
		channel.markExited(exitCode, err)

		if err != nil {
			l.log.V(1).Info("Debug adapter process exited with error",
				"pid", handle.Pid,
				"exitCode", exitCode,
				"error", err)
		} else {
			l.log.V(1).Info("Debug adapter process exited",
				"pid", handle.Pid,
				"exitCode", exitCode)
		}
	})

	handle, startWaitForExit, startErr := l.executor.StartProcess(ctx, cmd, exitHandler)
	if startErr != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("failed to start debug adapter: %w", startErr)
	}
	channel.handle = handle

	startWaitForExit()

	l.log.Info("Launched debug adapter process",
		"command", cmd.Path,
		"args", cmd.Args[1:],
		"pid", handle.Pid)

	return channel, nil
}
