/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package process manages the lifetime of externally-spawned subprocesses.
// An Executor ties a process to a context: cancelling the context kills the
// process, and exit notifications are delivered to a handler exactly once.
package process

import (
	"context"
	"os/exec"
	"time"
)

const (
	// UnknownExitCode indicates that the process exit code has not been obtained.
	UnknownExitCode int32 = -1

	// UnknownPID is used when a process is not started (or fails to start).
	UnknownPID int32 = -1
)

// Handle is a reference to a started process. It carries the PID together
// with the process creation time so that a stale handle (PID reuse after
// exit) is never mistaken for the process it originally named.
// Handle is a value type and is safe to use as a map key.
type Handle struct {
	Pid          int32
	IdentityTime time.Time
}

// Valid reports whether the handle names a started process.
func (h Handle) Valid() bool {
	return h.Pid != UnknownPID
}

type Executor interface {
	// StartProcess starts the process described by the given command.
	// When the passed context is cancelled, the process is killed.
	// Returns the process handle and a function that arms process exit
	// notifications delivered to the exit handler.
	StartProcess(ctx context.Context, cmd *exec.Cmd, exitHandler ExitHandler) (handle Handle, startWaitForExit func(), err error)

	// StopProcess kills the process named by the handle. Stopping a process
	// that has already exited (or a handle whose PID was reused) is a no-op.
	StopProcess(handle Handle) error
}

type ExitHandler interface {
	// OnProcessExited indicates that the process has finished execution.
	// If err is nil, exitCode holds the captured exit code; otherwise the
	// process could not be tracked and exitCode is not valid.
	OnProcessExited(handle Handle, exitCode int32, err error)
}

// ExitHandlerFunc makes it easy to supply a function as an exit handler.
type ExitHandlerFunc func(Handle, int32, error)

func (f ExitHandlerFunc) OnProcessExited(handle Handle, exitCode int32, err error) {
	f(handle, exitCode, err)
}
