/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/go-logr/logr"
	"github.com/tklauser/ps"
)

// identityTimeTolerance absorbs rounding differences between the creation
// time captured at start and the one reported by a later process lookup.
const identityTimeTolerance = 2 * time.Second

type OSExecutor struct {
	log logr.Logger
}

func NewOSExecutor(log logr.Logger) Executor {
	return &OSExecutor{
		log: log.WithName("os-executor"),
	}
}

func (e *OSExecutor) StartProcess(ctx context.Context, cmd *exec.Cmd, exitHandler ExitHandler) (Handle, func(), error) {
	if err := cmd.Start(); err != nil {
		return Handle{Pid: UnknownPID}, nil, err
	}

	handle := Handle{
		Pid:          int32(cmd.Process.Pid),
		IdentityTime: time.Now(),
	}

	// The OS-reported creation timestamp is the most accurate identity we can
	// get; fall back to our own clock when the lookup fails.
	if psProcess, psErr := ps.FindProcess(cmd.Process.Pid); psErr == nil {
		handle.IdentityTime = psProcess.CreationTime()
	} else {
		e.log.V(1).Info("Could not read process creation time", "pid", handle.Pid, "error", psErr)
	}

	waitCh := make(chan error, 1)

	startWaitForExit := func() {
		go func() {
			waitCh <- cmd.Wait()
		}()

		go func() {
			var waitErr error

			select {
			case waitErr = <-waitCh:
				// Process exited on its own.

			case <-ctx.Done():
				// Context expired; kill the process and collect the wait result
				// so the process table entry is reaped.
				if killErr := cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
					e.log.V(1).Info("Failed to kill process on context cancellation", "pid", handle.Pid, "error", killErr)
				}
				waitErr = <-waitCh
			}

			if exitHandler != nil {
				exitCode, exitErr := exitResult(cmd, waitErr)
				exitHandler.OnProcessExited(handle, exitCode, exitErr)
			}
		}()
	}

	return handle, startWaitForExit, nil
}

func (e *OSExecutor) StopProcess(handle Handle) error {
	if !handle.Valid() {
		return nil
	}

	// Verify the PID still names the process we started before killing it.
	psProcess, findErr := ps.FindProcess(int(handle.Pid))
	if findErr != nil {
		// Process already exited.
		return nil
	}

	if !handle.IdentityTime.IsZero() {
		delta := psProcess.CreationTime().Sub(handle.IdentityTime)
		if delta < -identityTimeTolerance || delta > identityTimeTolerance {
			e.log.V(1).Info("PID was reused by another process, not stopping it", "pid", handle.Pid)
			return nil
		}
	}

	osProcess, findErr := os.FindProcess(int(handle.Pid))
	if findErr != nil {
		return nil
	}

	if killErr := osProcess.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
		return killErr
	}

	return nil
}

// exitResult extracts the exit code and a tracking error from a wait result.
func exitResult(cmd *exec.Cmd, waitErr error) (int32, error) {
	if cmd.ProcessState != nil {
		code := int32(cmd.ProcessState.ExitCode())

		// A non-nil ExitError just reports a non-zero exit code or a signal;
		// the exit code itself was still captured properly.
		var exitErr *exec.ExitError
		if waitErr == nil || errors.As(waitErr, &exitErr) {
			return code, nil
		}
		return code, waitErr
	}

	return UnknownExitCode, waitErr
}
