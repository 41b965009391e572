/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package adapter

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/microsoft/debugbridge/pkg/process"
)

// DuplexChannel is the communication channel of a launched debug adapter:
// writes go to the adapter's standard input, reads come from its standard
// output, and Dispose forcibly terminates the adapter process.
type DuplexChannel interface {
	io.ReadWriter

	// Dispose kills the associated subprocess and releases the channel's
	// resources. It is idempotent and does not fail if the process has
	// already exited.
	Dispose() error
}

// Channel is the stdio-backed DuplexChannel for a launched adapter process.
type Channel struct {
	stdin  io.WriteCloser
	stdout io.ReadCloser

	// control is the auxiliary IPC pipe of module-mode adapters (nil for
	// command-mode adapters).
	control *os.File

	executor process.Executor
	handle   process.Handle

	// done is closed when the adapter process exits.
	done chan struct{}

	exitMu   sync.Mutex
	exitCode int32
	exitErr  error

	disposeOnce sync.Once
	disposeErr  error
}

func newChannel(stdin io.WriteCloser, stdout io.ReadCloser, control *os.File, executor process.Executor) *Channel {
	return &Channel{
		stdin:    stdin,
		stdout:   stdout,
		control:  control,
		executor: executor,
		done:     make(chan struct{}),
		exitCode: process.UnknownExitCode,
	}
}

func (c *Channel) Read(p []byte) (int, error) {
	return c.stdout.Read(p)
}

func (c *Channel) Write(p []byte) (int, error) {
	return c.stdin.Write(p)
}

// Pid returns the process id of the adapter process.
func (c *Channel) Pid() int32 {
	return c.handle.Pid
}

// Done returns a channel that is closed when the adapter process exits.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// ExitCode returns the adapter's exit code. Only valid after Done is closed.
func (c *Channel) ExitCode() int32 {
	c.exitMu.Lock()
	defer c.exitMu.Unlock()
	return c.exitCode
}

// markExited records the process exit; invoked by the executor's exit handler.
func (c *Channel) markExited(exitCode int32, err error) {
	c.exitMu.Lock()
	c.exitCode = exitCode
	c.exitErr = err
	c.exitMu.Unlock()
	close(c.done)
}

// Dispose closes the stdio pipes and kills the adapter process.
// Disposing an already-disposed channel, or one whose process has already
// exited, is a no-op.
func (c *Channel) Dispose() error {
	c.disposeOnce.Do(func() {
		var errs []error

		// The pipes are closed by the runtime once the process exits, so a
		// close error here is not worth surfacing.
		appendCloseErr := func(closeErr error) {
			if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				errs = append(errs, closeErr)
			}
		}

		appendCloseErr(c.stdin.Close())
		appendCloseErr(c.stdout.Close())
		if c.control != nil {
			appendCloseErr(c.control.Close())
		}

		select {
		case <-c.done:
			// Process already exited; nothing to stop.
		default:
			if stopErr := c.executor.StopProcess(c.handle); stopErr != nil {
				errs = append(errs, stopErr)
			}
		}

		c.disposeErr = errors.Join(errs...)
	})

	return c.disposeErr
}
