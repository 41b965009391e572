/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package daemon runs the extension side of the debug bridge as a standalone
// process: a control socket carrying the remote-call channel, plus one socket
// per live session carrying that session's adapter traffic.
package daemon

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-logr/logr"
)

// SessionSocketRegistry hands out one unix socket per session id. The socket
// path is derived from the id, so the host side can connect without a
// separate rendezvous step. The connection returned by EnsureConnection is
// usable immediately; reads and writes block until the host actually
// connects.
type SessionSocketRegistry struct {
	dir string
	log logr.Logger
}

func NewSessionSocketRegistry(dir string, log logr.Logger) *SessionSocketRegistry {
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	return &SessionSocketRegistry{
		dir: dir,
		log: log.WithName("sockets"),
	}
}

// SocketPath returns the socket path for a session id.
func (r *SessionSocketRegistry) SocketPath(sessionID string) string {
	return filepath.Join(r.dir, fmt.Sprintf("dap-%s.sock", sessionID))
}

// EnsureConnection opens the session's socket and returns a connection that
// completes once the host side dials in.
func (r *SessionSocketRegistry) EnsureConnection(_ context.Context, sessionID string) (io.ReadWriteCloser, error) {
	path := r.SocketPath(sessionID)

	// A leftover socket from a previous instance would make Listen fail.
	if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
		return nil, fmt.Errorf("failed to remove stale session socket %s: %w", path, removeErr)
	}

	listener, listenErr := net.Listen("unix", path)
	if listenErr != nil {
		return nil, fmt.Errorf("failed to listen on session socket %s: %w", path, listenErr)
	}

	r.log.V(1).Info("Session socket open", "sessionID", sessionID, "path", path)

	conn := &lazyConn{
		listener: listener,
		path:     path,
		accepted: make(chan struct{}),
	}
	go conn.accept()

	return conn, nil
}

// lazyConn is a net.Conn-like wrapper whose underlying connection appears
// only when the peer dials the listener. Read and Write block until then.
type lazyConn struct {
	listener net.Listener
	path     string

	accepted chan struct{}
	conn     net.Conn
	acceptEr error

	closeOnce sync.Once
}

func (c *lazyConn) accept() {
	conn, acceptErr := c.listener.Accept()
	c.conn = conn
	c.acceptEr = acceptErr
	close(c.accepted)

	// One peer per session; no further connections are served.
	_ = c.listener.Close()
}

func (c *lazyConn) await() (net.Conn, error) {
	<-c.accepted
	if c.acceptEr != nil {
		return nil, c.acceptEr
	}
	return c.conn, nil
}

func (c *lazyConn) Read(p []byte) (int, error) {
	conn, awaitErr := c.await()
	if awaitErr != nil {
		return 0, awaitErr
	}
	return conn.Read(p)
}

func (c *lazyConn) Write(p []byte) (int, error) {
	conn, awaitErr := c.await()
	if awaitErr != nil {
		return 0, awaitErr
	}
	return conn.Write(p)
}

func (c *lazyConn) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		// Closing the listener unblocks a pending accept, so the wait below
		// is always short.
		closeErr = c.listener.Close()

		<-c.accepted
		if c.conn != nil {
			closeErr = c.conn.Close()
		}

		_ = os.Remove(c.path)
	})
	return closeErr
}
