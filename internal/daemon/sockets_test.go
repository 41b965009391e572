/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package daemon

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSocketRegistry_RoundTrip(t *testing.T) {
	registry := NewSessionSocketRegistry(t.TempDir(), testr.New(t))

	conn, err := registry.EnsureConnection(context.Background(), "s1")
	require.NoError(t, err)
	defer conn.Close()

	// The bridge-side write blocks until the host dials in.
	writeDone := make(chan error, 1)
	go func() {
		_, writeErr := conn.Write([]byte("ping"))
		writeDone <- writeErr
	}()

	hostConn, dialErr := net.Dial("unix", registry.SocketPath("s1"))
	require.NoError(t, dialErr)
	defer hostConn.Close()

	buf := make([]byte, 4)
	_, readErr := hostConn.Read(buf)
	require.NoError(t, readErr)
	assert.Equal(t, "ping", string(buf))

	select {
	case writeErr := <-writeDone:
		require.NoError(t, writeErr)
	case <-time.After(5 * time.Second):
		t.Fatal("write did not complete after host connected")
	}

	// Traffic flows the other way too.
	_, writeErr := hostConn.Write([]byte("pong"))
	require.NoError(t, writeErr)
	_, readErr = conn.Read(buf)
	require.NoError(t, readErr)
	assert.Equal(t, "pong", string(buf))
}

func TestSessionSocketRegistry_CloseBeforeConnect(t *testing.T) {
	registry := NewSessionSocketRegistry(t.TempDir(), testr.New(t))

	conn, err := registry.EnsureConnection(context.Background(), "s2")
	require.NoError(t, err)

	require.NoError(t, conn.Close())

	_, statErr := os.Stat(registry.SocketPath("s2"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSessionSocketRegistry_ReplacesStaleSocket(t *testing.T) {
	dir := t.TempDir()
	registry := NewSessionSocketRegistry(dir, testr.New(t))

	stale, err := registry.EnsureConnection(context.Background(), "s3")
	require.NoError(t, err)
	// Leave the stale socket file behind by not closing cleanly first.

	fresh, err := registry.EnsureConnection(context.Background(), "s3")
	require.NoError(t, err)
	defer fresh.Close()
	defer stale.Close()

	hostConn, dialErr := net.Dial("unix", registry.SocketPath("s3"))
	require.NoError(t, dialErr)
	defer hostConn.Close()
}
