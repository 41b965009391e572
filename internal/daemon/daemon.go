/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"

	"github.com/microsoft/debugbridge/internal/extension"
	"github.com/microsoft/debugbridge/pkg/randdata"
	"github.com/microsoft/debugbridge/pkg/rpc"
)

const socketSuffixLength = 8

// Config contains configuration for running the daemon.
type Config struct {
	// SocketDir is where the control and session sockets live. A fresh
	// directory under the system temp dir is created when empty.
	SocketDir string

	// ControlSocket overrides the control socket path. When empty a randomly
	// suffixed name under SocketDir is used so multiple instances coexist.
	ControlSocket string

	// ManifestPaths are contribution manifest files registered for every
	// host connection.
	ManifestPaths []string

	Logger logr.Logger
}

// Daemon is the extension side of the debug bridge as a standalone process.
// It serves one host connection at a time on the control socket; each
// connection gets its own registries, and everything the connection created
// is disposed when it closes.
type Daemon struct {
	socketDir     string
	controlSocket string
	manifests     []*ContributionManifest
	log           logr.Logger
}

func New(config Config) (*Daemon, error) {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	socketDir := config.SocketDir
	if socketDir == "" {
		suffix, randErr := randdata.MakeRandomString(socketSuffixLength)
		if randErr != nil {
			return nil, fmt.Errorf("failed to generate socket directory name: %w", randErr)
		}
		socketDir = filepath.Join(os.TempDir(), "debugbridge-"+suffix)
	}
	if mkdirErr := os.MkdirAll(socketDir, 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("failed to create socket directory %s: %w", socketDir, mkdirErr)
	}

	controlSocket := config.ControlSocket
	if controlSocket == "" {
		controlSocket = filepath.Join(socketDir, "control.sock")
	}

	manifests := make([]*ContributionManifest, 0, len(config.ManifestPaths))
	for _, path := range config.ManifestPaths {
		manifest, loadErr := LoadContributionManifest(path)
		if loadErr != nil {
			return nil, loadErr
		}
		manifests = append(manifests, manifest)
	}

	return &Daemon{
		socketDir:     socketDir,
		controlSocket: controlSocket,
		manifests:     manifests,
		log:           log.WithName("daemon"),
	}, nil
}

// ControlSocket returns the path of the control socket.
func (d *Daemon) ControlSocket() string {
	return d.controlSocket
}

// Run listens on the control socket and serves host connections until the
// context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if removeErr := os.Remove(d.controlSocket); removeErr != nil && !os.IsNotExist(removeErr) {
		return fmt.Errorf("failed to remove stale control socket: %w", removeErr)
	}

	listener, listenErr := net.Listen("unix", d.controlSocket)
	if listenErr != nil {
		return fmt.Errorf("failed to listen on control socket %s: %w", d.controlSocket, listenErr)
	}

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()
	defer func() {
		_ = listener.Close()
		_ = os.Remove(d.controlSocket)
	}()

	d.log.Info("Debug bridge listening", "controlSocket", d.controlSocket, "socketDir", d.socketDir)

	for {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(acceptErr, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("failed to accept host connection: %w", acceptErr)
		}

		d.log.Info("Host connected")
		d.serveConnection(ctx, conn)
		d.log.Info("Host disconnected")
	}
}

// serveConnection runs one host connection to completion. The registries are
// per-connection: when the host goes away every session it created is torn
// down and the contribution table starts empty for the next connection.
func (d *Daemon) serveConnection(ctx context.Context, conn net.Conn) {
	channel := rpc.NewChannel(conn, d.log)

	hostProxy := extension.NewHostProxy(channel)
	contributions := extension.NewContributionRegistry(hostProxy, d.log)
	sessions := extension.NewSessionRegistry(extension.SessionRegistryConfig{
		Contributions: contributions,
		Connections:   NewSessionSocketRegistry(d.socketDir, d.log),
		Logger:        d.log,
	})
	defer sessions.DisposeAll()

	state := extension.NewDebugState()
	endpoint := extension.NewEndpoint(extension.EndpointConfig{
		Contributions: contributions,
		Sessions:      sessions,
		State:         state,
		Logger:        d.log,
	})
	endpoint.Attach(channel)

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- channel.Serve(ctx)
	}()

	// Registration announces each contribution to the host, so it has to
	// happen with the channel already being served.
	disposers := make([]func(), 0, len(d.manifests))
	for _, manifest := range d.manifests {
		_, dispose := contributions.Register(ctx, manifest.Contribution())
		disposers = append(disposers, dispose)
	}
	defer func() {
		for _, dispose := range disposers {
			dispose()
		}
	}()

	if serveErr := <-serveDone; serveErr != nil {
		d.log.Error(serveErr, "Host connection ended with an error")
	}
}
