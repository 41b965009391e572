/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package extension

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
	"github.com/microsoft/debugbridge/internal/adapter"
	"github.com/microsoft/debugbridge/pkg/syncmap"
)

// ConnectionRegistry supplies the host-visible virtual connection for a
// session id. It is a host-side authority; the bridge only asks it to
// "ensure" a connection exists and then binds the adapter channel to it.
type ConnectionRegistry interface {
	EnsureConnection(ctx context.Context, sessionID string) (io.ReadWriteCloser, error)
}

// ConnectionRegistryFunc adapts a function to the ConnectionRegistry interface.
type ConnectionRegistryFunc func(ctx context.Context, sessionID string) (io.ReadWriteCloser, error)

func (f ConnectionRegistryFunc) EnsureConnection(ctx context.Context, sessionID string) (io.ReadWriteCloser, error) {
	return f(ctx, sessionID)
}

// SessionRegistryConfig contains configuration for creating a SessionRegistry.
type SessionRegistryConfig struct {
	// Contributions is the registry sessions resolve their contribution from.
	Contributions *ContributionRegistry

	// Launcher starts adapter processes. If nil, a ProcessLauncher is created.
	Launcher adapter.Launcher

	// Connections supplies the host-visible connection per session.
	Connections ConnectionRegistry

	// Platform overrides platform detection (used by tests). If empty, the
	// current platform is used.
	Platform adapter.PlatformKey

	// Logger for session lifecycle operations.
	Logger logr.Logger
}

// SessionRegistry is the extension-side table of live debug sessions, keyed
// by generated session id. It orchestrates create → attach-channel → run →
// terminate.
type SessionRegistry struct {
	sessions      syncmap.Map[string, *Session]
	contributions *ContributionRegistry
	launcher      adapter.Launcher
	connections   ConnectionRegistry
	platform      adapter.PlatformKey
	log           logr.Logger

	// lifetimeCtx bounds adapter process lifetimes; cancelled by DisposeAll.
	lifetimeCtx    context.Context
	cancelLifetime context.CancelFunc
}

func NewSessionRegistry(config SessionRegistryConfig) *SessionRegistry {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	launcher := config.Launcher
	if launcher == nil {
		launcher = adapter.NewProcessLauncher(adapter.LauncherConfig{Logger: log})
	}

	platform := config.Platform
	if platform == "" {
		platform = adapter.CurrentPlatform()
	}

	lifetimeCtx, cancelLifetime := context.WithCancel(context.Background())

	return &SessionRegistry{
		contributions:  config.Contributions,
		launcher:       launcher,
		connections:    config.Connections,
		platform:       platform,
		log:            log.WithName("sessions"),
		lifetimeCtx:    lifetimeCtx,
		cancelLifetime: cancelLifetime,
	}
}

// CreateSession resolves an adapter executable for the contribution, launches
// it, registers a fresh session and binds its channel to the host-visible
// connection. Returns the minted session id.
//
// Fails with ErrNotFound for an unknown contribution, ErrNotConfigured when
// no executable can be determined, ErrUnsupportedExecutable for a malformed
// descriptor; errors raised by the contribution's own provider propagate
// unmodified.
func (r *SessionRegistry) CreateSession(ctx context.Context, contributionID string, config apiv1.DebugConfiguration) (string, error) {
	contribution, found := r.contributions.lookup(contributionID)
	if !found {
		return "", fmt.Errorf("%w: contribution %q", apiv1.ErrNotFound, contributionID)
	}

	descriptor, resolveErr := r.resolveExecutable(ctx, contribution, config)
	if resolveErr != nil {
		return "", resolveErr
	}

	// The adapter process must outlive this call; its lifetime is bound to
	// the registry, not the request.
	channel, launchErr := r.launcher.Launch(r.lifetimeCtx, descriptor)
	if launchErr != nil {
		return "", launchErr
	}

	sessionID := uuid.NewString()
	session := newSession(sessionID, contribution, contributionID, config, channel, r.log)
	r.sessions.Store(sessionID, session)

	conn, connErr := r.connections.EnsureConnection(ctx, sessionID)
	if connErr != nil {
		r.sessions.Delete(sessionID)
		session.Stop()
		return "", fmt.Errorf("failed to establish connection for session %s: %w", sessionID, connErr)
	}

	session.Bind(conn)

	r.log.Info("Created debug session",
		"sessionID", sessionID,
		"contributionID", contributionID,
		"type", contribution.Type,
		"name", config.Name())

	return sessionID, nil
}

// resolveExecutable obtains the executable descriptor from the contribution's
// own provider when it declares that capability, else from the package
// metadata via the executable resolver.
func (r *SessionRegistry) resolveExecutable(ctx context.Context, contribution *Contribution, config apiv1.DebugConfiguration) (*adapter.ExecutableDescriptor, error) {
	if contribution.Provider != nil && contribution.Provider.Capabilities().ProvideExecutable {
		descriptor, provideErr := contribution.Provider.ProvideExecutable(ctx, config)
		if provideErr != nil {
			return nil, provideErr
		}
		if descriptor == nil {
			return nil, fmt.Errorf("%w: contribution provided no executable", apiv1.ErrNotConfigured)
		}
		return descriptor, nil
	}

	return adapter.ResolveExecutable(contribution.Executables, contribution.PluginPath, r.platform)
}

// TerminateSession removes the session from the registry and tears it down.
// The removal happens before the stop sequence runs, so concurrent lookups
// never observe a session mid-teardown. Unknown ids are a silent no-op.
func (r *SessionRegistry) TerminateSession(sessionID string) {
	session, found := r.sessions.LoadAndDelete(sessionID)
	if !found {
		return
	}

	session.Stop()
	r.log.Info("Terminated debug session", "sessionID", sessionID)
}

// CustomRequest forwards a protocol request to the session's adapter.
// Fails with ErrNotFound when the session id does not resolve to a live
// session.
func (r *SessionRegistry) CustomRequest(ctx context.Context, sessionID string, command string, args json.RawMessage) (json.RawMessage, error) {
	session, found := r.sessions.Load(sessionID)
	if !found {
		return nil, fmt.Errorf("%w: session %q", apiv1.ErrNotFound, sessionID)
	}

	return session.CustomRequest(ctx, command, args)
}

// Lookup returns the live session for the id.
func (r *SessionRegistry) Lookup(sessionID string) (*Session, bool) {
	return r.sessions.Load(sessionID)
}

// Empty reports whether no sessions are live.
func (r *SessionRegistry) Empty() bool {
	return r.sessions.Empty()
}

// DisposeAll terminates every live session. Called at process end.
func (r *SessionRegistry) DisposeAll() {
	r.sessions.Range(func(sessionID string, _ *Session) bool {
		r.TerminateSession(sessionID)
		return true
	})
	r.cancelLifetime()
}
