/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package extension

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/google/go-dap"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
	"github.com/microsoft/debugbridge/internal/adapter"
	"github.com/microsoft/debugbridge/pkg/syncmap"
)

// ErrSessionTerminated is returned to custom-request callers whose session
// was torn down while the request was in flight.
var ErrSessionTerminated = errors.New("debug session terminated")

// envelope is the minimal view of a DAP message the bridge needs: enough to
// remap sequence numbers and correlate responses, nothing more. The wire
// payload itself stays opaque.
type envelope struct {
	Seq        int             `json:"seq"`
	Type       string          `json:"type"`
	Command    string          `json:"command,omitempty"`
	RequestSeq int             `json:"request_seq,omitempty"`
	Success    bool            `json:"success,omitempty"`
	Message    string          `json:"message,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// customOutcome is the result of a bridge-originated custom request.
type customOutcome struct {
	success bool
	message string
	body    json.RawMessage
}

// Session is one live debugging conversation: a launched adapter process
// behind a duplex channel, bound to the host-visible connection for its
// session id. Custom protocol requests from the host side are forwarded
// through the same channel and correlated by sequence number.
type Session struct {
	ID             string
	ContributionID string
	DebugType      string
	Name           string
	Configuration  apiv1.DebugConfiguration

	channel adapter.DuplexChannel
	conn    io.ReadWriteCloser
	log     logr.Logger

	bindOnce sync.Once
	stopOnce sync.Once
	stopped  chan struct{}

	// adapterWriteMu serializes writes to the adapter between the connection
	// pump and custom requests.
	adapterWriteMu sync.Mutex
	connWriteMu    sync.Mutex

	// seqCounter mints the sequence numbers of everything sent to the
	// adapter so bridge-originated custom requests cannot collide with
	// forwarded connection traffic.
	seqCounter atomic.Int64

	// seqMap maps remapped sequence numbers back to the originals so
	// request_seq can be restored on responses flowing to the connection.
	seqMap syncmap.Map[int, int]

	// pending tracks bridge-originated requests awaiting adapter responses.
	pending syncmap.Map[int, chan customOutcome]
}

func newSession(id string, contribution *Contribution, contributionID string, config apiv1.DebugConfiguration, channel adapter.DuplexChannel, log logr.Logger) *Session {
	return &Session{
		ID:             id,
		ContributionID: contributionID,
		DebugType:      contribution.Type,
		Name:           config.Name(),
		Configuration:  config,
		channel:        channel,
		log:            log.WithName("session").WithValues("sessionID", id),
		stopped:        make(chan struct{}),
	}
}

// Bind wires the session's channel to the host-visible connection.
// This happens exactly once per session; later calls are no-ops. A session
// that was stopped before its channel could be attached releases the
// connection instead of starting the pumps.
func (s *Session) Bind(conn io.ReadWriteCloser) {
	s.bindOnce.Do(func() {
		select {
		case <-s.stopped:
			_ = conn.Close()
			return
		default:
		}

		s.conn = conn
		go s.pumpAdapterToConnection()
		go s.pumpConnectionToAdapter()
	})
}

// CustomRequest forwards a protocol request to the adapter through the
// session's existing channel and relays the response body back.
func (s *Session) CustomRequest(ctx context.Context, command string, args json.RawMessage) (json.RawMessage, error) {
	seq := int(s.seqCounter.Add(1))

	outcomeCh := make(chan customOutcome, 1)
	s.pending.Store(seq, outcomeCh)
	defer s.pending.Delete(seq)

	request := envelope{
		Seq:     seq,
		Type:    "request",
		Command: command,
		Body:    nil,
	}
	payload, marshalErr := json.Marshal(struct {
		envelope
		Arguments json.RawMessage `json:"arguments,omitempty"`
	}{envelope: request, Arguments: args})
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to marshal custom request %q: %w", command, marshalErr)
	}

	if writeErr := s.writeToAdapter(payload); writeErr != nil {
		return nil, fmt.Errorf("failed to send custom request %q: %w", command, writeErr)
	}

	select {
	case outcome, ok := <-outcomeCh:
		if !ok {
			return nil, ErrSessionTerminated
		}
		if !outcome.success {
			if outcome.message != "" {
				return nil, fmt.Errorf("custom request %q failed: %s", command, outcome.message)
			}
			return nil, fmt.Errorf("custom request %q failed", command)
		}
		return outcome.body, nil

	case <-ctx.Done():
		return nil, ctx.Err()

	case <-s.stopped:
		return nil, ErrSessionTerminated
	}
}

// Stop tears the session down: the adapter process is killed via channel
// disposal and the host-visible connection is released. Idempotent.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)

		if disposeErr := s.channel.Dispose(); disposeErr != nil {
			s.log.Error(disposeErr, "Failed to dispose session channel")
		}
		if s.conn != nil {
			if closeErr := s.conn.Close(); closeErr != nil {
				s.log.V(1).Info("Failed to close session connection", "error", closeErr)
			}
		}

		// Unblock any custom-request callers still waiting. LoadAndDelete
		// keeps this from racing with a pump delivering the same response.
		s.pending.Range(func(seq int, _ chan customOutcome) bool {
			if ch, found := s.pending.LoadAndDelete(seq); found {
				close(ch)
			}
			return true
		})
	})
}

// pumpConnectionToAdapter forwards messages from the host-visible connection
// to the adapter, remapping each message's seq to the session's counter so
// forwarded traffic and bridge-originated requests stay collision-free.
func (s *Session) pumpConnectionToAdapter() {
	reader := bufio.NewReader(s.conn)

	for {
		raw, readErr := dap.ReadBaseMessage(reader)
		if readErr != nil {
			s.logPumpExit("connection", readErr)
			return
		}

		var env envelope
		if unmarshalErr := json.Unmarshal(raw, &env); unmarshalErr != nil {
			s.log.Error(unmarshalErr, "Dropping malformed message from connection")
			continue
		}

		virtualSeq := int(s.seqCounter.Add(1))
		// Only requests get responses, so only they need their original seq
		// retained for restoration.
		if env.Type == "request" {
			s.seqMap.Store(virtualSeq, env.Seq)
		}

		remapped, rewriteErr := rewriteField(raw, "seq", virtualSeq)
		if rewriteErr != nil {
			s.log.Error(rewriteErr, "Dropping message that could not be remapped")
			continue
		}

		if writeErr := s.writeToAdapter(remapped); writeErr != nil {
			s.logPumpExit("connection", writeErr)
			return
		}
	}
}

// pumpAdapterToConnection forwards messages from the adapter to the
// host-visible connection, consuming responses to bridge-originated custom
// requests and restoring original request_seq values on the rest.
func (s *Session) pumpAdapterToConnection() {
	reader := bufio.NewReader(s.channel)

	for {
		raw, readErr := dap.ReadBaseMessage(reader)
		if readErr != nil {
			// Channel closure is how adapter exit manifests; the host-side
			// session logic observes it as a disconnection.
			s.logPumpExit("adapter", readErr)
			if s.conn != nil {
				_ = s.conn.Close()
			}
			return
		}

		var env envelope
		if unmarshalErr := json.Unmarshal(raw, &env); unmarshalErr != nil {
			s.log.Error(unmarshalErr, "Dropping malformed message from adapter")
			continue
		}

		if env.Type == "response" {
			if outcomeCh, isCustom := s.pending.LoadAndDelete(env.RequestSeq); isCustom {
				outcomeCh <- customOutcome{success: env.Success, message: env.Message, body: env.Body}
				close(outcomeCh)
				continue
			}

			if originalSeq, remapped := s.seqMap.LoadAndDelete(env.RequestSeq); remapped {
				restored, rewriteErr := rewriteField(raw, "request_seq", originalSeq)
				if rewriteErr != nil {
					s.log.Error(rewriteErr, "Dropping response that could not be restored")
					continue
				}
				raw = restored
			}
		}

		if writeErr := s.writeToConnection(raw); writeErr != nil {
			s.logPumpExit("adapter", writeErr)
			return
		}
	}
}

func (s *Session) writeToAdapter(payload []byte) error {
	s.adapterWriteMu.Lock()
	defer s.adapterWriteMu.Unlock()
	return dap.WriteBaseMessage(s.channel, payload)
}

func (s *Session) writeToConnection(payload []byte) error {
	s.connWriteMu.Lock()
	defer s.connWriteMu.Unlock()
	return dap.WriteBaseMessage(s.conn, payload)
}

func (s *Session) logPumpExit(direction string, err error) {
	select {
	case <-s.stopped:
		// Expected during teardown.
	default:
		if !errors.Is(err, io.EOF) {
			s.log.V(1).Info("Session pump stopped", "direction", direction, "error", err)
		}
	}
}

// rewriteField replaces a single integer field of a JSON message while
// leaving everything else untouched.
func rewriteField(raw []byte, field string, value int) ([]byte, error) {
	var msg map[string]any
	if unmarshalErr := json.Unmarshal(raw, &msg); unmarshalErr != nil {
		return nil, unmarshalErr
	}
	msg[field] = value
	return json.Marshal(msg)
}
