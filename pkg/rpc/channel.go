/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package rpc implements the asynchronous remote-call channel connecting the
// extension side and the host side of the debug bridge.
//
// Messages are length-prefixed (4-byte big-endian length followed by a JSON
// payload). Each side may issue calls and register handlers; calls are
// written in issue order and delivered at most once. Only opaque ids and
// plain data cross the channel, never live object references.
package rpc

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	apiv1 "github.com/microsoft/debugbridge/api/v1"
	"github.com/microsoft/debugbridge/pkg/syncmap"
)

// maxMessageSize is the maximum size of a single channel message (16MB).
const maxMessageSize = 16 * 1024 * 1024

// ErrChannelClosed is returned when issuing a call on a closed channel.
var ErrChannelClosed = errors.New("rpc channel is closed")

// Handler processes an incoming call. The returned value is marshalled as
// the call result; for notifications the return value is discarded.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// wireError is the {code, message} pair an error crosses the boundary as.
type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// message is the single envelope for calls, notifications and responses.
// A message with a method is a call (or, with no id, a notification);
// a message without a method is a response.
type message struct {
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *wireError      `json:"error,omitempty"`
}

// RemoteError is an error received from the other side of the channel.
// It unwraps to the matching sentinel from api/v1 when the code has one.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return apiv1.ErrorSentinel(e.Code)
}

// Channel is one endpoint of the bidirectional call channel.
type Channel struct {
	conn io.ReadWriteCloser
	log  logr.Logger

	// writeMu serializes writes so messages are framed atomically and
	// delivered in issue order.
	writeMu sync.Mutex

	// handlersMu protects handlers; registration normally happens before
	// Serve but late registration is tolerated.
	handlersMu sync.RWMutex
	handlers   map[string]Handler

	// pending maps in-flight call ids to their response channels.
	pending syncmap.Map[string, chan *message]

	closeOnce sync.Once
	closedCh  chan struct{}
}

// NewChannel wraps a duplex connection into a call channel.
// The caller must run Serve for incoming messages to be processed.
func NewChannel(conn io.ReadWriteCloser, log logr.Logger) *Channel {
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	return &Channel{
		conn:     conn,
		log:      log,
		handlers: make(map[string]Handler),
		closedCh: make(chan struct{}),
	}
}

// Handle registers the handler for a method. A second registration for the
// same method replaces the first.
func (c *Channel) Handle(method string, handler Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[method] = handler
}

// Serve reads and dispatches incoming messages until the connection closes
// or the context is cancelled. Each incoming call runs in its own goroutine
// so that nested calls back across the channel cannot deadlock the read loop.
func (c *Channel) Serve(ctx context.Context) error {
	defer c.Close()

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.closedCh:
		}
	}()

	for {
		msg, readErr := c.readMessage()
		if readErr != nil {
			if ctx.Err() != nil || c.isClosed() {
				return nil
			}
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read channel message: %w", readErr)
		}

		if msg.Method != "" {
			go c.dispatch(ctx, msg)
			continue
		}

		c.resolve(msg)
	}
}

// Call issues a request and waits for the matching response.
func (c *Channel) Call(ctx context.Context, method string, params any, result any) error {
	if c.isClosed() {
		return ErrChannelClosed
	}

	paramsJSON, marshalErr := marshalValue(params)
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal params for %s: %w", method, marshalErr)
	}

	id := uuid.NewString()
	respCh := make(chan *message, 1)
	c.pending.Store(id, respCh)
	defer c.pending.Delete(id)

	writeErr := c.writeMessage(&message{ID: id, Method: method, Params: paramsJSON})
	if writeErr != nil {
		return fmt.Errorf("failed to send call %s: %w", method, writeErr)
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return ErrChannelClosed
		}
		if resp.Error != nil {
			return &RemoteError{Code: resp.Error.Code, Message: resp.Error.Message}
		}
		if result != nil && len(resp.Result) > 0 {
			if unmarshalErr := json.Unmarshal(resp.Result, result); unmarshalErr != nil {
				return fmt.Errorf("failed to unmarshal result of %s: %w", method, unmarshalErr)
			}
		}
		return nil

	case <-ctx.Done():
		return ctx.Err()

	case <-c.closedCh:
		return ErrChannelClosed
	}
}

// Notify issues a fire-and-forget call: no response is expected or waited for.
func (c *Channel) Notify(method string, params any) error {
	if c.isClosed() {
		return ErrChannelClosed
	}

	paramsJSON, marshalErr := marshalValue(params)
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal params for %s: %w", method, marshalErr)
	}

	return c.writeMessage(&message{Method: method, Params: paramsJSON})
}

// Close closes the channel and unblocks all in-flight calls.
func (c *Channel) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		close(c.closedCh)
		closeErr = c.conn.Close()

		// LoadAndDelete keeps this from racing with resolve delivering a
		// response for the same id.
		c.pending.Range(func(id string, _ chan *message) bool {
			if ch, found := c.pending.LoadAndDelete(id); found {
				close(ch)
			}
			return true
		})
	})
	return closeErr
}

func (c *Channel) isClosed() bool {
	select {
	case <-c.closedCh:
		return true
	default:
		return false
	}
}

// dispatch runs the handler for an incoming call and, for non-notifications,
// writes the response back.
func (c *Channel) dispatch(ctx context.Context, msg *message) {
	c.handlersMu.RLock()
	handler, found := c.handlers[msg.Method]
	c.handlersMu.RUnlock()

	var result any
	var handlerErr error
	if !found {
		handlerErr = fmt.Errorf("%w: method %q", apiv1.ErrNotFound, msg.Method)
	} else {
		result, handlerErr = handler(ctx, msg.Params)
	}

	if msg.ID == "" {
		// Notification; nothing to send back.
		if handlerErr != nil {
			c.log.Error(handlerErr, "Notification handler failed", "method", msg.Method)
		}
		return
	}

	resp := &message{ID: msg.ID}
	if handlerErr != nil {
		resp.Error = &wireError{
			Code:    apiv1.ErrorCode(handlerErr),
			Message: handlerErr.Error(),
		}
	} else {
		resultJSON, marshalErr := marshalValue(result)
		if marshalErr != nil {
			resp.Error = &wireError{
				Code:    apiv1.CodeInternal,
				Message: fmt.Sprintf("failed to marshal result: %v", marshalErr),
			}
		} else {
			resp.Result = resultJSON
		}
	}

	if writeErr := c.writeMessage(resp); writeErr != nil && !c.isClosed() {
		c.log.Error(writeErr, "Failed to send response", "method", msg.Method)
	}
}

// resolve delivers a response to the matching pending call.
func (c *Channel) resolve(msg *message) {
	respCh, found := c.pending.LoadAndDelete(msg.ID)
	if !found {
		c.log.V(1).Info("Received response for unknown call", "id", msg.ID)
		return
	}

	respCh <- msg
	close(respCh)
}

func (c *Channel) readMessage() (*message, error) {
	var lengthBuf [4]byte
	if _, readErr := io.ReadFull(c.conn, lengthBuf[:]); readErr != nil {
		return nil, readErr
	}

	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length == 0 {
		return nil, errors.New("message length is zero")
	}
	if length > maxMessageSize {
		return nil, fmt.Errorf("message length %d exceeds maximum %d", length, maxMessageSize)
	}

	data := make([]byte, length)
	if _, readErr := io.ReadFull(c.conn, data); readErr != nil {
		return nil, readErr
	}

	var msg message
	if unmarshalErr := json.Unmarshal(data, &msg); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal channel message: %w", unmarshalErr)
	}

	return &msg, nil
}

func (c *Channel) writeMessage(msg *message) error {
	data, marshalErr := json.Marshal(msg)
	if marshalErr != nil {
		return marshalErr
	}
	if len(data) > maxMessageSize {
		return fmt.Errorf("message length %d exceeds maximum %d", len(data), maxMessageSize)
	}

	var lengthBuf [4]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(data)))

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, writeErr := c.conn.Write(lengthBuf[:]); writeErr != nil {
		return writeErr
	}
	if _, writeErr := c.conn.Write(data); writeErr != nil {
		return writeErr
	}

	return nil
}

func marshalValue(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
