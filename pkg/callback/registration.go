// Package callback implements the persistent bidirectional callback
// channel registry: remote clients upgrade to a WebSocket, register under
// a server-assigned client ID, and the action dispatcher sends them
// correlated request frames and awaits a matching response frame.
package callback

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	ws "github.com/coder/websocket"

	"github.com/mockdcore/mockdcore/internal/id"
)

// FrameType tags the JSON frames exchanged over a callback channel.
type FrameType string

const (
	FrameRequest        FrameType = "request"
	FrameForwardRequest  FrameType = "forward_request"
	FrameResponse        FrameType = "response"
	FrameError           FrameType = "error"
)

// Frame is the wire shape of every message on a callback channel.
type Frame struct {
	Type          FrameType       `json:"type"`
	CorrelationID string          `json:"correlation_id"`
	Request       json.RawMessage `json:"request,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// outcome is the one-shot rendezvous value a pending call completes with.
type outcome struct {
	payload json.RawMessage
	err     error
}

// Registration is a single callback client's live channel: its connection,
// and the map of correlation IDs awaiting a response.
type Registration struct {
	ClientID  string
	CreatedAt time.Time

	conn     *ws.Conn
	ctx      context.Context
	cancel   context.CancelFunc
	sendMu   sync.Mutex
	sendChan chan Frame

	pendingMu sync.Mutex
	pending   map[string]chan outcome

	closed  bool
	mu      sync.Mutex
	onClose func(clientID string)
}

func newRegistration(clientID string, conn *ws.Conn, queueDepth int, onClose func(clientID string)) *Registration {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registration{
		ClientID:  clientID,
		CreatedAt: time.Now(),
		conn:      conn,
		ctx:       ctx,
		cancel:    cancel,
		sendChan:  make(chan Frame, queueDepth),
		pending:   make(map[string]chan outcome),
		onClose:   onClose,
	}
	go r.writeLoop()
	go r.readLoop()
	return r
}

// writeLoop serializes every outbound frame onto the single WebSocket
// connection; a registration has exactly one writer goroutine.
func (r *Registration) writeLoop() {
	for {
		select {
		case <-r.ctx.Done():
			return
		case frame := <-r.sendChan:
			data, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			r.sendMu.Lock()
			err = r.conn.Write(r.ctx, ws.MessageText, data)
			r.sendMu.Unlock()
			if err != nil {
				r.Close()
				return
			}
		}
	}
}

// readLoop pulls response/error frames off the socket and routes them to
// the pending sink named by correlation_id; an unrecognized correlation_id
// (already timed out, or never sent) is dropped silently.
func (r *Registration) readLoop() {
	defer r.Close()
	for {
		_, data, err := r.conn.Read(r.ctx)
		if err != nil {
			r.failAllPending(ErrChannelClosed)
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch frame.Type {
		case FrameResponse, FrameForwardRequest:
			r.complete(frame.CorrelationID, outcome{payload: frame.Payload})
		case FrameError:
			r.complete(frame.CorrelationID, outcome{err: &RemoteError{Message: string(frame.Payload)}})
		}
	}
}

// Send enqueues a request/forward_request frame for a fresh correlation
// ID and waits until the matching response/error frame arrives, the
// channel closes, or ctx is done, returning the response payload or the
// corresponding error. Queueing is
// non-blocking: a full send queue is reported as backpressure so the
// dispatcher can treat the channel as unavailable, same as a missing
// client_id.
func (r *Registration) Send(ctx context.Context, frameType FrameType, request json.RawMessage) (json.RawMessage, error) {
	correlationID := id.UUID()
	sink := make(chan outcome, 1)

	r.pendingMu.Lock()
	r.pending[correlationID] = sink
	r.pendingMu.Unlock()

	frame := Frame{Type: frameType, CorrelationID: correlationID, Request: request}
	select {
	case r.sendChan <- frame:
	default:
		r.removePending(correlationID)
		return nil, ErrBackpressure
	}

	select {
	case out := <-sink:
		return out.payload, out.err
	case <-r.ctx.Done():
		r.removePending(correlationID)
		return nil, ErrChannelClosed
	case <-ctx.Done():
		r.removePending(correlationID)
		return nil, ctx.Err()
	}
}

func (r *Registration) complete(correlationID string, out outcome) {
	r.pendingMu.Lock()
	sink, ok := r.pending[correlationID]
	if ok {
		delete(r.pending, correlationID)
	}
	r.pendingMu.Unlock()
	if ok {
		sink <- out
	}
}

func (r *Registration) removePending(correlationID string) {
	r.pendingMu.Lock()
	delete(r.pending, correlationID)
	r.pendingMu.Unlock()
}

func (r *Registration) failAllPending(err error) {
	r.pendingMu.Lock()
	pending := r.pending
	r.pending = make(map[string]chan outcome)
	r.pendingMu.Unlock()
	for _, sink := range pending {
		sink <- outcome{err: err}
	}
}

// Close tears down the registration, completing every pending sink with
// ErrChannelClosed and closing the underlying socket. Idempotent.
func (r *Registration) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.failAllPending(ErrChannelClosed)
	r.cancel()
	if r.onClose != nil {
		r.onClose(r.ClientID)
	}
	return r.conn.Close(ws.StatusNormalClosure, "registration closed")
}
