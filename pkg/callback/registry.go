package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	ws "github.com/coder/websocket"

	"github.com/mockdcore/mockdcore/internal/id"
)

// Registry holds every live callback registration, keyed by client_id.
type Registry struct {
	mu           sync.RWMutex
	byClientID   map[string]*Registration
	queueDepth   int
}

// New returns an empty Registry. queueDepth bounds each registration's
// outbound send queue (max-websocket-queue).
func New(queueDepth int) *Registry {
	if queueDepth <= 0 {
		queueDepth = 32
	}
	return &Registry{
		byClientID: make(map[string]*Registration),
		queueDepth: queueDepth,
	}
}

// Upgrade accepts a WebSocket handshake on the callback upgrade path,
// assigns a fresh client_id, and registers the resulting channel. The
// X-CLIENT-REGISTRATION-ID header is set on w before ws.Accept writes
// the 101 response, so it is sent with the handshake.
func (r *Registry) Upgrade(w http.ResponseWriter, req *http.Request) (*Registration, error) {
	clientID := id.UUID()

	w.Header().Set("X-CLIENT-REGISTRATION-ID", clientID)
	conn, err := ws.Accept(w, req, &ws.AcceptOptions{
		InsecureSkipVerify: true,
		CompressionMode:    ws.CompressionDisabled,
	})
	if err != nil {
		return nil, err
	}

	reg := newRegistration(clientID, conn, r.queueDepth, r.forget)

	r.mu.Lock()
	r.byClientID[clientID] = reg
	r.mu.Unlock()

	return reg, nil
}

// forget removes clientID from the map without closing its registration,
// since it is called from within Registration.Close itself.
func (r *Registry) forget(clientID string) {
	r.mu.Lock()
	delete(r.byClientID, clientID)
	r.mu.Unlock()
}

// Get returns the registration for clientID, if live.
func (r *Registry) Get(clientID string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byClientID[clientID]
	return reg, ok
}

// Remove deregisters and closes clientID's channel, if live. Harmless to
// call again afterward.
func (r *Registry) Remove(clientID string) {
	r.mu.Lock()
	reg, ok := r.byClientID[clientID]
	if ok {
		delete(r.byClientID, clientID)
	}
	r.mu.Unlock()
	if ok {
		_ = reg.Close()
	}
}

// Dispatch sends a request/forward_request frame to clientID and waits
// for the matching response, forwarding ctx's deadline onto the wait.
func (r *Registry) Dispatch(ctx context.Context, clientID string, frameType FrameType, request json.RawMessage) (json.RawMessage, error) {
	reg, ok := r.Get(clientID)
	if !ok {
		return nil, ErrNotFound
	}
	return reg.Send(ctx, frameType, request)
}

// CloseAll tears down every live registration, for STOP/RESET broadcasts.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	regs := make([]*Registration, 0, len(r.byClientID))
	for _, reg := range r.byClientID {
		regs = append(regs, reg)
	}
	r.byClientID = make(map[string]*Registration)
	r.mu.Unlock()

	for _, reg := range regs {
		_ = reg.Close()
	}
}

// Count reports the number of live registrations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byClientID)
}
