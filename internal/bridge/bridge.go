package bridge

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/peerlink/signaling/internal/models"
	"github.com/peerlink/signaling/internal/signaling"
)

const (
	defaultRetryInterval = 5 * time.Second
	dialTimeout          = 5 * time.Second
	writeTimeout         = 5 * time.Second
	tokenTTL             = time.Minute

	outboundBufferSize = 256
)

// State of the upstream link.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

type Config struct {
	// URL is the WebSocket address of the upstream backend.
	URL string

	// JWTSecret, when set, signs a short-lived HS256 bearer token that
	// authenticates this relay to the backend on every dial.
	JWTSecret string

	// RetryInterval between reconnect attempts. Zero means the default
	// of five seconds. There is no backoff growth and no attempt cap.
	RetryInterval time.Duration
}

// Bridge maintains the single persistent connection to the upstream
// peer-connection backend. It forwards room-lifecycle events upstream
// and translates a small set of backend events back into client-facing
// messages, delivered through the registry.
//
// Sends are best effort: while the link is down they are dropped and
// logged, never queued. Only the link itself is retried, at a fixed
// interval, indefinitely. A nil *Bridge is a valid no-op collaborator
// for deployments without a backend.
type Bridge struct {
	url           string
	jwtSecret     string
	retryInterval time.Duration
	registry      *signaling.Registry

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// outbound buffers events for the current connection's write loop,
	// so senders never wait on backend I/O. Drained on link loss.
	outbound chan models.Envelope

	mu    sync.Mutex
	state State
	conn  *websocket.Conn
}

func New(cfg Config, registry *signaling.Registry) *Bridge {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		url:           cfg.URL,
		jwtSecret:     cfg.JWTSecret,
		retryInterval: cfg.RetryInterval,
		registry:      registry,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		outbound:      make(chan models.Envelope, outboundBufferSize),
	}
}

// Start launches the connect/read loop. Call Close to stop it.
func (b *Bridge) Start() {
	go b.run()
}

// Close stops the retry timer and the connect loop, closing any live
// upstream connection. It blocks until the loop has exited.
func (b *Bridge) Close() {
	if b == nil {
		return
	}
	b.cancel()
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	<-b.done
}

// State returns the current link state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bridge) run() {
	defer close(b.done)
	for {
		if b.ctx.Err() != nil {
			return
		}
		b.setState(StateConnecting, nil)
		conn, err := b.dial()
		if err != nil {
			b.setState(StateDisconnected, nil)
			log.Printf("Backend dial failed: %v (retrying in %s)", err, b.retryInterval)
			if !b.waitRetry() {
				return
			}
			continue
		}
		log.Printf("Connected to backend at %s", b.url)
		b.setState(StateConnected, conn)

		stop := make(chan struct{})
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			b.writeLoop(conn, stop)
		}()

		b.readLoop(conn)
		close(stop)
		b.setState(StateDisconnected, nil)
		_ = conn.Close()
		<-writerDone
		b.drainOutbound()

		if b.ctx.Err() != nil {
			return
		}
		log.Printf("Backend connection closed (retrying in %s)", b.retryInterval)
		if !b.waitRetry() {
			return
		}
	}
}

// waitRetry arms the single retry timer. The loop structure guarantees
// at most one pending timer; shutdown cancels it. Returns false when
// the bridge is closing.
func (b *Bridge) waitRetry() bool {
	timer := time.NewTimer(b.retryInterval)
	defer timer.Stop()
	select {
	case <-b.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (b *Bridge) dial() (*websocket.Conn, error) {
	header := http.Header{}
	if b.jwtSecret != "" {
		token, err := b.signToken()
		if err != nil {
			return nil, err
		}
		header.Set("Authorization", "Bearer "+token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	ctx, cancel := context.WithTimeout(b.ctx, dialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, b.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

func (b *Bridge) signToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "signaling-relay",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(b.jwtSecret))
}

func (b *Bridge) setState(state State, conn *websocket.Conn) {
	b.mu.Lock()
	// A dial can complete in the window after Close grabbed a nil conn;
	// storing it then would leave the read loop blocked on a connection
	// nothing will ever close. Drop it instead.
	if conn != nil && b.ctx.Err() != nil {
		b.mu.Unlock()
		_ = conn.Close()
		return
	}
	b.state = state
	b.conn = conn
	b.mu.Unlock()
}

// writeLoop is the single writer for one backend connection. It drains
// the outbound buffer until the connection is torn down.
func (b *Bridge) writeLoop(conn *websocket.Conn, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-b.ctx.Done():
			return
		case env := <-b.outbound:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(env); err != nil {
				log.Printf("Failed to send %s to backend: %v", env.Type, err)
				_ = conn.Close()
				return
			}
		}
	}
}

// drainOutbound discards events buffered for a connection that is gone.
// Sends are best effort; nothing survives a link loss to be replayed on
// the next connection.
func (b *Bridge) drainOutbound() {
	for {
		select {
		case env := <-b.outbound:
			log.Printf("Backend link lost, dropping %s for session %s", env.Type, env.SessionID)
		default:
			return
		}
	}
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if b.ctx.Err() == nil {
				log.Printf("Backend read error: %v", err)
			}
			return
		}
		b.handleUpstream(data)
	}
}

func (b *Bridge) handleUpstream(data []byte) {
	var msg models.Envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Discarding malformed backend message: %v", err)
		return
	}

	switch msg.Type {
	case models.TypeICECandidateGenerated:
		b.deliver(models.Envelope{
			Type:          models.TypeICECandidate,
			Candidate:     msg.Candidate,
			SDPMid:        msg.SDPMid,
			SDPMLineIndex: msg.SDPMLineIndex,
			SessionID:     msg.SessionID,
			RoomID:        msg.RoomID,
		}, msg.RoomID, msg.SessionID)
	case models.TypeAnswer:
		b.deliver(models.Envelope{
			Type:      models.TypeAnswer,
			SDP:       msg.SDP,
			SessionID: msg.SessionID,
			RoomID:    msg.RoomID,
		}, msg.RoomID, msg.SessionID)
	case models.TypePeerCreated, models.TypePeerDestroyed:
		log.Printf("Backend event %s for session %s", msg.Type, msg.SessionID)
	case models.TypeConnectionState:
		log.Printf("Backend connection-state for session %s: %s", msg.SessionID, msg.State)
	default:
		// Unrecognized types are tolerated so the backend can grow its
		// protocol without breaking deployed relays.
		log.Printf("Ignoring unknown backend message type %q", msg.Type)
	}
}

// deliver translates an upstream event into a client-facing message for
// every member of the room except the originating session. The backend
// is not a registered client, so delivery goes straight to the room.
func (b *Bridge) deliver(env models.Envelope, roomID, originator string) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("Failed to marshal %s message: %v", env.Type, err)
		return
	}
	b.registry.DeliverToRoom(roomID, originator, data)
}

// SendCreatePeer notifies the backend of a successful room join.
func (b *Bridge) SendCreatePeer(sessionID, roomID string) {
	if b == nil {
		return
	}
	b.send(models.Envelope{
		Type:      models.TypeCreatePeer,
		SessionID: sessionID,
		RoomID:    roomID,
	})
}

// SendDestroyPeer notifies the backend that a client is gone.
func (b *Bridge) SendDestroyPeer(sessionID string) {
	if b == nil {
		return
	}
	b.send(models.Envelope{
		Type:      models.TypeDestroyPeer,
		SessionID: sessionID,
	})
}

// send enqueues an event for the write loop. Fire and forget: a down
// link or a full buffer drops the event, and the caller never waits on
// backend I/O. The state check and the enqueue share the lock so a
// link-loss drain cannot strand an envelope for the next connection.
func (b *Bridge) send(env models.Envelope) {
	b.mu.Lock()
	if b.state != StateConnected {
		state := b.state
		b.mu.Unlock()
		log.Printf("Backend link %s, dropping %s for session %s", state, env.Type, env.SessionID)
		return
	}
	select {
	case b.outbound <- env:
		b.mu.Unlock()
	default:
		b.mu.Unlock()
		log.Printf("Backend send buffer full, dropping %s for session %s", env.Type, env.SessionID)
	}
}
