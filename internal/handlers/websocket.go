package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/peerlink/signaling/internal/bridge"
	"github.com/peerlink/signaling/internal/models"
	"github.com/peerlink/signaling/internal/presence"
	"github.com/peerlink/signaling/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 * 1024 // enough for any SDP payload
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// SignalingHandler wires each WebSocket connection into the registry,
// the presence mirror and the backend bridge. Presence and Bridge may
// be nil when unconfigured.
type SignalingHandler struct {
	Registry *signaling.Registry
	Presence *presence.Store
	Bridge   *bridge.Bridge
}

// Handle accepts a signaling connection: assigns a fresh client
// identity, registers it, acknowledges with `connected`, and starts the
// read/write pumps.
func (h *SignalingHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	clientID := "client_" + uuid.NewString()
	client := signaling.NewClient(clientID, conn)
	if err := h.Registry.Register(client); err != nil {
		log.Printf("Failed to register client: %v", err)
		conn.Close()
		return
	}

	log.Printf("Client connected: %s", clientID)

	client.Enqueue(encode(models.Envelope{
		Type:      models.TypeConnected,
		SessionID: clientID,
		Timestamp: time.Now().UnixMilli(),
	}))

	go h.writePump(client)
	go h.readPump(client)
}

// readPump decodes inbound messages and drives the connection's state:
// IDLE until a successful join-room, IN_ROOM until leave-room or
// disconnect. Malformed and unknown messages are logged and ignored;
// the connection stays open.
func (h *SignalingHandler) readPump(client *signaling.Client) {
	defer h.disconnect(client)

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg models.Envelope
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("Failed to parse message from %s: %v", client.ID, err)
			continue
		}

		switch {
		case msg.Type.IsSignal():
			// Relayed as the raw inbound bytes: payloads are opaque and
			// extra fields pass through untouched. The target room comes
			// from the registry, never from the message itself.
			h.Registry.Relay(client.ID, raw)
		case msg.Type == models.TypeJoinRoom:
			h.handleJoin(client, msg)
		case msg.Type == models.TypeLeaveRoom:
			h.handleLeave(client)
		default:
			log.Printf("Unknown message type from %s: %q", client.ID, msg.Type)
		}
	}
}

func (h *SignalingHandler) handleJoin(client *signaling.Client, msg models.Envelope) {
	if msg.RoomID == "" {
		log.Printf("join-room from %s without room_id", client.ID)
		return
	}

	oldRoom := h.Registry.RoomOf(client.ID)
	joined := h.Registry.Join(client.ID, msg.RoomID)

	// Ack echoes the message's own correlation fields.
	client.Enqueue(encode(models.Envelope{
		Type:      models.TypeJoinRoom,
		SessionID: msg.SessionID,
		RoomID:    msg.RoomID,
		Success:   models.Bool(joined),
	}))

	if !joined {
		log.Printf("Client %s failed to join room %s", client.ID, msg.RoomID)
		return
	}

	// Joining while in another room moves the client; the room left
	// behind gets the same user-left it would see on an explicit leave.
	// DeliverToRoom because the client's current room is already the
	// new one.
	if oldRoom != "" && oldRoom != msg.RoomID {
		h.Registry.DeliverToRoom(oldRoom, client.ID, encode(models.Envelope{
			Type:      models.TypeUserLeft,
			SessionID: client.ID,
		}))
		h.Presence.Remove(oldRoom, client.ID)
	}

	log.Printf("Client %s joined room %s", client.ID, msg.RoomID)
	h.Registry.Relay(client.ID, encode(models.Envelope{
		Type:     models.TypeUserJoined,
		ClientID: client.ID,
	}))
	h.Presence.Add(msg.RoomID, client.ID)
	h.Bridge.SendCreatePeer(client.ID, msg.RoomID)
}

func (h *SignalingHandler) handleLeave(client *signaling.Client) {
	roomID := h.Registry.RoomOf(client.ID)
	if roomID == "" {
		// A roomless leave has never been acked on this protocol and
		// deployed clients depend on the silence.
		return
	}

	log.Printf("Client %s leaving room %s", client.ID, roomID)
	h.Registry.Relay(client.ID, encode(models.Envelope{
		Type:      models.TypeUserLeft,
		SessionID: client.ID,
	}))
	h.Registry.Leave(client.ID)
	h.Presence.Remove(roomID, client.ID)

	client.Enqueue(encode(models.Envelope{
		Type:    models.TypeLeaveRoom,
		Success: models.Bool(true),
	}))
}

// disconnect runs the cleanup path for any transport close: an implicit
// leave-room when the client was in one, then removal from the registry
// and a destroy-peer notification upstream.
func (h *SignalingHandler) disconnect(client *signaling.Client) {
	if roomID := h.Registry.RoomOf(client.ID); roomID != "" {
		h.Registry.Relay(client.ID, encode(models.Envelope{
			Type:      models.TypeUserLeft,
			SessionID: client.ID,
		}))
		h.Presence.Remove(roomID, client.ID)
	}
	h.Registry.Unregister(client.ID)
	h.Bridge.SendDestroyPeer(client.ID)
	client.Conn.Close()

	log.Printf("Client disconnected: %s", client.ID)
}

func (h *SignalingHandler) writePump(client *signaling.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encode(env models.Envelope) []byte {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("Failed to marshal %s message: %v", env.Type, err)
		return nil
	}
	return data
}
