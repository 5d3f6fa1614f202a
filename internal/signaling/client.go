package signaling

import (
	"log"

	"github.com/gorilla/websocket"
)

const sendBufferSize = 256

// Client is the per-connection record created at accept time. The
// identity and connection handle never change; the room field is owned
// by the Registry and only touched under its lock.
type Client struct {
	ID   string
	Conn *websocket.Conn

	// Send buffers outbound messages for the connection's write pump.
	Send chan []byte

	roomID string
}

func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		ID:   id,
		Conn: conn,
		Send: make(chan []byte, sendBufferSize),
	}
}

// Enqueue hands a message to the client's write pump without blocking.
// A full buffer means the client cannot keep up; the message is dropped
// so one stalled connection never holds up delivery to other rooms.
func (c *Client) Enqueue(message []byte) bool {
	if len(message) == 0 {
		return false
	}
	select {
	case c.Send <- message:
		return true
	default:
		log.Printf("Dropping message to client %s, send buffer full", c.ID)
		return false
	}
}
