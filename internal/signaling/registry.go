package signaling

import (
	"fmt"
	"log"
	"sync"
)

// roomCapacity caps membership at two peers per session.
const roomCapacity = 2

type room struct {
	id      string
	members map[string]*Client
}

// Registry owns all session and room state. A single mutex serializes
// every mutation, so the join capacity check and the membership update
// are one atomic step: two near-simultaneous joiners are strictly
// ordered and the second sees the first's admission.
//
// Rooms are created lazily on first join and deleted the moment their
// member set becomes empty; a room in the table always has at least one
// member, and a client's room field is set iff it appears in that room's
// member set.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*Client
	rooms   map[string]*room
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
		rooms:   make(map[string]*room),
	}
}

// Register inserts a fresh session entry with no room. Identities are
// generated per connection and never reused, so a collision is a bug.
func (r *Registry) Register(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[c.ID]; exists {
		return fmt.Errorf("client %s already registered", c.ID)
	}
	r.clients[c.ID] = c
	return nil
}

func (r *Registry) Lookup(id string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	return c, ok
}

// Unregister removes the session entry, leaving its room first.
// Idempotent if the identity is already gone.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return
	}
	r.leaveLocked(c)
	delete(r.clients, id)
}

// Join admits the client into the room, creating it on first use.
// Returns false when the room already has two members; membership and
// the client's current room are then left untouched. Joining a new room
// while still in another one moves the client.
func (r *Registry) Join(id, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return false
	}
	if c.roomID == roomID {
		return true
	}
	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{id: roomID, members: make(map[string]*Client)}
		r.rooms[roomID] = rm
	}
	if len(rm.members) >= roomCapacity {
		log.Printf("Room %s is full, rejecting client %s", roomID, id)
		return false
	}
	r.leaveLocked(c)
	rm.members[id] = c
	c.roomID = roomID
	return true
}

// Leave removes the client from its current room and deletes the room
// if it became empty. No-op for a client without a room.
func (r *Registry) Leave(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		r.leaveLocked(c)
	}
}

func (r *Registry) leaveLocked(c *Client) {
	if c.roomID == "" {
		return
	}
	if rm, ok := r.rooms[c.roomID]; ok {
		delete(rm.members, c.ID)
		if len(rm.members) == 0 {
			delete(r.rooms, rm.id)
			log.Printf("Removed empty room: %s", rm.id)
		}
	}
	c.roomID = ""
}

// RoomOf returns the client's current room identifier, or "" when the
// client has no room or is unknown.
func (r *Registry) RoomOf(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		return c.roomID
	}
	return ""
}

// Members returns the identities in a room, nil when the room does not
// exist.
func (r *Registry) Members(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(rm.members))
	for id := range rm.members {
		members = append(members, id)
	}
	return members
}
