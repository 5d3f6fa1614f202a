package signaling

import "log"

// Relay delivers payload to every member of the sender's current room
// except the sender itself. A sender without a room is a silent no-op:
// clients may emit stray signals before joining. Delivery uses the
// non-blocking per-client buffer, so an unreachable or slow member is
// skipped and logged, never surfaced to the sender.
func (r *Registry) Relay(senderID string, payload []byte) {
	r.mu.Lock()
	sender, ok := r.clients[senderID]
	if !ok || sender.roomID == "" {
		r.mu.Unlock()
		return
	}
	targets := r.roomTargetsLocked(sender.roomID, senderID)
	r.mu.Unlock()

	for _, target := range targets {
		target.Enqueue(payload)
	}
}

// DeliverToRoom sends payload to every member of roomID except exceptID.
// Used for upstream-originated events, where the originator is the
// backend's notion of a session rather than a registered local sender.
func (r *Registry) DeliverToRoom(roomID, exceptID string, payload []byte) {
	r.mu.Lock()
	targets := r.roomTargetsLocked(roomID, exceptID)
	r.mu.Unlock()

	if targets == nil {
		log.Printf("No deliverable members in room %s", roomID)
		return
	}
	for _, target := range targets {
		target.Enqueue(payload)
	}
}

func (r *Registry) roomTargetsLocked(roomID, exceptID string) []*Client {
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	var targets []*Client
	for id, member := range rm.members {
		if id != exceptID {
			targets = append(targets, member)
		}
	}
	return targets
}
