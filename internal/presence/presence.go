package presence

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// peersTTL bounds how long an abandoned peer set can linger in Redis.
const peersTTL = 24 * time.Hour

// Store mirrors room membership into Redis so operators and sibling
// services can see current occupancy. The mirror is write-only from
// this process and strictly best effort: the relay never reads it back
// for admission control, and Redis failures only produce log lines.
//
// A nil *Store is a valid no-op mirror for deployments without Redis.
type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Add(roomID, clientID string) {
	if s == nil || s.client == nil {
		return
	}
	ctx := context.Background()
	key := peersKey(roomID)
	if err := s.client.SAdd(ctx, key, clientID).Err(); err != nil {
		log.Printf("Failed to record peer %s in %s: %v", clientID, key, err)
		return
	}
	s.client.Expire(ctx, key, peersTTL)
}

func (s *Store) Remove(roomID, clientID string) {
	if s == nil || s.client == nil {
		return
	}
	key := peersKey(roomID)
	if err := s.client.SRem(context.Background(), key, clientID).Err(); err != nil {
		log.Printf("Failed to remove peer %s from %s: %v", clientID, key, err)
	}
}

func peersKey(roomID string) string {
	return "room:" + roomID + ":peers"
}
