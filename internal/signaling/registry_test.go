package signaling

import (
	"sync"
	"testing"
)

func newRegisteredClient(t *testing.T, r *Registry, id string) *Client {
	t.Helper()
	c := NewClient(id, nil)
	if err := r.Register(c); err != nil {
		t.Fatalf("Register(%s): %v", id, err)
	}
	return c
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	newRegisteredClient(t, r, "a")
	if err := r.Register(NewClient("a", nil)); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestJoinCapacity(t *testing.T) {
	r := NewRegistry()
	newRegisteredClient(t, r, "a")
	newRegisteredClient(t, r, "b")
	newRegisteredClient(t, r, "c")

	if !r.Join("a", "r1") {
		t.Fatalf("first join should succeed")
	}
	if !r.Join("b", "r1") {
		t.Fatalf("second join should succeed")
	}
	if r.Join("c", "r1") {
		t.Fatalf("third join should be rejected")
	}

	members := r.Members("r1")
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %v", members)
	}
	if got := r.RoomOf("c"); got != "" {
		t.Fatalf("rejected client should have no room, got %q", got)
	}
}

func TestJoinIsAtomicUnderConcurrency(t *testing.T) {
	const attempts = 32

	r := NewRegistry()
	ids := make([]string, attempts)
	for i := range ids {
		ids[i] = string(rune('a' + i%26)) + string(rune('0'+i/26))
		newRegisteredClient(t, r, ids[i])
	}

	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			results <- r.Join(id, "contested")
		}(id)
	}
	wg.Wait()
	close(results)

	admitted := 0
	for ok := range results {
		if ok {
			admitted++
		}
	}
	if admitted != 2 {
		t.Fatalf("expected exactly 2 admissions, got %d", admitted)
	}
	if members := r.Members("contested"); len(members) != 2 {
		t.Fatalf("expected 2 members, got %v", members)
	}
}

func TestLeaveDestroysEmptyRoom(t *testing.T) {
	r := NewRegistry()
	newRegisteredClient(t, r, "a")
	newRegisteredClient(t, r, "b")
	r.Join("a", "r1")
	r.Join("b", "r1")

	r.Leave("a")
	if members := r.Members("r1"); len(members) != 1 || members[0] != "b" {
		t.Fatalf("expected only b left, got %v", members)
	}
	if got := r.RoomOf("a"); got != "" {
		t.Fatalf("a should have no room after leave, got %q", got)
	}

	r.Leave("b")
	if members := r.Members("r1"); members != nil {
		t.Fatalf("expected room destroyed, got members %v", members)
	}
}

func TestLeaveWithoutRoomIsNoop(t *testing.T) {
	r := NewRegistry()
	newRegisteredClient(t, r, "a")
	r.Leave("a")
	r.Leave("missing")
}

func TestUnregisterLeavesRoom(t *testing.T) {
	r := NewRegistry()
	newRegisteredClient(t, r, "a")
	newRegisteredClient(t, r, "b")
	r.Join("a", "r1")
	r.Join("b", "r1")

	r.Unregister("a")
	if _, ok := r.Lookup("a"); ok {
		t.Fatalf("a should be gone after unregister")
	}
	if members := r.Members("r1"); len(members) != 1 {
		t.Fatalf("expected 1 member after unregister, got %v", members)
	}

	// Idempotent on a missing identity.
	r.Unregister("a")
}

func TestJoinMovesBetweenRooms(t *testing.T) {
	r := NewRegistry()
	newRegisteredClient(t, r, "a")
	r.Join("a", "r1")
	if !r.Join("a", "r2") {
		t.Fatalf("move to r2 should succeed")
	}
	if members := r.Members("r1"); members != nil {
		t.Fatalf("r1 should be destroyed, got %v", members)
	}
	if got := r.RoomOf("a"); got != "r2" {
		t.Fatalf("expected room r2, got %q", got)
	}
}

func TestRejoinSameRoom(t *testing.T) {
	r := NewRegistry()
	newRegisteredClient(t, r, "a")
	r.Join("a", "r1")
	if !r.Join("a", "r1") {
		t.Fatalf("rejoining own room should succeed")
	}
	if members := r.Members("r1"); len(members) != 1 {
		t.Fatalf("expected 1 member, got %v", members)
	}
}
