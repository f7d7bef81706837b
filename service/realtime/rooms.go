package realtime

import "sync"

// Rooms tracks which connections are subscribed to which conversation-scoped
// broadcast groups. Rooms exist only as membership sets: they are created on
// first join and removed when the last member leaves. Independent of Presence.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{} // roomID -> set of connIDs
	joined  map[string]map[string]struct{} // connID -> set of roomIDs
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

// Join adds the connection to the room; idempotent.
func (r *Rooms) Join(connID, roomID string) {
	if connID == "" || roomID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.members[roomID]
	if m == nil {
		m = make(map[string]struct{})
		r.members[roomID] = m
	}
	m[connID] = struct{}{}

	j := r.joined[connID]
	if j == nil {
		j = make(map[string]struct{})
		r.joined[connID] = j
	}
	j[roomID] = struct{}{}
}

// Leave removes the connection from the room; no error if not a member.
func (r *Rooms) Leave(connID, roomID string) {
	r.mu.Lock()
	r.leaveLocked(connID, roomID)
	r.mu.Unlock()
}

// LeaveAll removes the connection from every room it belongs to. Called on
// disconnect so membership never holds stale connection IDs.
func (r *Rooms) LeaveAll(connID string) {
	r.mu.Lock()
	for roomID := range r.joined[connID] {
		r.leaveLocked(connID, roomID)
	}
	r.mu.Unlock()
}

// Members returns the current member connection IDs of roomID.
func (r *Rooms) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.members[roomID]
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}

func (r *Rooms) leaveLocked(connID, roomID string) {
	if m := r.members[roomID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.members, roomID)
		}
	}
	if j := r.joined[connID]; j != nil {
		delete(j, roomID)
		if len(j) == 0 {
			delete(r.joined, connID)
		}
	}
}
