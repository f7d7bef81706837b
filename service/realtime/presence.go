package realtime

import "sync"

// Presence maps user IDs to their live connection ID and is the source of
// truth for "who is online". One connection per user: a second register for
// the same user overwrites the first (last writer wins). The gateway owns
// the registry and is its only writer.
type Presence struct {
	mu     sync.RWMutex
	byUser map[string]string // userID -> connID
}

func NewPresence() *Presence {
	return &Presence{byUser: make(map[string]string)}
}

// Register records or overwrites the mapping for userID. Empty user IDs are
// ignored; such connections stay anonymous.
func (p *Presence) Register(userID, connID string) {
	if userID == "" {
		return
	}
	p.mu.Lock()
	p.byUser[userID] = connID
	p.mu.Unlock()
}

// Unregister removes the mapping if present; no-op otherwise.
func (p *Presence) Unregister(userID string) {
	p.mu.Lock()
	delete(p.byUser, userID)
	p.mu.Unlock()
}

// Snapshot returns the currently registered user IDs in no particular order.
func (p *Presence) Snapshot() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.byUser))
	for id := range p.byUser {
		out = append(out, id)
	}
	return out
}

// ConnID returns the live connection for userID, if any.
func (p *Presence) ConnID(userID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.byUser[userID]
	return id, ok
}
