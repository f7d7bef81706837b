package state

import (
	"strings"
	"sync"
)

// Prefs is a device-local key/value preference store (hidden, pinned and
// favourite sets live here). The reconciliation layer consults it but does
// not own it.
type Prefs interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// Preference keys.
const (
	PrefPinnedChats = "chats:pinned"
	PrefHiddenChats = "chats:hidden"
)

// MemPrefs is an in-memory Prefs, good enough for tests and headless
// clients.
type MemPrefs struct {
	mu sync.RWMutex
	kv map[string]string
}

func NewMemPrefs() *MemPrefs {
	return &MemPrefs{kv: make(map[string]string)}
}

func (p *MemPrefs) Get(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.kv[key]
	return v, ok
}

func (p *MemPrefs) Set(key, value string) {
	p.mu.Lock()
	p.kv[key] = value
	p.mu.Unlock()
}

// GetSet reads a comma-separated set preference.
func GetSet(p Prefs, key string) map[string]struct{} {
	out := make(map[string]struct{})
	if p == nil {
		return out
	}
	raw, ok := p.Get(key)
	if !ok || raw == "" {
		return out
	}
	for _, v := range strings.Split(raw, ",") {
		if v != "" {
			out[v] = struct{}{}
		}
	}
	return out
}

// SetSet writes a set preference.
func SetSet(p Prefs, key string, set map[string]struct{}) {
	if p == nil {
		return
	}
	vals := make([]string, 0, len(set))
	for v := range set {
		vals = append(vals, v)
	}
	p.Set(key, strings.Join(vals, ","))
}

// ToggleChatPref flips chatID's membership in the named set and reports the
// new state.
func ToggleChatPref(p Prefs, key, chatID string) bool {
	set := GetSet(p, key)
	if _, ok := set[chatID]; ok {
		delete(set, chatID)
		SetSet(p, key, set)
		return false
	}
	set[chatID] = struct{}{}
	SetSet(p, key, set)
	return true
}

// IsHidden reports whether the user hid chatID on this device.
func (s *Store) IsHidden(chatID string) bool {
	s.mu.Lock()
	p := s.prefs
	s.mu.Unlock()
	_, ok := GetSet(p, PrefHiddenChats)[chatID]
	return ok
}

// IsPinned reports whether the user pinned chatID on this device.
func (s *Store) IsPinned(chatID string) bool {
	s.mu.Lock()
	p := s.prefs
	s.mu.Unlock()
	_, ok := GetSet(p, PrefPinnedChats)[chatID]
	return ok
}
