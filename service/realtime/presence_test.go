package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceRegisterUnregister(t *testing.T) {
	p := NewPresence()

	p.Register("user1", "c1")
	p.Register("user2", "c2")
	assert.ElementsMatch(t, []string{"user1", "user2"}, p.Snapshot())

	p.Unregister("user1")
	assert.ElementsMatch(t, []string{"user2"}, p.Snapshot())

	// unregister of an absent user is a silent no-op
	p.Unregister("user1")
	assert.ElementsMatch(t, []string{"user2"}, p.Snapshot())
}

func TestPresenceLastWriterWins(t *testing.T) {
	p := NewPresence()

	p.Register("user1", "c1")
	p.Register("user1", "c2")

	connID, ok := p.ConnID("user1")
	assert.True(t, ok)
	assert.Equal(t, "c2", connID)
	assert.ElementsMatch(t, []string{"user1"}, p.Snapshot())
}

func TestPresenceIgnoresEmptyUserID(t *testing.T) {
	p := NewPresence()
	p.Register("", "c1")
	assert.Empty(t, p.Snapshot())
}

func TestPresenceSnapshotMatchesOperationHistory(t *testing.T) {
	// after any sequence, Snapshot equals the users whose latest op was a
	// register without a later unregister
	p := NewPresence()
	ops := []struct {
		register bool
		user     string
	}{
		{true, "a"}, {true, "b"}, {false, "a"}, {true, "c"},
		{true, "a"}, {false, "b"}, {false, "c"}, {true, "b"},
	}
	want := map[string]bool{}
	for i, op := range ops {
		if op.register {
			p.Register(op.user, "conn")
			want[op.user] = true
		} else {
			p.Unregister(op.user)
			delete(want, op.user)
		}
		got := p.Snapshot()
		assert.Len(t, got, len(want), "step %d", i)
		for _, u := range got {
			assert.True(t, want[u], "step %d: unexpected user %s", i, u)
		}
	}
}
