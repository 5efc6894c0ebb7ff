package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codepair/go-collab/internal/types"
)

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register("r1", types.Identity{ID: "u1", Name: "Alice"})
	assert.NoError(t, err, "expected first registration to succeed")
	assert.Equal(t, 1, reg.Count("r1"), "expected one member")

	members := reg.Members("r1")
	require.Len(t, members, 1)
	assert.True(t, members[0].Online, "expected stored identity to be marked online")

	err = reg.Register("r1", types.Identity{ID: "u1", Name: "Alice Again"})
	assert.ErrorIs(t, err, ErrAlreadyMember, "expected the duplicate to be rejected")
	assert.Equal(t, 1, reg.Count("r1"), "expected count unchanged by the rejected join")
	assert.Equal(t, "Alice", reg.Members("r1")[0].Name, "expected the original entry untouched")
}

func TestRegistry_Unregister(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("r1", types.Identity{ID: "u1", Name: "Alice"}))

	identity, ok := reg.Unregister("r1", "u1")
	assert.True(t, ok, "expected the member to be removed")
	assert.Equal(t, "Alice", identity.Name, "expected the removed entry returned")
	assert.Zero(t, reg.Count("r1"), "expected the room to be empty")

	_, ok = reg.Unregister("r1", "u1")
	assert.False(t, ok, "expected removal of an absent member to report none")
	_, ok = reg.Unregister("nope", "u1")
	assert.False(t, ok, "expected removal from an unknown room to report none")
}

func TestRegistry_MembersOrder(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []string{"u3", "u1", "u2"} {
		require.NoError(t, reg.Register("r1", types.Identity{ID: id}))
	}

	ids := func() []string {
		var out []string
		for _, m := range reg.Members("r1") {
			out = append(out, m.ID)
		}
		return out
	}

	assert.Equal(t, []string{"u3", "u1", "u2"}, ids(), "expected insertion order")

	_, ok := reg.Unregister("r1", "u1")
	require.True(t, ok)
	assert.Equal(t, []string{"u3", "u2"}, ids(), "expected order preserved after removal")

	require.NoError(t, reg.Register("r1", types.Identity{ID: "u1"}))
	assert.Equal(t, []string{"u3", "u2", "u1"}, ids(), "expected a re-join to append at the end")
}

func TestRegistry_MembersUnknownRoom(t *testing.T) {
	reg := NewRegistry()
	members := reg.Members("nope")
	assert.NotNil(t, members, "expected a non-nil slice so it serializes as an array")
	assert.Empty(t, members)
	assert.Zero(t, reg.Count("nope"))
}
