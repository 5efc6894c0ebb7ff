package server

import (
	"errors"

	"github.com/codepair/go-collab/internal/types"
)

// ErrAlreadyMember is returned when an identity attempts to join a room it
// is already a member of.
var ErrAlreadyMember = errors.New("user already connected in this room")

type roomMembers struct {
	byID  map[string]*types.Identity
	order []string
}

// Registry tracks which identities are members of which rooms. It is owned
// by the hub and only ever touched from the hub's event loop, so it carries
// no locking of its own.
type Registry struct {
	rooms map[string]*roomMembers
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*roomMembers)}
}

// Register adds identity to roomID's membership, creating the room entry if
// needed. The identity is stored with Online forced to true. Registering an
// id that is already present fails with ErrAlreadyMember and changes nothing.
func (reg *Registry) Register(roomID string, identity types.Identity) error {
	members, ok := reg.rooms[roomID]
	if !ok {
		members = &roomMembers{byID: make(map[string]*types.Identity)}
		reg.rooms[roomID] = members
	}

	if _, ok := members.byID[identity.ID]; ok {
		return ErrAlreadyMember
	}

	identity.Online = true
	members.byID[identity.ID] = &identity
	members.order = append(members.order, identity.ID)
	return nil
}

// Unregister removes and returns the membership entry for id in roomID. The
// room entry itself is dropped once its last member is removed.
func (reg *Registry) Unregister(roomID, id string) (types.Identity, bool) {
	members, ok := reg.rooms[roomID]
	if !ok {
		return types.Identity{}, false
	}

	identity, ok := members.byID[id]
	if !ok {
		return types.Identity{}, false
	}

	delete(members.byID, id)
	for i, memberID := range members.order {
		if memberID == id {
			members.order = append(members.order[:i], members.order[i+1:]...)
			break
		}
	}

	if len(members.byID) == 0 {
		delete(reg.rooms, roomID)
	}

	return *identity, true
}

// Members returns the room's identities in insertion order. The slice is
// always non-nil so it serializes as a JSON array.
func (reg *Registry) Members(roomID string) []types.Identity {
	out := []types.Identity{}
	members, ok := reg.rooms[roomID]
	if !ok {
		return out
	}

	for _, id := range members.order {
		out = append(out, *members.byID[id])
	}
	return out
}

func (reg *Registry) Count(roomID string) int {
	members, ok := reg.rooms[roomID]
	if !ok {
		return 0
	}
	return len(members.byID)
}
