package rooms

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Johnnyluon/mmo-server/domain"
)

// Room capacity bounds. Requests outside the range are clamped; a request
// that carried no usable number at all defaults to DefaultMaxPlayers.
const (
	MinMaxPlayers     = 1
	MaxMaxPlayers     = 8
	DefaultMaxPlayers = 4
)

// Room is a bounded group of connections that receive each other's relayed
// payloads. Members are kept in join order.
type Room struct {
	ID         string
	Name       string
	MaxPlayers int
	CreatedAt  time.Time

	members []string
}

// AddMember appends the connection to the member list. Capacity is the
// caller's responsibility; AddMember never rejects.
func (r *Room) AddMember(connID string) {
	r.members = append(r.members, connID)
}

func (r *Room) RemoveMember(connID string) {
	for i, id := range r.members {
		if id == connID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return
		}
	}
}

func (r *Room) HasMember(connID string) bool {
	for _, id := range r.members {
		if id == connID {
			return true
		}
	}
	return false
}

func (r *Room) IsFull() bool {
	return len(r.members) >= r.MaxPlayers
}

func (r *Room) Len() int {
	return len(r.members)
}

// Members returns the member connection IDs in join order.
func (r *Room) Members() []string {
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Room) Info() domain.RoomInfo {
	return domain.RoomInfo{
		ID:             r.ID,
		Name:           r.Name,
		CurrentPlayers: len(r.members),
		MaxPlayers:     r.MaxPlayers,
	}
}

// Directory owns all live rooms. It keeps the id and trimmed-name mappings in
// lockstep: a name resolves to a room exactly as long as that room exists.
// Not safe for concurrent use; the hub serializes access.
type Directory struct {
	rooms map[string]*Room
	names map[string]string
	order []string
}

func NewDirectory() *Directory {
	return &Directory{
		rooms: make(map[string]*Room),
		names: make(map[string]string),
	}
}

// Create inserts a new empty room. The name is trimmed and must be non-empty
// and unused; maxPlayers is clamped into [MinMaxPlayers, MaxMaxPlayers].
func (d *Directory) Create(name string, maxPlayers int) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrEmptyRoomName
	}
	if _, taken := d.names[name]; taken {
		return nil, domain.ErrDuplicateRoomName
	}

	room := &Room{
		ID:         uuid.NewString(),
		Name:       name,
		MaxPlayers: clamp(maxPlayers),
		CreatedAt:  time.Now().UTC(),
	}

	d.rooms[room.ID] = room
	d.names[name] = room.ID
	d.order = append(d.order, room.ID)
	return room, nil
}

func (d *Directory) Get(id string) (*Room, bool) {
	room, ok := d.rooms[id]
	return room, ok
}

// Resolve finds a room by identifier. An exact room-name match wins; failing
// that the identifier is treated as a room ID, so clients can join by either.
func (d *Directory) Resolve(identifier string) (*Room, bool) {
	if id, ok := d.names[identifier]; ok {
		return d.rooms[id], true
	}
	room, ok := d.rooms[identifier]
	return room, ok
}

// RemoveIfEmpty deletes the room from both mappings once its member list is
// empty. Called after every leave; idle rooms never linger.
func (d *Directory) RemoveIfEmpty(id string) {
	room, ok := d.rooms[id]
	if !ok || room.Len() > 0 {
		return
	}
	delete(d.rooms, id)
	delete(d.names, room.Name)
	for i, existing := range d.order {
		if existing == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Snapshot lists all rooms in creation order for the lobby view.
func (d *Directory) Snapshot() []domain.RoomInfo {
	out := make([]domain.RoomInfo, 0, len(d.order))
	for _, id := range d.order {
		if room, ok := d.rooms[id]; ok {
			out = append(out, room.Info())
		}
	}
	return out
}

func (d *Directory) Len() int {
	return len(d.rooms)
}

func clamp(maxPlayers int) int {
	if maxPlayers < MinMaxPlayers {
		return MinMaxPlayers
	}
	if maxPlayers > MaxMaxPlayers {
		return MaxMaxPlayers
	}
	return maxPlayers
}
