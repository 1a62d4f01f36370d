package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/Johnnyluon/mmo-server/domain"
	"github.com/Johnnyluon/mmo-server/registry"
	"github.com/Johnnyluon/mmo-server/rooms"
)

// Hub owns all shared session state: the connection registry, the room
// directory and the membership index. Every mutation runs to completion under
// one mutex, so command handling never interleaves mid-update. Outbound sends
// happen outside the lock and are best-effort; a slow or dead peer never
// stalls the event step.
type Hub struct {
	mu         sync.Mutex
	conns      map[string]domain.Connection
	registry   *registry.Registry
	directory  *rooms.Directory
	membership map[string]string
}

func New() *Hub {
	return &Hub{
		conns:      make(map[string]domain.Connection),
		registry:   registry.New(),
		directory:  rooms.NewDirectory(),
		membership: make(map[string]string),
	}
}

// Register starts tracking a connection and pushes it an immediate lobby
// snapshot, so clients can render the lobby before identifying themselves.
func (h *Hub) Register(conn domain.Connection) {
	h.mu.Lock()
	h.conns[conn.ID()] = conn
	h.registry.Add(conn.ID())
	count := h.registry.Len()
	payload := h.lobbyPayloadLocked()
	h.mu.Unlock()

	slog.Info("client connected", "clientId", conn.ID(), "clients", count)
	h.deliver([]domain.Connection{conn}, payload)
}

// Unregister tears down a closed connection: leave its room (deleting the
// room if it empties), erase its identity, then notify the lobby. Safe to
// call for connections the hub never saw.
func (h *Hub) Unregister(conn domain.Connection) {
	h.mu.Lock()
	if _, ok := h.conns[conn.ID()]; !ok {
		h.mu.Unlock()
		return
	}
	h.leaveLocked(conn.ID())
	h.registry.Remove(conn.ID())
	delete(h.conns, conn.ID())
	count := h.registry.Len()
	targets := h.allConnsLocked()
	payload := h.lobbyPayloadLocked()
	h.mu.Unlock()

	slog.Info("client disconnected", "clientId", conn.ID(), "clients", count)
	h.deliver(targets, payload)
}

// SetDisplayName stores or overwrites the connection's display name. Names
// carry no uniqueness constraint.
func (h *Hub) SetDisplayName(conn domain.Connection, name string) {
	h.mu.Lock()
	h.registry.SetName(conn.ID(), name)
	h.mu.Unlock()
}

func (h *Hub) DisplayName(conn domain.Connection) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Name(conn.ID())
}

func (h *Hub) IsRegistered(conn domain.Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.IsRegistered(conn.ID())
}

// CreateRoom creates a room and joins the creator to it in the same step, so
// a room is never observable without at least one member.
func (h *Hub) CreateRoom(conn domain.Connection, name string, maxPlayers int) (domain.RoomInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.registry.IsRegistered(conn.ID()) {
		return domain.RoomInfo{}, domain.ErrUnregistered
	}

	room, err := h.directory.Create(name, maxPlayers)
	if err != nil {
		return domain.RoomInfo{}, err
	}
	h.joinLocked(conn.ID(), room)

	slog.Info("room created", "roomId", room.ID, "name", room.Name, "maxPlayers", room.MaxPlayers, "clientId", conn.ID())
	return room.Info(), nil
}

// Join moves the connection into the room matching identifier (name first,
// then ID). The capacity check runs before the implicit leave, so a full
// room fails the join even for its own members and no state changes on
// failure. Re-joining the current room is a full leave-then-join and moves
// the member to the end of join order.
func (h *Hub) Join(conn domain.Connection, identifier string) (domain.RoomInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.registry.IsRegistered(conn.ID()) {
		return domain.RoomInfo{}, domain.ErrUnregistered
	}

	room, ok := h.directory.Resolve(identifier)
	if !ok {
		return domain.RoomInfo{}, domain.ErrRoomNotFound
	}
	if room.IsFull() {
		return domain.RoomInfo{}, domain.ErrRoomFull
	}
	h.joinLocked(conn.ID(), room)

	slog.Info("client joined room", "roomId", room.ID, "name", room.Name, "clientId", conn.ID(), "players", room.Len())
	return room.Info(), nil
}

func (h *Hub) CurrentRoom(conn domain.Connection) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	roomID, ok := h.membership[conn.ID()]
	return roomID, ok
}

// BroadcastLobby pushes the current room snapshot to every tracked
// connection, registered or not.
func (h *Hub) BroadcastLobby() {
	h.mu.Lock()
	targets := h.allConnsLocked()
	payload := h.lobbyPayloadLocked()
	h.mu.Unlock()

	h.deliver(targets, payload)
}

// BroadcastRoom relays payload verbatim to every member of the room except
// excludeID. A failed send to one member never aborts delivery to the rest.
func (h *Hub) BroadcastRoom(roomID string, payload []byte, excludeID string) {
	h.mu.Lock()
	var targets []domain.Connection
	if room, ok := h.directory.Get(roomID); ok {
		for _, memberID := range room.Members() {
			if memberID == excludeID {
				continue
			}
			if conn, ok := h.conns[memberID]; ok {
				targets = append(targets, conn)
			}
		}
	}
	h.mu.Unlock()

	h.deliver(targets, payload)
}

// BroadcastChat fans a pre-room chat line out to every tracked connection.
func (h *Hub) BroadcastChat(sender, text string) {
	payload, err := json.Marshal(domain.NewChatMessage(sender, text))
	if err != nil {
		slog.Warn("chat marshal error", "error", err)
		return
	}

	h.mu.Lock()
	targets := h.allConnsLocked()
	h.mu.Unlock()

	h.deliver(targets, payload)
}

func (h *Hub) Stats() (roomCount, clients int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.directory.Len(), h.registry.Len()
}

// joinLocked performs leave-then-join. When the target is the connection's
// current room the room is kept alive through the switch instead of being
// deleted in the empty instant between leave and re-add.
func (h *Hub) joinLocked(connID string, target *rooms.Room) {
	if currentID, ok := h.membership[connID]; ok {
		if current, found := h.directory.Get(currentID); found {
			current.RemoveMember(connID)
			if currentID != target.ID {
				h.directory.RemoveIfEmpty(currentID)
			}
		}
		delete(h.membership, connID)
	}
	target.AddMember(connID)
	h.membership[connID] = target.ID
}

func (h *Hub) leaveLocked(connID string) {
	roomID, ok := h.membership[connID]
	if !ok {
		return
	}
	delete(h.membership, connID)
	if room, found := h.directory.Get(roomID); found {
		room.RemoveMember(connID)
		h.directory.RemoveIfEmpty(roomID)
		if _, alive := h.directory.Get(roomID); !alive {
			slog.Info("room removed", "roomId", roomID)
		}
	}
}

func (h *Hub) allConnsLocked() []domain.Connection {
	ids := h.registry.IDs()
	out := make([]domain.Connection, 0, len(ids))
	for _, id := range ids {
		if conn, ok := h.conns[id]; ok {
			out = append(out, conn)
		}
	}
	return out
}

func (h *Hub) lobbyPayloadLocked() []byte {
	payload, err := json.Marshal(domain.NewLobbyUpdate(h.directory.Snapshot()))
	if err != nil {
		slog.Warn("lobby marshal error", "error", err)
		return nil
	}
	return payload
}

func (h *Hub) deliver(targets []domain.Connection, payload []byte) {
	if payload == nil {
		return
	}
	for _, conn := range targets {
		if err := conn.Send(payload); err != nil {
			slog.Debug("send failed", "clientId", conn.ID(), "error", err)
		}
	}
}
