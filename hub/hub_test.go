package hub

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Johnnyluon/mmo-server/domain"
)

type mockConn struct {
	id       string
	received [][]byte
	closed   bool
	mu       sync.Mutex
	sendErr  error
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, data)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) getReceived() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received
}

func (m *mockConn) lastLobby(t *testing.T) domain.LobbyUpdate {
	t.Helper()
	received := m.getReceived()
	for i := len(received) - 1; i >= 0; i-- {
		var update domain.LobbyUpdate
		require.NoError(t, json.Unmarshal(received[i], &update))
		if update.Type == domain.TypeLobbyUpdate {
			return update
		}
	}
	t.Fatal("no lobby update received")
	return domain.LobbyUpdate{}
}

func registered(t *testing.T, h *Hub, id, name string) *mockConn {
	t.Helper()
	conn := &mockConn{id: id}
	h.Register(conn)
	h.SetDisplayName(conn, name)
	return conn
}

func TestHub_RegisterSendsLobbySnapshot(t *testing.T) {
	h := New()
	conn := &mockConn{id: "c1"}

	h.Register(conn)

	update := conn.lastLobby(t)
	assert.Empty(t, update.Rooms)

	_, clients := h.Stats()
	assert.Equal(t, 1, clients)
}

func TestHub_CreateRoomAutoJoinsCreator(t *testing.T) {
	h := New()
	conn := registered(t, h, "c1", "Ann")

	info, err := h.CreateRoom(conn, "Cave", 2)
	require.NoError(t, err)
	assert.Equal(t, "Cave", info.Name)
	assert.Equal(t, 1, info.CurrentPlayers)
	assert.Equal(t, 2, info.MaxPlayers)

	roomID, ok := h.CurrentRoom(conn)
	require.True(t, ok)
	assert.Equal(t, info.ID, roomID)
}

func TestHub_CreateRoomRequiresRegistration(t *testing.T) {
	h := New()
	conn := &mockConn{id: "c1"}
	h.Register(conn)

	_, err := h.CreateRoom(conn, "Cave", 2)
	assert.ErrorIs(t, err, domain.ErrUnregistered)

	rooms, _ := h.Stats()
	assert.Equal(t, 0, rooms)
}

func TestHub_DuplicateRoomName(t *testing.T) {
	h := New()
	first := registered(t, h, "c1", "Ann")
	second := registered(t, h, "c2", "Bo")

	_, err := h.CreateRoom(first, "Cave", 2)
	require.NoError(t, err)

	_, err = h.CreateRoom(second, "Cave", 4)
	assert.ErrorIs(t, err, domain.ErrDuplicateRoomName)

	// The failed creator must not have been moved anywhere.
	_, ok := h.CurrentRoom(second)
	assert.False(t, ok)
}

func TestHub_JoinCapacity(t *testing.T) {
	h := New()
	creator := registered(t, h, "c1", "Ann")
	joiner := registered(t, h, "c2", "Bo")
	third := registered(t, h, "c3", "Cy")

	info, err := h.CreateRoom(creator, "Cave", 2)
	require.NoError(t, err)

	_, err = h.Join(joiner, "Cave")
	require.NoError(t, err)

	// Full room fails hard, and keeps failing on retry.
	_, err = h.Join(third, "Cave")
	assert.ErrorIs(t, err, domain.ErrRoomFull)
	_, err = h.Join(third, info.ID)
	assert.ErrorIs(t, err, domain.ErrRoomFull)

	room, ok := h.directory.Get(info.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"c1", "c2"}, room.Members())
	_, ok = h.CurrentRoom(third)
	assert.False(t, ok)
}

func TestHub_JoinByNameOrID(t *testing.T) {
	h := New()
	creator := registered(t, h, "c1", "Ann")
	byName := registered(t, h, "c2", "Bo")
	byID := registered(t, h, "c3", "Cy")

	info, err := h.CreateRoom(creator, "Cave", 4)
	require.NoError(t, err)

	joined, err := h.Join(byName, "Cave")
	require.NoError(t, err)
	assert.Equal(t, info.ID, joined.ID)

	joined, err = h.Join(byID, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, joined.ID)

	_, err = h.Join(byID, "no-such-room")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestHub_JoinMovesBetweenRooms(t *testing.T) {
	h := New()
	mover := registered(t, h, "c1", "Ann")
	anchor := registered(t, h, "c2", "Bo")

	first, err := h.CreateRoom(mover, "First", 4)
	require.NoError(t, err)
	second, err := h.CreateRoom(anchor, "Second", 4)
	require.NoError(t, err)

	_, err = h.Join(mover, "Second")
	require.NoError(t, err)

	roomID, ok := h.CurrentRoom(mover)
	require.True(t, ok)
	assert.Equal(t, second.ID, roomID)

	// First room emptied out and must be gone, name included.
	_, ok = h.directory.Get(first.ID)
	assert.False(t, ok)
	_, ok = h.directory.Resolve("First")
	assert.False(t, ok)

	room, ok := h.directory.Get(second.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"c2", "c1"}, room.Members())
}

func TestHub_RejoinMovesToEndOfOrder(t *testing.T) {
	h := New()
	first := registered(t, h, "c1", "Ann")
	second := registered(t, h, "c2", "Bo")

	info, err := h.CreateRoom(first, "Cave", 4)
	require.NoError(t, err)
	_, err = h.Join(second, "Cave")
	require.NoError(t, err)

	// Re-joining the current room is a full leave-then-join.
	_, err = h.Join(first, "Cave")
	require.NoError(t, err)

	room, ok := h.directory.Get(info.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"c2", "c1"}, room.Members())
}

func TestHub_RejoinSoleMemberKeepsRoomAlive(t *testing.T) {
	h := New()
	conn := registered(t, h, "c1", "Ann")

	info, err := h.CreateRoom(conn, "Cave", 4)
	require.NoError(t, err)

	_, err = h.Join(conn, "Cave")
	require.NoError(t, err)

	room, ok := h.directory.Get(info.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"c1"}, room.Members())
}

func TestHub_UnregisterLeavesRoomAndNotifiesLobby(t *testing.T) {
	h := New()
	leaver := registered(t, h, "c1", "Ann")
	stayer := registered(t, h, "c2", "Bo")

	info, err := h.CreateRoom(leaver, "Cave", 2)
	require.NoError(t, err)
	_, err = h.Join(stayer, "Cave")
	require.NoError(t, err)

	h.Unregister(leaver)

	room, ok := h.directory.Get(info.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"c2"}, room.Members())

	update := stayer.lastLobby(t)
	require.Len(t, update.Rooms, 1)
	assert.Equal(t, 1, update.Rooms[0].CurrentPlayers)

	// Last member leaving removes the room from subsequent snapshots.
	h.Unregister(stayer)
	roomCount, clients := h.Stats()
	assert.Equal(t, 0, roomCount)
	assert.Equal(t, 0, clients)
}

func TestHub_UnregisterUnknownConnection(t *testing.T) {
	h := New()
	conn := &mockConn{id: "c1"}

	h.Unregister(conn)

	h.Register(conn)
	h.Unregister(conn)
	h.Unregister(conn)

	_, clients := h.Stats()
	assert.Equal(t, 0, clients)
}

func TestHub_BroadcastLobbyReachesUnregistered(t *testing.T) {
	h := New()
	guest := &mockConn{id: "c1"}
	h.Register(guest)
	creator := registered(t, h, "c2", "Ann")

	_, err := h.CreateRoom(creator, "Cave", 2)
	require.NoError(t, err)
	h.BroadcastLobby()

	update := guest.lastLobby(t)
	require.Len(t, update.Rooms, 1)
	assert.Equal(t, "Cave", update.Rooms[0].Name)
	assert.Equal(t, 1, update.Rooms[0].CurrentPlayers)
	assert.Equal(t, 2, update.Rooms[0].MaxPlayers)
}

func TestHub_BroadcastRoomExcludesSender(t *testing.T) {
	h := New()
	sender := registered(t, h, "c1", "Ann")
	member := registered(t, h, "c2", "Bo")
	outsider := registered(t, h, "c3", "Cy")

	info, err := h.CreateRoom(sender, "Cave", 4)
	require.NoError(t, err)
	_, err = h.Join(member, "Cave")
	require.NoError(t, err)

	before := len(sender.getReceived())
	outsiderBefore := len(outsider.getReceived())

	payload := []byte(`{"type":"MOVE","x":5}`)
	h.BroadcastRoom(info.ID, payload, sender.ID())

	memberReceived := member.getReceived()
	require.NotEmpty(t, memberReceived)
	assert.Equal(t, payload, memberReceived[len(memberReceived)-1])

	assert.Len(t, sender.getReceived(), before)
	assert.Len(t, outsider.getReceived(), outsiderBefore)
}

func TestHub_BroadcastRoomSurvivesFailedSend(t *testing.T) {
	h := New()
	sender := registered(t, h, "c1", "Ann")
	broken := registered(t, h, "c2", "Bo")
	healthy := registered(t, h, "c3", "Cy")

	info, err := h.CreateRoom(sender, "Cave", 4)
	require.NoError(t, err)
	_, err = h.Join(broken, "Cave")
	require.NoError(t, err)
	_, err = h.Join(healthy, "Cave")
	require.NoError(t, err)

	broken.mu.Lock()
	broken.sendErr = assert.AnError
	broken.mu.Unlock()

	payload := []byte(`{"type":"MOVE","x":5}`)
	h.BroadcastRoom(info.ID, payload, sender.ID())

	healthyReceived := healthy.getReceived()
	require.NotEmpty(t, healthyReceived)
	assert.Equal(t, payload, healthyReceived[len(healthyReceived)-1])
}

func TestHub_BroadcastChat(t *testing.T) {
	h := New()
	speaker := registered(t, h, "c1", "Ann")
	guest := &mockConn{id: "c2"}
	h.Register(guest)

	h.BroadcastChat("Ann", "hello")

	for _, conn := range []*mockConn{speaker, guest} {
		received := conn.getReceived()
		require.NotEmpty(t, received)
		var chat domain.ChatMessage
		require.NoError(t, json.Unmarshal(received[len(received)-1], &chat))
		assert.Equal(t, domain.TypeChatMessage, chat.Type)
		assert.Equal(t, "Ann", chat.Sender)
		assert.Equal(t, "hello", chat.Message)
	}
}

func TestHub_Stats(t *testing.T) {
	h := New()
	first := registered(t, h, "c1", "Ann")
	second := registered(t, h, "c2", "Bo")

	_, err := h.CreateRoom(first, "Alpha", 4)
	require.NoError(t, err)
	_, err = h.CreateRoom(second, "Beta", 4)
	require.NoError(t, err)

	rooms, clients := h.Stats()
	assert.Equal(t, 2, rooms)
	assert.Equal(t, 2, clients)
}
