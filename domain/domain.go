package domain

// Connection is the transport-side handle for a single client. IDs are
// issued at accept time and stay stable for the connection's lifetime.
type Connection interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Broadcaster tracks connection lifecycle. Register must be called once
// when the transport accepts a connection, Unregister once when it closes.
type Broadcaster interface {
	Register(conn Connection)
	Unregister(conn Connection)
	Stats() (rooms, clients int)
}

// Relay is the session-state owner behind the command protocol: identity,
// room membership and the two broadcast scopes (lobby-wide and room-scoped).
type Relay interface {
	Broadcaster

	SetDisplayName(conn Connection, name string)
	DisplayName(conn Connection) (string, bool)
	IsRegistered(conn Connection) bool

	CreateRoom(conn Connection, name string, maxPlayers int) (RoomInfo, error)
	Join(conn Connection, identifier string) (RoomInfo, error)
	CurrentRoom(conn Connection) (roomID string, ok bool)

	BroadcastLobby()
	BroadcastRoom(roomID string, payload []byte, excludeID string)
	BroadcastChat(sender, text string)
}

type MessageHandler interface {
	Handle(conn Connection, data []byte)
}
