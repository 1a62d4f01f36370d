package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Inbound command types.
const (
	TypeRegister    = "REGISTER"
	TypeCreateRoom  = "CREATE_ROOM"
	TypeRequestJoin = "REQUEST_JOIN"
	TypeChat        = "CHAT"
)

// Outbound event types.
const (
	TypeLobbyUpdate = "LOBBY_UPDATE"
	TypeStatus      = "STATUS"
	TypeError       = "ERROR"
	TypeGameReady   = "GAME_READY"
	TypeChatMessage = "CHAT_MESSAGE"
)

// Inbound is the decoded form of a client command. Unknown Type values are
// valid: they mark the payload as an opaque in-room relay message.
type Inbound struct {
	Type           string          `json:"type"`
	Username       string          `json:"username"`
	Name           string          `json:"name"`
	MaxPlayers     json.RawMessage `json:"maxPlayers"`
	RoomIdentifier string          `json:"roomIdentifier"`
	Message        string          `json:"message"`
}

// DecodeInbound parses a wire payload into an Inbound command. Anything that
// is not a JSON object fails here and is treated as malformed by the caller.
func DecodeInbound(data []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return Inbound{}, err
	}
	return msg, nil
}

// MaxPlayersValue returns the requested room capacity. Clients send it as a
// number or a numeric string; anything else, including an absent field,
// yields fallback. Range clamping is the room directory's job.
func (m Inbound) MaxPlayersValue(fallback int) int {
	raw := strings.TrimSpace(string(m.MaxPlayers))
	if raw == "" || raw == "null" {
		return fallback
	}

	var n int
	if err := json.Unmarshal(m.MaxPlayers, &n); err == nil {
		return n
	}

	var f float64
	if err := json.Unmarshal(m.MaxPlayers, &f); err == nil {
		return int(f)
	}

	var s string
	if err := json.Unmarshal(m.MaxPlayers, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}

	return fallback
}

// RoomInfo is one lobby entry describing a live room.
type RoomInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CurrentPlayers int    `json:"currentPlayers"`
	MaxPlayers     int    `json:"maxPlayers"`
}

type LobbyUpdate struct {
	Type  string     `json:"type"`
	Rooms []RoomInfo `json:"rooms"`
}

type Status struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type GameReady struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

type ChatMessage struct {
	Type    string `json:"type"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

func NewLobbyUpdate(rooms []RoomInfo) LobbyUpdate {
	if rooms == nil {
		rooms = []RoomInfo{}
	}
	return LobbyUpdate{Type: TypeLobbyUpdate, Rooms: rooms}
}

func NewStatus(message string) Status {
	return Status{Type: TypeStatus, Message: message}
}

func NewError(message string) Status {
	return Status{Type: TypeError, Message: message}
}

func NewGameReady(roomID string) GameReady {
	return GameReady{Type: TypeGameReady, RoomID: roomID}
}

func NewChatMessage(sender, message string) ChatMessage {
	return ChatMessage{Type: TypeChatMessage, Sender: sender, Message: message}
}
