package protocol

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/Johnnyluon/mmo-server/domain"
	"github.com/Johnnyluon/mmo-server/rooms"
)

// GuestName tags pre-room chat from connections that never registered.
const GuestName = "Guest"

// Handler decodes client commands and routes them through the relay. Every
// failure is answered or dropped in place; nothing a client sends can take
// down its session or the server.
type Handler struct {
	relay domain.Relay
}

func NewHandler(relay domain.Relay) *Handler {
	return &Handler{relay: relay}
}

func (h *Handler) Handle(conn domain.Connection, data []byte) {
	msg, err := domain.DecodeInbound(data)
	if err != nil {
		slog.Warn("malformed payload", "clientId", conn.ID(), "error", err)
		return
	}

	switch msg.Type {
	case domain.TypeRegister:
		h.handleRegister(conn, msg)
	case domain.TypeCreateRoom:
		h.handleCreateRoom(conn, msg)
	case domain.TypeRequestJoin:
		h.handleRequestJoin(conn, msg)
	case domain.TypeChat:
		h.handleChat(conn, msg)
	default:
		h.relayToRoom(conn, data)
	}
}

func (h *Handler) handleRegister(conn domain.Connection, msg domain.Inbound) {
	username := strings.TrimSpace(msg.Username)
	if username == "" {
		h.sendError(conn, "username must not be empty")
		return
	}

	h.relay.SetDisplayName(conn, username)
	h.send(conn, domain.NewStatus("registered as "+username))
}

func (h *Handler) handleCreateRoom(conn domain.Connection, msg domain.Inbound) {
	if !h.relay.IsRegistered(conn) {
		h.sendError(conn, domain.ErrUnregistered.Error())
		return
	}

	maxPlayers := msg.MaxPlayersValue(rooms.DefaultMaxPlayers)
	info, err := h.relay.CreateRoom(conn, msg.Name, maxPlayers)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}

	h.send(conn, domain.NewGameReady(info.ID))
	h.relay.BroadcastLobby()
}

func (h *Handler) handleRequestJoin(conn domain.Connection, msg domain.Inbound) {
	if !h.relay.IsRegistered(conn) {
		h.sendError(conn, domain.ErrUnregistered.Error())
		return
	}

	identifier := strings.TrimSpace(msg.RoomIdentifier)
	if identifier == "" {
		h.sendError(conn, domain.ErrRoomNotFound.Error())
		return
	}

	info, err := h.relay.Join(conn, identifier)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}

	h.send(conn, domain.NewGameReady(info.ID))
	h.relay.BroadcastLobby()
}

func (h *Handler) handleChat(conn domain.Connection, msg domain.Inbound) {
	if strings.TrimSpace(msg.Message) == "" {
		slog.Debug("empty chat message dropped", "clientId", conn.ID())
		return
	}

	sender, ok := h.relay.DisplayName(conn)
	if !ok {
		sender = GuestName
	}
	h.relay.BroadcastChat(sender, msg.Message)
}

// relayToRoom forwards an unrecognized but well-formed payload, byte for
// byte, to the other members of the sender's room. Senders outside any room
// are dropped silently.
func (h *Handler) relayToRoom(conn domain.Connection, data []byte) {
	roomID, ok := h.relay.CurrentRoom(conn)
	if !ok {
		slog.Debug("relay from connection outside any room dropped", "clientId", conn.ID())
		return
	}
	h.relay.BroadcastRoom(roomID, data, conn.ID())
}

func (h *Handler) send(conn domain.Connection, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("event marshal error", "clientId", conn.ID(), "error", err)
		return
	}
	if err := conn.Send(payload); err != nil {
		slog.Debug("send failed", "clientId", conn.ID(), "error", err)
	}
}

func (h *Handler) sendError(conn domain.Connection, message string) {
	h.send(conn, domain.NewError(message))
}
