package domain

import "errors"

// Session errors surfaced to the offending client as an ERROR event. None of
// them terminate the connection or mutate any shared state.
var (
	ErrDuplicateRoomName = errors.New("room name already taken")
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is full")
	ErrUnregistered      = errors.New("register a username first")
	ErrEmptyRoomName     = errors.New("room name must not be empty")
)
