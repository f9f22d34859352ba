package game

import "errors"

// ErrRoomNotFound is the only failure surfaced to clients; it belongs to the
// two acknowledged calls (createRoom, joinRoom). Everything else is dropped
// silently per the protocol.
var ErrRoomNotFound = errors.New("room not found")

// ErrAlreadyInRoom guards a connection trying to create or join a second room.
var ErrAlreadyInRoom = errors.New("already in a room")
