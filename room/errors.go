package room

import (
	"errors"
	"fmt"
)

// Intent errors. Each is returned only to the caller whose intent failed.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrAlreadyJoined    = errors.New("already joined")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSeatTaken        = errors.New("seat already taken")
	ErrInvalidSeat      = errors.New("invalid seat")
	ErrInCooldown       = errors.New("in cooldown")
	ErrGameFinished     = errors.New("game finished, not accepting intents")
	ErrRoomClosed       = errors.New("room closed")
)

// CooldownError is returned by join while the identity is banned. It matches ErrInCooldown.
type CooldownError struct {
	Remaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("in cooldown for %d more seconds", e.Remaining)
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrInCooldown
}

// ErrorKind maps an intent error to the kind string sent on the wire.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "RoomNotFound"
	case errors.Is(err, ErrRoomFull):
		return "RoomFull"
	case errors.Is(err, ErrAlreadyJoined):
		return "AlreadyJoined"
	case errors.Is(err, ErrNotAuthenticated):
		return "NotAuthenticated"
	case errors.Is(err, ErrSeatTaken):
		return "SeatTaken"
	case errors.Is(err, ErrInvalidSeat):
		return "InvalidSeat"
	case errors.Is(err, ErrInCooldown):
		return "InCooldown"
	case errors.Is(err, ErrGameFinished):
		return "GameNotAcceptingIntents"
	default:
		return "Internal"
	}
}
