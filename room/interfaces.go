package room

import (
	"time"

	"github.com/wfunc/roulette/network"
)

// Broadcaster defines the interface for broadcasting messages to a room.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msg network.Message) error
}

// Timers schedules the delayed reset after a round. *timer.TimerManager satisfies it.
type Timers interface {
	AddTimer(delay time.Duration, interval time.Duration, callback func()) int64
	RemoveTimer(timerId int64)
}

// Observer receives room-level measurements. *monitor.Monitor satisfies it.
type Observer interface {
	PlayersChanged(roomID string, count int)
	SpinCompleted(roomID string, eliminated bool)
	RoundFinished(roomID string, hasWinner bool)
	TickDropped(roomID string)
}

// Membership records which room an identity currently sits in.
type Membership interface {
	// Claim binds identity to roomID. It fails if the identity sits in another
	// room or is in cooldown.
	Claim(identity, roomID string) error
	Release(identity, roomID string)
}

type nopObserver struct{}

func (nopObserver) PlayersChanged(string, int)  {}
func (nopObserver) SpinCompleted(string, bool)  {}
func (nopObserver) RoundFinished(string, bool)  {}
func (nopObserver) TickDropped(string)          {}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastToRoom(string, network.Message) error { return nil }

type nopMembership struct{}

func (nopMembership) Claim(string, string) error { return nil }
func (nopMembership) Release(string, string)     {}
