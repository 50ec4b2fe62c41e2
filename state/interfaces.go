// state/interfaces.go
package state

import "github.com/wfunc/roulette/network"

// Rules are the timing constants a round is played with.
type Rules struct {
	LobbySeconds int
	RoundSeconds int
	MinPlayers   int
}

// RoomContext defines the interface that a Room must implement to be managed by the state machine.
// This breaks the import cycle between room and state.
//
// Every method is called from the room's own goroutine.
type RoomContext interface {
	GetID() string
	Rules() Rules
	PlayerCount() int
	TimeRemaining() int
	SetTimeRemaining(seconds int)
	ChangeState(newState State) error

	Broadcast(msg network.Message)
	BroadcastState()

	// Spin runs one elimination draw. over is true when it left a single survivor,
	// who is returned as winner after being credited.
	Spin() (winner *network.PlayerView, over bool)
	// CrownSurvivor credits the only remaining player with a survival and returns it.
	CrownSurvivor() *network.PlayerView
	// FinishRound schedules the delayed reset back to waiting.
	FinishRound(winner *network.PlayerView)
	// CancelReset drops any pending reset from an earlier round.
	CancelReset()
}
