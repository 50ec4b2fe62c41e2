package state

import (
	"github.com/wfunc/roulette/logger"
	"github.com/wfunc/roulette/network"
)

// 等待状态: lobby countdown, starts a round once enough players are present.
type WaitingState struct {
	RoomStateBase
}

func NewWaitingState(room RoomContext) *WaitingState {
	return &WaitingState{RoomStateBase: RoomStateBase{ID: IDWaiting, Room: room}}
}

func (s *WaitingState) Status() Status { return StatusWaiting }

func (s *WaitingState) OnEnter() {
	s.Room.SetTimeRemaining(s.Room.Rules().LobbySeconds)
}

func (s *WaitingState) OnUpdate() {
	rules := s.Room.Rules()
	remaining := s.Room.TimeRemaining() - 1

	if remaining <= 0 {
		if s.Room.PlayerCount() >= rules.MinPlayers {
			if err := s.Room.ChangeState(NewPlayingState(s.Room)); err != nil {
				logger.Log.Errorf("room %s: cannot start round: %v", s.Room.GetID(), err)
			}
			s.notifyTimer()
			return
		}
		remaining = rules.LobbySeconds
	}

	s.Room.SetTimeRemaining(remaining)
	s.notifyTimer()
}

func (s *WaitingState) notifyTimer() {
	s.Room.Broadcast(network.TimerUpdate{RoomID: s.Room.GetID(), TimeRemaining: s.Room.TimeRemaining()})
}

// 游戏状态: one spin every RoundSeconds ticks until a single player is left.
type PlayingState struct {
	RoomStateBase
}

func NewPlayingState(room RoomContext) *PlayingState {
	return &PlayingState{RoomStateBase: RoomStateBase{ID: IDPlaying, Room: room}}
}

func (s *PlayingState) Status() Status { return StatusPlaying }

func (s *PlayingState) OnEnter() {
	s.Room.CancelReset()
	s.Room.SetTimeRemaining(s.Room.Rules().RoundSeconds)
	logger.Log.Infof("room %s: round started with %d players", s.Room.GetID(), s.Room.PlayerCount())
	s.Room.Broadcast(network.GameStart{RoomID: s.Room.GetID()})
	s.Room.BroadcastState()
}

func (s *PlayingState) OnUpdate() {
	round := s.Room.Rules().RoundSeconds
	remaining := s.Room.TimeRemaining() - 1
	s.Room.SetTimeRemaining(remaining)

	var (
		winner *network.PlayerView
		over   bool
	)
	switch n := s.Room.PlayerCount(); {
	case n == 0:
		over = true
	case n == 1:
		winner, over = s.Room.CrownSurvivor(), true
	case remaining%round == 0:
		winner, over = s.Room.Spin()
	}

	if remaining <= 0 {
		s.Room.SetTimeRemaining(round)
	}
	if over {
		if err := s.Room.ChangeState(NewFinishedState(s.Room, winner)); err != nil {
			logger.Log.Errorf("room %s: cannot finish round: %v", s.Room.GetID(), err)
		}
	}

	s.Room.Broadcast(network.TimerUpdate{RoomID: s.Room.GetID(), TimeRemaining: s.Room.TimeRemaining()})
}

// 结算状态: holds the result until the delayed reset fires.
type FinishedState struct {
	RoomStateBase
	Winner *network.PlayerView
}

func NewFinishedState(room RoomContext, winner *network.PlayerView) *FinishedState {
	return &FinishedState{
		RoomStateBase: RoomStateBase{ID: IDFinished, Room: room},
		Winner:        winner,
	}
}

func (s *FinishedState) Status() Status { return StatusFinished }

func (s *FinishedState) AcceptsIntents() bool { return false }

func (s *FinishedState) OnEnter() {
	s.Room.Broadcast(network.GameEnd{RoomID: s.Room.GetID(), Winner: s.Winner})
	s.Room.BroadcastState()
	s.Room.FinishRound(s.Winner)
}
