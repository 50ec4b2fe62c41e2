package state

import (
	"errors"
	"sync"
)

// Status is the externally visible phase of a room.
type Status int

const (
	StatusWaiting Status = iota
	StatusPlaying
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusPlaying:
		return "playing"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// State IDs used to register transitions.
const (
	IDWaiting  = "waiting"
	IDPlaying  = "playing"
	IDFinished = "finished"
)

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(fromID, toID string, condition func() bool) error
}

// 状态接口
type State interface {
	OnEnter()
	OnExit()
	OnUpdate()
	GetID() string
	Status() Status
	// AcceptsIntents reports whether joins and seat changes are allowed.
	AcceptsIntents() bool
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// BaseStateMachine only follows transitions that were registered with AddTransition.
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

// NewRoundMachine returns a machine that only allows waiting -> playing -> finished -> waiting.
func NewRoundMachine(initialState State) *BaseStateMachine {
	machine := NewBaseStateMachine(initialState)
	_ = machine.AddTransition(IDWaiting, IDPlaying, nil)
	_ = machine.AddTransition(IDPlaying, IDFinished, nil)
	_ = machine.AddTransition(IDFinished, IDWaiting, nil)
	return machine
}

// ChangeState swaps the current state and then runs the exit and enter hooks
// outside the lock, so hooks may read the machine or change state again.
func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	currentID := sm.currentState.GetID()
	newID := newState.GetID()

	conditions, exists := sm.transitions[currentID]
	if !exists {
		sm.mutex.Unlock()
		return ErrTransitionNotAllowed
	}
	condition, exists := conditions[newID]
	if !exists || (condition != nil && !condition()) {
		sm.mutex.Unlock()
		return ErrTransitionNotAllowed
	}

	previous := sm.currentState
	sm.currentState = newState
	sm.mutex.Unlock()

	previous.OnExit()
	newState.OnEnter()
	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(fromID, toID string, condition func() bool) error {
	if fromID == "" || toID == "" {
		return errors.New("state: transition needs both ids")
	}

	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
	return nil
}

// 房间状态基础结构
type RoomStateBase struct {
	ID   string
	Room RoomContext
}

func (s *RoomStateBase) GetID() string {
	return s.ID
}

func (s *RoomStateBase) OnEnter() {}

func (s *RoomStateBase) OnExit() {}

func (s *RoomStateBase) OnUpdate() {}

func (s *RoomStateBase) AcceptsIntents() bool {
	return true
}
