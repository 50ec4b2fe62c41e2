package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockState is a test double for the State interface.
// It helps us track which methods have been called.
type MockState struct {
	ID             string
	OnEnterCalled  bool
	OnExitCalled   bool
	OnUpdateCalled bool
}

func (m *MockState) OnEnter()             { m.OnEnterCalled = true }
func (m *MockState) OnExit()              { m.OnExitCalled = true }
func (m *MockState) OnUpdate()            { m.OnUpdateCalled = true }
func (m *MockState) GetID() string        { return m.ID }
func (m *MockState) Status() Status       { return StatusWaiting }
func (m *MockState) AcceptsIntents() bool { return true }

// reset clears the call tracking flags.
func (m *MockState) reset() {
	m.OnEnterCalled = false
	m.OnExitCalled = false
	m.OnUpdateCalled = false
}

func TestStateMachine_InitialState(t *testing.T) {
	initialState := &MockState{ID: "initial"}
	sm := NewBaseStateMachine(initialState)

	assert.True(t, initialState.OnEnterCalled, "Expected OnEnter to be called on the initial state")
	assert.Same(t, initialState, sm.GetCurrentState())
}

func TestStateMachine_ChangeState(t *testing.T) {
	initialState := &MockState{ID: "initial"}
	nextState := &MockState{ID: "next"}

	sm := NewBaseStateMachine(initialState)
	require.NoError(t, sm.AddTransition("initial", "next", nil))
	initialState.reset()

	require.NoError(t, sm.ChangeState(nextState))
	assert.True(t, initialState.OnExitCalled)
	assert.True(t, nextState.OnEnterCalled)
	assert.Same(t, nextState, sm.GetCurrentState())
}

func TestStateMachine_UnregisteredTransitionIsRejected(t *testing.T) {
	stateA := &MockState{ID: "A"}
	stateB := &MockState{ID: "B"}

	sm := NewBaseStateMachine(stateA)
	stateA.reset()

	assert.ErrorIs(t, sm.ChangeState(stateB), ErrTransitionNotAllowed)
	assert.Equal(t, "A", sm.GetCurrentState().GetID())
	assert.False(t, stateA.OnExitCalled)
	assert.False(t, stateB.OnEnterCalled)
}

func TestStateMachine_AddAndUseTransition(t *testing.T) {
	stateA := &MockState{ID: "A"}
	stateB := &MockState{ID: "B"}
	stateC := &MockState{ID: "C"}

	sm := NewBaseStateMachine(stateA)
	require.NoError(t, sm.AddTransition("A", "B", func() bool { return true }))
	require.NoError(t, sm.AddTransition("B", "C", func() bool { return false }))

	require.NoError(t, sm.ChangeState(stateB))
	assert.Equal(t, "B", sm.GetCurrentState().GetID())

	stateB.reset()
	assert.ErrorIs(t, sm.ChangeState(stateC), ErrTransitionNotAllowed)
	assert.Equal(t, "B", sm.GetCurrentState().GetID())
	assert.False(t, stateB.OnExitCalled, "OnExit should not be called if transition is blocked")
	assert.False(t, stateC.OnEnterCalled, "OnEnter should not be called if transition is blocked")

	assert.Error(t, sm.AddTransition("", "C", nil))
}

func TestRoundMachine_OnlyCycles(t *testing.T) {
	waiting := &MockState{ID: IDWaiting}
	playing := &MockState{ID: IDPlaying}
	finished := &MockState{ID: IDFinished}

	sm := NewRoundMachine(waiting)
	assert.ErrorIs(t, sm.ChangeState(finished), ErrTransitionNotAllowed)
	require.NoError(t, sm.ChangeState(playing))
	assert.ErrorIs(t, sm.ChangeState(waiting), ErrTransitionNotAllowed)
	require.NoError(t, sm.ChangeState(finished))
	assert.ErrorIs(t, sm.ChangeState(playing), ErrTransitionNotAllowed)
	require.NoError(t, sm.ChangeState(waiting))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "waiting", StatusWaiting.String())
	assert.Equal(t, "playing", StatusPlaying.String())
	assert.Equal(t, "finished", StatusFinished.String())
	assert.Equal(t, "unknown", Status(9).String())
}
