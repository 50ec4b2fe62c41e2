package room

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/roulette/cooldown"
	"github.com/wfunc/roulette/game"
	"github.com/wfunc/roulette/state"
)

type countingObserver struct {
	mu      sync.Mutex
	dropped map[string]int
	spins   int
	rounds  int
}

func (o *countingObserver) PlayersChanged(string, int) {}
func (o *countingObserver) SpinCompleted(string, bool) {
	o.mu.Lock()
	o.spins++
	o.mu.Unlock()
}
func (o *countingObserver) RoundFinished(string, bool) {
	o.mu.Lock()
	o.rounds++
	o.mu.Unlock()
}
func (o *countingObserver) TickDropped(roomID string) {
	o.mu.Lock()
	o.dropped[roomID]++
	o.mu.Unlock()
}

type testRegistry struct {
	*Registry
	broadcaster *MockBroadcaster
	timers      *manualTimers
	cooldowns   *cooldown.Store
	observer    *countingObserver
}

func newTestRegistry(t *testing.T, source game.Source, rooms ...string) *testRegistry {
	t.Helper()
	clock := &fixedClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	tr := &testRegistry{
		broadcaster: &MockBroadcaster{},
		timers:      newManualTimers(),
		cooldowns:   cooldown.NewStoreWithClock(clock.Now),
		observer:    &countingObserver{dropped: map[string]int{}},
	}
	tr.Registry = NewRegistry(Settings{
		Options:           DefaultOptions(),
		EliminationChance: game.DefaultEliminationChance,
		Source:            func() game.Source { return source },
	}, Dependencies{
		Broadcaster: tr.broadcaster,
		Cooldowns:   tr.cooldowns,
		Timers:      tr.timers,
		Observer:    tr.observer,
		Now:         clock.Now,
	})
	for _, id := range rooms {
		tr.CreateRoom(id)
	}
	t.Cleanup(tr.Close)
	return tr
}

// beat ticks every room once and waits until each has applied it.
func (tr *testRegistry) beat(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		tr.Tick(time.Now())
		tr.Snapshots()
	}
}

func TestRegistry_CreateAndGetRoom(t *testing.T) {
	reg := newTestRegistry(t, game.NeverFire, "main-room", "room-2")

	room := reg.CreateRoom("main-room")
	got, ok := reg.GetRoom("main-room")
	require.True(t, ok)
	assert.Same(t, room, got, "creating an existing id returns the same room")

	_, ok = reg.GetRoom("nope")
	assert.False(t, ok)

	reg.CreateRoom("room-3")
	var ids []string
	for _, s := range reg.Snapshots() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"main-room", "room-2", "room-3"}, ids)
}

func TestRegistry_UnknownRoom(t *testing.T) {
	reg := newTestRegistry(t, game.NeverFire, "main-room")

	assert.ErrorIs(t, reg.Join("nope", "a", ""), ErrRoomNotFound)
	assert.ErrorIs(t, reg.SelectSeat("nope", "a", 1), ErrRoomNotFound)
	assert.ErrorIs(t, reg.Leave("nope", "a"), ErrRoomNotFound)
	assert.Equal(t, "RoomNotFound", ErrorKind(ErrRoomNotFound))
}

func TestRegistry_JoinDerivesLabel(t *testing.T) {
	reg := newTestRegistry(t, game.NeverFire, "main-room")

	require.NoError(t, reg.Join("main-room", "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", ""))
	s, err := reg.rooms["main-room"].Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "9xQe...VFin", s.Players[0].DisplayLabel)
}

func TestRegistry_OneRoomPerIdentity(t *testing.T) {
	reg := newTestRegistry(t, game.NeverFire, "main-room", "room-2")

	require.NoError(t, reg.Join("main-room", "a", "a"))
	assert.ErrorIs(t, reg.Join("room-2", "a", "a"), ErrAlreadyJoined)

	roomID, ok := reg.RoomOf("a")
	require.True(t, ok)
	assert.Equal(t, "main-room", roomID)

	require.NoError(t, reg.Leave("main-room", "a"))
	_, ok = reg.RoomOf("a")
	assert.False(t, ok)
	assert.NoError(t, reg.Join("room-2", "a", "a"))
}

func TestRegistry_FailedJoinDoesNotClaim(t *testing.T) {
	reg := newTestRegistry(t, game.NeverFire, "main-room", "room-2")
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, reg.Join("main-room", id, id))
	}

	assert.ErrorIs(t, reg.Join("main-room", "f", "f"), ErrRoomFull)
	_, ok := reg.RoomOf("f")
	assert.False(t, ok)
	assert.NoError(t, reg.Join("room-2", "f", "f"))
}

func TestRegistry_Disconnect(t *testing.T) {
	reg := newTestRegistry(t, game.NeverFire, "main-room")
	require.NoError(t, reg.Join("main-room", "a", "a"))

	reg.Disconnect("a")
	reg.Disconnect("a")
	reg.Disconnect("never-joined")

	s, err := reg.rooms["main-room"].Snapshot()
	require.NoError(t, err)
	assert.Empty(t, s.Players)
}

func TestRegistry_EliminatedIdentityBlockedEverywhere(t *testing.T) {
	reg := newTestRegistry(t, game.AlwaysFire, "main-room", "room-2")
	require.NoError(t, reg.Join("main-room", "a", "a"))
	require.NoError(t, reg.Join("main-room", "b", "b"))

	reg.beat(t, 60)

	_, ok := reg.RoomOf("a")
	assert.False(t, ok, "eliminated identity is released")
	err := reg.Join("room-2", "a", "a")
	assert.ErrorIs(t, err, ErrInCooldown)

	roomID, ok := reg.RoomOf("b")
	require.True(t, ok, "winner stays seated until the reset")
	assert.Equal(t, "main-room", roomID)

	reg.timers.fireAll()
	reg.Snapshots()
	_, ok = reg.RoomOf("b")
	assert.False(t, ok, "reset releases everyone")
	assert.Equal(t, 1, reg.observer.rounds)
}

func TestRegistry_ClaimRefusesCooldown(t *testing.T) {
	reg := newTestRegistry(t, game.NeverFire, "main-room")
	reg.cooldowns.Block("a", time.Minute)

	err := reg.Claim("a", "main-room")
	assert.ErrorIs(t, err, ErrInCooldown)
	_, ok := reg.RoomOf("a")
	assert.False(t, ok)
}

func TestRegistry_TickDrivesEveryRoom(t *testing.T) {
	reg := newTestRegistry(t, game.NeverFire, "main-room", "room-2")
	require.NoError(t, reg.Join("room-2", "a", "a"))
	require.NoError(t, reg.Join("room-2", "b", "b"))

	reg.beat(t, 30)

	snaps := reg.Snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, state.StatusWaiting, snaps[0].Status)
	assert.Equal(t, state.StatusPlaying, snaps[1].Status)
	assert.Empty(t, reg.observer.dropped)
}

func TestRegistry_SeedDemo(t *testing.T) {
	reg := newTestRegistry(t, game.NeverFire, "main-room")
	require.NoError(t, reg.SeedDemo("main-room"))

	s := reg.Snapshots()[0]
	require.Len(t, s.Players, 2)
	assert.Equal(t, Player{
		Identity:      "FakePlayer1111111111111111111111111111111",
		DisplayLabel:  "FakePlayer1",
		Seat:          1,
		ShotCount:     5,
		SurvivalCount: 3,
	}, s.Players[0])
	assert.Equal(t, Player{
		Identity:      "FakePlayer2222222222222222222222222222222",
		DisplayLabel:  "FakePlayer2",
		Seat:          3,
		ShotCount:     3,
		SurvivalCount: 7,
	}, s.Players[1])

	roomID, ok := reg.RoomOf("FakePlayer2222222222222222222222222222222")
	require.True(t, ok)
	assert.Equal(t, "main-room", roomID)
	assert.ErrorIs(t, reg.SeedDemo("nope"), ErrRoomNotFound)
}
