package room

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wfunc/roulette/cooldown"
	"github.com/wfunc/roulette/game"
	"github.com/wfunc/roulette/network"
)

// MockBroadcaster is a test double for the Broadcaster interface that records every message.
type MockBroadcaster struct {
	mu       sync.Mutex
	messages []network.Message
}

func (m *MockBroadcaster) BroadcastToRoom(roomID string, msg network.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MockBroadcaster) count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		if msg.Event() == event {
			n++
		}
	}
	return n
}

func (m *MockBroadcaster) last(event string) network.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Event() == event {
			return m.messages[i]
		}
	}
	return nil
}

// manualTimers holds scheduled callbacks until the test fires them.
type manualTimers struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]func()
	delays map[int64]time.Duration
}

func newManualTimers() *manualTimers {
	return &manualTimers{tasks: make(map[int64]func()), delays: make(map[int64]time.Duration)}
}

func (m *manualTimers) AddTimer(delay time.Duration, interval time.Duration, callback func()) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.tasks[m.nextID] = callback
	m.delays[m.nextID] = delay
	return m.nextID
}

func (m *manualTimers) RemoveTimer(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	delete(m.delays, id)
}

func (m *manualTimers) pending() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []time.Duration
	for _, d := range m.delays {
		out = append(out, d)
	}
	return out
}

// fireAll runs every pending callback once, as the timer manager would when they come due.
func (m *manualTimers) fireAll() {
	m.mu.Lock()
	tasks := m.tasks
	m.tasks = make(map[int64]func())
	m.delays = make(map[int64]time.Duration)
	m.mu.Unlock()
	for _, cb := range tasks {
		cb()
	}
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testRoom struct {
	*Room
	broadcaster *MockBroadcaster
	timers      *manualTimers
	cooldowns   *cooldown.Store
	clock       *fixedClock
}

func newTestRoom(t *testing.T, source game.Source) *testRoom {
	t.Helper()
	clock := &fixedClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	tr := &testRoom{
		broadcaster: &MockBroadcaster{},
		timers:      newManualTimers(),
		cooldowns:   cooldown.NewStoreWithClock(clock.Now),
		clock:       clock,
	}
	tr.Room = NewRoom("room-test", DefaultOptions(), Dependencies{
		Broadcaster: tr.broadcaster,
		Cooldowns:   tr.cooldowns,
		Timers:      tr.timers,
		Spinner:     game.NewSpinner(source, game.DefaultEliminationChance),
		Now:         clock.Now,
	})
	t.Cleanup(tr.Close)
	return tr
}

// ticks delivers n ticks, waiting for each one to be applied.
func (tr *testRoom) ticks(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.True(t, tr.Tick(), "tick %d dropped", i)
		tr.snap(t)
	}
}

func (tr *testRoom) snap(t *testing.T) Snapshot {
	t.Helper()
	s, err := tr.Snapshot()
	require.NoError(t, err)
	return s
}

func (tr *testRoom) join(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, tr.Join(id, id))
	}
}
