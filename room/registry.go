package room

import (
	"sync"
	"time"

	"github.com/wfunc/roulette/cooldown"
	"github.com/wfunc/roulette/game"
	"github.com/wfunc/roulette/logger"
)

// Settings configure every room a Registry creates.
type Settings struct {
	Options           Options
	EliminationChance float64
	// Source builds the random source for a new room. Nil means time-seeded.
	Source func() game.Source
}

// Registry owns every room. It is the entry point for every inbound intent and
// tracks which room each identity currently sits in.
type Registry struct {
	settings Settings
	deps     Dependencies

	rooms   map[string]*Room
	order   []string
	members map[string]string // identity -> roomID
	mutex   sync.RWMutex
}

// NewRegistry builds an empty registry. deps.Spinner and deps.Members are
// ignored: every room gets its own spinner and the registry as membership index.
func NewRegistry(settings Settings, deps Dependencies) *Registry {
	if deps.Cooldowns == nil {
		deps.Cooldowns = cooldown.NewStore()
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	return &Registry{
		settings: settings,
		deps:     deps,
		rooms:    make(map[string]*Room),
		members:  make(map[string]string),
	}
}

// CreateRoom returns the room with id, creating it first if needed. Rooms are never removed.
func (m *Registry) CreateRoom(id string) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[id]; exists {
		return room
	}

	deps := m.deps
	deps.Members = m
	var source game.Source
	if m.settings.Source != nil {
		source = m.settings.Source()
	}
	deps.Spinner = game.NewSpinner(source, m.settings.EliminationChance)

	room := NewRoom(id, m.settings.Options, deps)
	m.rooms[id] = room
	m.order = append(m.order, id)
	logger.Log.Infof("room %s created", id)
	return room
}

// GetRoom 从管理器中获取一个房间
func (m *Registry) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// Rooms returns every room in creation order.
func (m *Registry) Rooms() []*Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*Room, 0, len(m.order))
	for _, id := range m.order {
		rooms = append(rooms, m.rooms[id])
	}
	return rooms
}

// Snapshots returns a copy of every room's state in creation order.
func (m *Registry) Snapshots() []Snapshot {
	rooms := m.Rooms()
	snaps := make([]Snapshot, 0, len(rooms))
	for _, room := range rooms {
		if snap, err := room.Snapshot(); err == nil {
			snaps = append(snaps, snap)
		}
	}
	return snaps
}

// Join seats identity in roomID with an empty seat. An empty label is derived from the identity.
func (m *Registry) Join(roomID, identity, label string) error {
	room, ok := m.GetRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if label == "" {
		label = game.ShortLabel(identity)
	}
	return room.Join(identity, label)
}

func (m *Registry) SelectSeat(roomID, identity string, seat int) error {
	room, ok := m.GetRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return room.SelectSeat(identity, seat)
}

// Leave removes identity from roomID. Leaving a room you are not in is not an error.
func (m *Registry) Leave(roomID, identity string) error {
	room, ok := m.GetRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return room.Leave(identity)
}

// Disconnect removes identity from the room it sits in, if any.
func (m *Registry) Disconnect(identity string) {
	roomID, ok := m.RoomOf(identity)
	if !ok {
		return
	}
	if err := m.Leave(roomID, identity); err != nil {
		logger.Log.Warnf("disconnect %s from room %s: %v", identity, roomID, err)
	}
}

// RoomOf returns the room identity currently sits in.
func (m *Registry) RoomOf(identity string) (string, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	roomID, ok := m.members[identity]
	return roomID, ok
}

// Claim implements Membership. It is called from the room goroutine while
// joining; the cooldown check is repeated here so an identity banned by another
// room between the room's own check and this call is still refused.
func (m *Registry) Claim(identity, roomID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if current, ok := m.members[identity]; ok && current != roomID {
		return ErrAlreadyJoined
	}
	if remaining := m.deps.Cooldowns.Remaining(identity); remaining > 0 {
		return &CooldownError{Remaining: remaining}
	}
	m.members[identity] = roomID
	return nil
}

// Release implements Membership.
func (m *Registry) Release(identity, roomID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.members[identity] == roomID {
		delete(m.members, identity)
	}
}

// Tick hands one heartbeat to every room without waiting for them.
func (m *Registry) Tick(time.Time) {
	for _, room := range m.Rooms() {
		if !room.Tick() {
			m.deps.Observer.TickDropped(room.ID)
			logger.Log.Warnf("room %s: tick dropped, previous tick still pending", room.ID)
		}
	}
}

// Close stops every room goroutine.
func (m *Registry) Close() {
	for _, room := range m.Rooms() {
		room.Close()
	}
}
