package broadcast

import (
	"errors"
	"sync"

	"github.com/wfunc/roulette/logger"
	"github.com/wfunc/roulette/network"
	"github.com/wfunc/roulette/room"
	"github.com/wfunc/roulette/session"
)

// 基于房间的广播器. Sessions subscribe to a room by joining or watching it;
// every room event is encoded once and queued on each subscriber.
type RoomBroadcaster struct {
	subscribers map[string]map[string]*session.Session // roomID -> sessionID -> session
	mutex       sync.RWMutex
}

func NewRoomBroadcaster() *RoomBroadcaster {
	return &RoomBroadcaster{
		subscribers: make(map[string]map[string]*session.Session),
	}
}

func (b *RoomBroadcaster) Subscribe(roomID string, s *session.Session) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	subs, ok := b.subscribers[roomID]
	if !ok {
		subs = make(map[string]*session.Session)
		b.subscribers[roomID] = subs
	}
	subs[s.ID] = s
}

func (b *RoomBroadcaster) Unsubscribe(roomID, sessionID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if subs, ok := b.subscribers[roomID]; ok {
		delete(subs, sessionID)
		if len(subs) == 0 {
			delete(b.subscribers, roomID)
		}
	}
}

// UnsubscribeAll removes sessionID from every room.
func (b *RoomBroadcaster) UnsubscribeAll(sessionID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for roomID, subs := range b.subscribers {
		delete(subs, sessionID)
		if len(subs) == 0 {
			delete(b.subscribers, roomID)
		}
	}
}

func (b *RoomBroadcaster) IsSubscribed(roomID, sessionID string) bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	_, ok := b.subscribers[roomID][sessionID]
	return ok
}

func (b *RoomBroadcaster) Subscribers(roomID string) int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.subscribers[roomID])
}

// BroadcastToRoom implements room.Broadcaster. Delivery is best effort: a full
// or closed session misses the message and the others still get it.
func (b *RoomBroadcaster) BroadcastToRoom(roomID string, msg network.Message) error {
	msgID, data, err := network.Encode(msg)
	if err != nil {
		return err
	}

	// Get a thread-safe copy of the sessions
	b.mutex.RLock()
	sessions := make([]*session.Session, 0, len(b.subscribers[roomID]))
	for _, s := range b.subscribers[roomID] {
		sessions = append(sessions, s)
	}
	b.mutex.RUnlock()

	for _, s := range sessions {
		if err := s.SendPacket(msgID, data); err != nil {
			logger.Log.Debugf("broadcast %s to session %s: %v", msg.Event(), s.ID, err)
		}
	}
	return nil
}

type multi []room.Broadcaster

// Multi fans every message out to each broadcaster in order.
func Multi(broadcasters ...room.Broadcaster) room.Broadcaster {
	return multi(broadcasters)
}

func (m multi) BroadcastToRoom(roomID string, msg network.Message) error {
	var errs []error
	for _, b := range m {
		if err := b.BroadcastToRoom(roomID, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
