package session

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wfunc/roulette/logger"
	"github.com/wfunc/roulette/network"
)

const sendQueueSize = 64

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSendQueueFull = errors.New("session send queue full")
)

type outbound struct {
	msgID uint16
	data  []byte
}

// Session is one client connection. Outbound packets are queued and written by
// a dedicated goroutine so a slow client never blocks a room.
type Session struct {
	ID        string
	Conn      network.Connection
	CreatedAt time.Time

	identity   string
	roomID     string
	lastActive time.Time
	limiter    *rate.Limiter
	mutex      sync.RWMutex

	outbox    chan outbound
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession starts the session's write loop. A nil limiter allows every intent.
func NewSession(id string, conn network.Connection, limiter *rate.Limiter) *Session {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	now := time.Now()
	s := &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
		limiter:    limiter,
		outbox:     make(chan outbound, sendQueueSize),
		done:       make(chan struct{}),
	}
	go s.writePump()
	return s
}

func (s *Session) GetID() string {
	return s.ID
}

// Member returns the identity the session joined with and the room it sits in.
// Both are empty before a successful join.
func (s *Session) Member() (identity, roomID string) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.identity, s.roomID
}

func (s *Session) SetMember(identity, roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.identity = identity
	s.roomID = roomID
}

// LeaveRoom forgets roomID but keeps the identity, so the session can still
// select seats after joining again.
func (s *Session) LeaveRoom(roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.roomID == roomID {
		s.roomID = ""
	}
}

// Allow reports whether one more intent fits the session's rate limit.
func (s *Session) Allow() bool {
	return s.limiter.Allow()
}

func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

// Send encodes msg and queues it for this session only.
func (s *Session) Send(msg network.Message) error {
	msgID, data, err := network.Encode(msg)
	if err != nil {
		return err
	}
	return s.SendPacket(msgID, data)
}

// SendPacket queues an already encoded packet. It never blocks.
func (s *Session) SendPacket(msgID uint16, data []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.outbox <- outbound{msgID: msgID, data: data}:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		return ErrSendQueueFull
	}
}

func (s *Session) writePump() {
	for {
		select {
		case pkt := <-s.outbox:
			if err := s.Conn.Send(pkt.msgID, pkt.data); err != nil {
				logger.Log.Debugf("session %s: write failed: %v", s.ID, err)
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.Conn.Close()
	})
	return err
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByIdentity returns every session that joined as identity.
func (m *Manager) GetByIdentity(identity string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if id, _ := session.Member(); id == identity {
			result = append(result, session)
		}
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every session; their connection handlers clean up the rest.
func (m *Manager) CloseAll() {
	m.mutex.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mutex.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
}
