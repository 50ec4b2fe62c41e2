package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/roulette/models"
)

// MemoryStore keeps history in process memory. It is the default when no
// database is configured and is lost on restart.
type MemoryStore struct {
	rounds []models.RoundRecord
	stats  map[string]*models.PlayerStats
	mutex  sync.RWMutex
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stats: make(map[string]*models.PlayerStats),
		now:   time.Now,
	}
}

func (m *MemoryStore) bump(identity string) *models.PlayerStats {
	s, ok := m.stats[identity]
	if !ok {
		s = &models.PlayerStats{Identity: identity}
		m.stats[identity] = s
	}
	s.UpdatedAt = m.now()
	return s
}

func (m *MemoryStore) RecordShot(_ context.Context, shot models.ShotRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.bump(shot.Identity).Shots++
	return nil
}

func (m *MemoryStore) RecordRound(_ context.Context, round models.RoundRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	round.Eliminated = append([]string(nil), round.Eliminated...)
	m.rounds = append(m.rounds, round)
	if round.Winner != "" {
		m.bump(round.Winner).Wins++
	}
	return nil
}

func (m *MemoryStore) PlayerStats(_ context.Context, identity string) (models.PlayerStats, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	s, ok := m.stats[identity]
	if !ok {
		return models.PlayerStats{}, ErrRecordNotFound
	}
	return *s, nil
}

func (m *MemoryStore) RecentRounds(_ context.Context, roomID string, limit int) ([]models.RoundRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var out []models.RoundRecord
	for i := len(m.rounds) - 1; i >= 0 && len(out) < limit; i-- {
		if roomID == "" || m.rounds[i].RoomID == roomID {
			out = append(out, m.rounds[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
