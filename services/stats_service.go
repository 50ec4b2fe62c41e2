package services

import (
	"context"
	"errors"

	"github.com/wfunc/roulette/models"
	"github.com/wfunc/roulette/persistence"
)

const (
	DefaultRoundsLimit = 20
	MaxRoundsLimit     = 200
)

type StatsService struct {
	store persistence.Store
}

func NewStatsService(store persistence.Store) *StatsService {
	return &StatsService{store: store}
}

// PlayerStats 获取玩家统计. An identity that never played gets zero counters.
func (s *StatsService) PlayerStats(ctx context.Context, identity string) (models.PlayerStats, error) {
	stats, err := s.store.PlayerStats(ctx, identity)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return models.PlayerStats{Identity: identity}, nil
	}
	return stats, err
}

// RecentRounds clamps limit into [1, MaxRoundsLimit]; zero or negative means the default.
func (s *StatsService) RecentRounds(ctx context.Context, roomID string, limit int) ([]models.RoundRecord, error) {
	switch {
	case limit <= 0:
		limit = DefaultRoundsLimit
	case limit > MaxRoundsLimit:
		limit = MaxRoundsLimit
	}
	return s.store.RecentRounds(ctx, roomID, limit)
}
