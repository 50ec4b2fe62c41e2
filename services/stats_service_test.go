package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/roulette/models"
	"github.com/wfunc/roulette/persistence"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) RecordShot(ctx context.Context, shot models.ShotRecord) error {
	return m.Called(ctx, shot).Error(0)
}

func (m *MockStore) RecordRound(ctx context.Context, round models.RoundRecord) error {
	return m.Called(ctx, round).Error(0)
}

func (m *MockStore) PlayerStats(ctx context.Context, identity string) (models.PlayerStats, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(models.PlayerStats), args.Error(1)
}

func (m *MockStore) RecentRounds(ctx context.Context, roomID string, limit int) ([]models.RoundRecord, error) {
	args := m.Called(ctx, roomID, limit)
	return args.Get(0).([]models.RoundRecord), args.Error(1)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

func TestStatsService_PlayerStats(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	store.On("PlayerStats", ctx, "alice").Return(models.PlayerStats{Identity: "alice", Shots: 2, Wins: 1}, nil)
	store.On("PlayerStats", ctx, "nobody").Return(models.PlayerStats{}, persistence.ErrRecordNotFound)
	store.On("PlayerStats", ctx, "broken").Return(models.PlayerStats{}, errors.New("connection reset"))

	svc := NewStatsService(store)

	stats, err := svc.PlayerStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Shots)

	stats, err = svc.PlayerStats(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, models.PlayerStats{Identity: "nobody"}, stats)

	_, err = svc.PlayerStats(ctx, "broken")
	assert.EqualError(t, err, "connection reset")
	store.AssertExpectations(t)
}

func TestStatsService_RecentRoundsClampsLimit(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	store.On("RecentRounds", ctx, "main-room", DefaultRoundsLimit).Return([]models.RoundRecord{}, nil).Once()
	store.On("RecentRounds", ctx, "main-room", MaxRoundsLimit).Return([]models.RoundRecord{}, nil).Once()
	store.On("RecentRounds", ctx, "", 5).Return([]models.RoundRecord{{RoomID: "room-2"}}, nil).Once()

	svc := NewStatsService(store)

	_, err := svc.RecentRounds(ctx, "main-room", 0)
	require.NoError(t, err)
	_, err = svc.RecentRounds(ctx, "main-room", 10000)
	require.NoError(t, err)
	rounds, err := svc.RecentRounds(ctx, "", 5)
	require.NoError(t, err)
	assert.Len(t, rounds, 1)
	store.AssertExpectations(t)
}
