package persistence

import (
	"context"
	"errors"

	"github.com/wfunc/roulette/models"
)

// Store keeps round history and lifetime player stats. Room state itself is
// never persisted.
type Store interface {
	RecordShot(ctx context.Context, shot models.ShotRecord) error
	RecordRound(ctx context.Context, round models.RoundRecord) error
	PlayerStats(ctx context.Context, identity string) (models.PlayerStats, error)
	RecentRounds(ctx context.Context, roomID string, limit int) ([]models.RoundRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
)
