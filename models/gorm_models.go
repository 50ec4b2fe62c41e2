package models

import (
	"time"

	"gorm.io/gorm"
)

// GormRound 游戏记录模型
type GormRound struct {
	gorm.Model
	RoomID     string    `gorm:"index;not null"`
	Winner     string    `gorm:"index"`
	Eliminated []string  `gorm:"serializer:json"`
	EndedAt    time.Time `gorm:"index;not null"`
}

func (GormRound) TableName() string { return "rounds" }

func (r GormRound) Record() RoundRecord {
	return RoundRecord{
		RoomID:     r.RoomID,
		Winner:     r.Winner,
		Eliminated: r.Eliminated,
		EndedAt:    r.EndedAt,
	}
}

// GormShot 淘汰记录模型
type GormShot struct {
	gorm.Model
	RoomID   string    `gorm:"index;not null"`
	Identity string    `gorm:"index;not null"`
	ShotAt   time.Time `gorm:"not null"`
}

func (GormShot) TableName() string { return "shots" }

// GormPlayerStats 玩家统计模型, keyed by identity.
type GormPlayerStats struct {
	Identity  string `gorm:"primaryKey"`
	Shots     int    `gorm:"not null;default:0"`
	Wins      int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (GormPlayerStats) TableName() string { return "player_stats" }

func (s GormPlayerStats) Stats() PlayerStats {
	return PlayerStats{
		Identity:  s.Identity,
		Shots:     s.Shots,
		Wins:      s.Wins,
		UpdatedAt: s.UpdatedAt,
	}
}
