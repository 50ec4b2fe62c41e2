package models

import (
	"time"
)

// PlayerStats 玩家统计信息, accumulated across every round an identity played.
type PlayerStats struct {
	Identity  string    `json:"identity"`
	Shots     int       `json:"shots"`
	Wins      int       `json:"wins"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoundRecord 游戏记录: one finished round of one room.
type RoundRecord struct {
	RoomID     string    `json:"room_id"`
	Winner     string    `json:"winner,omitempty"` // empty when nobody survived
	Eliminated []string  `json:"eliminated"`
	EndedAt    time.Time `json:"ended_at"`
}

// ShotRecord is a single elimination.
type ShotRecord struct {
	RoomID   string    `json:"room_id"`
	Identity string    `json:"identity"`
	ShotAt   time.Time `json:"shot_at"`
}
