package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/roulette/config"
	"github.com/wfunc/roulette/logger"
	"github.com/wfunc/roulette/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// zapWriter routes GORM's log lines into the process logger.
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	logger.Log.Debugf(format, args...)
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(cfg config.PostgresConfig) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)

	// 配置GORM日志
	gormLogger := gormlogger.New(zapWriter{}, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return NewGormStore(db)
}

// NewGormStore wraps an open connection and migrates the history tables.
func NewGormStore(db *gorm.DB) (*GormPostgreSQL, error) {
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &GormPostgreSQL{db: db}, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormRound{},
		&models.GormShot{},
		&models.GormPlayerStats{},
	)
}

// bumpStats adds to one counter column of identity's stats row, creating the row if needed.
func bumpStats(tx *gorm.DB, identity, column string) error {
	row := models.GormPlayerStats{Identity: identity}
	switch column {
	case "shots":
		row.Shots = 1
	case "wins":
		row.Wins = 1
	default:
		return fmt.Errorf("unknown stats column %q", column)
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "identity"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column:       gorm.Expr("player_stats."+column+" + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
}

// RecordShot 保存淘汰记录
func (p *GormPostgreSQL) RecordShot(ctx context.Context, shot models.ShotRecord) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.GormShot{
			RoomID:   shot.RoomID,
			Identity: shot.Identity,
			ShotAt:   shot.ShotAt,
		}).Error; err != nil {
			return err
		}
		return bumpStats(tx, shot.Identity, "shots")
	})
}

// RecordRound 保存游戏记录
func (p *GormPostgreSQL) RecordRound(ctx context.Context, round models.RoundRecord) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.GormRound{
			RoomID:     round.RoomID,
			Winner:     round.Winner,
			Eliminated: round.Eliminated,
			EndedAt:    round.EndedAt,
		}).Error; err != nil {
			return err
		}
		if round.Winner == "" {
			return nil
		}
		return bumpStats(tx, round.Winner, "wins")
	})
}

func (p *GormPostgreSQL) PlayerStats(ctx context.Context, identity string) (models.PlayerStats, error) {
	var row models.GormPlayerStats
	if err := p.db.WithContext(ctx).Where("identity = ?", identity).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PlayerStats{}, ErrRecordNotFound
		}
		return models.PlayerStats{}, err
	}
	return row.Stats(), nil
}

// RecentRounds returns the newest rounds first. An empty roomID means every room.
func (p *GormPostgreSQL) RecentRounds(ctx context.Context, roomID string, limit int) ([]models.RoundRecord, error) {
	query := p.db.WithContext(ctx).Order("ended_at DESC").Limit(limit)
	if roomID != "" {
		query = query.Where("room_id = ?", roomID)
	}

	var rows []models.GormRound
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]models.RoundRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Record())
	}
	return records, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
