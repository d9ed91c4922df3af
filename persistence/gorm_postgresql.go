// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/wfunc/partyroom/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormRecorder 使用GORM的PostgreSQL实现
type GormRecorder struct {
	db *gorm.DB
}

// NewGormRecorder 创建GORM PostgreSQL数据库连接
func NewGormRecorder(dsn string) (*GormRecorder, error) {
	// 配置GORM日志
	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		gormlogger.Config{
			SlowThreshold: time.Second,       // 慢SQL阈值
			LogLevel:      gormlogger.Silent, // 日志级别
			Colorful:      false,             // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return NewGormRecorderWithDB(db)
}

// NewGormRecorderWithDB 复用已有连接并迁移表结构
func NewGormRecorderWithDB(db *gorm.DB) (*GormRecorder, error) {
	if err := db.AutoMigrate(&models.GormGameResult{}); err != nil {
		return nil, fmt.Errorf("migrate game_results: %w", err)
	}
	return &GormRecorder{db: db}, nil
}

// SaveGameResult 保存对局记录
func (p *GormRecorder) SaveGameResult(ctx context.Context, res *models.GameResult) error {
	record, err := models.NewGormGameResult(res)
	if err != nil {
		return err
	}
	return p.db.WithContext(ctx).Create(record).Error
}

// RoomHistory 按结束时间倒序返回房间的对局
func (p *GormRecorder) RoomHistory(ctx context.Context, roomCode string, limit int) ([]models.GameResult, error) {
	var records []models.GormGameResult
	err := p.db.WithContext(ctx).
		Where("room_code = ?", roomCode).
		Order("finished_at DESC").
		Limit(historyLimit(limit)).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	out := make([]models.GameResult, 0, len(records))
	for i := range records {
		res, err := records[i].Result()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// GameStats 统计某个游戏的对局数、平局数和各颜色胜场
func (p *GormRecorder) GameStats(ctx context.Context, gameID string) (*models.GameStats, error) {
	stats := &models.GameStats{GameID: gameID, WinsByTheme: map[string]int64{}}
	db := p.db.WithContext(ctx)

	var totals struct {
		Played int64
		Draws  int64
	}
	err := db.Model(&models.GormGameResult{}).
		Select("COUNT(*) AS played, COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS draws", string(models.OutcomeDraw)).
		Where("game_id = ?", gameID).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	stats.Played = totals.Played
	stats.Draws = totals.Draws

	var rows []struct {
		WinnerTheme string
		Wins        int64
	}
	err = db.Model(&models.GormGameResult{}).
		Select("winner_theme, COUNT(*) AS wins").
		Where("game_id = ? AND outcome = ?", gameID, string(models.OutcomeWin)).
		Group("winner_theme").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.WinsByTheme[row.WinnerTheme] = row.Wins
	}
	return stats, nil
}

// Close 关闭数据库连接
func (p *GormRecorder) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
