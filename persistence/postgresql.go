// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/wfunc/partyroom/models"
)

// SQLRecorder 基于 database/sql + lib/pq 的实现
type SQLRecorder struct {
	db *sql.DB
}

// NewSQLRecorder 创建 PostgreSQL 数据库连接
func NewSQLRecorder(dsn string) (*SQLRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tables: %w", err)
	}

	return &SQLRecorder{db: db}, nil
}

// initTables 与 GORM 迁移出的 game_results 表结构一致
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_results (
            id BIGSERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ,
            room_code VARCHAR(8) NOT NULL,
            game_id VARCHAR(64) NOT NULL,
            outcome VARCHAR(16) NOT NULL,
            winner_id VARCHAR(64),
            winner_theme VARCHAR(32),
            starter_id VARCHAR(64),
            players JSONB NOT NULL,
            final_state JSONB,
            finished_at TIMESTAMPTZ NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_game_results_room_code ON game_results(room_code);
        CREATE INDEX IF NOT EXISTS idx_game_results_game_id ON game_results(game_id);
        CREATE INDEX IF NOT EXISTS idx_game_results_finished_at ON game_results(finished_at);
    `)
	return err
}

// SaveGameResult 保存对局记录
func (p *SQLRecorder) SaveGameResult(ctx context.Context, res *models.GameResult) error {
	record, err := models.NewGormGameResult(res)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO game_results
            (room_code, game_id, outcome, winner_id, winner_theme, starter_id, players, final_state, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err = p.db.ExecContext(ctx, query,
		record.RoomCode,
		record.GameID,
		record.Outcome,
		record.WinnerID,
		record.WinnerTheme,
		record.StarterID,
		[]byte(record.Players),
		[]byte(record.FinalState),
		record.FinishedAt,
	)
	return err
}

// RoomHistory 按结束时间倒序返回房间的对局
func (p *SQLRecorder) RoomHistory(ctx context.Context, roomCode string, limit int) ([]models.GameResult, error) {
	query := `
        SELECT room_code, game_id, outcome, COALESCE(winner_id, ''), COALESCE(starter_id, ''),
               players, final_state, finished_at
        FROM game_results
        WHERE room_code = $1 AND deleted_at IS NULL
        ORDER BY finished_at DESC
        LIMIT $2
    `
	rows, err := p.db.QueryContext(ctx, query, roomCode, historyLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GameResult
	for rows.Next() {
		var (
			res     models.GameResult
			outcome string
			players []byte
			state   []byte
		)
		if err := rows.Scan(&res.RoomCode, &res.GameID, &outcome, &res.WinnerID, &res.StarterID,
			&players, &state, &res.FinishedAt); err != nil {
			return nil, err
		}
		res.Outcome = models.Outcome(outcome)
		if err := json.Unmarshal(players, &res.Players); err != nil {
			return nil, fmt.Errorf("decode players: %w", err)
		}
		if len(state) > 0 {
			res.FinalState = json.RawMessage(state)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrRecordNotFound
	}
	return out, nil
}

// GameStats 统计某个游戏的对局数、平局数和各颜色胜场
func (p *SQLRecorder) GameStats(ctx context.Context, gameID string) (*models.GameStats, error) {
	all, err := p.GamesStats(ctx, []string{gameID})
	if err != nil {
		return nil, err
	}
	return all[0], nil
}

// GamesStats 一次查询多个游戏的统计，按 gameIDs 的顺序返回
func (p *SQLRecorder) GamesStats(ctx context.Context, gameIDs []string) ([]*models.GameStats, error) {
	byID := make(map[string]*models.GameStats, len(gameIDs))
	out := make([]*models.GameStats, 0, len(gameIDs))
	for _, id := range gameIDs {
		stats := &models.GameStats{GameID: id, WinsByTheme: map[string]int64{}}
		byID[id] = stats
		out = append(out, stats)
	}

	query := `
        SELECT game_id, outcome, COALESCE(winner_theme, ''), COUNT(*)
        FROM game_results
        WHERE game_id = ANY($1) AND deleted_at IS NULL
        GROUP BY game_id, outcome, winner_theme
    `
	rows, err := p.db.QueryContext(ctx, query, pq.Array(gameIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			gameID, outcome, theme string
			count                  int64
		)
		if err := rows.Scan(&gameID, &outcome, &theme, &count); err != nil {
			return nil, err
		}
		stats, ok := byID[gameID]
		if !ok {
			continue
		}
		stats.Played += count
		switch models.Outcome(outcome) {
		case models.OutcomeDraw:
			stats.Draws += count
		case models.OutcomeWin:
			stats.WinsByTheme[theme] += count
		}
	}
	return out, rows.Err()
}

// Close 关闭数据库连接
func (p *SQLRecorder) Close() error {
	return p.db.Close()
}
