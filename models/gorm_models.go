// models/gorm_models.go
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormGameResult 对局记录模型，lib/pq 实现使用同一张表
type GormGameResult struct {
	gorm.Model
	RoomCode    string         `gorm:"size:8;index;not null"`
	GameID      string         `gorm:"size:64;index;not null"`
	Outcome     string         `gorm:"size:16;not null"`
	WinnerID    string         `gorm:"size:64"`
	WinnerTheme string         `gorm:"size:32"`
	StarterID   string         `gorm:"size:64"`
	Players     datatypes.JSON `gorm:"type:jsonb;not null"`
	FinalState  datatypes.JSON `gorm:"type:jsonb"`
	FinishedAt  time.Time      `gorm:"index;not null"`
}

func (GormGameResult) TableName() string {
	return "game_results"
}

// NewGormGameResult 把结果转换为表记录
func NewGormGameResult(res *GameResult) (*GormGameResult, error) {
	players, err := json.Marshal(res.Players)
	if err != nil {
		return nil, fmt.Errorf("encode players: %w", err)
	}
	state, err := json.Marshal(res.FinalState)
	if err != nil {
		return nil, fmt.Errorf("encode final state: %w", err)
	}
	record := &GormGameResult{
		RoomCode:   res.RoomCode,
		GameID:     res.GameID,
		Outcome:    string(res.Outcome),
		WinnerID:   res.WinnerID,
		StarterID:  res.StarterID,
		Players:    datatypes.JSON(players),
		FinalState: datatypes.JSON(state),
		FinishedAt: res.FinishedAt,
	}
	for _, p := range res.Players {
		if p.PlayerID == res.WinnerID {
			record.WinnerTheme = p.Theme
		}
	}
	return record, nil
}

// Result 还原为对局结果，FinalState 保持原始 JSON
func (r *GormGameResult) Result() (GameResult, error) {
	res := GameResult{
		RoomCode:   r.RoomCode,
		GameID:     r.GameID,
		Outcome:    Outcome(r.Outcome),
		WinnerID:   r.WinnerID,
		StarterID:  r.StarterID,
		FinishedAt: r.FinishedAt,
	}
	if len(r.Players) > 0 {
		if err := json.Unmarshal(r.Players, &res.Players); err != nil {
			return GameResult{}, fmt.Errorf("decode players: %w", err)
		}
	}
	if len(r.FinalState) > 0 {
		res.FinalState = json.RawMessage(r.FinalState)
	}
	return res, nil
}
