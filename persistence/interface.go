// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/partyroom/models"
)

// Recorder 保存已结束的对局并提供统计
type Recorder interface {
	SaveGameResult(ctx context.Context, res *models.GameResult) error
	RoomHistory(ctx context.Context, roomCode string, limit int) ([]models.GameResult, error)
	GameStats(ctx context.Context, gameID string) (*models.GameStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)

const defaultHistoryLimit = 20

func historyLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return defaultHistoryLimit
	}
	return limit
}
