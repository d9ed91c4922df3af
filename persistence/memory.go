package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/wfunc/partyroom/models"
)

// MemoryRecorder 未配置数据库时使用，进程重启后数据丢失
type MemoryRecorder struct {
	results []models.GameResult
	mutex   sync.RWMutex
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (m *MemoryRecorder) SaveGameResult(_ context.Context, res *models.GameResult) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.results = append(m.results, *res)
	return nil
}

func (m *MemoryRecorder) RoomHistory(_ context.Context, roomCode string, limit int) ([]models.GameResult, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var out []models.GameResult
	for _, res := range m.results {
		if res.RoomCode == roomCode {
			out = append(out, res)
		}
	}
	if len(out) == 0 {
		return nil, ErrRecordNotFound
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FinishedAt.After(out[j].FinishedAt) })
	if n := historyLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *MemoryRecorder) GameStats(_ context.Context, gameID string) (*models.GameStats, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats := &models.GameStats{GameID: gameID, WinsByTheme: map[string]int64{}}
	for _, res := range m.results {
		if res.GameID != gameID {
			continue
		}
		stats.Played++
		switch res.Outcome {
		case models.OutcomeDraw:
			stats.Draws++
		case models.OutcomeWin:
			for _, p := range res.Players {
				if p.PlayerID == res.WinnerID {
					stats.WinsByTheme[p.Theme]++
				}
			}
		}
	}
	return stats, nil
}

func (m *MemoryRecorder) Close() error {
	return nil
}
