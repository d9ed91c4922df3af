package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/partyroom/models"
	"github.com/wfunc/partyroom/persistence"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []*models.GameResult
	err       error
	closed    bool
}

func (p *fakePublisher) PublishGameResult(_ context.Context, res *models.GameResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, res)
	return p.err
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func gameResult(room string) *models.GameResult {
	return &models.GameResult{
		RoomCode:   room,
		GameID:     "tic_tac_toe",
		Outcome:    models.OutcomeWin,
		WinnerID:   "p1",
		Players:    []models.ResultPlayer{{PlayerID: "p1", Theme: "blue", Outcome: "win"}},
		FinishedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestResultService_RecordsAndPublishes(t *testing.T) {
	rec := persistence.NewMemoryRecorder()
	pub := &fakePublisher{}
	svc := NewResultService(rec, pub)

	var handled int
	var mu sync.Mutex
	svc.OnRecorded = func(res *models.GameResult, saveErr, publishErr error) {
		mu.Lock()
		defer mu.Unlock()
		handled++
		assert.NoError(t, saveErr)
		assert.NoError(t, publishErr)
	}

	assert.True(t, svc.Record(gameResult("ABCD")))
	assert.True(t, svc.Record(gameResult("ABCD")))

	stats, err := svc.GameStats(context.Background(), "tic_tac_toe")
	require.NoError(t, err)
	assert.LessOrEqual(t, stats.Played, int64(2))

	require.NoError(t, svc.Close())
	assert.Equal(t, 2, handled)
	assert.Len(t, pub.published, 2)
	assert.True(t, pub.closed)

	history, err := rec.RoomHistory(context.Background(), "ABCD", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestResultService_PublishErrorDoesNotStopSave(t *testing.T) {
	rec := persistence.NewMemoryRecorder()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewResultService(rec, pub)

	var publishErr error
	svc.OnRecorded = func(_ *models.GameResult, _, err error) { publishErr = err }
	require.True(t, svc.Record(gameResult("WXYZ")))
	require.NoError(t, svc.Close())

	assert.Error(t, publishErr)
	history, err := rec.RoomHistory(context.Background(), "WXYZ", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestResultService_ClosedRejects(t *testing.T) {
	svc := NewResultService(persistence.NewMemoryRecorder(), nil)
	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close(), "closing twice is fine")

	assert.False(t, svc.Record(gameResult("ABCD")))
	_, err := svc.GameStats(context.Background(), "tic_tac_toe")
	assert.ErrorIs(t, err, ErrServiceClosed)
	_, err = svc.RoomHistory(context.Background(), "ABCD", 5)
	assert.ErrorIs(t, err, ErrServiceClosed)
}
