// services/result_service.go
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wfunc/partyroom/events"
	"github.com/wfunc/partyroom/logger"
	"github.com/wfunc/partyroom/models"
	"github.com/wfunc/partyroom/persistence"
)

var ErrServiceClosed = errors.New("result service closed")

const (
	defaultQueueSize = 256
	defaultTimeout   = 5 * time.Second
)

// ResultService 在后台保存并发布已结束的对局，不占用房间锁
type ResultService struct {
	recorder  persistence.Recorder
	publisher events.Publisher
	queue     chan *models.GameResult
	timeout   time.Duration
	wg        sync.WaitGroup
	mutex     sync.RWMutex
	closed    bool

	// OnRecorded 每条结果处理完成后调用，供指标使用
	OnRecorded func(res *models.GameResult, saveErr, publishErr error)
}

func NewResultService(recorder persistence.Recorder, publisher events.Publisher) *ResultService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	s := &ResultService{
		recorder:  recorder,
		publisher: publisher,
		queue:     make(chan *models.GameResult, defaultQueueSize),
		timeout:   defaultTimeout,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Record 入队一条结果，队列满或已关闭时返回 false
func (s *ResultService) Record(res *models.GameResult) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.queue <- res:
		return true
	default:
		logger.Log.Warnw("result queue full, dropping game result", "room", res.RoomCode, "game", res.GameID)
		return false
	}
}

func (s *ResultService) run() {
	defer s.wg.Done()
	for res := range s.queue {
		s.handle(res)
	}
}

func (s *ResultService) handle(res *models.GameResult) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	saveErr := s.recorder.SaveGameResult(ctx, res)
	if saveErr != nil {
		logger.Log.Errorf("save game result for room %s: %v", res.RoomCode, saveErr)
	}
	publishErr := s.publisher.PublishGameResult(ctx, res)
	if publishErr != nil {
		logger.Log.Errorf("publish game result for room %s: %v", res.RoomCode, publishErr)
	}
	if s.OnRecorded != nil {
		s.OnRecorded(res, saveErr, publishErr)
	}
}

// GameStats 获取某个游戏的统计
func (s *ResultService) GameStats(ctx context.Context, gameID string) (*models.GameStats, error) {
	if s.isClosed() {
		return nil, ErrServiceClosed
	}
	return s.recorder.GameStats(ctx, gameID)
}

// RoomHistory 获取房间的对局记录
func (s *ResultService) RoomHistory(ctx context.Context, roomCode string, limit int) ([]models.GameResult, error) {
	if s.isClosed() {
		return nil, ErrServiceClosed
	}
	return s.recorder.RoomHistory(ctx, roomCode, limit)
}

func (s *ResultService) isClosed() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.closed
}

// Close 处理完队列中剩余的结果后关闭存储和发布
func (s *ResultService) Close() error {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mutex.Unlock()

	s.wg.Wait()
	return errors.Join(s.publisher.Close(), s.recorder.Close())
}
