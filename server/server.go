package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/partyroom/broadcast"
	"github.com/wfunc/partyroom/logger"
	"github.com/wfunc/partyroom/models"
	"github.com/wfunc/partyroom/monitor"
	"github.com/wfunc/partyroom/network"
	"github.com/wfunc/partyroom/room"
	"github.com/wfunc/partyroom/session"
	"github.com/wfunc/partyroom/timer"
)

const (
	DefaultShuffleDelay  = 2200 * time.Millisecond
	DefaultSweepInterval = time.Minute
	DefaultHeartbeat     = 30 * time.Second
)

// ResultSink 接收结束的对局，由后台持久化
type ResultSink interface {
	Record(res *models.GameResult) bool
}

// Options 是 GameServer 的依赖和参数，零值字段使用默认值
type Options struct {
	Addr          string
	Rooms         *room.Manager
	Timers        *timer.TimerManager
	Results       ResultSink
	Monitor       *monitor.Monitor
	ShuffleDelay  time.Duration
	SweepInterval time.Duration
	Heartbeat     time.Duration
	SendBuffer    int
}

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	broadcaster    *broadcast.RoomBroadcaster
	timers         *timer.TimerManager
	results        ResultSink
	monitor        *monitor.Monitor
	httpServer     *http.Server

	shuffleDelay time.Duration
	heartbeat    time.Duration
	sendBuffer   int
	sweepTask    int64

	// 所有房间操作、洗牌回调和清理都在这把锁下串行执行
	mutex        sync.Mutex
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

func NewGameServer(opts Options) *GameServer {
	if opts.Rooms == nil {
		opts.Rooms = room.NewRoomManager()
	}
	if opts.Timers == nil {
		opts.Timers = timer.NewTimerManager(nil)
	}
	if opts.Monitor == nil {
		opts.Monitor = monitor.NewMonitor("partyroom")
	}
	if opts.ShuffleDelay <= 0 {
		opts.ShuffleDelay = DefaultShuffleDelay
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = network.DefaultSendBuffer
	}

	s := &GameServer{
		addr:           opts.Addr,
		roomManager:    opts.Rooms,
		sessionManager: session.NewManager(),
		timers:         opts.Timers,
		results:        opts.Results,
		monitor:        opts.Monitor,
		shuffleDelay:   opts.ShuffleDelay,
		heartbeat:      opts.Heartbeat,
		sendBuffer:     opts.SendBuffer,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器，丢帧只计数
	s.broadcaster = broadcast.NewRoomBroadcaster(s.sessionManager)
	s.broadcaster.OnDrop = func(sess *session.Session, err error) {
		s.monitor.IncFramesDropped()
		logger.Log.Debugf("Dropped frame for session %s: %v", sess.GetID(), err)
	}

	// 定期清理过期房间
	s.sweepTask = s.timers.AddTimer(opts.SweepInterval, opts.SweepInterval, s.sweep)

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start 阻塞直到 HTTP 服务关闭
func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *GameServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
		s.timers.RemoveTimer(s.sweepTask)
	})
	return s.httpServer.Shutdown(ctx)
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	wsConn := network.NewWSConnection(conn, s.sendBuffer)
	wsConn.SetHeartbeat(s.heartbeat)
	s.handleConnection(wsConn)
}

func (s *GameServer) handleConnection(conn network.Connection) {
	sess := s.connect(conn)
	defer func() {
		s.disconnect(sess)
		conn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.handleMessage(sess, data)
		}
	}
}

// connect 注册一个新连接，连接在加入房间之前不绑定任何座位
func (s *GameServer) connect(conn network.Connection) *session.Session {
	sess := session.NewSession(uuid.New().String(), conn)
	sess.Set("remote_addr", conn.RemoteAddr().String())
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %v, session ID: %s", sess.Get("remote_addr"), sess.GetID())
	return sess
}

// disconnect 处理连接关闭：座位保留，只有在没有其他连接占用时才标记离线
func (s *GameServer) disconnect(sess *session.Session) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	logger.Log.Infof("Connection closed from %v, session ID: %s", sess.Get("remote_addr"), sess.GetID())
	s.sessionManager.Remove(sess.GetID())
	s.monitor.DecOnlinePlayers()

	code, playerID, _ := sess.Binding()
	sess.Detach()
	s.release(code, playerID)
}

// release 在某个座位失去最后一个连接时把玩家标记为离线
func (s *GameServer) release(code, playerID string) {
	if code == "" || len(s.sessionManager.BoundTo(code, playerID)) > 0 {
		return
	}
	r, ok := s.roomManager.GetRoom(code)
	if !ok || r.Player(playerID) == nil {
		return
	}
	r.Disconnect(playerID)
	s.broadcastRoom(r)
}

func (s *GameServer) broadcastRoom(r *room.Room) {
	s.broadcaster.BroadcastRoom(r.View())
}

// scheduleShuffle 在洗牌结束后揭晓先手并开始游戏
func (s *GameServer) scheduleShuffle(r *room.Room, at time.Time) {
	s.cancelShuffle(r)
	code := r.Code
	r.ShuffleTask = s.timers.AddTimer(s.shuffleDelay, 0, func() {
		s.advanceShuffle(code, at)
	})
}

func (s *GameServer) cancelShuffle(r *room.Room) {
	if r.ShuffleTask != 0 {
		s.timers.RemoveTimer(r.ShuffleTask)
		r.ShuffleTask = 0
	}
}

func (s *GameServer) advanceShuffle(code string, at time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	r, ok := s.roomManager.GetRoom(code)
	if !ok {
		return
	}
	started, err := r.AdvanceShuffle(at)
	if err != nil {
		// 引擎初始化失败，回合已回到选择阶段
		logger.Log.Errorf("Room %s failed to start game after shuffle: %v", code, err)
		r.ShuffleTask = 0
		s.broadcastRoom(r)
		return
	}
	if !started {
		return
	}
	r.ShuffleTask = 0
	logger.Log.Infow("game started", "room", code, "game", r.Game.ID, "first_player", r.Round.FirstPlayerID)
	s.broadcastRoom(r)
}

// sweep 清除过期房间，仍绑定的会话在下一次请求时收到 "Room not found."
func (s *GameServer) sweep() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	evicted := s.roomManager.Sweep(s.timers.Clock().Now())
	for _, r := range evicted {
		s.cancelShuffle(r)
		logger.Log.Infow("room evicted", "room", r.Code, "updated_at", r.UpdatedAt)
	}
	if len(evicted) > 0 {
		s.monitor.AddRoomsEvicted(len(evicted))
	}
	s.monitor.SetActiveRooms(s.roomManager.Count())
}

// RoomSummaries 实现 rpc.Directory
func (s *GameServer) RoomSummaries() []models.RoomSummary {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	rooms := s.roomManager.Rooms()
	summaries := make([]models.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, r.Summary())
	}
	return summaries
}

// PreviewRoom 是不带令牌的只读预览
func (s *GameServer) PreviewRoom(code string) (models.PreviewView, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	r, ok := s.roomManager.GetRoom(code)
	if !ok {
		return models.PreviewView{}, room.ErrRoomNotFound
	}
	return r.Preview("", ""), nil
}

func (s *GameServer) SessionCount() int {
	return s.sessionManager.Count()
}
