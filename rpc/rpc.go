package rpc

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/partyroom/logger"
	"github.com/wfunc/partyroom/models"
	"github.com/wfunc/partyroom/room"
)

// Final states cross the wire as raw JSON.
func init() {
	gob.Register(json.RawMessage{})
}

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer creates a new RPC server. Services are registered on this
// server only, not on the net/rpc default server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rpc.NewServer(),
	}, nil
}

// Register exposes rcvr's exported methods under name.
func (s *Server) Register(name string, rcvr interface{}) error {
	return s.rpc.RegisterName(name, rcvr)
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// Directory is the read-only view of live rooms the admin service needs.
type Directory interface {
	RoomSummaries() []models.RoomSummary
	PreviewRoom(code string) (models.PreviewView, error)
}

// ResultSource reads finished games back from the result store.
type ResultSource interface {
	GameStats(ctx context.Context, gameID string) (*models.GameStats, error)
	RoomHistory(ctx context.Context, roomCode string, limit int) ([]models.GameResult, error)
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// LobbyService is the struct that exposes RPC methods.
type LobbyService struct {
	rooms   Directory
	results ResultSource
	timeout time.Duration
}

// NewLobbyService creates a new LobbyService.
func NewLobbyService(rooms Directory, results ResultSource) *LobbyService {
	return &LobbyService{rooms: rooms, results: results, timeout: 5 * time.Second}
}

// Methods follow the net/rpc signature: exported method, exported
// arguments, second argument is a pointer, return type is error.

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	Rooms []models.RoomSummary
}

func (ls *LobbyService) ListRooms(_ *ListRoomsArgs, reply *ListRoomsReply) error {
	reply.Rooms = ls.rooms.RoomSummaries()
	return nil
}

type PreviewRoomArgs struct {
	Code string
}

type PreviewRoomReply struct {
	Room models.PreviewView
}

func (ls *LobbyService) PreviewRoom(args *PreviewRoomArgs, reply *PreviewRoomReply) error {
	view, err := ls.rooms.PreviewRoom(args.Code)
	if err != nil {
		return err
	}
	reply.Room = view
	return nil
}

type GameStatsArgs struct {
	GameID string
}

type GameStatsReply struct {
	Stats models.GameStats
}

func (ls *LobbyService) GameStats(args *GameStatsArgs, reply *GameStatsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), ls.timeout)
	defer cancel()
	stats, err := ls.results.GameStats(ctx, args.GameID)
	if err != nil {
		return err
	}
	reply.Stats = *stats
	return nil
}

type RoomHistoryArgs struct {
	Code  string
	Limit int
}

type RoomHistoryReply struct {
	Results []models.GameResult
}

// RoomHistory returns the newest finished games of a room. Limit defaults
// to 20 and is capped at 100.
func (ls *LobbyService) RoomHistory(args *RoomHistoryArgs, reply *RoomHistoryReply) error {
	limit := args.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	ctx, cancel := context.WithTimeout(context.Background(), ls.timeout)
	defer cancel()
	results, err := ls.results.RoomHistory(ctx, room.NormalizeCode(args.Code), limit)
	if err != nil {
		return err
	}
	for i := range results {
		raw, err := json.Marshal(results[i].FinalState)
		if err != nil {
			return err
		}
		results[i].FinalState = json.RawMessage(raw)
	}
	reply.Results = results
	return nil
}
