package server

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/partyroom/logger"
	"github.com/wfunc/partyroom/models"
	"github.com/wfunc/partyroom/network"
	"github.com/wfunc/partyroom/room"
	"github.com/wfunc/partyroom/session"
)

var (
	errInvalidJSON    = errors.New("Invalid JSON.")
	errUnknownMessage = errors.New("Unknown message type.")
	errJoinFirst      = errors.New("Join a room first.")
)

// handleMessage 处理一帧完整的客户端消息，包括广播
func (s *GameServer) handleMessage(sess *session.Session, data []byte) {
	start := time.Now()
	msg, err := network.ParseClientMessage(data)
	if err != nil {
		s.replyError(sess, "invalid", errInvalidJSON)
		return
	}
	if !msg.Known {
		logger.Log.Debugf("Session %s sent unknown message type %q", sess.GetID(), msg.RawType)
		s.replyError(sess, "unknown", errUnknownMessage)
		return
	}
	s.monitor.IncMessagesReceived(msg.Type)
	defer func() {
		s.monitor.ObserveMessageLatency(msg.Type, time.Since(start))
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.dispatch(sess, msg); err != nil {
		s.replyError(sess, msg.Type, err)
	}
}

func (s *GameServer) replyError(sess *session.Session, msgType string, err error) {
	s.monitor.IncErrorsSent(msgType)
	s.broadcaster.SendError(sess, err.Error())
}

func (s *GameServer) dispatch(sess *session.Session, msg *network.ClientMessage) error {
	if network.PreSession(msg.Type) {
		switch msg.Type {
		case network.MsgCreateRoom:
			return s.handleCreateRoom(sess, msg)
		case network.MsgJoinRoom:
			return s.handleJoinRoom(sess, msg)
		case network.MsgValidateRoom:
			return s.handleValidateRoom(sess, msg)
		}
		s.broadcaster.Send(sess, network.ServerMessage{Type: network.MsgPong})
		return nil
	}

	code, playerID, _ := sess.Binding()
	if code == "" {
		return errJoinFirst
	}
	// 房间被清理后房间码可能已分配给新房间，旧绑定不能作用于它
	r, ok := s.roomManager.GetRoom(code)
	if !ok || r.Player(playerID) == nil {
		return room.ErrRoomNotFound
	}

	switch msg.Type {
	case network.MsgSelectGame:
		return s.handleSelectGame(r, playerID, msg)
	case network.MsgNewRound:
		if err := r.NewRound(playerID); err != nil {
			return err
		}
	case network.MsgMove:
		return s.handleMove(r, playerID, msg)
	case network.MsgEndGameRequest:
		if err := r.RequestEnd(playerID); err != nil {
			return err
		}
	case network.MsgEndGameAgree:
		if err := r.AgreeEnd(playerID); err != nil {
			return err
		}
		logger.Log.Infow("game ended by agreement", "room", r.Code)
	case network.MsgLeaveRoom:
		sess.Detach()
		// 同一座位还有其他标签页在线时座位保持在线
		if len(s.sessionManager.BoundTo(code, playerID)) > 0 {
			logger.Log.Infow("tab left, seat still held", "room", r.Code, "player", playerID)
			return nil
		}
		r.Leave(playerID)
		s.broadcastRoom(r)
		logger.Log.Infow("player left", "room", r.Code, "player", playerID)
		return nil
	}
	s.broadcastRoom(r)
	return nil
}

// clientID 是设备令牌，客户端没有提供时生成一个
func clientID(msg *network.ClientMessage) string {
	if msg.DeviceToken != "" {
		return msg.DeviceToken
	}
	return "client_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// bind 把会话切换到新座位，之前占用的座位按断线处理
func (s *GameServer) bind(sess *session.Session, r *room.Room, p *room.Player, clientID string) {
	prevCode, prevPlayer, _ := sess.Binding()
	sess.ClientID = clientID
	sess.Attach(r.Code, p.ID, p.Role)
	if prevCode != "" && (prevCode != r.Code || prevPlayer != p.ID) {
		s.release(prevCode, prevPlayer)
	}
	s.broadcaster.Send(sess, network.ServerMessage{
		Type:        network.MsgSession,
		ClientID:    clientID,
		DeviceToken: clientID,
		SeatToken:   p.SeatToken,
	})
}

func (s *GameServer) handleCreateRoom(sess *session.Session, msg *network.ClientMessage) error {
	cid := clientID(msg)
	r, host, err := s.roomManager.Create(msg.Identity, cid)
	if err != nil {
		return err
	}
	s.monitor.SetActiveRooms(s.roomManager.Count())
	logger.Log.Infow("room created", "room", r.Code, "session", sess.GetID(), "theme", host.Theme)

	s.bind(sess, r, host, cid)
	s.broadcastRoom(r)
	return nil
}

func (s *GameServer) handleJoinRoom(sess *session.Session, msg *network.ClientMessage) error {
	r, ok := s.roomManager.GetRoom(msg.Code)
	if !ok {
		return room.ErrRoomNotFound
	}
	cid := clientID(msg)
	res, err := r.Join(room.JoinRequest{
		IdentityID:  msg.Identity,
		DeviceToken: cid,
		SeatToken:   msg.SeatToken,
	})
	if err != nil {
		return err
	}
	logger.Log.Infow("player joined", "room", r.Code, "player", res.Player.ID, "role", res.Player.Role, "reclaimed", res.Reclaimed)

	s.bind(sess, r, res.Player, cid)
	s.broadcastRoom(r)
	return nil
}

func (s *GameServer) handleValidateRoom(sess *session.Session, msg *network.ClientMessage) error {
	r, ok := s.roomManager.GetRoom(msg.Code)
	if !ok {
		return room.ErrRoomNotFound
	}
	s.broadcaster.Send(sess, network.ServerMessage{
		Type: network.MsgRoomPreview,
		Room: r.Preview(msg.DeviceToken, msg.SeatToken),
	})
	return nil
}

func (s *GameServer) handleSelectGame(r *room.Room, playerID string, msg *network.ClientMessage) error {
	res, err := r.SelectGame(playerID, msg.GameID)
	if err != nil {
		return err
	}
	if res.Shuffling {
		s.scheduleShuffle(r, res.ShuffleAt)
	}
	s.broadcastRoom(r)
	return nil
}

func (s *GameServer) handleMove(r *room.Room, playerID string, msg *network.ClientMessage) error {
	res, err := r.Move(playerID, msg.Move)
	if err != nil {
		return err
	}
	if res != nil {
		s.recordResult(res)
	}
	s.broadcastRoom(r)
	return nil
}

// recordResult 交给后台服务持久化，失败不影响房间
func (s *GameServer) recordResult(res *models.GameResult) {
	s.monitor.IncGamesCompleted(res.GameID, string(res.Outcome))
	logger.Log.Infow("game finished", "room", res.RoomCode, "game", res.GameID, "outcome", res.Outcome, "winner", res.WinnerID)
	if s.results == nil {
		return
	}
	if !s.results.Record(res) {
		logger.Log.Warnf("Result queue full, dropped result for room %s", res.RoomCode)
	}
}
