// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/partyroom/models"
	"github.com/wfunc/partyroom/network"
	"github.com/wfunc/partyroom/session"
)

// 广播接口
type Broadcaster interface {
	BroadcastRoom(view models.RoomView) int
	Send(s *session.Session, msg network.ServerMessage) bool
	SendError(s *session.Session, message string) bool
}

// 基于房间的广播器
type RoomBroadcaster struct {
	sessionManager *session.Manager

	// OnDrop 在一帧因连接关闭或队列已满被丢弃时调用
	OnDrop func(s *session.Session, err error)
}

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		sessionManager: sessionManager,
	}
}

// BroadcastRoom 向房间内每个会话发送带各自 you 的快照，返回成功入队的数量。
// 绑定的玩家不在快照里的会话（房间码被回收后的旧会话）会被跳过
func (b *RoomBroadcaster) BroadcastRoom(view models.RoomView) int {
	delivered := 0
	for _, s := range b.sessionManager.InRoom(view.Code) {
		if _, playerID, _ := s.Binding(); !view.Includes(playerID) {
			continue
		}
		msg := network.ServerMessage{
			Type: network.MsgRoomState,
			Room: view,
			You:  s.You(),
		}
		if b.Send(s, msg) {
			delivered++
		}
	}
	return delivered
}

// Send 发送给单个会话，发送失败只记录不返回错误
func (b *RoomBroadcaster) Send(s *session.Session, msg network.ServerMessage) bool {
	if err := s.Send(network.Encode(msg)); err != nil {
		// 处理发送错误，慢连接不影响其他人
		if b.OnDrop != nil {
			b.OnDrop(s, err)
		}
		return false
	}
	return true
}

func (b *RoomBroadcaster) SendError(s *session.Session, message string) bool {
	return b.Send(s, network.ServerMessage{Type: network.MsgError, Message: message})
}
