// session/session.go
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/wfunc/partyroom/models"
	"github.com/wfunc/partyroom/network"
)

type Session struct {
	ID         string
	Conn       network.Connection
	ClientID   string                 // 设备令牌
	Data       map[string]interface{} // 自定义数据
	CreatedAt  time.Time
	LastActive time.Time

	roomCode string
	playerID string
	role     models.Role
	mutex    sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
		Data:       make(map[string]interface{}),
	}
}

func (s *Session) Set(key string, value interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Data[key] = value
}

func (s *Session) Get(key string) interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Data[key]
}

func (s *Session) Send(data []byte) error {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
	return s.Conn.Send(data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Attach 把会话绑定到房间里的一个座位
func (s *Session) Attach(roomCode, playerID string, role models.Role) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomCode = roomCode
	s.playerID = playerID
	s.role = role
}

// Detach 解除房间绑定，连接保持
func (s *Session) Detach() {
	s.Attach("", "", "")
}

// Binding 返回当前绑定，未加入房间时 roomCode 为空
func (s *Session) Binding() (roomCode, playerID string, role models.Role) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomCode, s.playerID, s.role
}

func (s *Session) RoomCode() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomCode
}

// You 是这个连接在房间快照里的身份
func (s *Session) You() models.YouView {
	roomCode, playerID, role := s.Binding()
	you := models.YouView{
		ClientID: s.ClientID,
		PlayerID: models.OptString(playerID),
		RoomCode: models.OptString(roomCode),
	}
	if role != "" {
		you.Role = &role
	}
	return you
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// InRoom 返回绑定到某个房间的会话，按创建时间排序
func (m *Manager) InRoom(roomCode string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if roomCode != "" && session.RoomCode() == roomCode {
			result = append(result, session)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// BoundTo 返回占用某个座位的会话
func (m *Manager) BoundTo(roomCode, playerID string) []*Session {
	var result []*Session
	for _, s := range m.InRoom(roomCode) {
		if _, pid, _ := s.Binding(); pid == playerID {
			result = append(result, s)
		}
	}
	return result
}
