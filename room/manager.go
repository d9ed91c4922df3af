package room

import (
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/partyroom/games"
	"github.com/wfunc/partyroom/models"
	"github.com/wfunc/partyroom/timer"
)

const (
	// 房间码字母表，去掉了容易混淆的 I 和 O
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	codeLength   = 4

	DefaultTTL          = 90 * time.Minute
	DefaultCodeAttempts = 64
)

// env 是房间共享的外部依赖
type env struct {
	clock   timer.Clock
	intn    func(n int) int
	catalog *games.Catalog
}

// Manager 管理所有房间
type Manager struct {
	rooms        map[string]*Room
	mutex        sync.RWMutex
	env          *env
	ttl          time.Duration
	codeAttempts int
}

// Option 配置 Manager
type Option func(*Manager)

func WithClock(c timer.Clock) Option {
	return func(m *Manager) { m.env.clock = c }
}

// WithRand 替换随机源，intn 需返回 [0, n) 内的值
func WithRand(intn func(n int) int) Option {
	return func(m *Manager) { m.env.intn = intn }
}

func WithCatalog(c *games.Catalog) Option {
	return func(m *Manager) { m.env.catalog = c }
}

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithCodeAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.codeAttempts = n
		}
	}
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(opts ...Option) *Manager {
	m := &Manager{
		rooms: make(map[string]*Room),
		env: &env{
			clock:   timer.RealClock(),
			intn:    rand.IntN,
			catalog: games.Default(),
		},
		ttl:          DefaultTTL,
		codeAttempts: DefaultCodeAttempts,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Catalog 返回房间使用的游戏目录
func (m *Manager) Catalog() *games.Catalog {
	return m.env.catalog
}

// CatalogView 是 /api/games 返回的目录
func (m *Manager) CatalogView() []models.GameInfoView {
	return catalogView(m.env.catalog)
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// NormalizeCode 去掉空白并转为大写
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Create 创建房间，调用者坐在主机位
func (m *Manager) Create(identityID, deviceToken string) (*Room, *Player, error) {
	identity, ok := models.LookupIdentity(identityID)
	if !ok {
		return nil, nil, ErrPickIdentity
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	code, err := m.newCode()
	if err != nil {
		return nil, nil, err
	}
	host := newPlayer(identity, models.RoleHost, deviceToken)
	r := newRoom(code, host, m.env)
	m.rooms[code] = r
	return r, host, nil
}

// newCode 生成未被占用的房间码，调用者需持有写锁
func (m *Manager) newCode() (string, error) {
	buf := make([]byte, codeLength)
	for attempt := 0; attempt < m.codeAttempts; attempt++ {
		for i := range buf {
			buf[i] = codeAlphabet[m.env.intn(len(codeAlphabet))]
		}
		code := string(buf)
		if _, exists := m.rooms[code]; !exists {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// GetRoom 根据房间码获取房间
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	r, ok := m.rooms[NormalizeCode(code)]
	return r, ok
}

// Sweep 清除超过 TTL 未活动的房间并返回它们
func (m *Manager) Sweep(now time.Time) []*Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var evicted []*Room
	for code, r := range m.rooms {
		if r.Expired(now, m.ttl) {
			delete(m.rooms, code)
			evicted = append(evicted, r)
		}
	}
	sort.Slice(evicted, func(i, j int) bool { return evicted[i].Code < evicted[j].Code })
	return evicted
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Rooms 返回按房间码排序的房间
func (m *Manager) Rooms() []*Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Code < rooms[j].Code })
	return rooms
}
