package network

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode"
)

// 客户端消息类型
const (
	MsgCreateRoom     = "create_room"
	MsgJoinRoom       = "join_room"
	MsgValidateRoom   = "validate_room"
	MsgSelectGame     = "select_game"
	MsgNewRound       = "new_round"
	MsgEndGameRequest = "end_game_request"
	MsgEndGameAgree   = "end_game_agree"
	MsgMove           = "move"
	MsgLeaveRoom      = "leave_room"
	MsgPing           = "ping"
)

// 服务端消息类型
const (
	MsgSession     = "session"
	MsgRoomState   = "room_state"
	MsgRoomPreview = "room_preview"
	MsgError       = "error"
	MsgPong        = "pong"
)

var knownTypes = map[string]bool{
	MsgCreateRoom:     true,
	MsgJoinRoom:       true,
	MsgValidateRoom:   true,
	MsgSelectGame:     true,
	MsgNewRound:       true,
	MsgEndGameRequest: true,
	MsgEndGameAgree:   true,
	MsgMove:           true,
	MsgLeaveRoom:      true,
	MsgPing:           true,
}

// NormalizeType 把 "joinRoom"、"Join-Room"、"join.room" 统一成 "join_room"，
// 未知类型返回 ok=false
func NormalizeType(raw string) (string, bool) {
	var b strings.Builder
	var prevIn, prevOut rune
	for _, r := range strings.TrimSpace(raw) {
		in := r
		switch {
		case r == '-' || r == ' ' || r == '.':
			r = '_'
		case unicode.IsUpper(r):
			if unicode.IsLower(prevIn) || unicode.IsDigit(prevIn) {
				b.WriteByte('_')
				prevOut = '_'
			}
			r = unicode.ToLower(r)
		}
		prevIn = in
		if r == '_' && (b.Len() == 0 || prevOut == '_') {
			continue
		}
		b.WriteRune(r)
		prevOut = r
	}
	t := strings.TrimSuffix(b.String(), "_")
	return t, knownTypes[t]
}

// PreSession 是不需要先加入房间就能发送的类型
func PreSession(msgType string) bool {
	switch msgType {
	case MsgCreateRoom, MsgJoinRoom, MsgValidateRoom, MsgPing:
		return true
	}
	return false
}

// field 接受字符串、数字或 null
type field string

func (f *field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = field(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = field(n.String())
	return nil
}

type rawClientMessage struct {
	Type        field           `json:"type"`
	Code        field           `json:"code"`
	RoomCode    field           `json:"roomCode"`
	Avatar      field           `json:"avatar"`
	Identity    field           `json:"identity"`
	Fruit       field           `json:"fruit"`
	ClientID    field           `json:"clientId"`
	DeviceToken field           `json:"deviceToken"`
	SeatToken   field           `json:"seatToken"`
	GameID      field           `json:"gameId"`
	Move        json.RawMessage `json:"move"`
}

// ClientMessage 是解析并合并了别名字段之后的入站消息
type ClientMessage struct {
	RawType     string
	Type        string
	Known       bool
	Code        string
	Identity    string
	DeviceToken string
	SeatToken   string
	GameID      string
	Move        json.RawMessage
}

// ParseClientMessage 解析一帧文本，非对象 JSON 返回错误
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var raw rawClientMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	msg := &ClientMessage{
		RawType:     string(raw.Type),
		Code:        first(raw.Code, raw.RoomCode),
		Identity:    first(raw.Avatar, raw.Identity, raw.Fruit),
		DeviceToken: first(raw.ClientID, raw.DeviceToken),
		SeatToken:   strings.TrimSpace(string(raw.SeatToken)),
		GameID:      strings.TrimSpace(string(raw.GameID)),
		Move:        raw.Move,
	}
	msg.Type, msg.Known = NormalizeType(msg.RawType)
	return msg, nil
}

func first(values ...field) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}

// ServerMessage 是出站消息的信封
type ServerMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`

	ClientID    string `json:"clientId,omitempty"`
	DeviceToken string `json:"deviceToken,omitempty"`
	SeatToken   string `json:"seatToken,omitempty"`

	Room any `json:"room,omitempty"`
	You  any `json:"you,omitempty"`
}

func Encode(msg ServerMessage) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		// 只有 Room 里的引擎状态可能序列化失败
		return []byte(`{"type":"error","message":` + strconv.Quote(err.Error()) + `}`)
	}
	return data
}

func ErrorMessage(message string) []byte {
	return Encode(ServerMessage{Type: MsgError, Message: message})
}
