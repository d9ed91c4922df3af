// network/connection.go
package network

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendQueueFull    = errors.New("send queue full")
)

const (
	DefaultSendBuffer = 64
	writeWait         = 10 * time.Second
)

// Connection 是一个双向的文本帧连接
type Connection interface {
	// Send 入队一帧，不阻塞
	Send(data []byte) error
	ReadMessage() ([]byte, error)
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
}

// WSConnection 基于 gorilla/websocket，写入由单独的 goroutine 完成
type WSConnection struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	heartbeat time.Duration
	mutex     sync.RWMutex
}

func NewWSConnection(conn *websocket.Conn, sendBuffer int) *WSConnection {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	c := &WSConnection{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

func (c *WSConnection) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSendQueueFull
	}
}

func (c *WSConnection) ReadMessage() ([]byte, error) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType == websocket.TextMessage || msgType == websocket.BinaryMessage {
			c.extendDeadline()
			return data, nil
		}
	}
}

// SetHeartbeat 启用 ping/pong 保活，两个周期内没有任何数据则读超时
func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	c.mutex.Lock()
	c.heartbeat = interval
	c.mutex.Unlock()
	if interval <= 0 {
		return
	}
	c.extendDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendDeadline()
		return nil
	})
}

func (c *WSConnection) extendDeadline() {
	c.mutex.RLock()
	interval := c.heartbeat
	c.mutex.RUnlock()
	if interval > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(interval * 2))
	}
}

func (c *WSConnection) pingInterval() time.Duration {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.heartbeat
}

func (c *WSConnection) writePump() {
	ticker := time.NewTicker(time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	var lastPing time.Time
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		case now := <-ticker.C:
			interval := c.pingInterval()
			if interval <= 0 || now.Sub(lastPing) < interval {
				continue
			}
			lastPing = now
			if err := c.conn.WriteControl(websocket.PingMessage, nil, now.Add(writeWait)); err != nil {
				c.Close()
				return
			}
		}
	}
}

// Close 可以多次调用
func (c *WSConnection) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
