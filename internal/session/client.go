package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	WriteWait  = 10 * time.Second
	PongWait   = 60 * time.Second
	PingPeriod = (PongWait * 9) / 10
)

var ErrConnectionClosed = errors.New("connection closed")

// State is the lifecycle of one connection. Transitions only move forward and
// Closed is terminal.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client owns one websocket connection. gorilla allows a single concurrent
// writer, so every data frame goes through Send.
type Client struct {
	Conn *websocket.Conn

	mu    sync.Mutex
	hook  func([]byte) error
	state atomic.Int32
	once  sync.Once
}

func NewClient(conn *websocket.Conn) *Client { return &Client{Conn: conn} }

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func([]byte) error) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

func (c *Client) State() State { return State(c.state.Load()) }

// Advance moves the client to next if that is a forward transition.
func (c *Client) Advance(next State) bool {
	for {
		cur := c.state.Load()
		if State(cur) >= next {
			return false
		}
		if c.state.CompareAndSwap(cur, int32(next)) {
			return true
		}
	}
}

// Send writes one text frame.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == StateClosed {
		return ErrConnectionClosed
	}
	if c.hook != nil {
		return c.hook(payload)
	}
	if c.Conn == nil {
		return ErrConnectionClosed
	}
	_ = c.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return c.Conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) Ping() error {
	if c.Conn == nil {
		return ErrConnectionClosed
	}
	return c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteWait))
}

// CloseWith sends a close frame carrying code and reason, then closes.
func (c *Client) CloseWith(code int, reason string) error {
	if c.Conn != nil && c.State() != StateClosed {
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.Conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(WriteWait))
	}
	return c.Close()
}

// Close marks the client closed and releases the connection. Safe to call
// more than once.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.state.Store(int32(StateClosed))
		if c.Conn != nil {
			err = c.Conn.Close()
		}
	})
	return err
}
