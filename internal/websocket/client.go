package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrClientGone = errors.New("client closed or send buffer full")

type Client struct {
	ID      string
	UserID  string
	Conn    *websocket.Conn
	Manager *Manager
	Handler MessageHandler
	Send    chan []byte

	mu      sync.Mutex
	closed  bool
	onClose []func()
}

func NewClient(id, userID string, conn *websocket.Conn, manager *Manager, handler MessageHandler) *Client {
	return &Client{
		ID:      id,
		UserID:  userID,
		Conn:    conn,
		Manager: manager,
		Handler: handler,
		Send:    make(chan []byte, 256),
	}
}

// OnClose registers f to run once the client has been unregistered.
func (c *Client) OnClose(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = append(c.onClose, f)
}

// Enqueue queues a frame for the write pump without blocking. It reports false
// when the client is closed or its buffer is full.
func (c *Client) Enqueue(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) SendMessage(msg *Message) error {
	messageBytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if !c.Enqueue(messageBytes) {
		return ErrClientGone
	}
	return nil
}

// close stops the write pump and runs the OnClose hooks in the background.
func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.Send)
	hooks := c.onClose
	c.onClose = nil
	c.mu.Unlock()

	if len(hooks) == 0 {
		return
	}
	go func() {
		for _, f := range hooks {
			f()
		}
	}()
}

func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Manager.Unregister <- c:
		case <-c.Manager.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Manager.logger.Warn("websocket read failed", zap.String("client_id", c.ID), zap.Error(err))
			}
			break
		}

		c.Manager.dispatch(c, message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.Manager.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
