package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager tracks live connections per user. Messages are dispatched on each
// client's read goroutine, so one connection is served in order while
// connections proceed independently.
type Manager struct {
	clients        map[string]*Client
	userIndex      map[string]map[string]bool
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	done           chan struct{}
	maxConnPerUser int
	maxMessageSize int64
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	logger         *zap.Logger
}

type MessageHandler interface {
	HandleWebSocketMessage(client *Client, msg *Message) error
}

type ManagerConfig struct {
	MaxConnPerUser int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

func NewManager(cfg ManagerConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		clients:        make(map[string]*Client),
		userIndex:      make(map[string]map[string]bool),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		done:           make(chan struct{}),
		maxConnPerUser: cfg.MaxConnPerUser,
		maxMessageSize: cfg.MaxMessageSize,
		writeWait:      cfg.WriteWait,
		pongWait:       cfg.PongWait,
		pingPeriod:     cfg.PingPeriod,
		logger:         logger,
	}
}

// Run serves registrations until ctx is done, then closes every client.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case <-ctx.Done():
			m.closeAll()
			return
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.userIndex[client.UserID] == nil {
		m.userIndex[client.UserID] = make(map[string]bool)
	}

	if m.maxConnPerUser > 0 && len(m.userIndex[client.UserID]) >= m.maxConnPerUser {
		m.logger.Warn("max connections reached", zap.String("user_id", client.UserID))
		client.close()
		return
	}

	m.clients[client.ID] = client
	m.userIndex[client.UserID][client.ID] = true

	m.logger.Info("client registered", zap.String("client_id", client.ID), zap.String("user_id", client.UserID))
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		delete(m.userIndex[client.UserID], client.ID)

		if len(m.userIndex[client.UserID]) == 0 {
			delete(m.userIndex, client.UserID)
		}

		m.logger.Info("client unregistered", zap.String("client_id", client.ID))
	}
	client.close()
}

func (m *Manager) closeAll() {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	for id, client := range m.clients {
		client.close()
		if client.Conn != nil {
			client.Conn.Close()
		}
		delete(m.clients, id)
	}
	m.userIndex = make(map[string]map[string]bool)
}

func (m *Manager) dispatch(client *Client, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		m.logger.Debug("undecodable message", zap.String("client_id", client.ID), zap.Error(err))
		return
	}

	if client.Handler == nil {
		return
	}
	if err := client.Handler.HandleWebSocketMessage(client, &msg); err != nil {
		m.logger.Debug("message handling failed",
			zap.String("client_id", client.ID), zap.String("type", string(msg.Type)), zap.Error(err))
	}
}

// CloseUser drops every connection of userID. The read pumps notice the closed
// sockets and unregister themselves.
func (m *Manager) CloseUser(userID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	closed := 0
	for clientID := range m.userIndex[userID] {
		if client := m.clients[clientID]; client != nil && client.Conn != nil {
			client.Conn.Close()
			closed++
		}
	}
	if closed > 0 {
		m.logger.Info("closed user connections", zap.String("user_id", userID), zap.Int("count", closed))
	}
	return closed
}

func (m *Manager) GetUserConnections(userID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	if clients, exists := m.userIndex[userID]; exists {
		return len(clients)
	}
	return 0
}
