package gateway

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lhdbsbz/canvas/internal/bridge"
	"github.com/lhdbsbz/canvas/internal/message"
)

// Conn is one WebSocket connection from a parent page, and the view mounted for it.
type Conn struct {
	ID          string
	Origin      string // handshake Origin header; the origin of every message on this conn
	WS          *websocket.Conn
	View        *bridge.View
	ConnectedAt time.Time
	writeMu     sync.Mutex
}

// Post implements message.Port. Messages whose target origin does not match the
// connection's origin are dropped without error, as postMessage does.
func (c *Conn) Post(msg message.Outbound, targetOrigin string) error {
	if !message.Deliverable(targetOrigin, c.Origin) {
		slog.Debug("outbound message not delivered, target origin mismatch",
			"conn", c.ID, "type", msg.Type, "target", targetOrigin, "origin", c.Origin)
		return nil
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.WS.WriteJSON(msg)
}

// ViewManager tracks the mounted views of all live connections.
type ViewManager struct {
	mu    sync.RWMutex
	conns map[string]*Conn // connID → conn
}

func NewViewManager() *ViewManager {
	return &ViewManager{conns: make(map[string]*Conn)}
}

func (m *ViewManager) Add(conn *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[conn.ID] = conn
}

// Remove unregisters a connection and unmounts its view.
func (m *ViewManager) Remove(connID string) {
	m.mu.Lock()
	conn := m.conns[connID]
	delete(m.conns, connID)
	m.mu.Unlock()
	if conn != nil && conn.View != nil {
		conn.View.Unmount()
	}
}

func (m *ViewManager) Get(connID string) *Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conns[connID]
}

func (m *ViewManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// ViewInfo describes a live view.
type ViewInfo struct {
	ID          string    `json:"id"`
	Origin      string    `json:"origin"`
	ConnectedAt time.Time `json:"connectedAt"`
	HasAuth     bool      `json:"hasAuth"`
}

func (m *ViewManager) List() []ViewInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	views := make([]ViewInfo, 0, len(m.conns))
	for _, conn := range m.conns {
		info := ViewInfo{ID: conn.ID, Origin: conn.Origin, ConnectedAt: conn.ConnectedAt}
		if conn.View != nil {
			_, info.HasAuth = conn.View.Credentials.Get()
		}
		views = append(views, info)
	}
	return views
}

// RequestUserData asks every connected parent for fresh user data and returns
// how many requests were posted.
func (m *ViewManager) RequestUserData() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sent := 0
	for _, conn := range m.conns {
		if conn.View == nil {
			continue
		}
		if err := conn.View.Auth.RequestUserData(); err != nil {
			slog.Warn("request user data failed", "conn", conn.ID, "error", err)
			continue
		}
		sent++
	}
	return sent
}
