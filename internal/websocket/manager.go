package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cointap/mining-api/internal/db"
	"github.com/cointap/mining-api/internal/errors"
	"github.com/cointap/mining-api/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Note: Adjust this for production!
	},
}

// Manager fans out game events to every connected client.
type Manager struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mutex      sync.Mutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (manager *Manager) Run() {
	for {
		select {
		case client := <-manager.register:
			manager.mutex.Lock()
			manager.clients[client] = true
			manager.mutex.Unlock()
		case client := <-manager.unregister:
			manager.mutex.Lock()
			if _, ok := manager.clients[client]; ok {
				delete(manager.clients, client)
				client.Close()
			}
			manager.mutex.Unlock()
		case message := <-manager.broadcast:
			manager.mutex.Lock()
			for client := range manager.clients {
				err := client.WriteMessage(websocket.TextMessage, message)
				if err != nil {
					logger.Error("Error broadcasting message: %v", err)
					client.Close()
					delete(manager.clients, client)
				}
			}
			manager.mutex.Unlock()
		}
	}
}

func (manager *Manager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade connection: %v", err)
		http.Error(w, "Could not open websocket connection", http.StatusBadRequest)
		return
	}

	manager.register <- conn

	go manager.readPump(conn)
	go manager.writePump(conn)
}

func (manager *Manager) readPump(conn *websocket.Conn) {
	defer func() {
		manager.unregister <- conn
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("Unexpected close error: %v", err)
			}
			break
		}
		// Clients only listen; inbound frames are drained for keepalive.
	}
}

func (manager *Manager) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// BroadcastLeaderboardUpdate pushes a refreshed leaderboard to all clients.
func (manager *Manager) BroadcastLeaderboardUpdate(timeframe string, entries []db.LeaderboardEntry) error {
	data, err := json.Marshal(map[string]interface{}{
		"type":        "leaderboard_update",
		"timeframe":   timeframe,
		"leaderboard": entries,
	})
	if err != nil {
		return &errors.WebSocketError{Operation: "marshal leaderboard update", Err: err}
	}

	manager.broadcast <- data
	return nil
}

// BroadcastRewardEarned announces a settled mining session.
func (manager *Manager) BroadcastRewardEarned(userID string, amount float64, miningLevel int) error {
	data, err := json.Marshal(map[string]interface{}{
		"type":         "reward_earned",
		"user_id":      userID,
		"amount":       amount,
		"mining_level": miningLevel,
	})
	if err != nil {
		return &errors.WebSocketError{Operation: "marshal reward earned", Err: err}
	}

	manager.broadcast <- data
	return nil
}

// BroadcastLevelUp announces a mining level change.
func (manager *Manager) BroadcastLevelUp(userID string, newLevel int) error {
	data, err := json.Marshal(map[string]interface{}{
		"type":      "level_up",
		"user_id":   userID,
		"new_level": newLevel,
	})
	if err != nil {
		return &errors.WebSocketError{Operation: "marshal level up", Err: err}
	}

	manager.broadcast <- data
	return nil
}
