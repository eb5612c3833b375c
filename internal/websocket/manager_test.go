package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cointap/mining-api/internal/db"
)

func dialTestClient(t *testing.T, manager *Manager) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		manager.HandleWebSocket(w, r)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	// Allow some time for the connection to be registered
	time.Sleep(100 * time.Millisecond)
	return ws
}

func TestBroadcastRewardEarned(t *testing.T) {
	manager := NewManager()
	go manager.Run()

	ws := dialTestClient(t, manager)

	err := manager.BroadcastRewardEarned("user-1", 0.0001, 2)
	require.NoError(t, err)

	_, message, err := ws.ReadMessage()
	require.NoError(t, err)

	var received map[string]interface{}
	require.NoError(t, json.Unmarshal(message, &received))

	assert.Equal(t, "reward_earned", received["type"])
	assert.Equal(t, "user-1", received["user_id"])
	assert.Equal(t, 0.0001, received["amount"])
	assert.Equal(t, float64(2), received["mining_level"])
}

func TestBroadcastLeaderboardUpdate(t *testing.T) {
	manager := NewManager()
	go manager.Run()

	ws := dialTestClient(t, manager)

	entries := []db.LeaderboardEntry{
		{UserID: "user-2", Username: "alpha", MiningLevel: 5, Reward: 0.5},
		{UserID: "user-1", Username: "beta", MiningLevel: 3, Reward: 0.25},
	}
	err := manager.BroadcastLeaderboardUpdate("daily", entries)
	require.NoError(t, err)

	_, message, err := ws.ReadMessage()
	require.NoError(t, err)

	var received map[string]interface{}
	require.NoError(t, json.Unmarshal(message, &received))

	assert.Equal(t, "leaderboard_update", received["type"])
	assert.Equal(t, "daily", received["timeframe"])

	leaderboard, ok := received["leaderboard"].([]interface{})
	require.True(t, ok, "leaderboard should be a slice")
	require.Len(t, leaderboard, 2)

	first, ok := leaderboard[0].(map[string]interface{})
	require.True(t, ok, "leaderboard entry should be a map")
	assert.Equal(t, "user-2", first["UserID"])
}

func TestBroadcastLevelUp(t *testing.T) {
	manager := NewManager()
	go manager.Run()

	ws := dialTestClient(t, manager)

	err := manager.BroadcastLevelUp("user-1", 7)
	require.NoError(t, err)

	_, message, err := ws.ReadMessage()
	require.NoError(t, err)

	var received map[string]interface{}
	require.NoError(t, json.Unmarshal(message, &received))

	assert.Equal(t, "level_up", received["type"])
	assert.Equal(t, float64(7), received["new_level"])
}

func TestUnregisterOnDisconnect(t *testing.T) {
	manager := NewManager()
	go manager.Run()

	ws := dialTestClient(t, manager)
	ws.Close()

	// Allow some time for the unregister to propagate
	time.Sleep(100 * time.Millisecond)

	manager.mutex.Lock()
	count := len(manager.clients)
	manager.mutex.Unlock()

	assert.Equal(t, 0, count)
}
