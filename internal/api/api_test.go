package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cointap/mining-api/internal/ads"
	"github.com/cointap/mining-api/internal/auth"
	"github.com/cointap/mining-api/internal/clock"
	"github.com/cointap/mining-api/internal/db"
	"github.com/cointap/mining-api/internal/db/mocks"
	"github.com/cointap/mining-api/internal/errors"
	"github.com/cointap/mining-api/internal/game"
	"github.com/cointap/mining-api/internal/leaderboard"
	"github.com/cointap/mining-api/internal/mining"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testDay() time.Time {
	return testNow.Truncate(24 * time.Hour)
}

type testAPI struct {
	store  *mocks.Store
	tokens *auth.TokenManager
	router *gin.Engine
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := new(mocks.Store)
	clk := clock.NewFake(testNow)
	rules := game.DefaultRules()
	tokens := auth.NewTokenManager("test-secret", time.Hour, clk)

	h := NewHandler(
		store,
		mining.NewService(store, rules, clk),
		ads.NewService(store, rules, clk),
		leaderboard.NewService(store, nil, clk),
		tokens,
		nil,
		clk,
		"",
	)

	return &testAPI{
		store:  store,
		tokens: tokens,
		router: SetupRouter(h),
	}
}

func testUser() *db.User {
	return &db.User{
		ID:                "user-1",
		TelegramID:        "42",
		Username:          "miner",
		MiningLevel:       1,
		MiningTimeSeconds: 7200,
		WalletBalance:     0.5,
		PendingRewards:    0.01,
		LastDailyReset:    testDay(),
	}
}

func (ta *testAPI) request(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ta.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestLoginCreatesUser(t *testing.T) {
	ta := setupTestAPI(t)

	ta.store.On("GetUserByTelegramID", "42").
		Return(nil, &errors.NotFoundError{Resource: "user", Identifier: "42"})
	ta.store.On("CreateUser", mock.MatchedBy(func(u *db.User) bool {
		return u.TelegramID == "42" && u.Username == "miner"
	})).Return(testUser(), nil)

	values := url.Values{}
	values.Set("user", `{"id":42,"username":"miner","first_name":"Test"}`)
	body, _ := json.Marshal(map[string]string{"initData": values.Encode()})

	w := ta.request(t, "POST", "/api/auth/login", string(body), "")

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, true, response["success"])
	require.NotEmpty(t, response["token"])

	userID, err := ta.tokens.Verify(response["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	ta.store.AssertExpectations(t)
}

func TestLoginRefreshesExistingUser(t *testing.T) {
	ta := setupTestAPI(t)

	ta.store.On("GetUserByTelegramID", "42").Return(testUser(), nil)
	ta.store.On("UpdateUserIdentity", "user-1", "miner", "Test", "", "").
		Return(testUser(), nil)

	values := url.Values{}
	values.Set("user", `{"id":42,"username":"miner","first_name":"Test"}`)
	body, _ := json.Marshal(map[string]string{"initData": values.Encode()})

	w := ta.request(t, "POST", "/api/auth/login", string(body), "")

	assert.Equal(t, http.StatusOK, w.Code)
	ta.store.AssertExpectations(t)
}

func TestLoginRequiresTelegramUser(t *testing.T) {
	ta := setupTestAPI(t)

	body, _ := json.Marshal(map[string]string{"initData": "auth_date=1748779200"})
	w := ta.request(t, "POST", "/api/auth/login", string(body), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRequired(t *testing.T) {
	ta := setupTestAPI(t)

	t.Run("Missing token", func(t *testing.T) {
		w := ta.request(t, "GET", "/api/mining/status", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Garbage token", func(t *testing.T) {
		w := ta.request(t, "GET", "/api/mining/status", "", "not-a-token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestMiningStatus(t *testing.T) {
	ta := setupTestAPI(t)
	token := ta.tokens.Issue("user-1")

	ta.store.On("GetUserByID", "user-1").Return(testUser(), nil)
	ta.store.On("DailyStatFor", "user-1", testDay()).
		Return(&db.DailyStat{UserID: "user-1", Date: testDay()}, nil)

	w := ta.request(t, "GET", "/api/mining/status", "", token)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, true, response["success"])
	assert.Equal(t, false, response["isActive"])
	assert.Equal(t, float64(7200), response["availableMiningSeconds"])
	assert.Equal(t, float64(10800), response["remainingDailySeconds"])
	ta.store.AssertExpectations(t)
}

func TestAuthMiddlewareResetsStaleDailyCounters(t *testing.T) {
	ta := setupTestAPI(t)
	token := ta.tokens.Issue("user-1")

	stale := testUser()
	stale.LastDailyReset = testDay().AddDate(0, 0, -1)
	stale.DailyLevelUpgrades = 3

	fresh := testUser()

	ta.store.On("GetUserByID", "user-1").Return(stale, nil).Once()
	ta.store.On("ResetDailyCounters", "user-1", testDay()).Return(nil).Once()
	ta.store.On("GetUserByID", "user-1").Return(fresh, nil).Once()
	ta.store.On("DailyStatFor", "user-1", testDay()).
		Return(&db.DailyStat{UserID: "user-1", Date: testDay()}, nil)

	w := ta.request(t, "GET", "/api/mining/status", "", token)

	assert.Equal(t, http.StatusOK, w.Code)
	ta.store.AssertExpectations(t)
}

func TestMiningStartConflict(t *testing.T) {
	ta := setupTestAPI(t)
	token := ta.tokens.Issue("user-1")

	user := testUser()
	start := testNow.Add(-10 * time.Minute)
	end := testNow.Add(50 * time.Minute)
	user.MiningStartTime = &start
	user.MiningEndTime = &end

	ta.store.On("GetUserByID", "user-1").Return(user, nil)

	w := ta.request(t, "POST", "/api/mining/start", "", token)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := decode(t, w)
	assert.Equal(t, false, response["success"])
	assert.Equal(t, "Mining session already active", response["message"])
}

func TestMiningCollectNothingPending(t *testing.T) {
	ta := setupTestAPI(t)
	token := ta.tokens.Issue("user-1")

	ta.store.On("GetUserByID", "user-1").Return(testUser(), nil)
	ta.store.On("CollectRewards", "user-1").
		Return(0.0, 0.0, &errors.InsufficientError{Resource: "pending_rewards", Message: "No pending rewards to collect"})

	w := ta.request(t, "POST", "/api/mining/collect", "", token)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := decode(t, w)
	assert.Equal(t, "No pending rewards to collect", response["message"])
}

func TestAdsWatchRejectsShortView(t *testing.T) {
	ta := setupTestAPI(t)
	token := ta.tokens.Issue("user-1")

	ta.store.On("GetUserByID", "user-1").Return(testUser(), nil)

	body := `{"adId":"ad-1","duration":10,"forLevelUpgrade":false}`
	w := ta.request(t, "POST", "/api/ads/watch", body, token)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := decode(t, w)
	assert.Equal(t, "Ad must be watched for at least 15 seconds", response["message"])
}

func TestAdsWatchGrantsMiningTime(t *testing.T) {
	ta := setupTestAPI(t)
	token := ta.tokens.Issue("user-1")

	updated := testUser()
	updated.MiningTimeSeconds = 10800

	ta.store.On("GetUserByID", "user-1").Return(testUser(), nil)
	ta.store.On("CountAdViewsOn", "user-1", testDay()).Return(0, nil)
	ta.store.On("DailyStatFor", "user-1", testDay()).
		Return(&db.DailyStat{UserID: "user-1", Date: testDay()}, nil)
	ta.store.On("RecordTimeAdView", mock.AnythingOfType("db.TimeAdView")).Return(updated, nil)

	body := `{"adId":"ad-1","duration":20,"forLevelUpgrade":false}`
	w := ta.request(t, "POST", "/api/ads/watch", body, token)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, float64(3600), response["rewardTimeSeconds"])
	assert.Equal(t, float64(10800), response["totalMiningTimeSeconds"])
	ta.store.AssertExpectations(t)
}

func TestGetLeaderboard(t *testing.T) {
	ta := setupTestAPI(t)

	t.Run("Daily entries ranked in order", func(t *testing.T) {
		ta.store.On("DailyLeaderboard", testDay(), 20).Return([]db.LeaderboardEntry{
			{UserID: "user-2", Username: "alpha", MiningLevel: 5, Reward: 0.5},
			{UserID: "user-1", Username: "beta", MiningLevel: 3, Reward: 0.25},
		}, nil).Once()

		w := ta.request(t, "GET", "/api/leaderboard", "", "")

		assert.Equal(t, http.StatusOK, w.Code)
		response := decode(t, w)
		entries := response["leaderboard"].([]interface{})
		require.Len(t, entries, 2)
		first := entries[0].(map[string]interface{})
		assert.Equal(t, float64(1), first["rank"])
		assert.Equal(t, "alpha", first["username"])
	})

	t.Run("Empty day", func(t *testing.T) {
		ta.store.On("DailyLeaderboard", testDay(), 20).
			Return([]db.LeaderboardEntry{}, nil).Once()

		w := ta.request(t, "GET", "/api/leaderboard", "", "")

		assert.Equal(t, http.StatusOK, w.Code)
		response := decode(t, w)
		assert.Equal(t, true, response["success"])
		assert.Empty(t, response["leaderboard"])
	})

	t.Run("Invalid timeframe", func(t *testing.T) {
		w := ta.request(t, "GET", "/api/leaderboard?timeframe=hourly", "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetRank(t *testing.T) {
	ta := setupTestAPI(t)
	token := ta.tokens.Issue("user-1")

	rank := 3
	ta.store.On("GetUserByID", "user-1").Return(testUser(), nil)
	ta.store.On("DailyRank", "user-1", testDay()).
		Return(&db.RankResult{Rank: &rank, TotalUsers: 10, Score: 0.25}, nil)

	w := ta.request(t, "GET", "/api/leaderboard/rank", "", token)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, float64(3), response["rank"])
	assert.Equal(t, float64(10), response["totalUsers"])
}

func TestGetProfile(t *testing.T) {
	ta := setupTestAPI(t)
	token := ta.tokens.Issue("user-1")

	ta.store.On("GetUserByID", "user-1").Return(testUser(), nil)

	w := ta.request(t, "GET", "/api/user/profile", "", token)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	user := response["user"].(map[string]interface{})
	assert.Equal(t, "user-1", user["id"])
	assert.Equal(t, "miner", user["username"])
}

func TestUpdateProfile(t *testing.T) {
	ta := setupTestAPI(t)
	token := ta.tokens.Issue("user-1")

	renamed := testUser()
	renamed.Username = "prospector"

	ta.store.On("GetUserByID", "user-1").Return(testUser(), nil)
	ta.store.On("UpdateUserIdentity", "user-1", "prospector", "Test", "User", "").
		Return(renamed, nil)

	body := `{"username":"prospector","firstName":"Test","lastName":"User"}`
	w := ta.request(t, "PUT", "/api/user/profile", body, token)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	user := response["user"].(map[string]interface{})
	assert.Equal(t, "prospector", user["username"])
	ta.store.AssertExpectations(t)
}

func TestHealth(t *testing.T) {
	ta := setupTestAPI(t)

	w := ta.request(t, "GET", "/health", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, "healthy", response["status"])
}
