// Package api exposes the game over HTTP: Telegram login, mining
// session control, ad rewards, profile and leaderboard endpoints.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cointap/mining-api/internal/ads"
	"github.com/cointap/mining-api/internal/auth"
	"github.com/cointap/mining-api/internal/clock"
	"github.com/cointap/mining-api/internal/db"
	"github.com/cointap/mining-api/internal/errors"
	"github.com/cointap/mining-api/internal/leaderboard"
	"github.com/cointap/mining-api/internal/mining"
	"github.com/cointap/mining-api/internal/websocket"
	"github.com/cointap/mining-api/pkg/logger"
)

// Handler wires the services behind the HTTP endpoints.
type Handler struct {
	store       db.Store
	mining      *mining.Service
	ads         *ads.Service
	leaderboard *leaderboard.Service
	tokens      *auth.TokenManager
	ws          *websocket.Manager
	clock       clock.Clock
	botToken    string
}

func NewHandler(
	store db.Store,
	miningSvc *mining.Service,
	adsSvc *ads.Service,
	leaderboardSvc *leaderboard.Service,
	tokens *auth.TokenManager,
	ws *websocket.Manager,
	clk clock.Clock,
	botToken string,
) *Handler {
	return &Handler{
		store:       store,
		mining:      miningSvc,
		ads:         adsSvc,
		leaderboard: leaderboardSvc,
		tokens:      tokens,
		ws:          ws,
		clock:       clk,
		botToken:    botToken,
	}
}

type loginRequest struct {
	InitData string             `json:"initData"`
	User     *auth.TelegramUser `json:"user"`
}

// Login verifies Telegram WebApp init data, creates the user on first
// login and returns a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(&errors.ValidationError{Field: "body", Message: "Invalid request body"})
		return
	}

	if err := auth.ValidateInitData(req.InitData, h.botToken); err != nil {
		c.Error(err)
		return
	}

	tgUser := auth.ParseInitDataUser(req.InitData)
	if tgUser == nil {
		tgUser = req.User
	}
	if tgUser == nil || tgUser.ID == 0 {
		c.Error(&errors.ValidationError{Field: "user", Message: "Missing Telegram user"})
		return
	}

	telegramID := strconv.FormatInt(tgUser.ID, 10)
	user, err := h.store.GetUserByTelegramID(telegramID)
	if err != nil {
		if _, ok := err.(*errors.NotFoundError); !ok {
			c.Error(err)
			return
		}
		user, err = h.store.CreateUser(&db.User{
			TelegramID:   telegramID,
			Username:     tgUser.Username,
			FirstName:    tgUser.FirstName,
			LastName:     tgUser.LastName,
			PhotoURL:     tgUser.PhotoURL,
			LanguageCode: tgUser.LanguageCode,
		})
		if err != nil {
			c.Error(err)
			return
		}
		logger.Info("Created user %s for telegram id %s", user.ID, telegramID)
	} else {
		user, err = h.store.UpdateUserIdentity(user.ID, tgUser.Username, tgUser.FirstName, tgUser.LastName, tgUser.PhotoURL)
		if err != nil {
			c.Error(err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   h.tokens.Issue(user.ID),
		"user":    userPayload(user),
	})
}

// MiningStatus reports the user's mining state.
func (h *Handler) MiningStatus(c *gin.Context) {
	user := currentUser(c)

	status, err := h.mining.Status(user)
	if err != nil {
		c.Error(err)
		return
	}

	payload := gin.H{
		"success":                true,
		"isActive":               status.IsActive,
		"miningLevel":            status.MiningLevel,
		"miningRate":             status.MiningRate,
		"availableMiningSeconds": status.AvailableMiningSeconds,
		"remainingDailySeconds":  status.RemainingDailySeconds,
		"maxDailyMiningHours":    status.MaxDailyMiningHours,
		"pendingRewards":         status.PendingRewards,
		"walletBalance":          status.WalletBalance,
		"upgradeRequirement":     status.UpgradeRequirement,
		"canUpgrade":             status.CanUpgrade,
	}
	if status.IsActive {
		payload["remainingSessionSeconds"] = status.RemainingSessionSeconds
		payload["sessionDurationSeconds"] = status.SessionDurationSeconds
	}

	c.JSON(http.StatusOK, payload)
}

// MiningStart schedules a new session.
func (h *Handler) MiningStart(c *gin.Context) {
	user := currentUser(c)

	result, err := h.mining.Start(user)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "Mining started",
		"sessionId":       result.SessionID,
		"startTime":       result.StartTime,
		"endTime":         result.EndTime,
		"durationSeconds": result.DurationSeconds,
	})
}

// MiningStop settles the active session and broadcasts the result.
func (h *Handler) MiningStop(c *gin.Context) {
	user := currentUser(c)

	result, err := h.mining.Stop(user)
	if err != nil {
		c.Error(err)
		return
	}

	if h.ws != nil {
		if err := h.ws.BroadcastRewardEarned(user.ID, result.RewardAmount, result.MiningLevel); err != nil {
			logger.LogError(err)
		}
		h.pushLeaderboard()
	}

	c.JSON(http.StatusOK, gin.H{
		"success":                true,
		"message":                "Mining stopped",
		"sessionId":              result.SessionID,
		"durationSeconds":        result.DurationSeconds,
		"rewardAmount":           result.RewardAmount,
		"remainingMiningSeconds": result.RemainingSeconds,
		"miningLevel":            result.MiningLevel,
	})
}

// MiningCollect moves pending rewards into the wallet.
func (h *Handler) MiningCollect(c *gin.Context) {
	user := currentUser(c)

	collected, newBalance, err := h.mining.Collect(user)
	if err != nil {
		c.Error(err)
		return
	}

	if h.ws != nil {
		h.pushLeaderboard()
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "Rewards collected",
		"collectedAmount": collected,
		"newBalance":      newBalance,
	})
}

// MiningUpgrade spends wallet balance on the next level.
func (h *Handler) MiningUpgrade(c *gin.Context) {
	user := currentUser(c)

	result, err := h.mining.Upgrade(user)
	if err != nil {
		c.Error(err)
		return
	}

	if h.ws != nil {
		if err := h.ws.BroadcastLevelUp(user.ID, result.NewLevel); err != nil {
			logger.LogError(err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Mining level upgraded",
		"oldLevel":   result.OldLevel,
		"newLevel":   result.NewLevel,
		"cost":       result.Cost,
		"newBalance": result.NewBalance,
	})
}

// MiningRewards returns a page of the user's reward history.
func (h *Handler) MiningRewards(c *gin.Context) {
	user := currentUser(c)
	page, limit := pageParams(c)

	rewards, total, err := h.mining.RewardsHistory(user.ID, page, limit)
	if err != nil {
		c.Error(err)
		return
	}

	items := make([]gin.H, 0, len(rewards))
	for i := range rewards {
		r := &rewards[i]
		items = append(items, gin.H{
			"id":              r.ID,
			"amount":          r.Amount,
			"miningLevel":     r.MiningLevel,
			"durationSeconds": r.DurationSeconds,
			"createdAt":       r.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rewards": items,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// AdsEligible reports the user's remaining ad allowance.
func (h *Handler) AdsEligible(c *gin.Context) {
	user := currentUser(c)

	eligibility, err := h.ads.Eligibility(user)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":                     true,
		"eligible":                    eligibility.Eligible,
		"dailyAdLimit":                eligibility.DailyAdLimit,
		"adsWatchedToday":             eligibility.AdsWatchedToday,
		"remainingAdsToday":           eligibility.RemainingAdsToday,
		"remainingDailyMiningSeconds": eligibility.RemainingDailyMiningSeconds,
	})
}

type watchAdRequest struct {
	AdID            string `json:"adId"`
	Duration        int    `json:"duration"`
	ForLevelUpgrade bool   `json:"forLevelUpgrade"`
}

// AdsWatch records a completed ad view and grants its reward.
func (h *Handler) AdsWatch(c *gin.Context) {
	user := currentUser(c)

	var req watchAdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(&errors.ValidationError{Field: "body", Message: "Invalid request body"})
		return
	}

	result, err := h.ads.RecordView(user, req.AdID, req.Duration, req.ForLevelUpgrade)
	if err != nil {
		c.Error(err)
		return
	}

	if result.ForLevelUpgrade {
		if result.LevelUpgraded && h.ws != nil {
			if err := h.ws.BroadcastLevelUp(user.ID, result.MiningLevel); err != nil {
				logger.LogError(err)
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"success":                 true,
			"message":                 "Ad view recorded",
			"miningLevel":             result.MiningLevel,
			"levelUpgradeAdsWatched":  result.LevelUpgradeAdsWatched,
			"dailyLevelUpgrades":      result.DailyLevelUpgrades,
			"levelUpgraded":           result.LevelUpgraded,
			"adsRequiredForNextLevel": result.AdsRequiredForNextLevel,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":                true,
		"message":                "Ad view recorded",
		"rewardTimeSeconds":      result.RewardTimeSeconds,
		"totalMiningTimeSeconds": result.TotalMiningTimeSeconds,
	})
}

// AdsHistory returns a page of the user's ad views.
func (h *Handler) AdsHistory(c *gin.Context) {
	user := currentUser(c)
	page, limit := pageParams(c)

	views, total, err := h.ads.History(user.ID, page, limit)
	if err != nil {
		c.Error(err)
		return
	}

	items := make([]gin.H, 0, len(views))
	for i := range views {
		v := &views[i]
		items = append(items, gin.H{
			"id":                v.ID,
			"adId":              v.AdID,
			"duration":          v.Duration,
			"forLevelUpgrade":   v.ForLevelUpgrade,
			"rewardTimeSeconds": v.RewardTimeSeconds,
			"viewTime":          v.ViewTime,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"adViews": items,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetProfile returns the authenticated user.
func (h *Handler) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    userPayload(currentUser(c)),
	})
}

type updateProfileRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	PhotoURL  string `json:"photoUrl"`
}

// UpdateProfile updates the user's identity fields.
func (h *Handler) UpdateProfile(c *gin.Context) {
	user := currentUser(c)

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(&errors.ValidationError{Field: "body", Message: "Invalid request body"})
		return
	}

	updated, err := h.store.UpdateUserIdentity(user.ID, req.Username, req.FirstName, req.LastName, req.PhotoURL)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    userPayload(updated),
	})
}

// GetLeaderboard returns the ranked list for a timeframe.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	timeframe := c.DefaultQuery("timeframe", leaderboard.TimeframeDaily)

	limit := leaderboard.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.Error(&errors.ValidationError{Field: "limit", Message: "limit must be a number"})
			return
		}
		limit = parsed
	}

	entries, err := h.leaderboard.Get(timeframe, limit)
	if err != nil {
		c.Error(err)
		return
	}

	items := make([]gin.H, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		items = append(items, gin.H{
			"rank":        i + 1,
			"userId":      e.UserID,
			"username":    e.Username,
			"firstName":   e.FirstName,
			"lastName":    e.LastName,
			"photoUrl":    e.PhotoURL,
			"miningLevel": e.MiningLevel,
			"reward":      e.Reward,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"timeframe":   timeframe,
		"leaderboard": items,
	})
}

// GetRank returns the user's standing for a timeframe.
func (h *Handler) GetRank(c *gin.Context) {
	user := currentUser(c)
	timeframe := c.DefaultQuery("timeframe", leaderboard.TimeframeDaily)

	result, err := h.leaderboard.Rank(user.ID, timeframe)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"timeframe":  timeframe,
		"rank":       result.Rank,
		"totalUsers": result.TotalUsers,
		"score":      result.Score,
	})
}

// Health reports service liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// pushLeaderboard broadcasts a fresh daily leaderboard to websocket
// clients. Failures are logged, never surfaced to the request.
func (h *Handler) pushLeaderboard() {
	entries, err := h.leaderboard.Get(leaderboard.TimeframeDaily, leaderboard.DefaultLimit)
	if err != nil {
		logger.Error("Failed to refresh leaderboard for broadcast: %v", err)
		return
	}
	if err := h.ws.BroadcastLeaderboardUpdate(leaderboard.TimeframeDaily, entries); err != nil {
		logger.LogError(err)
	}
}

func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	return page, limit
}

func userPayload(u *db.User) gin.H {
	return gin.H{
		"id":                     u.ID,
		"telegramId":             u.TelegramID,
		"username":               u.Username,
		"firstName":              u.FirstName,
		"lastName":               u.LastName,
		"photoUrl":               u.PhotoURL,
		"languageCode":           u.LanguageCode,
		"miningLevel":            u.MiningLevel,
		"walletBalance":          u.WalletBalance,
		"pendingRewards":         u.PendingRewards,
		"miningTimeSeconds":      u.MiningTimeSeconds,
		"levelUpgradeAdsWatched": u.LevelUpgradeAdsWatched,
		"dailyLevelUpgrades":     u.DailyLevelUpgrades,
		"createdAt":              u.CreatedAt,
	}
}
