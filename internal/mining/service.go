// Package mining implements the session state machine: timed accrual
// sessions, reward settlement, collection and level upgrades.
package mining

import (
	"time"

	"github.com/cointap/mining-api/internal/clock"
	"github.com/cointap/mining-api/internal/db"
	"github.com/cointap/mining-api/internal/errors"
	"github.com/cointap/mining-api/internal/game"
	"github.com/cointap/mining-api/pkg/logger"
)

type Service struct {
	store db.Store
	rules game.Rules
	clock clock.Clock
}

func NewService(store db.Store, rules game.Rules, clk clock.Clock) *Service {
	return &Service{store: store, rules: rules, clock: clk}
}

// Status is the full mining state reported to the client.
type Status struct {
	IsActive                bool
	MiningLevel             int
	MiningRate              float64
	AvailableMiningSeconds  int64
	RemainingDailySeconds   int64
	MaxDailyMiningHours     int64
	PendingRewards          float64
	WalletBalance           float64
	UpgradeRequirement      float64
	CanUpgrade              bool
	RemainingSessionSeconds int64
	SessionDurationSeconds  int64
}

// StartResult reports the scheduled session window.
type StartResult struct {
	SessionID       int64
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds int64
}

// StopResult reports the settled session.
type StopResult struct {
	SessionID        int64
	DurationSeconds  int64
	RewardAmount     float64
	RemainingSeconds int64
	MiningLevel      int
}

// UpgradeResult reports a wallet-funded level change.
type UpgradeResult struct {
	OldLevel   int
	NewLevel   int
	Cost       float64
	NewBalance float64
}

func (s *Service) day() time.Time {
	return s.clock.Now().Truncate(24 * time.Hour)
}

func sessionActive(u *db.User, now time.Time) bool {
	return u.MiningStartTime != nil && u.MiningEndTime != nil && u.MiningEndTime.After(now)
}

func sessionExpired(u *db.User, now time.Time) bool {
	return u.MiningStartTime != nil && u.MiningEndTime != nil && !u.MiningEndTime.After(now)
}

// settleExpired closes an overrun session and banks its full reward.
// Returns the refreshed user. Elapsed time never exceeds the scheduled
// window, so the settled duration is the whole session.
func (s *Service) settleExpired(u *db.User) (*db.User, error) {
	session, err := s.store.GetActiveSession(u.ID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		// Session row already gone; just clear the stale window.
		if err := s.store.ExpireSession(0, u.ID, *u.MiningEndTime); err != nil {
			return nil, err
		}
		return s.store.GetUserByID(u.ID)
	}

	durationSeconds := int64(u.MiningEndTime.Sub(*u.MiningStartTime).Seconds())
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	reward := s.rules.Reward(session.MiningLevel, durationSeconds)

	err = s.store.CloseSession(db.SessionClose{
		SessionID:       session.ID,
		UserID:          u.ID,
		EndTime:         *u.MiningEndTime,
		DurationSeconds: durationSeconds,
		Reward:          reward,
		MiningLevel:     session.MiningLevel,
		Day:             u.MiningEndTime.Truncate(24 * time.Hour),
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Settled expired mining session %d for user %s: %ds, reward %f",
		session.ID, u.ID, durationSeconds, reward)
	return s.store.GetUserByID(u.ID)
}

// Status reports the user's mining state. An overrun session is closed
// as a side effect and its reward banked as pending.
func (s *Service) Status(user *db.User) (*Status, error) {
	now := s.clock.Now()

	if sessionExpired(user, now) {
		refreshed, err := s.settleExpired(user)
		if err != nil {
			return nil, err
		}
		*user = *refreshed
	}

	stat, err := s.store.DailyStatFor(user.ID, s.day())
	if err != nil {
		return nil, err
	}

	dailyCap := s.rules.DailyMiningCap(user.MiningLevel)
	remainingDaily := dailyCap - stat.MiningTimeSeconds
	if remainingDaily < 0 {
		remainingDaily = 0
	}

	status := &Status{
		MiningLevel:            user.MiningLevel,
		MiningRate:             s.rules.MiningRate(user.MiningLevel),
		AvailableMiningSeconds: user.MiningTimeSeconds,
		RemainingDailySeconds:  remainingDaily,
		MaxDailyMiningHours:    dailyCap / 3600,
		PendingRewards:         user.PendingRewards,
		WalletBalance:          user.WalletBalance,
		UpgradeRequirement:     s.rules.UpgradeCost(user.MiningLevel),
	}
	status.CanUpgrade = user.MiningLevel < game.MaxLevel && user.WalletBalance >= status.UpgradeRequirement

	if sessionActive(user, now) {
		status.IsActive = true
		status.RemainingSessionSeconds = int64(user.MiningEndTime.Sub(now).Seconds())
		status.SessionDurationSeconds = int64(user.MiningEndTime.Sub(*user.MiningStartTime).Seconds())
	}

	return status, nil
}

// Start schedules a session of min(available time, remaining daily cap).
func (s *Service) Start(user *db.User) (*StartResult, error) {
	now := s.clock.Now()

	if sessionActive(user, now) {
		return nil, &errors.ConflictError{Message: "Mining session already active"}
	}
	if sessionExpired(user, now) {
		refreshed, err := s.settleExpired(user)
		if err != nil {
			return nil, err
		}
		*user = *refreshed
	}

	if user.MiningTimeSeconds <= 0 {
		return nil, &errors.InsufficientError{
			Resource: "mining_time",
			Message:  "No mining time available. Watch ads to earn more mining time.",
		}
	}

	stat, err := s.store.DailyStatFor(user.ID, s.day())
	if err != nil {
		return nil, err
	}
	remainingDaily := s.rules.DailyMiningCap(user.MiningLevel) - stat.MiningTimeSeconds
	if remainingDaily <= 0 {
		return nil, &errors.LimitExceededError{
			Limit:   "daily_mining",
			Message: "Daily mining limit reached. Come back tomorrow.",
		}
	}

	duration := user.MiningTimeSeconds
	if remainingDaily < duration {
		duration = remainingDaily
	}
	end := now.Add(time.Duration(duration) * time.Second)

	session, err := s.store.StartSession(user.ID, now, end, user.MiningLevel)
	if err != nil {
		return nil, err
	}

	return &StartResult{
		SessionID:       session.ID,
		StartTime:       now,
		EndTime:         end,
		DurationSeconds: duration,
	}, nil
}

// Stop settles the active session. Elapsed time is wall clock capped at
// the scheduled end, so stopping late pays no more than the window.
func (s *Service) Stop(user *db.User) (*StopResult, error) {
	now := s.clock.Now()

	if user.MiningStartTime == nil || user.MiningEndTime == nil {
		return nil, &errors.NotFoundError{Resource: "active mining session", Identifier: user.ID}
	}

	session, err := s.store.GetActiveSession(user.ID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &errors.NotFoundError{Resource: "active mining session", Identifier: user.ID}
	}

	actualEnd := now
	if user.MiningEndTime.Before(actualEnd) {
		actualEnd = *user.MiningEndTime
	}
	durationSeconds := int64(actualEnd.Sub(*user.MiningStartTime).Seconds())
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	reward := s.rules.Reward(session.MiningLevel, durationSeconds)

	err = s.store.CloseSession(db.SessionClose{
		SessionID:       session.ID,
		UserID:          user.ID,
		EndTime:         actualEnd,
		DurationSeconds: durationSeconds,
		Reward:          reward,
		MiningLevel:     session.MiningLevel,
		Day:             s.day(),
	})
	if err != nil {
		return nil, err
	}

	remaining := user.MiningTimeSeconds - durationSeconds
	if remaining < 0 {
		remaining = 0
	}

	return &StopResult{
		SessionID:        session.ID,
		DurationSeconds:  durationSeconds,
		RewardAmount:     reward,
		RemainingSeconds: remaining,
		MiningLevel:      session.MiningLevel,
	}, nil
}

// Collect moves pending rewards into the wallet balance.
func (s *Service) Collect(user *db.User) (collected, newBalance float64, err error) {
	return s.store.CollectRewards(user.ID)
}

// Upgrade spends wallet balance on the next mining level.
func (s *Service) Upgrade(user *db.User) (*UpgradeResult, error) {
	if user.MiningLevel >= game.MaxLevel {
		return nil, &errors.LimitExceededError{
			Limit:   "mining_level",
			Message: "Maximum mining level reached (1000)",
		}
	}

	cost := s.rules.UpgradeCost(user.MiningLevel)
	updated, err := s.store.UpgradeLevelWithBalance(user.ID, cost, s.day())
	if err != nil {
		return nil, err
	}

	return &UpgradeResult{
		OldLevel:   user.MiningLevel,
		NewLevel:   updated.MiningLevel,
		Cost:       cost,
		NewBalance: updated.WalletBalance,
	}, nil
}

// RewardsHistory returns a page of the user's reward records.
func (s *Service) RewardsHistory(userID string, page, limit int) ([]db.MiningReward, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return s.store.RewardsHistory(userID, limit, (page-1)*limit)
}
