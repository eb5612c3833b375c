// Package mocks provides a testify mock of db.Store for service and
// handler tests.
package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/cointap/mining-api/internal/db"
)

type Store struct {
	mock.Mock
}

func (m *Store) GetUserByID(id string) (*db.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.User), args.Error(1)
}

func (m *Store) GetUserByTelegramID(telegramID string) (*db.User, error) {
	args := m.Called(telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.User), args.Error(1)
}

func (m *Store) CreateUser(u *db.User) (*db.User, error) {
	args := m.Called(u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.User), args.Error(1)
}

func (m *Store) UpdateUserIdentity(id, username, firstName, lastName, photoURL string) (*db.User, error) {
	args := m.Called(id, username, firstName, lastName, photoURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.User), args.Error(1)
}

func (m *Store) ResetDailyCounters(id string, day time.Time) error {
	args := m.Called(id, day)
	return args.Error(0)
}

func (m *Store) GetActiveSession(userID string) (*db.MiningSession, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.MiningSession), args.Error(1)
}

func (m *Store) StartSession(userID string, start, end time.Time, level int) (*db.MiningSession, error) {
	args := m.Called(userID, start, end, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.MiningSession), args.Error(1)
}

func (m *Store) CloseSession(close db.SessionClose) error {
	args := m.Called(close)
	return args.Error(0)
}

func (m *Store) ExpireSession(sessionID int64, userID string, end time.Time) error {
	args := m.Called(sessionID, userID, end)
	return args.Error(0)
}

func (m *Store) CollectRewards(userID string) (float64, float64, error) {
	args := m.Called(userID)
	return args.Get(0).(float64), args.Get(1).(float64), args.Error(2)
}

func (m *Store) UpgradeLevelWithBalance(userID string, cost float64, day time.Time) (*db.User, error) {
	args := m.Called(userID, cost, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.User), args.Error(1)
}

func (m *Store) RewardsHistory(userID string, limit, offset int) ([]db.MiningReward, int, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]db.MiningReward), args.Int(1), args.Error(2)
}

func (m *Store) CountAdViewsOn(userID string, day time.Time) (int, error) {
	args := m.Called(userID, day)
	return args.Int(0), args.Error(1)
}

func (m *Store) RecordTimeAdView(view db.TimeAdView) (*db.User, error) {
	args := m.Called(view)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.User), args.Error(1)
}

func (m *Store) RecordUpgradeAdView(view db.UpgradeAdView) (*db.User, error) {
	args := m.Called(view)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.User), args.Error(1)
}

func (m *Store) AdHistory(userID string, limit, offset int) ([]db.AdView, int, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]db.AdView), args.Int(1), args.Error(2)
}

func (m *Store) DailyStatFor(userID string, day time.Time) (*db.DailyStat, error) {
	args := m.Called(userID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.DailyStat), args.Error(1)
}

func (m *Store) DailyLeaderboard(day time.Time, limit int) ([]db.LeaderboardEntry, error) {
	args := m.Called(day, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]db.LeaderboardEntry), args.Error(1)
}

func (m *Store) WindowLeaderboard(since time.Time, limit int) ([]db.LeaderboardEntry, error) {
	args := m.Called(since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]db.LeaderboardEntry), args.Error(1)
}

func (m *Store) AllTimeLeaderboard(limit int) ([]db.LeaderboardEntry, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]db.LeaderboardEntry), args.Error(1)
}

func (m *Store) DailyRank(userID string, day time.Time) (*db.RankResult, error) {
	args := m.Called(userID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.RankResult), args.Error(1)
}

func (m *Store) AllTimeScore(userID string) (float64, error) {
	args := m.Called(userID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *Store) Close() error {
	args := m.Called()
	return args.Error(0)
}
