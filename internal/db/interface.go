package db

import "time"

// Store defines the persistence operations the API needs.
type Store interface {
	// Users
	GetUserByID(id string) (*User, error)
	GetUserByTelegramID(telegramID string) (*User, error)
	CreateUser(u *User) (*User, error)
	UpdateUserIdentity(id, username, firstName, lastName, photoURL string) (*User, error)
	ResetDailyCounters(id string, day time.Time) error

	// Mining sessions
	GetActiveSession(userID string) (*MiningSession, error)
	StartSession(userID string, start, end time.Time, level int) (*MiningSession, error)
	CloseSession(close SessionClose) error
	ExpireSession(sessionID int64, userID string, end time.Time) error
	CollectRewards(userID string) (collected, newBalance float64, err error)
	UpgradeLevelWithBalance(userID string, cost float64, day time.Time) (*User, error)
	RewardsHistory(userID string, limit, offset int) ([]MiningReward, int, error)

	// Ads
	CountAdViewsOn(userID string, day time.Time) (int, error)
	RecordTimeAdView(view TimeAdView) (*User, error)
	RecordUpgradeAdView(view UpgradeAdView) (*User, error)
	AdHistory(userID string, limit, offset int) ([]AdView, int, error)

	// Stats and leaderboard
	DailyStatFor(userID string, day time.Time) (*DailyStat, error)
	DailyLeaderboard(day time.Time, limit int) ([]LeaderboardEntry, error)
	WindowLeaderboard(since time.Time, limit int) ([]LeaderboardEntry, error)
	AllTimeLeaderboard(limit int) ([]LeaderboardEntry, error)
	DailyRank(userID string, day time.Time) (*RankResult, error)
	AllTimeScore(userID string) (float64, error)

	Close() error
}
