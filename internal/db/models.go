package db

import "time"

// User is the canonical user row. Session scheduling lives on the user
// row (mining_start_time/mining_end_time) next to the bankable time
// balance in seconds; per-day upgrade counters reset lazily when
// last_daily_reset falls behind the current date.
type User struct {
	ID                     string
	TelegramID             string
	Username               string
	FirstName              string
	LastName               string
	PhotoURL               string
	LanguageCode           string
	MiningLevel            int
	WalletBalance          float64
	PendingRewards         float64
	MiningTimeSeconds      int64
	MiningStartTime        *time.Time
	MiningEndTime          *time.Time
	LevelUpgradeAdsWatched int
	DailyLevelUpgrades     int
	LastDailyReset         time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

type MiningSession struct {
	ID            int64
	UserID        string
	StartTime     time.Time
	EndTime       *time.Time
	MiningLevel   int
	DurationHours float64
	Reward        float64
	IsActive      bool
}

type MiningReward struct {
	ID              int64
	UserID          string
	SessionID       *int64
	Amount          float64
	MiningLevel     int
	DurationSeconds int64
	CreatedAt       time.Time
}

type AdView struct {
	ID                int64
	UserID            string
	AdID              string
	Duration          int
	ForLevelUpgrade   bool
	RewardTimeSeconds int64
	ViewTime          time.Time
}

type DailyStat struct {
	UserID            string
	Date              time.Time
	MiningTimeSeconds int64
	RewardsEarned     float64
	LevelUps          int
}

type LeaderboardEntry struct {
	UserID      string
	Username    string
	FirstName   string
	LastName    string
	PhotoURL    string
	MiningLevel int
	Reward      float64
}

// RankResult reports a user's standing for one timeframe. Rank is nil
// when the timeframe does not support ranking or the user has no score.
type RankResult struct {
	Rank       *int
	TotalUsers int
	Score      float64
}

// SessionClose carries everything written when a session ends: the
// session row update, the user row changes, the reward record and the
// daily stat accumulation.
type SessionClose struct {
	SessionID       int64
	UserID          string
	EndTime         time.Time
	DurationSeconds int64
	Reward          float64
	MiningLevel     int
	Day             time.Time
}

// TimeAdView carries a mining-time ad grant.
type TimeAdView struct {
	UserID        string
	AdID          string
	Duration      int
	RewardSeconds int64
	ViewTime      time.Time
}

// UpgradeAdView carries a level-upgrade ad view together with the
// counter state computed by the caller.
type UpgradeAdView struct {
	UserID           string
	AdID             string
	Duration         int
	ViewTime         time.Time
	NewAdsWatched    int
	NewLevel         int
	NewDailyUpgrades int
	LeveledUp        bool
	OldLevel         int
	Day              time.Time
}
