// Package ads gates reward-granting ad views: daily view limits, the
// minimum watch time and the ten-view level-upgrade counter.
package ads

import (
	"time"

	"github.com/cointap/mining-api/internal/clock"
	"github.com/cointap/mining-api/internal/db"
	"github.com/cointap/mining-api/internal/errors"
	"github.com/cointap/mining-api/internal/game"
)

type Service struct {
	store db.Store
	rules game.Rules
	clock clock.Clock
}

func NewService(store db.Store, rules game.Rules, clk clock.Clock) *Service {
	return &Service{store: store, rules: rules, clock: clk}
}

// Eligibility reports whether a user may watch another rewarded ad today.
type Eligibility struct {
	Eligible                    bool
	DailyAdLimit                int
	AdsWatchedToday             int
	RemainingAdsToday           int
	RemainingDailyMiningSeconds int64
}

// WatchResult reports the outcome of a recorded ad view. Exactly one of
// the two reward branches is populated, selected by ForLevelUpgrade.
type WatchResult struct {
	ForLevelUpgrade bool

	// Mining-time ads
	RewardTimeSeconds      int64
	TotalMiningTimeSeconds int64

	// Level-upgrade ads
	MiningLevel             int
	LevelUpgradeAdsWatched  int
	DailyLevelUpgrades      int
	LevelUpgraded           bool
	AdsRequiredForNextLevel int
}

// Eligibility computes the user's remaining ad allowance for today.
func (s *Service) Eligibility(user *db.User) (*Eligibility, error) {
	day := s.clock.Now().Truncate(24 * time.Hour)

	watched, err := s.store.CountAdViewsOn(user.ID, day)
	if err != nil {
		return nil, err
	}

	stat, err := s.store.DailyStatFor(user.ID, day)
	if err != nil {
		return nil, err
	}

	limit := s.rules.DailyAdLimit(user.MiningLevel)
	remainingTime := s.rules.DailyMiningCap(user.MiningLevel) - stat.MiningTimeSeconds
	if remainingTime < 0 {
		remainingTime = 0
	}

	remainingAds := limit - watched
	if remainingAds < 0 {
		remainingAds = 0
	}

	return &Eligibility{
		Eligible:                    watched < limit && remainingTime > 0,
		DailyAdLimit:                limit,
		AdsWatchedToday:             watched,
		RemainingAdsToday:           remainingAds,
		RemainingDailyMiningSeconds: remainingTime,
	}, nil
}

// RecordView validates an ad view and grants its reward: mining time for
// regular ads, level-upgrade progress for upgrade ads.
func (s *Service) RecordView(user *db.User, adID string, duration int, forLevelUpgrade bool) (*WatchResult, error) {
	if duration < s.rules.AdMinDurationSeconds {
		return nil, &errors.ValidationError{
			Field:   "duration",
			Message: "Ad must be watched for at least 15 seconds",
		}
	}

	now := s.clock.Now()
	day := now.Truncate(24 * time.Hour)

	watched, err := s.store.CountAdViewsOn(user.ID, day)
	if err != nil {
		return nil, err
	}
	if watched >= s.rules.DailyAdLimit(user.MiningLevel) {
		return nil, &errors.LimitExceededError{
			Limit:   "daily_ads",
			Message: "Daily advertisement limit reached",
		}
	}

	if forLevelUpgrade {
		return s.recordUpgradeView(user, adID, duration, now)
	}
	return s.recordTimeView(user, adID, duration, now)
}

func (s *Service) recordTimeView(user *db.User, adID string, duration int, now time.Time) (*WatchResult, error) {
	day := now.Truncate(24 * time.Hour)

	stat, err := s.store.DailyStatFor(user.ID, day)
	if err != nil {
		return nil, err
	}
	if s.rules.DailyMiningCap(user.MiningLevel)-stat.MiningTimeSeconds <= 0 {
		return nil, &errors.LimitExceededError{
			Limit:   "daily_mining",
			Message: "Daily mining time limit reached",
		}
	}

	updated, err := s.store.RecordTimeAdView(db.TimeAdView{
		UserID:        user.ID,
		AdID:          adID,
		Duration:      duration,
		RewardSeconds: s.rules.AdRewardSeconds,
		ViewTime:      now,
	})
	if err != nil {
		return nil, err
	}

	return &WatchResult{
		RewardTimeSeconds:      s.rules.AdRewardSeconds,
		TotalMiningTimeSeconds: updated.MiningTimeSeconds,
	}, nil
}

func (s *Service) recordUpgradeView(user *db.User, adID string, duration int, now time.Time) (*WatchResult, error) {
	if user.MiningLevel >= game.MaxLevel {
		return nil, &errors.LimitExceededError{
			Limit:   "mining_level",
			Message: "Maximum mining level reached (1000)",
		}
	}
	if user.DailyLevelUpgrades >= s.rules.DailyUpgradeLimit {
		return nil, &errors.LimitExceededError{
			Limit:   "daily_level_upgrades",
			Message: "Daily level upgrade limit reached (3 upgrades)",
		}
	}

	view := db.UpgradeAdView{
		UserID:           user.ID,
		AdID:             adID,
		Duration:         duration,
		ViewTime:         now,
		NewAdsWatched:    user.LevelUpgradeAdsWatched + 1,
		NewLevel:         user.MiningLevel,
		NewDailyUpgrades: user.DailyLevelUpgrades,
		OldLevel:         user.MiningLevel,
		Day:              now.Truncate(24 * time.Hour),
	}

	if view.NewAdsWatched >= s.rules.UpgradeAdsRequired {
		view.NewLevel = user.MiningLevel + 1
		view.NewAdsWatched = 0
		view.NewDailyUpgrades = user.DailyLevelUpgrades + 1
		view.LeveledUp = true
	}

	updated, err := s.store.RecordUpgradeAdView(view)
	if err != nil {
		return nil, err
	}

	return &WatchResult{
		ForLevelUpgrade:         true,
		MiningLevel:             updated.MiningLevel,
		LevelUpgradeAdsWatched:  updated.LevelUpgradeAdsWatched,
		DailyLevelUpgrades:      updated.DailyLevelUpgrades,
		LevelUpgraded:           view.LeveledUp,
		AdsRequiredForNextLevel: s.rules.UpgradeAdsRequired - updated.LevelUpgradeAdsWatched,
	}, nil
}

// History returns a page of the user's ad views.
func (s *Service) History(userID string, page, limit int) ([]db.AdView, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return s.store.AdHistory(userID, limit, (page-1)*limit)
}
