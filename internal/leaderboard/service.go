// Package leaderboard projects reward history into ranked lists per
// timeframe.
package leaderboard

import (
	"fmt"
	"time"

	"github.com/cointap/mining-api/internal/clock"
	"github.com/cointap/mining-api/internal/db"
	"github.com/cointap/mining-api/internal/errors"
)

const (
	TimeframeDaily   = "daily"
	TimeframeWeekly  = "weekly"
	TimeframeMonthly = "monthly"
	TimeframeAllTime = "alltime"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Service struct {
	store db.Store
	cache *Cache
	clock clock.Clock
}

// NewService builds the aggregator. cache may be nil; reads then always
// hit the store.
func NewService(store db.Store, cache *Cache, clk clock.Clock) *Service {
	return &Service{store: store, cache: cache, clock: clk}
}

func validTimeframe(tf string) bool {
	switch tf {
	case TimeframeDaily, TimeframeWeekly, TimeframeMonthly, TimeframeAllTime:
		return true
	}
	return false
}

// Get returns the ranked list for a timeframe. A day with no activity
// yields an empty list, not an error.
func (s *Service) Get(timeframe string, limit int) ([]db.LeaderboardEntry, error) {
	if !validTimeframe(timeframe) {
		return nil, &errors.ValidationError{
			Field:   "timeframe",
			Message: "must be one of: daily, weekly, monthly, alltime",
		}
	}
	if limit < 1 || limit > MaxLimit {
		return nil, &errors.ValidationError{
			Field:   "limit",
			Message: fmt.Sprintf("must be a number between 1 and %d", MaxLimit),
		}
	}

	key := fmt.Sprintf("leaderboard:%s:%d", timeframe, limit)
	if s.cache != nil {
		if entries, ok := s.cache.Get(key); ok {
			return entries, nil
		}
	}

	day := s.clock.Now().Truncate(24 * time.Hour)

	var entries []db.LeaderboardEntry
	var err error
	switch timeframe {
	case TimeframeDaily:
		entries, err = s.store.DailyLeaderboard(day, limit)
	case TimeframeWeekly:
		entries, err = s.store.WindowLeaderboard(day.AddDate(0, 0, -7), limit)
	case TimeframeMonthly:
		entries, err = s.store.WindowLeaderboard(day.AddDate(0, 0, -30), limit)
	case TimeframeAllTime:
		entries, err = s.store.AllTimeLeaderboard(limit)
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(key, entries)
	}
	return entries, nil
}

// Rank reports the user's standing for a timeframe. Daily ranks are
// computed exactly; alltime reports the score with a nil rank, and the
// trailing-window timeframes report a nil rank without a score.
func (s *Service) Rank(userID, timeframe string) (*db.RankResult, error) {
	if !validTimeframe(timeframe) {
		return nil, &errors.ValidationError{
			Field:   "timeframe",
			Message: "must be one of: daily, weekly, monthly, alltime",
		}
	}

	switch timeframe {
	case TimeframeDaily:
		return s.store.DailyRank(userID, s.clock.Now().Truncate(24*time.Hour))
	case TimeframeAllTime:
		score, err := s.store.AllTimeScore(userID)
		if err != nil {
			return nil, err
		}
		return &db.RankResult{Score: score}, nil
	default:
		return &db.RankResult{}, nil
	}
}
