// Package game holds the economy rules of the mining game: reward rates,
// upgrade costs and the daily caps that gate progression.
package game

import "math"

const (
	MinLevel = 1
	MaxLevel = 1000
)

// Rules carries the tunable constants of the economy. Zero values are not
// meaningful; construct with DefaultRules and override from config.
type Rules struct {
	// BaseRate is the coins-per-hour reward at level 1.
	BaseRate float64
	// RateStep is the per-level multiplier increment (0.05 = +5% per level).
	RateStep float64
	// UpgradeBaseCost and UpgradeGrowth drive the wallet-funded upgrade
	// cost curve: cost(level) = UpgradeBaseCost * UpgradeGrowth^level.
	UpgradeBaseCost float64
	UpgradeGrowth   float64
	// DailyCapBaseSeconds is the level-1 daily mining allowance.
	DailyCapBaseSeconds int64
	// DailyCapStepSeconds is added for every 10 levels above 1.
	DailyCapStepSeconds int64
	// DailyCapMaxSeconds bounds the daily allowance regardless of level.
	DailyCapMaxSeconds int64
	// AdMinDurationSeconds is the minimum watch time for an ad to count.
	AdMinDurationSeconds int
	// AdRewardSeconds is the mining time granted per ad view.
	AdRewardSeconds int64
	// AdDailyBase is the level-1 daily ad allowance; one extra view is
	// granted for every 10 levels.
	AdDailyBase int
	// UpgradeAdsRequired is the number of level-upgrade ads that earn one
	// level increment.
	UpgradeAdsRequired int
	// DailyUpgradeLimit caps ad-funded level increments per day.
	DailyUpgradeLimit int
}

// DefaultRules returns the production constants.
func DefaultRules() Rules {
	return Rules{
		BaseRate:             0.0001,
		RateStep:             0.05,
		UpgradeBaseCost:      0.001,
		UpgradeGrowth:        1.8,
		DailyCapBaseSeconds:  10800,
		DailyCapStepSeconds:  3600,
		DailyCapMaxSeconds:   43200,
		AdMinDurationSeconds: 15,
		AdRewardSeconds:      3600,
		AdDailyBase:          3,
		UpgradeAdsRequired:   10,
		DailyUpgradeLimit:    3,
	}
}

// MiningRate returns the coins-per-hour reward rate for a level.
func (r Rules) MiningRate(level int) float64 {
	if level < MinLevel {
		level = MinLevel
	}
	return r.BaseRate * (1 + r.RateStep*float64(level-1))
}

// UpgradeCost returns the wallet cost of moving from level to level+1.
func (r Rules) UpgradeCost(level int) float64 {
	return r.UpgradeBaseCost * math.Pow(r.UpgradeGrowth, float64(level))
}

// DailyMiningCap returns the per-day mining allowance in seconds for a level.
func (r Rules) DailyMiningCap(level int) int64 {
	if level < MinLevel {
		level = MinLevel
	}
	cap := r.DailyCapBaseSeconds + int64((level-1)/10)*r.DailyCapStepSeconds
	if cap > r.DailyCapMaxSeconds {
		cap = r.DailyCapMaxSeconds
	}
	return cap
}

// DailyAdLimit returns the per-day ad view allowance for a level.
func (r Rules) DailyAdLimit(level int) int {
	if level < MinLevel {
		level = MinLevel
	}
	return r.AdDailyBase + level/10
}

// Reward computes the payout for mining durationSeconds at a level.
func (r Rules) Reward(level int, durationSeconds int64) float64 {
	return r.MiningRate(level) * float64(durationSeconds) / 3600.0
}
