package ads

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cointap/mining-api/internal/clock"
	"github.com/cointap/mining-api/internal/db"
	"github.com/cointap/mining-api/internal/db/mocks"
	"github.com/cointap/mining-api/internal/errors"
	"github.com/cointap/mining-api/internal/game"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testDay() time.Time {
	return testNow.Truncate(24 * time.Hour)
}

func newTestService(store *mocks.Store) *Service {
	return NewService(store, game.DefaultRules(), clock.NewFake(testNow))
}

func testUser(level int) *db.User {
	return &db.User{
		ID:             "user-1",
		MiningLevel:    level,
		LastDailyReset: testDay(),
	}
}

func TestEligibility(t *testing.T) {
	t.Run("Fresh day is eligible", func(t *testing.T) {
		store := new(mocks.Store)
		svc := newTestService(store)

		store.On("CountAdViewsOn", "user-1", testDay()).Return(0, nil)
		store.On("DailyStatFor", "user-1", testDay()).
			Return(&db.DailyStat{UserID: "user-1", Date: testDay()}, nil)

		result, err := svc.Eligibility(testUser(1))

		require.NoError(t, err)
		assert.True(t, result.Eligible)
		assert.Equal(t, 3, result.DailyAdLimit)
		assert.Equal(t, 3, result.RemainingAdsToday)
		assert.Equal(t, int64(10800), result.RemainingDailyMiningSeconds)
		store.AssertExpectations(t)
	})

	t.Run("Ad limit consumed", func(t *testing.T) {
		store := new(mocks.Store)
		svc := newTestService(store)

		store.On("CountAdViewsOn", "user-1", testDay()).Return(3, nil)
		store.On("DailyStatFor", "user-1", testDay()).
			Return(&db.DailyStat{UserID: "user-1", Date: testDay()}, nil)

		result, err := svc.Eligibility(testUser(1))

		require.NoError(t, err)
		assert.False(t, result.Eligible)
		assert.Equal(t, 0, result.RemainingAdsToday)
		store.AssertExpectations(t)
	})

	t.Run("Mining cap consumed", func(t *testing.T) {
		store := new(mocks.Store)
		svc := newTestService(store)

		store.On("CountAdViewsOn", "user-1", testDay()).Return(0, nil)
		store.On("DailyStatFor", "user-1", testDay()).
			Return(&db.DailyStat{UserID: "user-1", Date: testDay(), MiningTimeSeconds: 10800}, nil)

		result, err := svc.Eligibility(testUser(1))

		require.NoError(t, err)
		assert.False(t, result.Eligible)
		assert.Equal(t, int64(0), result.RemainingDailyMiningSeconds)
		store.AssertExpectations(t)
	})
}

func TestRecordViewRejectsShortWatch(t *testing.T) {
	store := new(mocks.Store)
	svc := newTestService(store)

	_, err := svc.RecordView(testUser(1), "ad-1", 14, false)

	assert.IsType(t, &errors.ValidationError{}, err)
}

func TestRecordViewAcceptsMinimumWatch(t *testing.T) {
	store := new(mocks.Store)
	svc := newTestService(store)

	store.On("CountAdViewsOn", "user-1", testDay()).Return(0, nil)
	store.On("DailyStatFor", "user-1", testDay()).
		Return(&db.DailyStat{UserID: "user-1", Date: testDay()}, nil)
	store.On("RecordTimeAdView", mock.MatchedBy(func(v db.TimeAdView) bool {
		return v.UserID == "user-1" && v.Duration == 15 && v.RewardSeconds == 3600
	})).Return(&db.User{ID: "user-1", MiningLevel: 1, MiningTimeSeconds: 3600}, nil)

	result, err := svc.RecordView(testUser(1), "ad-1", 15, false)

	require.NoError(t, err)
	assert.Equal(t, int64(3600), result.RewardTimeSeconds)
	assert.Equal(t, int64(3600), result.TotalMiningTimeSeconds)
	store.AssertExpectations(t)
}

func TestRecordViewEnforcesDailyAdLimit(t *testing.T) {
	store := new(mocks.Store)
	svc := newTestService(store)

	store.On("CountAdViewsOn", "user-1", testDay()).Return(3, nil)

	_, err := svc.RecordView(testUser(1), "ad-1", 20, false)

	assert.IsType(t, &errors.LimitExceededError{}, err)
	store.AssertExpectations(t)
}

func TestRecordViewBlockedByMiningCap(t *testing.T) {
	store := new(mocks.Store)
	svc := newTestService(store)

	store.On("CountAdViewsOn", "user-1", testDay()).Return(0, nil)
	store.On("DailyStatFor", "user-1", testDay()).
		Return(&db.DailyStat{UserID: "user-1", Date: testDay(), MiningTimeSeconds: 10800}, nil)

	_, err := svc.RecordView(testUser(1), "ad-1", 20, false)

	assert.IsType(t, &errors.LimitExceededError{}, err)
	store.AssertExpectations(t)
}

func TestUpgradeAdAdvancesCounter(t *testing.T) {
	store := new(mocks.Store)
	svc := newTestService(store)

	user := testUser(2)
	user.LevelUpgradeAdsWatched = 4

	store.On("CountAdViewsOn", "user-1", testDay()).Return(0, nil)
	store.On("RecordUpgradeAdView", mock.MatchedBy(func(v db.UpgradeAdView) bool {
		return v.NewAdsWatched == 5 && v.NewLevel == 2 && !v.LeveledUp
	})).Return(&db.User{ID: "user-1", MiningLevel: 2, LevelUpgradeAdsWatched: 5}, nil)

	result, err := svc.RecordView(user, "ad-1", 20, true)

	require.NoError(t, err)
	assert.True(t, result.ForLevelUpgrade)
	assert.False(t, result.LevelUpgraded)
	assert.Equal(t, 5, result.LevelUpgradeAdsWatched)
	assert.Equal(t, 5, result.AdsRequiredForNextLevel)
	store.AssertExpectations(t)
}

func TestTenthUpgradeAdLevelsUp(t *testing.T) {
	store := new(mocks.Store)
	svc := newTestService(store)

	user := testUser(2)
	user.LevelUpgradeAdsWatched = 9

	store.On("CountAdViewsOn", "user-1", testDay()).Return(0, nil)
	store.On("RecordUpgradeAdView", mock.MatchedBy(func(v db.UpgradeAdView) bool {
		return v.LeveledUp && v.NewLevel == 3 && v.NewAdsWatched == 0 && v.NewDailyUpgrades == 1
	})).Return(&db.User{ID: "user-1", MiningLevel: 3, DailyLevelUpgrades: 1}, nil)

	result, err := svc.RecordView(user, "ad-1", 20, true)

	require.NoError(t, err)
	assert.True(t, result.LevelUpgraded)
	assert.Equal(t, 3, result.MiningLevel)
	assert.Equal(t, 1, result.DailyLevelUpgrades)
	assert.Equal(t, 10, result.AdsRequiredForNextLevel)
	store.AssertExpectations(t)
}

func TestUpgradeAdBlockedAtMaxLevel(t *testing.T) {
	store := new(mocks.Store)
	svc := newTestService(store)

	store.On("CountAdViewsOn", "user-1", testDay()).Return(0, nil)

	_, err := svc.RecordView(testUser(game.MaxLevel), "ad-1", 20, true)

	assert.IsType(t, &errors.LimitExceededError{}, err)
}

func TestUpgradeAdBlockedByDailyUpgradeLimit(t *testing.T) {
	store := new(mocks.Store)
	svc := newTestService(store)

	user := testUser(2)
	user.DailyLevelUpgrades = 3

	store.On("CountAdViewsOn", "user-1", testDay()).Return(0, nil)

	_, err := svc.RecordView(user, "ad-1", 20, true)

	assert.IsType(t, &errors.LimitExceededError{}, err)
}
