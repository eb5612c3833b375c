package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cointap/mining-api/internal/clock"
	"github.com/cointap/mining-api/internal/db"
	"github.com/cointap/mining-api/internal/db/mocks"
	"github.com/cointap/mining-api/internal/errors"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testDay() time.Time {
	return testNow.Truncate(24 * time.Hour)
}

func newTestService(store *mocks.Store) *Service {
	return NewService(store, nil, clock.NewFake(testNow))
}

func TestGetValidatesTimeframe(t *testing.T) {
	svc := newTestService(new(mocks.Store))

	_, err := svc.Get("hourly", 10)

	assert.IsType(t, &errors.ValidationError{}, err)
}

func TestGetValidatesLimit(t *testing.T) {
	svc := newTestService(new(mocks.Store))

	_, err := svc.Get(TimeframeDaily, 0)
	assert.IsType(t, &errors.ValidationError{}, err)

	_, err = svc.Get(TimeframeDaily, MaxLimit+1)
	assert.IsType(t, &errors.ValidationError{}, err)
}

func TestGetDaily(t *testing.T) {
	store := new(mocks.Store)
	svc := newTestService(store)

	entries := []db.LeaderboardEntry{
		{UserID: "user-2", Username: "alpha", Reward: 0.5},
		{UserID: "user-1", Username: "beta", Reward: 0.25},
	}
	store.On("DailyLeaderboard", testDay(), 10).Return(entries, nil)

	got, err := svc.Get(TimeframeDaily, 10)

	require.NoError(t, err)
	assert.Equal(t, entries, got)
	store.AssertExpectations(t)
}

func TestGetEmptyDayIsNotAnError(t *testing.T) {
	store := new(mocks.Store)
	svc := newTestService(store)

	store.On("DailyLeaderboard", testDay(), 10).Return([]db.LeaderboardEntry{}, nil)

	got, err := svc.Get(TimeframeDaily, 10)

	require.NoError(t, err)
	assert.Empty(t, got)
	store.AssertExpectations(t)
}

func TestGetWindowTimeframes(t *testing.T) {
	store := new(mocks.Store)
	svc := newTestService(store)

	store.On("WindowLeaderboard", testDay().AddDate(0, 0, -7), 10).Return([]db.LeaderboardEntry{}, nil).Once()
	store.On("WindowLeaderboard", testDay().AddDate(0, 0, -30), 10).Return([]db.LeaderboardEntry{}, nil).Once()

	_, err := svc.Get(TimeframeWeekly, 10)
	require.NoError(t, err)

	_, err = svc.Get(TimeframeMonthly, 10)
	require.NoError(t, err)

	store.AssertExpectations(t)
}

func TestGetAllTime(t *testing.T) {
	store := new(mocks.Store)
	svc := newTestService(store)

	store.On("AllTimeLeaderboard", 10).Return([]db.LeaderboardEntry{{UserID: "user-1"}}, nil)

	got, err := svc.Get(TimeframeAllTime, 10)

	require.NoError(t, err)
	assert.Len(t, got, 1)
	store.AssertExpectations(t)
}

func TestRankDaily(t *testing.T) {
	store := new(mocks.Store)
	svc := newTestService(store)

	rank := 3
	store.On("DailyRank", "user-1", testDay()).
		Return(&db.RankResult{Rank: &rank, TotalUsers: 10, Score: 0.25}, nil)

	result, err := svc.Rank("user-1", TimeframeDaily)

	require.NoError(t, err)
	require.NotNil(t, result.Rank)
	assert.Equal(t, 3, *result.Rank)
	store.AssertExpectations(t)
}

func TestRankAllTimeReportsScoreOnly(t *testing.T) {
	store := new(mocks.Store)
	svc := newTestService(store)

	store.On("AllTimeScore", "user-1").Return(1.5, nil)

	result, err := svc.Rank("user-1", TimeframeAllTime)

	require.NoError(t, err)
	assert.Nil(t, result.Rank)
	assert.Equal(t, 1.5, result.Score)
	store.AssertExpectations(t)
}

func TestRankWindowTimeframesReturnNilRank(t *testing.T) {
	svc := newTestService(new(mocks.Store))

	for _, tf := range []string{TimeframeWeekly, TimeframeMonthly} {
		result, err := svc.Rank("user-1", tf)
		require.NoError(t, err)
		assert.Nil(t, result.Rank)
	}
}

func TestRankValidatesTimeframe(t *testing.T) {
	svc := newTestService(new(mocks.Store))

	_, err := svc.Rank("user-1", "yearly")

	assert.IsType(t, &errors.ValidationError{}, err)
}
