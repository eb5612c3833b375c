package db

import (
	"time"

	"github.com/cointap/mining-api/internal/errors"
)

// CountAdViewsOn counts a user's ad views on a calendar day.
func (s *SQLStore) CountAdViewsOn(userID string, day time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM ad_views
		WHERE user_id = $1 AND view_time::date = $2`,
		userID, day.Format("2006-01-02")).Scan(&count)
	if err != nil {
		return 0, &errors.DatabaseError{Operation: "count ad views", Err: err}
	}
	return count, nil
}

// RecordTimeAdView stores a mining-time ad view and grants the time
// reward on the user row in one transaction.
func (s *SQLStore) RecordTimeAdView(view TimeAdView) (*User, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "begin record ad view", Err: err}
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO ad_views (user_id, ad_id, duration, for_level_upgrade, reward_time_seconds, view_time)
		VALUES ($1, $2, $3, false, $4, $5)`,
		view.UserID, view.AdID, view.Duration, view.RewardSeconds, view.ViewTime)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "insert ad view", Err: err}
	}

	row := tx.QueryRow(`
		UPDATE users
		SET mining_time_seconds = mining_time_seconds + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, view.UserID, view.RewardSeconds)
	user, err := scanUser(row)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "grant ad mining time", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &errors.DatabaseError{Operation: "commit record ad view", Err: err}
	}
	return user, nil
}

// RecordUpgradeAdView stores a level-upgrade ad view and applies the
// counter state the ad-gate computed. When the view completes a level,
// the upgrade record and daily stat are written in the same transaction.
func (s *SQLStore) RecordUpgradeAdView(view UpgradeAdView) (*User, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "begin record upgrade ad", Err: err}
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO ad_views (user_id, ad_id, duration, for_level_upgrade, reward_time_seconds, view_time)
		VALUES ($1, $2, $3, true, 0, $4)`,
		view.UserID, view.AdID, view.Duration, view.ViewTime)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "insert upgrade ad view", Err: err}
	}

	row := tx.QueryRow(`
		UPDATE users
		SET mining_level = $2, level_upgrade_ads_watched = $3, daily_level_upgrades = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		view.UserID, view.NewLevel, view.NewAdsWatched, view.NewDailyUpgrades)
	user, err := scanUser(row)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "apply upgrade ad counters", Err: err}
	}

	if view.LeveledUp {
		_, err = tx.Exec(`
			INSERT INTO level_upgrades (user_id, old_level, new_level, via_ads)
			VALUES ($1, $2, $3, true)`, view.UserID, view.OldLevel, view.NewLevel)
		if err != nil {
			return nil, &errors.DatabaseError{Operation: "record ad level upgrade", Err: err}
		}

		_, err = tx.Exec(`
			INSERT INTO daily_stats (user_id, date, level_ups)
			VALUES ($1, $2, 1)
			ON CONFLICT (user_id, date) DO UPDATE
			SET level_ups = daily_stats.level_ups + 1`,
			view.UserID, view.Day.Format("2006-01-02"))
		if err != nil {
			return nil, &errors.DatabaseError{Operation: "accumulate ad level up stat", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &errors.DatabaseError{Operation: "commit record upgrade ad", Err: err}
	}
	return user, nil
}

// AdHistory returns a page of ad views plus the total count.
func (s *SQLStore) AdHistory(userID string, limit, offset int) ([]AdView, int, error) {
	var total int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM ad_views WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, &errors.DatabaseError{Operation: "count ad views", Err: err}
	}

	rows, err := s.db.Query(`
		SELECT id, user_id, ad_id, duration, for_level_upgrade, reward_time_seconds, view_time
		FROM ad_views
		WHERE user_id = $1
		ORDER BY view_time DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, &errors.DatabaseError{Operation: "query ad views", Err: err}
	}
	defer rows.Close()

	var views []AdView
	for rows.Next() {
		var v AdView
		if err := rows.Scan(&v.ID, &v.UserID, &v.AdID, &v.Duration, &v.ForLevelUpgrade, &v.RewardTimeSeconds, &v.ViewTime); err != nil {
			return nil, 0, &errors.DatabaseError{Operation: "scan ad view", Err: err}
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &errors.DatabaseError{Operation: "iterate ad views", Err: err}
	}

	return views, total, nil
}
