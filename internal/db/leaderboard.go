package db

import (
	"database/sql"
	"time"

	"github.com/cointap/mining-api/internal/errors"
)

// Ties are broken by user id ascending so repeated reads return a
// stable order.

// DailyLeaderboard ranks users by the given day's earned rewards.
func (s *SQLStore) DailyLeaderboard(day time.Time, limit int) ([]LeaderboardEntry, error) {
	rows, err := s.db.Query(`
		SELECT ds.user_id, u.username, u.first_name, u.last_name, u.photo_url, u.mining_level,
		       ds.rewards_earned
		FROM daily_stats ds
		JOIN users u ON u.id = ds.user_id
		WHERE ds.date = $1
		ORDER BY ds.rewards_earned DESC, ds.user_id ASC
		LIMIT $2`, day.Format("2006-01-02"), limit)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "query daily leaderboard", Err: err}
	}
	defer rows.Close()

	return scanLeaderboard(rows)
}

// WindowLeaderboard ranks users by summed rewards since a cutoff date;
// used for the weekly and monthly timeframes.
func (s *SQLStore) WindowLeaderboard(since time.Time, limit int) ([]LeaderboardEntry, error) {
	rows, err := s.db.Query(`
		SELECT ds.user_id, u.username, u.first_name, u.last_name, u.photo_url, u.mining_level,
		       SUM(ds.rewards_earned) AS total_rewards
		FROM daily_stats ds
		JOIN users u ON u.id = ds.user_id
		WHERE ds.date >= $1
		GROUP BY ds.user_id, u.username, u.first_name, u.last_name, u.photo_url, u.mining_level
		ORDER BY total_rewards DESC, ds.user_id ASC
		LIMIT $2`, since.Format("2006-01-02"), limit)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "query window leaderboard", Err: err}
	}
	defer rows.Close()

	return scanLeaderboard(rows)
}

// AllTimeLeaderboard ranks users by their summed reward history.
func (s *SQLStore) AllTimeLeaderboard(limit int) ([]LeaderboardEntry, error) {
	rows, err := s.db.Query(`
		SELECT mr.user_id, u.username, u.first_name, u.last_name, u.photo_url, u.mining_level,
		       SUM(mr.amount) AS total_rewards
		FROM mining_rewards mr
		JOIN users u ON u.id = mr.user_id
		GROUP BY mr.user_id, u.username, u.first_name, u.last_name, u.photo_url, u.mining_level
		ORDER BY total_rewards DESC, mr.user_id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "query alltime leaderboard", Err: err}
	}
	defer rows.Close()

	return scanLeaderboard(rows)
}

func scanLeaderboard(rows *sql.Rows) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.FirstName, &e.LastName, &e.PhotoURL, &e.MiningLevel, &e.Reward); err != nil {
			return nil, &errors.DatabaseError{Operation: "scan leaderboard entry", Err: err}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &errors.DatabaseError{Operation: "iterate leaderboard rows", Err: err}
	}
	return entries, nil
}

// DailyRank computes a user's standing for the given day: one plus the
// number of users with a strictly greater score. Rank is nil when the
// user has no stat row for the day.
func (s *SQLStore) DailyRank(userID string, day time.Time) (*RankResult, error) {
	date := day.Format("2006-01-02")

	var total int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM daily_stats
		WHERE date = $1 AND rewards_earned > 0`, date).Scan(&total)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "count daily participants", Err: err}
	}

	result := &RankResult{TotalUsers: total}

	var score float64
	err = s.db.QueryRow(`
		SELECT rewards_earned FROM daily_stats
		WHERE user_id = $1 AND date = $2`, userID, date).Scan(&score)
	if err != nil {
		if err == sql.ErrNoRows {
			return result, nil
		}
		return nil, &errors.DatabaseError{Operation: "read daily score", Err: err}
	}
	result.Score = score

	var higher int
	err = s.db.QueryRow(`
		SELECT COUNT(*) FROM daily_stats
		WHERE date = $1 AND rewards_earned > $2`, date, score).Scan(&higher)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "count higher ranked", Err: err}
	}

	rank := higher + 1
	result.Rank = &rank
	return result, nil
}

// AllTimeScore sums a user's reward history.
func (s *SQLStore) AllTimeScore(userID string) (float64, error) {
	var score float64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0) FROM mining_rewards
		WHERE user_id = $1`, userID).Scan(&score)
	if err != nil {
		return 0, &errors.DatabaseError{Operation: "sum alltime rewards", Err: err}
	}
	return score, nil
}

// DailyStatFor returns the user's stat row for a day, or a zero row when
// none exists yet.
func (s *SQLStore) DailyStatFor(userID string, day time.Time) (*DailyStat, error) {
	stat := &DailyStat{UserID: userID, Date: day}
	err := s.db.QueryRow(`
		SELECT mining_time_seconds, rewards_earned, level_ups
		FROM daily_stats
		WHERE user_id = $1 AND date = $2`,
		userID, day.Format("2006-01-02")).
		Scan(&stat.MiningTimeSeconds, &stat.RewardsEarned, &stat.LevelUps)
	if err != nil {
		if err == sql.ErrNoRows {
			return stat, nil
		}
		return nil, &errors.DatabaseError{Operation: "read daily stat", Err: err}
	}
	return stat, nil
}
