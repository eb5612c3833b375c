package db

import (
	"database/sql"
	"time"

	"github.com/cointap/mining-api/internal/errors"
)

// GetActiveSession returns the user's active session, or nil when idle.
func (s *SQLStore) GetActiveSession(userID string) (*MiningSession, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, start_time, end_time, mining_level, duration_hours, reward, is_active
		FROM mining_sessions
		WHERE user_id = $1 AND is_active = true
		ORDER BY start_time DESC
		LIMIT 1`, userID)

	var m MiningSession
	var end sql.NullTime
	err := row.Scan(&m.ID, &m.UserID, &m.StartTime, &end, &m.MiningLevel, &m.DurationHours, &m.Reward, &m.IsActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, &errors.DatabaseError{Operation: "get active session", Err: err}
	}
	if end.Valid {
		m.EndTime = &end.Time
	}
	return &m, nil
}

// StartSession schedules a session window on the user row and records
// the session in one transaction.
func (s *SQLStore) StartSession(userID string, start, end time.Time, level int) (*MiningSession, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "begin start session", Err: err}
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE users
		SET mining_start_time = $2, mining_end_time = $3, updated_at = NOW()
		WHERE id = $1`, userID, start, end)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "schedule session window", Err: err}
	}

	var m MiningSession
	err = tx.QueryRow(`
		INSERT INTO mining_sessions (user_id, start_time, mining_level, duration_hours, is_active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING id, user_id, start_time, mining_level, duration_hours, reward, is_active`,
		userID, start, level, end.Sub(start).Hours()).
		Scan(&m.ID, &m.UserID, &m.StartTime, &m.MiningLevel, &m.DurationHours, &m.Reward, &m.IsActive)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "create session record", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &errors.DatabaseError{Operation: "commit start session", Err: err}
	}
	return &m, nil
}

// CloseSession ends a session: closes the session row, banks the reward
// as pending on the user, records the reward row and accumulates the
// daily stat. All writes share one transaction.
func (s *SQLStore) CloseSession(close SessionClose) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &errors.DatabaseError{Operation: "begin close session", Err: err}
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE mining_sessions
		SET is_active = false, end_time = $2, duration_hours = $3, reward = $4
		WHERE id = $1`,
		close.SessionID, close.EndTime, float64(close.DurationSeconds)/3600.0, close.Reward)
	if err != nil {
		return &errors.DatabaseError{Operation: "close session record", Err: err}
	}

	_, err = tx.Exec(`
		UPDATE users
		SET pending_rewards = pending_rewards + $2,
		    mining_time_seconds = GREATEST(0, mining_time_seconds - $3),
		    mining_start_time = NULL,
		    mining_end_time = NULL,
		    updated_at = NOW()
		WHERE id = $1`,
		close.UserID, close.Reward, close.DurationSeconds)
	if err != nil {
		return &errors.DatabaseError{Operation: "settle user after session", Err: err}
	}

	_, err = tx.Exec(`
		INSERT INTO mining_rewards (user_id, session_id, amount, mining_level, duration_seconds)
		VALUES ($1, $2, $3, $4, $5)`,
		close.UserID, close.SessionID, close.Reward, close.MiningLevel, close.DurationSeconds)
	if err != nil {
		return &errors.DatabaseError{Operation: "record mining reward", Err: err}
	}

	_, err = tx.Exec(`
		INSERT INTO daily_stats (user_id, date, mining_time_seconds, rewards_earned)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, date) DO UPDATE
		SET mining_time_seconds = daily_stats.mining_time_seconds + $3,
		    rewards_earned = daily_stats.rewards_earned + $4`,
		close.UserID, close.Day.Format("2006-01-02"), close.DurationSeconds, close.Reward)
	if err != nil {
		return &errors.DatabaseError{Operation: "accumulate daily stat", Err: err}
	}

	return tx.Commit()
}

// ExpireSession closes an overrun session without granting a reward
// beyond what CloseSession banked; used by the lazy status-read expiry.
func (s *SQLStore) ExpireSession(sessionID int64, userID string, end time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &errors.DatabaseError{Operation: "begin expire session", Err: err}
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE mining_sessions
		SET is_active = false, end_time = $2
		WHERE id = $1`, sessionID, end)
	if err != nil {
		return &errors.DatabaseError{Operation: "expire session record", Err: err}
	}

	_, err = tx.Exec(`
		UPDATE users
		SET mining_start_time = NULL, mining_end_time = NULL, updated_at = NOW()
		WHERE id = $1`, userID)
	if err != nil {
		return &errors.DatabaseError{Operation: "clear session window", Err: err}
	}

	return tx.Commit()
}

// CollectRewards moves pending rewards into the wallet balance. The
// check and the move run in one transaction so no partial state is
// observable.
func (s *SQLStore) CollectRewards(userID string) (float64, float64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, &errors.DatabaseError{Operation: "begin collect rewards", Err: err}
	}
	defer tx.Rollback()

	var pending, balance float64
	err = tx.QueryRow(`
		SELECT pending_rewards, wallet_balance FROM users WHERE id = $1`, userID).
		Scan(&pending, &balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, &errors.NotFoundError{Resource: "user", Identifier: userID}
		}
		return 0, 0, &errors.DatabaseError{Operation: "read pending rewards", Err: err}
	}

	if pending <= 0 {
		return 0, 0, &errors.InsufficientError{Resource: "pending_rewards", Message: "No pending rewards to collect"}
	}

	newBalance := balance + pending
	_, err = tx.Exec(`
		UPDATE users
		SET wallet_balance = $2, pending_rewards = 0, updated_at = NOW()
		WHERE id = $1`, userID, newBalance)
	if err != nil {
		return 0, 0, &errors.DatabaseError{Operation: "collect rewards", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, &errors.DatabaseError{Operation: "commit collect rewards", Err: err}
	}
	return pending, newBalance, nil
}

// UpgradeLevelWithBalance spends wallet balance on a level increment and
// records the upgrade and the day's level-up stat.
func (s *SQLStore) UpgradeLevelWithBalance(userID string, cost float64, day time.Time) (*User, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "begin upgrade level", Err: err}
	}
	defer tx.Rollback()

	var level int
	var balance float64
	err = tx.QueryRow(`SELECT mining_level, wallet_balance FROM users WHERE id = $1`, userID).
		Scan(&level, &balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &errors.NotFoundError{Resource: "user", Identifier: userID}
		}
		return nil, &errors.DatabaseError{Operation: "read user for upgrade", Err: err}
	}

	if balance < cost {
		return nil, &errors.InsufficientError{Resource: "wallet_balance", Message: "Insufficient balance to upgrade mining level"}
	}

	row := tx.QueryRow(`
		UPDATE users
		SET mining_level = mining_level + 1, wallet_balance = wallet_balance - $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, userID, cost)
	user, err := scanUser(row)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "apply level upgrade", Err: err}
	}

	_, err = tx.Exec(`
		INSERT INTO level_upgrades (user_id, old_level, new_level, cost, via_ads)
		VALUES ($1, $2, $3, $4, false)`, userID, level, level+1, cost)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "record level upgrade", Err: err}
	}

	_, err = tx.Exec(`
		INSERT INTO daily_stats (user_id, date, level_ups)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, date) DO UPDATE
		SET level_ups = daily_stats.level_ups + 1`,
		userID, day.Format("2006-01-02"))
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "accumulate level up stat", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &errors.DatabaseError{Operation: "commit upgrade level", Err: err}
	}
	return user, nil
}

// RewardsHistory returns a page of reward records plus the total count.
func (s *SQLStore) RewardsHistory(userID string, limit, offset int) ([]MiningReward, int, error) {
	var total int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM mining_rewards WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, &errors.DatabaseError{Operation: "count mining rewards", Err: err}
	}

	rows, err := s.db.Query(`
		SELECT id, user_id, session_id, amount, mining_level, duration_seconds, created_at
		FROM mining_rewards
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, &errors.DatabaseError{Operation: "query mining rewards", Err: err}
	}
	defer rows.Close()

	var rewards []MiningReward
	for rows.Next() {
		var r MiningReward
		var sessionID sql.NullInt64
		if err := rows.Scan(&r.ID, &r.UserID, &sessionID, &r.Amount, &r.MiningLevel, &r.DurationSeconds, &r.CreatedAt); err != nil {
			return nil, 0, &errors.DatabaseError{Operation: "scan mining reward", Err: err}
		}
		if sessionID.Valid {
			r.SessionID = &sessionID.Int64
		}
		rewards = append(rewards, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &errors.DatabaseError{Operation: "iterate mining rewards", Err: err}
	}

	return rewards, total, nil
}
