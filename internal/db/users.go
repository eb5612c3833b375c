package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/cointap/mining-api/internal/errors"
)

const userColumns = `id, telegram_id, username, first_name, last_name, photo_url, language_code,
		mining_level, wallet_balance, pending_rewards, mining_time_seconds,
		mining_start_time, mining_end_time, level_upgrade_ads_watched,
		daily_level_upgrades, last_daily_reset, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	var start, end sql.NullTime
	err := row.Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.PhotoURL, &u.LanguageCode,
		&u.MiningLevel, &u.WalletBalance, &u.PendingRewards, &u.MiningTimeSeconds,
		&start, &end, &u.LevelUpgradeAdsWatched,
		&u.DailyLevelUpgrades, &u.LastDailyReset, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if start.Valid {
		u.MiningStartTime = &start.Time
	}
	if end.Valid {
		u.MiningEndTime = &end.Time
	}
	return &u, nil
}

// GetUserByID retrieves a user by primary key
func (s *SQLStore) GetUserByID(id string) (*User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &errors.NotFoundError{Resource: "user", Identifier: id}
		}
		return nil, &errors.DatabaseError{Operation: "get user by id", Err: err}
	}
	return user, nil
}

// GetUserByTelegramID retrieves a user by their Telegram identifier
func (s *SQLStore) GetUserByTelegramID(telegramID string) (*User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &errors.NotFoundError{Resource: "user", Identifier: telegramID}
		}
		return nil, &errors.DatabaseError{Operation: "get user by telegram id", Err: err}
	}
	return user, nil
}

// CreateUser inserts a new user row with level 1 and empty balances.
func (s *SQLStore) CreateUser(u *User) (*User, error) {
	id := uuid.NewString()
	row := s.db.QueryRow(`
		INSERT INTO users (id, telegram_id, username, first_name, last_name, photo_url, language_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		id, u.TelegramID, u.Username, u.FirstName, u.LastName, u.PhotoURL, u.LanguageCode)
	user, err := scanUser(row)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "create user", Err: err}
	}
	return user, nil
}

// UpdateUserIdentity refreshes the profile fields Telegram sends on login.
func (s *SQLStore) UpdateUserIdentity(id, username, firstName, lastName, photoURL string) (*User, error) {
	row := s.db.QueryRow(`
		UPDATE users
		SET username = $2, first_name = $3, last_name = $4, photo_url = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, username, firstName, lastName, photoURL)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &errors.NotFoundError{Resource: "user", Identifier: id}
		}
		return nil, &errors.DatabaseError{Operation: "update user identity", Err: err}
	}
	return user, nil
}

// ResetDailyCounters zeroes the per-day upgrade counters and stamps the
// reset date. Called lazily when a request finds the stored date stale.
func (s *SQLStore) ResetDailyCounters(id string, day time.Time) error {
	_, err := s.db.Exec(`
		UPDATE users
		SET daily_level_upgrades = 0, last_daily_reset = $2, updated_at = NOW()
		WHERE id = $1`, id, day.Format("2006-01-02"))
	if err != nil {
		return &errors.DatabaseError{Operation: "reset daily counters", Err: err}
	}
	return nil
}
