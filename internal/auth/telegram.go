package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/cointap/mining-api/internal/errors"
)

// TelegramUser is the user object Telegram embeds in WebApp init data.
type TelegramUser struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PhotoURL     string `json:"photo_url"`
	LanguageCode string `json:"language_code"`
}

// ValidateInitData checks the WebApp init data signature against the bot
// token. The data-check string is the sorted key=value lines excluding
// the hash field, signed with HMAC-SHA256 under a key derived from the
// bot token. An empty bot token skips verification so local setups
// without bot credentials can still log in.
func ValidateInitData(initData, botToken string) error {
	if botToken == "" {
		return nil
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return &errors.AuthError{Reason: "malformed init data"}
	}

	providedHash := values.Get("hash")
	if providedHash == "" {
		return &errors.AuthError{Reason: "init data missing hash"}
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	checkString := strings.Join(lines, "\n")

	secretMac := hmac.New(sha256.New, []byte("WebAppData"))
	secretMac.Write([]byte(botToken))
	secret := secretMac.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(providedHash)) {
		return &errors.AuthError{Reason: "init data signature mismatch"}
	}
	return nil
}

// ParseInitDataUser extracts the user object embedded in init data.
// Returns nil when no user field is present.
func ParseInitDataUser(initData string) *TelegramUser {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil
	}
	raw := values.Get("user")
	if raw == "" {
		return nil
	}
	var user TelegramUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	return &user
}
