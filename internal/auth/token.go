// Package auth issues and verifies the opaque signed bearer tokens the
// API uses, and validates Telegram WebApp login payloads.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cointap/mining-api/internal/clock"
	"github.com/cointap/mining-api/internal/errors"
)

// TokenManager signs and verifies bearer tokens. Tokens carry the user
// id and an expiry; the signature is HMAC-SHA256 over the payload.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewTokenManager(secret string, ttl time.Duration, clk clock.Clock) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, clock: clk}
}

// Issue creates a token for the user id, expiring after the configured TTL.
func (m *TokenManager) Issue(userID string) string {
	expiresAt := m.clock.Now().Add(m.ttl).Unix()
	payload := fmt.Sprintf("%s|%d", userID, expiresAt)
	sig := m.sign(payload)
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + base64.RawURLEncoding.EncodeToString(sig)
}

// Verify checks the signature and expiry and returns the user id.
func (m *TokenManager) Verify(token string) (string, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return "", &errors.AuthError{Reason: "malformed token"}
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", &errors.AuthError{Reason: "malformed token payload"}
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", &errors.AuthError{Reason: "malformed token signature"}
	}

	payload := string(payloadBytes)
	if !hmac.Equal(sig, m.sign(payload)) {
		return "", &errors.AuthError{Reason: "invalid token signature"}
	}

	fields := strings.SplitN(payload, "|", 2)
	if len(fields) != 2 {
		return "", &errors.AuthError{Reason: "malformed token payload"}
	}
	expiresAt, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", &errors.AuthError{Reason: "malformed token expiry"}
	}
	if m.clock.Now().Unix() >= expiresAt {
		return "", &errors.AuthError{Reason: "token expired"}
	}

	return fields[0], nil
}

func (m *TokenManager) sign(payload string) []byte {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// ExtractBearer pulls the token out of an Authorization header value.
func ExtractBearer(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
