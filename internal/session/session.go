// Package session holds the single bearer token quill authenticates with.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKey is the persisted entry holding the bearer token.
const TokenKey = "jwt_token"

// KV is the persistence the session writes through to.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Session is the process-wide credential slot. Reads and writes are
// serialized, but a request already in flight keeps using whatever token it
// read; replacing the token does not affect it.
type Session struct {
	mu    sync.RWMutex
	kv    KV
	token string
}

// New loads any previously stored token from kv. kv may be nil for a
// memory-only session.
func New(kv KV) *Session {
	s := &Session{kv: kv}
	if kv != nil {
		if tok, ok := kv.Get(TokenKey); ok {
			s.token = strings.TrimSpace(tok)
		}
	}
	return s
}

// Token returns the stored token, or "" when none was ever stored.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the token in memory and on disk. The in-memory token is
// replaced even if persisting fails.
func (s *Session) SetToken(token string) error {
	token = strings.TrimSpace(token)
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Set(TokenKey, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

// Claims is what the header shows about the current token.
type Claims struct {
	UserID    string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Claims decodes the token payload without verifying its signature. The
// server is the only party that can verify it; this is for display only.
func (s *Session) Claims() (Claims, bool) {
	tok := s.Token()
	if tok == "" {
		return Claims{}, false
	}
	return ParseClaims(tok)
}

// ParseClaims decodes the WordPress JWT plugin payload of token.
func ParseClaims(token string) (Claims, bool) {
	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mapClaims); err != nil {
		return Claims{}, false
	}

	var c Claims
	if iss, err := mapClaims.GetIssuer(); err == nil {
		c.Issuer = iss
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if data, ok := mapClaims["data"].(map[string]any); ok {
		if user, ok := data["user"].(map[string]any); ok {
			switch id := user["id"].(type) {
			case string:
				c.UserID = id
			case float64:
				c.UserID = fmt.Sprintf("%.0f", id)
			}
		}
	}
	return c, true
}
