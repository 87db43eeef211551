package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"campus-store/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// SessionStore implements ports.SessionStore. Tokens are opaque random
// strings; the token itself carries no claims, Redis is the source of truth,
// so deleting the key is a hard logout.
type SessionStore struct {
	client *goredis.Client
	prefix string
}

// NewSessionStore creates a new Redis-backed session store.
func NewSessionStore(client *goredis.Client) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: "session:",
	}
}

// NewSessionToken generates a 64-hex-character opaque token.
func NewSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Save stores the session under its token with the given TTL.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+session.Token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis session save: %w", err)
	}
	return nil
}

// Get resolves a token back to its session.
// Returns nil, nil if the token is unknown or expired.
func (s *SessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, s.prefix+token).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis session get: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	session.Token = token
	return &session, nil
}

// Delete revokes a token. Deleting an unknown token is not an error.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.prefix+token).Err(); err != nil {
		return fmt.Errorf("redis session delete: %w", err)
	}
	return nil
}
