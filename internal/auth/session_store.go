package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const sessionKeyPrefix = "auth_session:"

// Cache is the subset of the Redis client the session store needs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SessionStoreInterface defines the interface for auth session storage.
type SessionStoreInterface interface {
	StoreSession(ctx context.Context, sessionID, userID, email string, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID string) (userID, email string, err error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// SessionStore keeps auth sessions in Redis so logout revokes them server-side.
type SessionStore struct {
	cache Cache
}

// Ensure SessionStore implements SessionStoreInterface
var _ SessionStoreInterface = (*SessionStore)(nil)

// NewSessionStore creates a new session store.
func NewSessionStore(cache Cache) *SessionStore {
	return &SessionStore{cache: cache}
}

// StoreSession stores a session record with TTL.
func (s *SessionStore) StoreSession(ctx context.Context, sessionID, userID, email string, ttl time.Duration) error {
	data := map[string]string{
		"user_id": userID,
		"email":   email,
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal session data: %w", err)
	}

	return s.cache.Set(ctx, sessionKeyPrefix+sessionID, payload, ttl)
}

// GetSession retrieves a session record.
func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (userID, email string, err error) {
	data, err := s.cache.Get(ctx, sessionKeyPrefix+sessionID)
	if err != nil || data == nil {
		return "", "", fmt.Errorf("session not found")
	}

	var sessionData map[string]string
	if err := json.Unmarshal(data, &sessionData); err != nil {
		return "", "", fmt.Errorf("unmarshal session data: %w", err)
	}

	return sessionData["user_id"], sessionData["email"], nil
}

// DeleteSession removes a session record.
func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	return s.cache.Delete(ctx, sessionKeyPrefix+sessionID)
}
