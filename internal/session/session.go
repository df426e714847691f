package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CookieName is the browser session cookie. The browser session is independent
// of the auth cookie: it exists for anonymous visitors too, so flash errors and
// pending OAuth state survive before any login completes.
const CookieName = "picboard_sid"

// FlashKey is the one-shot slot carrying serialized validation errors across
// a single redirect.
const FlashKey = "ModelErrorList"

const (
	sessionTTL = time.Hour
	pendingTTL = 10 * time.Minute
)

// Cache is the subset of the Redis client the session store needs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	GetDel(ctx context.Context, key string) ([]byte, error)
}

// PendingLogin is the state stashed between issuing an external provider
// challenge and handling its callback.
type PendingLogin struct {
	Provider  string `json:"provider"`
	ReturnURL string `json:"return_url"`
}

// Store keeps per-browser-session values in Redis.
type Store struct {
	cache Cache
}

// NewStore creates a session store over the given cache.
func NewStore(cache Cache) *Store {
	return &Store{cache: cache}
}

// Middleware guarantees the request carries a session id cookie, issuing one
// before the handler can commit the response.
func (s *Store) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := c.Cookie(CookieName); err != nil {
				cookie := &http.Cookie{
					Name:     CookieName,
					Value:    uuid.New().String(),
					Path:     "/",
					HttpOnly: true,
				}
				c.SetCookie(cookie)
				// Make the fresh id visible to this request too.
				c.Request().AddCookie(cookie)
			}
			return next(c)
		}
	}
}

// ID returns the request's session id, or the empty string if none was issued.
func ID(c echo.Context) string {
	cookie, err := c.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SaveFlash serializes the error mapping into the session's one-shot flash slot.
func (s *Store) SaveFlash(ctx context.Context, sid string, errors map[string][]string) error {
	payload, err := json.Marshal(errors)
	if err != nil {
		return fmt.Errorf("marshal flash: %w", err)
	}
	return s.cache.Set(ctx, flashCacheKey(sid), payload, sessionTTL)
}

// PopFlash consumes the flash slot, returning nil when it is empty. The slot
// is gone after the first read.
func (s *Store) PopFlash(ctx context.Context, sid string) (map[string][]string, error) {
	payload, err := s.cache.GetDel(ctx, flashCacheKey(sid))
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}
	var errors map[string][]string
	if err := json.Unmarshal(payload, &errors); err != nil {
		return nil, fmt.Errorf("unmarshal flash: %w", err)
	}
	return errors, nil
}

// SavePendingLogin records a provider challenge keyed by its opaque state value.
func (s *Store) SavePendingLogin(ctx context.Context, sid, state string, pending PendingLogin) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending login: %w", err)
	}
	return s.cache.Set(ctx, pendingCacheKey(sid, state), payload, pendingTTL)
}

// PopPendingLogin consumes the challenge state, returning nil when the state
// is unknown, expired, or belongs to another session.
func (s *Store) PopPendingLogin(ctx context.Context, sid, state string) (*PendingLogin, error) {
	payload, err := s.cache.GetDel(ctx, pendingCacheKey(sid, state))
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}
	var pending PendingLogin
	if err := json.Unmarshal(payload, &pending); err != nil {
		return nil, fmt.Errorf("unmarshal pending login: %w", err)
	}
	return &pending, nil
}

func flashCacheKey(sid string) string {
	return fmt.Sprintf("websession:%s:%s", sid, FlashKey)
}

func pendingCacheKey(sid, state string) string {
	return fmt.Sprintf("websession:%s:external_login:%s", sid, state)
}
