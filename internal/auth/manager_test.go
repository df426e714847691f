package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"picboard/internal/model"
)

// memoryCache backs the session store in tests.
type memoryCache struct {
	values map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	return m.values[key], nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.values[key] = value
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func newManager() (*Manager, *memoryCache) {
	cache := newMemoryCache()
	return NewManager(NewJWTService("test-secret"), NewSessionStore(cache)), cache
}

func signInCookie(t *testing.T, m *Manager, user *model.User, persistent bool) *http.Cookie {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/account/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.NoError(t, m.SignIn(c, user, persistent))

	res := http.Response{Header: rec.Header()}
	for _, cookie := range res.Cookies() {
		if cookie.Name == CookieName {
			return cookie
		}
	}
	t.Fatalf("auth cookie not set")
	return nil
}

func TestManager_SignInSetsValidCookie(t *testing.T) {
	m, _ := newManager()
	user := &model.User{ID: "u1", Email: "ada@example.com"}

	cookie := signInCookie(t, m, user, false)
	assert.Equal(t, 0, cookie.MaxAge, "non-persistent session uses a session cookie")

	principal, err := m.parse(context.Background(), cookie.Value)
	assert.NoError(t, err)
	assert.Equal(t, "u1", principal.UserID)
	assert.Equal(t, "ada@example.com", principal.Email)
}

func TestManager_PersistentCookieHasMaxAge(t *testing.T) {
	m, _ := newManager()
	user := &model.User{ID: "u1", Email: "ada@example.com"}

	cookie := signInCookie(t, m, user, true)
	assert.Equal(t, int(PersistentSessionExpiry.Seconds()), cookie.MaxAge)
}

func TestManager_SignOutRevokesSession(t *testing.T) {
	m, _ := newManager()
	user := &model.User{ID: "u1", Email: "ada@example.com"}
	cookie := signInCookie(t, m, user, false)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/account/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.NoError(t, m.SignOut(c))

	// The token still parses as a JWT but its session record is gone.
	_, err := m.parse(context.Background(), cookie.Value)
	assert.Error(t, err)
}

func TestManager_ParseRejectsForgedToken(t *testing.T) {
	m, _ := newManager()
	user := &model.User{ID: "u1", Email: "ada@example.com"}
	signInCookie(t, m, user, false)

	forged, err := NewJWTService("other-secret").GenerateSessionToken("sess-x", "u1", "ada@example.com", time.Hour)
	assert.NoError(t, err)

	_, err = m.parse(context.Background(), forged)
	assert.Error(t, err)
}

func TestManager_OptionalLetsAnonymousThrough(t *testing.T) {
	m, _ := newManager()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/images", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var principal *Principal
	handler := m.Optional()(func(c echo.Context) error {
		principal = CurrentUser(c)
		return c.NoContent(http.StatusOK)
	})

	assert.NoError(t, handler(c))
	assert.Nil(t, principal)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestManager_OptionalResolvesSignedInUser(t *testing.T) {
	m, _ := newManager()
	user := &model.User{ID: "u1", Email: "ada@example.com"}
	cookie := signInCookie(t, m, user, false)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/images", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var principal *Principal
	handler := m.Optional()(func(c echo.Context) error {
		principal = CurrentUser(c)
		return c.NoContent(http.StatusOK)
	})

	assert.NoError(t, handler(c))
	assert.NotNil(t, principal)
	assert.Equal(t, "u1", principal.UserID)
}
