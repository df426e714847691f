package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"picboard/internal/model"
)

// CookieName is the auth cookie holding the signed session token.
const CookieName = "picboard_auth"

// LoginPath is where anonymous requests to protected routes get redirected.
const LoginPath = "/account/login"

const principalContextKey = "principal"

// Principal identifies the authenticated user on a request.
type Principal struct {
	UserID    string
	Email     string
	SessionID string
}

// Sessions establishes and clears authenticated sessions.
type Sessions interface {
	SignIn(c echo.Context, user *model.User, persistent bool) error
	SignOut(c echo.Context) error
}

// Manager implements Sessions over a JWT cookie backed by Redis session records.
type Manager struct {
	jwtService *JWTService
	sessions   SessionStoreInterface
}

// Ensure Manager implements Sessions
var _ Sessions = (*Manager)(nil)

// NewManager creates a new session manager.
func NewManager(jwtService *JWTService, sessions SessionStoreInterface) *Manager {
	return &Manager{jwtService: jwtService, sessions: sessions}
}

// SignIn creates a session record and sets the auth cookie. Persistent
// sessions outlive the browser; non-persistent ones use a session cookie.
func (m *Manager) SignIn(c echo.Context, user *model.User, persistent bool) error {
	ttl := SessionExpiry
	if persistent {
		ttl = PersistentSessionExpiry
	}

	sessionID := uuid.New().String()
	ctx := c.Request().Context()
	if err := m.sessions.StoreSession(ctx, sessionID, user.ID, user.Email, ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	token, err := m.jwtService.GenerateSessionToken(sessionID, user.ID, user.Email, ttl)
	if err != nil {
		return fmt.Errorf("generate session token: %w", err)
	}

	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	}
	if persistent {
		cookie.MaxAge = int(ttl.Seconds())
	}
	c.SetCookie(cookie)
	return nil
}

// SignOut revokes the session record and expires the cookie.
func (m *Manager) SignOut(c echo.Context) error {
	if cookie, err := c.Cookie(CookieName); err == nil {
		if claims, err := m.jwtService.ValidateToken(cookie.Value); err == nil {
			if err := m.sessions.DeleteSession(c.Request().Context(), claims.ID); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
		}
	}

	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	return nil
}

// Required guards a route: a valid auth cookie with a live session record is
// mandatory, anonymous requests are redirected to the login page.
func (m *Manager) Required() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "cookie:" + CookieName,
		ContextKey:  principalContextKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return m.parse(c.Request().Context(), token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.Redirect(http.StatusFound, LoginPath)
		},
	})
}

// Optional resolves the current user when an auth cookie is present but lets
// anonymous requests through.
func (m *Manager) Optional() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cookie, err := c.Cookie(CookieName); err == nil {
				if principal, err := m.parse(c.Request().Context(), cookie.Value); err == nil {
					c.Set(principalContextKey, principal)
				}
			}
			return next(c)
		}
	}
}

func (m *Manager) parse(ctx context.Context, token string) (*Principal, error) {
	claims, err := m.jwtService.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	userID, email, err := m.sessions.GetSession(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if userID != claims.UserID {
		return nil, fmt.Errorf("session user mismatch")
	}

	return &Principal{UserID: userID, Email: email, SessionID: claims.ID}, nil
}

// CurrentUser returns the request principal, or nil for anonymous requests.
func CurrentUser(c echo.Context) *Principal {
	principal, _ := c.Get(principalContextKey).(*Principal)
	return principal
}

// SetCurrentUser attaches a principal to the request. Used by middleware and tests.
func SetCurrentUser(c echo.Context, principal *Principal) {
	c.Set(principalContextKey, principal)
}
