package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"picboard/internal/model"
	"picboard/internal/modelstate"
	"picboard/internal/oauth"
	"picboard/internal/service"
	"picboard/internal/session"
)

// MockAccountService is a mock implementation of service.AccountService.
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Register(ctx context.Context, input service.RegisterInput) (*model.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAccountService) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAccountService) PasswordSignIn(ctx context.Context, user *model.User, password string) (service.SignInResult, error) {
	args := m.Called(ctx, user, password)
	return args.Get(0).(service.SignInResult), args.Error(1)
}

func (m *MockAccountService) GetOrCreateExternalUser(ctx context.Context, info *oauth.UserInfo) (*model.User, error) {
	args := m.Called(ctx, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAccountService) AddExternalLogin(ctx context.Context, user *model.User, provider, providerKey string) error {
	args := m.Called(ctx, user, provider, providerKey)
	return args.Error(0)
}

func (m *MockAccountService) ExternalLoginSignIn(ctx context.Context, provider, providerKey string) (*model.User, service.SignInResult, error) {
	args := m.Called(ctx, provider, providerKey)
	var user *model.User
	if args.Get(0) != nil {
		user = args.Get(0).(*model.User)
	}
	return user, args.Get(1).(service.SignInResult), args.Error(2)
}

// MockSessions is a mock implementation of auth.Sessions.
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) SignIn(c echo.Context, user *model.User, persistent bool) error {
	args := m.Called(c, user, persistent)
	return args.Error(0)
}

func (m *MockSessions) SignOut(c echo.Context) error {
	args := m.Called(c)
	return args.Error(0)
}

// memoryCache backs the browser session store in tests.
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

func (m *memoryCache) GetDel(ctx context.Context, key string) ([]byte, error) {
	value := m.values[key]
	delete(m.values, key)
	return value, nil
}

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}
	return e
}

func newRegistry() *oauth.Registry {
	return oauth.NewRegistry(oauth.Options{
		CallbackURL:        "http://localhost:8080/account/external/callback",
		GoogleClientID:     "google-id",
		GoogleClientSecret: "google-secret",
		GitHubClientID:     "github-id",
		GitHubClientSecret: "github-secret",
	})
}

func newAccountHandler(accounts service.AccountService, sessions *MockSessions, browser *session.Store) *AccountHandler {
	return NewAccountHandler(accounts, sessions, browser, newRegistry())
}

func jsonRequest(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "sid-1"})
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAccountHandler_Register(t *testing.T) {
	t.Run("blank form reports every field", func(t *testing.T) {
		e := newTestEcho()
		mockAccounts := new(MockAccountService)
		h := newAccountHandler(mockAccounts, new(MockSessions), session.NewStore(newMemoryCache()))

		c, rec := jsonRequest(e, http.MethodPost, "/account/register", `{}`)
		assert.NoError(t, h.Register(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		bag := modelstate.From(c)
		assert.Equal(t, []string{"Please enter a first name."}, bag.FieldErrors("FirstName"))
		assert.Equal(t, []string{"Please enter a last name."}, bag.FieldErrors("LastName"))
		assert.Equal(t, []string{"Please enter an email address."}, bag.FieldErrors("Email"))
		assert.Equal(t, []string{"Please enter a username."}, bag.FieldErrors("Username"))
		assert.Equal(t, []string{"Please enter a password."}, bag.FieldErrors("Password"))
		mockAccounts.AssertNotCalled(t, "Register")
	})

	t.Run("short password and mismatched confirmation", func(t *testing.T) {
		e := newTestEcho()
		mockAccounts := new(MockAccountService)
		h := newAccountHandler(mockAccounts, new(MockSessions), session.NewStore(newMemoryCache()))

		body := `{"first_name":"Ada","last_name":"Lovelace","email":"not-an-email","username":"ada","password":"short","confirm_password":"different"}`
		c, rec := jsonRequest(e, http.MethodPost, "/account/register", body)
		assert.NoError(t, h.Register(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		bag := modelstate.From(c)
		assert.Equal(t, []string{"Invalid email address."}, bag.FieldErrors("Email"))
		assert.Equal(t, []string{"The password must be at least 8 characters long."}, bag.FieldErrors("Password"))
		assert.Equal(t, []string{"Passwords do not match."}, bag.FieldErrors("ConfirmPassword"))
	})

	t.Run("taken email becomes a summary error", func(t *testing.T) {
		e := newTestEcho()
		mockAccounts := new(MockAccountService)
		mockAccounts.On("Register", mock.Anything, mock.AnythingOfType("service.RegisterInput")).
			Return(nil, service.ErrEmailTaken)
		h := newAccountHandler(mockAccounts, new(MockSessions), session.NewStore(newMemoryCache()))

		body := `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","username":"ada","password":"correct horse","confirm_password":"correct horse"}`
		c, rec := jsonRequest(e, http.MethodPost, "/account/register", body)
		assert.NoError(t, h.Register(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{"Email 'ada@example.com' is already taken."},
			modelstate.From(c).FieldErrors(modelstate.SummaryKey))
		mockAccounts.AssertExpectations(t)
	})

	t.Run("success signs in non-persistently and redirects locally", func(t *testing.T) {
		e := newTestEcho()
		user := &model.User{ID: "u1", Email: "ada@example.com"}
		mockAccounts := new(MockAccountService)
		mockAccounts.On("Register", mock.Anything, service.RegisterInput{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Username:  "ada",
			Password:  "correct horse",
		}).Return(user, nil)
		mockSessions := new(MockSessions)
		mockSessions.On("SignIn", mock.Anything, user, false).Return(nil)
		h := newAccountHandler(mockAccounts, mockSessions, session.NewStore(newMemoryCache()))

		body := `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","username":"ada","password":"correct horse","confirm_password":"correct horse"}`
		c, rec := jsonRequest(e, http.MethodPost, "/account/register?returnUrl=/images?page=2", body)
		assert.NoError(t, h.Register(c))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/images?page=2", rec.Header().Get(echo.HeaderLocation))
		mockAccounts.AssertExpectations(t)
		mockSessions.AssertExpectations(t)
	})

	t.Run("off-site return url falls back to the gallery", func(t *testing.T) {
		e := newTestEcho()
		user := &model.User{ID: "u1", Email: "ada@example.com"}
		mockAccounts := new(MockAccountService)
		mockAccounts.On("Register", mock.Anything, mock.AnythingOfType("service.RegisterInput")).Return(user, nil)
		mockSessions := new(MockSessions)
		mockSessions.On("SignIn", mock.Anything, user, false).Return(nil)
		h := newAccountHandler(mockAccounts, mockSessions, session.NewStore(newMemoryCache()))

		body := `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","username":"ada","password":"correct horse","confirm_password":"correct horse"}`
		c, rec := jsonRequest(e, http.MethodPost, "/account/register?returnUrl="+url.QueryEscape("https://evil.example/phish"), body)
		assert.NoError(t, h.Register(c))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/images", rec.Header().Get(echo.HeaderLocation))
	})
}

func TestAccountHandler_Login(t *testing.T) {
	t.Run("missing credentials report summary and field errors", func(t *testing.T) {
		e := newTestEcho()
		mockAccounts := new(MockAccountService)
		h := newAccountHandler(mockAccounts, new(MockSessions), session.NewStore(newMemoryCache()))

		c, rec := jsonRequest(e, http.MethodPost, "/account/login", `{}`)
		assert.NoError(t, h.Login(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		bag := modelstate.From(c)
		assert.Equal(t, []string{"The email field is required.", "The password field is required."},
			bag.FieldErrors(modelstate.SummaryKey))
		assert.Equal(t, []string{"The email field is required."}, bag.FieldErrors("Email"))
		assert.Equal(t, []string{"The password field is required."}, bag.FieldErrors("Password"))
		mockAccounts.AssertNotCalled(t, "FindByEmail")
	})

	t.Run("unknown email", func(t *testing.T) {
		e := newTestEcho()
		mockAccounts := new(MockAccountService)
		mockAccounts.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, service.ErrUserNotFound)
		h := newAccountHandler(mockAccounts, new(MockSessions), session.NewStore(newMemoryCache()))

		c, rec := jsonRequest(e, http.MethodPost, "/account/login", `{"email":"ghost@example.com","password":"whatever"}`)
		assert.NoError(t, h.Login(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{"No user found with this email."},
			modelstate.From(c).FieldErrors(modelstate.SummaryKey))
		mockAccounts.AssertExpectations(t)
	})

	t.Run("success signs in persistently and redirects home", func(t *testing.T) {
		e := newTestEcho()
		user := &model.User{ID: "u1", Email: "ada@example.com"}
		mockAccounts := new(MockAccountService)
		mockAccounts.On("FindByEmail", mock.Anything, "ada@example.com").Return(user, nil)
		mockAccounts.On("PasswordSignIn", mock.Anything, user, "correct horse").
			Return(service.SignInResult{Succeeded: true}, nil)
		mockSessions := new(MockSessions)
		mockSessions.On("SignIn", mock.Anything, user, true).Return(nil)
		h := newAccountHandler(mockAccounts, mockSessions, session.NewStore(newMemoryCache()))

		c, rec := jsonRequest(e, http.MethodPost, "/account/login", `{"email":"ada@example.com","password":"correct horse"}`)
		assert.NoError(t, h.Login(c))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, homePath, rec.Header().Get(echo.HeaderLocation))
		mockSessions.AssertExpectations(t)
	})

	t.Run("failure messages by remaining tries", func(t *testing.T) {
		tests := []struct {
			name    string
			result  service.SignInResult
			message string
		}{
			{
				name:    "plenty of tries left",
				result:  service.SignInResult{RemainingTries: 4},
				message: "Wrong password. Please try again.",
			},
			{
				name:    "few tries left",
				result:  service.SignInResult{RemainingTries: 3},
				message: "Wrong password. Remaining tries: 3",
			},
			{
				name:    "last try",
				result:  service.SignInResult{RemainingTries: 1},
				message: "Wrong password. Remaining tries: 1",
			},
			{
				name:    "locked out",
				result:  service.SignInResult{LockedOut: true},
				message: "Your account has been blocked due to a high number of failed login attempts.",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				e := newTestEcho()
				user := &model.User{ID: "u1", Email: "ada@example.com"}
				mockAccounts := new(MockAccountService)
				mockAccounts.On("FindByEmail", mock.Anything, "ada@example.com").Return(user, nil)
				mockAccounts.On("PasswordSignIn", mock.Anything, user, "wrong").Return(tt.result, nil)
				mockSessions := new(MockSessions)
				h := newAccountHandler(mockAccounts, mockSessions, session.NewStore(newMemoryCache()))

				c, rec := jsonRequest(e, http.MethodPost, "/account/login", `{"email":"ada@example.com","password":"wrong"}`)
				assert.NoError(t, h.Login(c))

				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				bag := modelstate.From(c)
				assert.Equal(t, []string{tt.message}, bag.FieldErrors(modelstate.SummaryKey))
				assert.Equal(t, []string{tt.message}, bag.FieldErrors("Password"))
				mockSessions.AssertNotCalled(t, "SignIn")
			})
		}
	})
}

func TestAccountHandler_ExternalLogin(t *testing.T) {
	t.Run("missing provider", func(t *testing.T) {
		e := newTestEcho()
		h := newAccountHandler(new(MockAccountService), new(MockSessions), session.NewStore(newMemoryCache()))

		c, _ := jsonRequest(e, http.MethodGet, "/account/external", "")
		err := h.ExternalLogin(c)

		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})

	t.Run("unknown provider", func(t *testing.T) {
		e := newTestEcho()
		h := newAccountHandler(new(MockAccountService), new(MockSessions), session.NewStore(newMemoryCache()))

		c, _ := jsonRequest(e, http.MethodGet, "/account/external?provider=MySpace", "")
		err := h.ExternalLogin(c)

		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})

	t.Run("known provider redirects to its consent page with pending state", func(t *testing.T) {
		e := newTestEcho()
		browser := session.NewStore(newMemoryCache())
		h := newAccountHandler(new(MockAccountService), new(MockSessions), browser)

		c, rec := jsonRequest(e, http.MethodGet, "/account/external?provider=Google&returnUrl=/images", "")
		assert.NoError(t, h.ExternalLogin(c))

		assert.Equal(t, http.StatusFound, rec.Code)
		location, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
		assert.NoError(t, err)
		assert.Equal(t, "accounts.google.com", location.Host)
		assert.Equal(t, "google-id", location.Query().Get("client_id"))

		state := location.Query().Get("state")
		assert.NotEmpty(t, state)
		pending, err := browser.PopPendingLogin(context.Background(), "sid-1", state)
		assert.NoError(t, err)
		assert.Equal(t, &session.PendingLogin{Provider: oauth.ProviderGoogle, ReturnURL: "/images"}, pending)
	})
}

func TestAccountHandler_ExternalLoginCallback(t *testing.T) {
	t.Run("missing state and code force a return to login", func(t *testing.T) {
		e := newTestEcho()
		h := newAccountHandler(new(MockAccountService), new(MockSessions), session.NewStore(newMemoryCache()))

		c, rec := jsonRequest(e, http.MethodGet, "/account/external/callback", "")
		assert.NoError(t, h.ExternalLoginCallback(c))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/account/login?returnUrl=%2F", rec.Header().Get(echo.HeaderLocation))
		assert.Equal(t, []string{"Something went wrong."},
			modelstate.From(c).FieldErrors(modelstate.SummaryKey))
	})

	t.Run("unknown challenge state forces a return to login", func(t *testing.T) {
		e := newTestEcho()
		h := newAccountHandler(new(MockAccountService), new(MockSessions), session.NewStore(newMemoryCache()))

		c, rec := jsonRequest(e, http.MethodGet, "/account/external/callback?state=forged&code=abc", "")
		assert.NoError(t, h.ExternalLoginCallback(c))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/account/login?returnUrl=%2F", rec.Header().Get(echo.HeaderLocation))
		assert.Equal(t, []string{"Something went wrong."},
			modelstate.From(c).FieldErrors(modelstate.SummaryKey))
	})
}

func TestIsLocalURL(t *testing.T) {
	tests := []struct {
		url   string
		local bool
	}{
		{"/images", true},
		{"/images?page=2", true},
		{"/", true},
		{"", false},
		{"   ", false},
		{"https://evil.example", false},
		{"//evil.example", false},
		{`/\evil.example`, false},
		{"images", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.local, isLocalURL(tt.url), "url %q", tt.url)
	}
}
