package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"picboard/internal/auth"
	"picboard/internal/modelstate"
	"picboard/internal/oauth"
	"picboard/internal/service"
	"picboard/internal/session"
)

const homePath = "/images"

// AccountHandler handles registration, login, external login, and logout.
type AccountHandler struct {
	accounts  service.AccountService
	sessions  auth.Sessions
	browser   *session.Store
	providers *oauth.Registry
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(accounts service.AccountService, sessions auth.Sessions, browser *session.Store, providers *oauth.Registry) *AccountHandler {
	return &AccountHandler{
		accounts:  accounts,
		sessions:  sessions,
		browser:   browser,
		providers: providers,
	}
}

// RegisterRequest represents a registration form submission.
type RegisterRequest struct {
	FirstName       string `json:"first_name" form:"first_name" validate:"required"`
	LastName        string `json:"last_name" form:"last_name" validate:"required"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Username        string `json:"username" form:"username" validate:"required"`
	Password        string `json:"password" form:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginRequest represents a login form submission.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// FormResponse is a rendered form state: the submitted values plus the
// accumulated validation errors.
type FormResponse struct {
	Errors map[string][]string `json:"errors"`
}

// RegisterForm godoc
// @Summary Render the registration form state
// @Tags account
// @Produce json
// @Success 200 {object} FormResponse
// @Router /account/register [get]
func (h *AccountHandler) RegisterForm(c echo.Context) error {
	c.Logger().Info("[GET] Register: returning form")
	return c.JSON(http.StatusOK, FormResponse{Errors: modelstate.From(c).Errors()})
}

// Register godoc
// @Summary Register a new user
// @Tags account
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Param returnUrl query string false "Post-registration redirect"
// @Success 302
// @Failure 400 {object} FormResponse
// @Failure 500 {object} map[string]string
// @Router /account/register [post]
func (h *AccountHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	bag := modelstate.From(c)
	if err := c.Validate(&req); err != nil {
		addRegistrationErrors(bag, err)
	}
	if !bag.Valid() {
		c.Logger().Warn("[POST] Register: model contains errors, returning form")
		return c.JSON(http.StatusBadRequest, FormResponse{Errors: bag.Errors()})
	}

	user, err := h.accounts.Register(c.Request().Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
	})
	if err != nil {
		if err == service.ErrEmailTaken {
			bag.AddSummaryError(fmt.Sprintf("Email '%s' is already taken.", req.Email))
			c.Logger().Warn("[POST] Register: registration result is not succeeded, returning form")
			return c.JSON(http.StatusBadRequest, FormResponse{Errors: bag.Errors()})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to register user")
	}

	if err := h.sessions.SignIn(c, user, false); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to establish session")
	}

	c.Logger().Infof("[POST] Register: successfully registered user %s", user.Email)
	return h.redirectToLocal(c, c.QueryParam("returnUrl"))
}

// LoginForm godoc
// @Summary Render the login form state
// @Tags account
// @Produce json
// @Success 200 {object} FormResponse
// @Router /account/login [get]
func (h *AccountHandler) LoginForm(c echo.Context) error {
	c.Logger().Info("[GET] Login: returning form")
	return c.JSON(http.StatusOK, FormResponse{Errors: modelstate.From(c).Errors()})
}

// Login godoc
// @Summary Log in with local credentials
// @Tags account
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 302
// @Failure 400 {object} FormResponse
// @Failure 401 {object} FormResponse
// @Router /account/login [post]
func (h *AccountHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	bag := modelstate.From(c)
	if strings.TrimSpace(req.Email) == "" {
		bag.AddSummaryErrorForProperty("Email", "The email field is required.")
	}
	if strings.TrimSpace(req.Password) == "" {
		bag.AddSummaryErrorForProperty("Password", "The password field is required.")
	}
	if !bag.Valid() {
		c.Logger().Warn("[POST] Login: model contains errors, returning form")
		return c.JSON(http.StatusBadRequest, FormResponse{Errors: bag.Errors()})
	}

	user, err := h.accounts.FindByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if err == service.ErrUserNotFound {
			bag.AddSummaryErrorForProperty("Email", "No user found with this email.")
			c.Logger().Warn("[POST] Login: model contains errors, returning form")
			return c.JSON(http.StatusBadRequest, FormResponse{Errors: bag.Errors()})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to look up user")
	}

	result, err := h.accounts.PasswordSignIn(c.Request().Context(), user, req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to sign in")
	}

	if result.Succeeded {
		if err := h.sessions.SignIn(c, user, true); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to establish session")
		}
		c.Logger().Infof("[POST] Login: successfully executed Login for user %s, redirecting to gallery home", user.Email)
		return redirectToHome(c)
	}

	var errorMessage string
	if result.LockedOut {
		errorMessage = "Your account has been blocked due to a high number of failed login attempts."
	} else if result.RemainingTries > 3 {
		errorMessage = "Wrong password. Please try again."
	} else {
		errorMessage = fmt.Sprintf("Wrong password. Remaining tries: %d", result.RemainingTries)
	}

	bag.AddSummaryErrorForProperty("Password", errorMessage)
	c.Logger().Warnf("[POST] Login: user %s login result is not succeeded, returning form", user.Email)
	return c.JSON(http.StatusUnauthorized, FormResponse{Errors: bag.Errors()})
}

// ExternalLogin godoc
// @Summary Start an external provider login
// @Tags account
// @Param provider query string true "Provider name (Google or GitHub)"
// @Param returnUrl query string false "Post-login redirect"
// @Success 302
// @Failure 400 {object} map[string]string
// @Router /account/external [get]
func (h *AccountHandler) ExternalLogin(c echo.Context) error {
	providerName := c.QueryParam("provider")
	if strings.TrimSpace(providerName) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "provider is required")
	}

	provider, ok := h.providers.Get(providerName)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown provider")
	}

	c.Logger().Infof("[GET] ExternalLogin: executing external login request (provider: %s)", providerName)

	state := uuid.New().String()
	pending := session.PendingLogin{
		Provider:  provider.Name(),
		ReturnURL: c.QueryParam("returnUrl"),
	}
	if err := h.browser.SavePendingLogin(c.Request().Context(), session.ID(c), state, pending); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start external login")
	}

	return c.Redirect(http.StatusFound, provider.AuthCodeURL(state))
}

// ExternalLoginCallback godoc
// @Summary Handle the external provider callback
// @Tags account
// @Param state query string true "Challenge state"
// @Param code query string true "Authorization code"
// @Success 302
// @Router /account/external/callback [get]
func (h *AccountHandler) ExternalLoginCallback(c echo.Context) error {
	info, returnURL := h.externalLoginInfo(c)
	if returnURL == "" {
		returnURL = "/"
	}

	if info == nil {
		c.Logger().Warn("[GET] ExternalLoginCallback: external login failed for a third-party reason")
		return h.redirectToLoginForcibly(c, returnURL)
	}

	user, err := h.accounts.GetOrCreateExternalUser(c.Request().Context(), info)
	if err != nil {
		c.Logger().Errorf("[GET] ExternalLoginCallback: failed to resolve user for external login: %v", err)
		return h.redirectToLoginForcibly(c, returnURL)
	}

	// Failure to link is informational only.
	if err := h.accounts.AddExternalLogin(c.Request().Context(), user, info.Provider, info.Subject); err != nil {
		c.Logger().Warnf("[GET] ExternalLoginCallback: failed to add login to user %s: %v", user.Email, err)
	} else {
		c.Logger().Infof("[GET] ExternalLoginCallback: successfully added new login to user %s through external login", user.Email)
	}

	signedInUser, result, err := h.accounts.ExternalLoginSignIn(c.Request().Context(), info.Provider, info.Subject)
	if err != nil || !result.Succeeded {
		c.Logger().Warnf("[GET] ExternalLoginCallback: user %s external login result through %s is not succeeded, redirecting to login", user.Email, info.Provider)
		return h.redirectToLoginForcibly(c, returnURL)
	}

	if err := h.sessions.SignIn(c, signedInUser, false); err != nil {
		return h.redirectToLoginForcibly(c, returnURL)
	}

	c.Logger().Infof("[GET] ExternalLoginCallback: successfully logged in user %s through %s login", signedInUser.Email, info.Provider)
	return h.redirectToLocal(c, returnURL)
}

// Logout godoc
// @Summary Log out the current user
// @Tags account
// @Success 302
// @Router /account/logout [get]
func (h *AccountHandler) Logout(c echo.Context) error {
	if principal := auth.CurrentUser(c); principal != nil {
		c.Logger().Infof("[GET] Logout: signing out user %s", principal.Email)
	}
	if err := h.sessions.SignOut(c); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to sign out")
	}
	return redirectToHome(c)
}

// externalLoginInfo resolves the post-provider-redirect state: the pending
// challenge, code exchange, and claims fetch. Any failure yields nil, which
// callers treat as "the provider denied or the flow broke".
func (h *AccountHandler) externalLoginInfo(c echo.Context) (*oauth.UserInfo, string) {
	state := c.QueryParam("state")
	code := c.QueryParam("code")
	if state == "" || code == "" {
		return nil, c.QueryParam("returnUrl")
	}

	pending, err := h.browser.PopPendingLogin(c.Request().Context(), session.ID(c), state)
	if err != nil || pending == nil {
		return nil, c.QueryParam("returnUrl")
	}

	provider, ok := h.providers.Get(pending.Provider)
	if !ok {
		return nil, pending.ReturnURL
	}

	info, err := provider.FetchUser(c.Request().Context(), code)
	if err != nil {
		c.Logger().Warnf("[GET] ExternalLoginCallback: claims fetch from %s failed: %v", pending.Provider, err)
		return nil, pending.ReturnURL
	}
	return info, pending.ReturnURL
}

func (h *AccountHandler) redirectToLocal(c echo.Context, returnURL string) error {
	if isLocalURL(returnURL) {
		return c.Redirect(http.StatusFound, returnURL)
	}
	return redirectToHome(c)
}

// redirectToLoginForcibly sends the browser back to the login form with a
// summary error; the flash middleware carries it across the redirect.
func (h *AccountHandler) redirectToLoginForcibly(c echo.Context, returnURL string) error {
	modelstate.From(c).AddSummaryError("Something went wrong.")
	return c.Redirect(http.StatusFound, auth.LoginPath+"?returnUrl="+url.QueryEscape(returnURL))
}

func redirectToHome(c echo.Context) error {
	return c.Redirect(http.StatusFound, homePath)
}

// isLocalURL accepts same-origin relative paths only, rejecting
// protocol-relative and absolute targets.
func isLocalURL(u string) bool {
	if strings.TrimSpace(u) == "" {
		return false
	}
	if !strings.HasPrefix(u, "/") {
		return false
	}
	if strings.HasPrefix(u, "//") || strings.HasPrefix(u, "/\\") {
		return false
	}
	return true
}

// addRegistrationErrors translates validator failures into the per-field
// messages the registration form renders.
func addRegistrationErrors(bag *modelstate.Bag, err error) {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		bag.AddSummaryError("Invalid registration data.")
		return
	}

	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		bag.AddError(field, registrationErrorMessage(field, fieldError.Tag()))
	}
}

func registrationErrorMessage(field, tag string) string {
	switch field {
	case "FirstName":
		return "Please enter a first name."
	case "LastName":
		return "Please enter a last name."
	case "Email":
		if tag == "email" {
			return "Invalid email address."
		}
		return "Please enter an email address."
	case "Username":
		return "Please enter a username."
	case "Password":
		if tag == "min" {
			return "The password must be at least 8 characters long."
		}
		return "Please enter a password."
	case "ConfirmPassword":
		if tag == "eqfield" {
			return "Passwords do not match."
		}
		return "Please confirm your password."
	default:
		return "Invalid value."
	}
}
