package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"picboard/internal/auth"
	"picboard/internal/flash"
	"picboard/internal/handler"
	"picboard/internal/session"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	sessions *auth.Manager,
	browser *session.Store,
	accountHandler *handler.AccountHandler,
	imageHandler *handler.ImageHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Browser session cookie first, then the redirect-state carrier that
	// serializes validation errors whenever a handler responds with a redirect.
	e.Use(browser.Middleware())
	e.Use(flash.Keep(browser))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	account := e.Group("/account")
	account.GET("/register", accountHandler.RegisterForm)
	account.POST("/register", accountHandler.Register)
	account.GET("/login", accountHandler.LoginForm, flash.Retrieve(browser))
	account.POST("/login", accountHandler.Login)
	account.GET("/external", accountHandler.ExternalLogin)
	account.GET("/external/callback", accountHandler.ExternalLoginCallback)
	account.GET("/logout", accountHandler.Logout, sessions.Required())

	e.GET("/images", imageHandler.Home, sessions.Optional(), flash.Retrieve(browser))
	e.POST("/images", imageHandler.Upload, sessions.Required())
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
