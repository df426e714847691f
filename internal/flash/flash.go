// Package flash moves validation errors across exactly one redirect hop.
// Keep serializes a dirty error bag into the session flash slot whenever a
// handler responds with a redirect; Retrieve consumes the slot and merges it
// into the request's bag before a rendering handler runs.
package flash

import (
	"github.com/labstack/echo/v4"

	"picboard/internal/modelstate"
	"picboard/internal/session"
)

// Keep is registered globally. After the handler runs, a 3xx response with
// recorded validation errors gets those errors serialized into the flash slot
// so the page after the redirect can surface them.
func Keep(store *session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bag := modelstate.From(c)
			err := next(c)
			if err != nil {
				return err
			}

			status := c.Response().Status
			if status < 300 || status >= 400 || bag.Valid() {
				return nil
			}

			sid := session.ID(c)
			if sid == "" {
				return nil
			}
			if saveErr := store.SaveFlash(c.Request().Context(), sid, bag.Errors()); saveErr != nil {
				c.Logger().Errorf("flash: failed to keep model errors across redirect: %v", saveErr)
			}
			return nil
		}
	}
}

// Retrieve is applied to rendering routes that may be the target of a
// redirect carrying errors. The slot is single-read: a later render without a
// new redirect sees nothing.
func Retrieve(store *session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := session.ID(c)
			if sid != "" {
				errors, err := store.PopFlash(c.Request().Context(), sid)
				if err != nil {
					c.Logger().Errorf("flash: failed to retrieve model errors: %v", err)
				} else if len(errors) > 0 {
					modelstate.From(c).Merge(errors)
				}
			}
			return next(c)
		}
	}
}
