package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that rejects requests whose identity does
// not carry one of the listed roles. Admin passes every check.
func RequireRole(roles ...RoleKind) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if id.Role == RoleAdmin {
				return next(c)
			}
			for _, r := range roles {
				if id.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}

// RequireAdmin restricts a route to admin accounts.
func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(RoleAdmin)
}
