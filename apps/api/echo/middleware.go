package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
)

// roleMiddleware admits principals holding one of `roles`; no roles admits any known role.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if core.RoleAllowed(claims.Role, roles...) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
