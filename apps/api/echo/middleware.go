package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shuleos/shule/core/role"
)

// privilegeMiddleware guards a route behind a required privilege. The holder
// of the permanent super role passes every guard via role.Authorize.
func privilegeMiddleware(required string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if role.Authorize(claims.RoleName, claims.Privileges, required) {
				return next(ctx)
			}
			return errHTTPForbidden
		}
	}
}

// anyPrivilegeMiddleware passes when the caller holds at least one of the
// required privileges.
func anyPrivilegeMiddleware(required ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, req := range required {
				if role.Authorize(claims.RoleName, claims.Privileges, req) {
					return next(ctx)
				}
			}
			return errHTTPForbidden
		}
	}
}
