package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rehanisg222/deploymentcrm/internal/access"
)

// PrincipalResolver loads the caller's current role and broker link.
type PrincipalResolver interface {
	Resolve(ctx context.Context, userID uint64) (access.Principal, error)
}

var forbiddenBody = echo.Map{"error": "You do not have permission to perform this action", "code": "FORBIDDEN"}

// LoadPrincipal resolves the authenticated user into an access.Principal
// on every request.  Users without a recognized role, unknown users and
// disabled accounts are refused with 403.
func LoadPrincipal(r PrincipalResolver, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := UserID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required", "code": "UNAUTHORIZED"})
			}
			p, err := r.Resolve(c.Request().Context(), id)
			switch {
			case err == nil:
			case errors.Is(err, access.ErrNoRole), errors.Is(err, access.ErrUnknownUser), errors.Is(err, access.ErrInactiveUser):
				log.Info("request refused", zap.Uint64("user_id", id), zap.Error(err))
				return c.JSON(http.StatusForbidden, forbiddenBody)
			default:
				log.Error("resolve principal", zap.Uint64("user_id", id), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"error": "Internal server error: " + err.Error(),
					"code":  "INTERNAL_ERROR",
				})
			}
			c.Set(KeyPrincipal, p)
			return next(c)
		}
	}
}

// RequireRole admits only principals holding one of roles.  It must run
// after LoadPrincipal.
func RequireRole(roles ...access.Role) echo.MiddlewareFunc {
	allowed := make(map[access.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok || !allowed[p.Role] {
				return c.JSON(http.StatusForbidden, forbiddenBody)
			}
			return next(c)
		}
	}
}
