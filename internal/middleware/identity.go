package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rehanisg222/deploymentcrm/internal/access"
)

// Context keys set by the auth middleware.
const (
	KeyUserID    = "user_id"
	KeyPrincipal = "principal"
)

// UserID returns the authenticated user id set by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(KeyUserID).(uint64)
	return id, ok && id != 0
}

// PrincipalFrom returns the principal set by LoadPrincipal.
func PrincipalFrom(c echo.Context) (access.Principal, bool) {
	p, ok := c.Get(KeyPrincipal).(access.Principal)
	return p, ok
}

// callerKey identifies the caller in rate-limit and cache keys.
func callerKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
