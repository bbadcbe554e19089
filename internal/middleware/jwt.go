package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rehanisg222/deploymentcrm/internal/utils"
)

// JWTAuth validates the Bearer access token and stores the subject under
// KeyUserID.  Roles are not taken from the token; LoadPrincipal reads them
// from the database.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Missing bearer token", "code": "UNAUTHORIZED"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token", "code": "UNAUTHORIZED"})
			}
			id, _ := claims.UserID()
			c.Set(KeyUserID, id)
			return next(c)
		}
	}
}
