package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rehanisg222/deploymentcrm/internal/config"
	"github.com/rehanisg222/deploymentcrm/internal/model"
	"github.com/rehanisg222/deploymentcrm/internal/repository"
	"github.com/rehanisg222/deploymentcrm/internal/utils"
)

// AuthUsers looks up login accounts.
type AuthUsers interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// RefreshTokens is implemented by *repository.TokenRepo.
type RefreshTokens interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler issues and revokes tokens.
type AuthHandler struct {
	Cfg    config.Config
	Users  AuthUsers
	Tokens RefreshTokens
	Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, u AuthUsers, t RefreshTokens, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: log}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Role     *string `json:"role"`
	BrokerID *uint64 `json:"brokerId"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func authError(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"error": msg, "code": code})
}

func (h *AuthHandler) accessTTL() time.Duration {
	return time.Duration(h.Cfg.AccessTTLMin) * time.Minute
}

func (h *AuthHandler) refreshTTL() time.Duration {
	return time.Duration(h.Cfg.RefreshTTLDays) * 24 * time.Hour
}

// Login verifies email and password and returns a token pair.  Unknown
// emails, wrong passwords and disabled accounts get the same answer.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return authError(c, http.StatusBadRequest, "INVALID_JSON", "Request body must be a JSON object")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return authError(c, http.StatusBadRequest, "MISSING_CREDENTIALS", "Email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		utils.BurnPasswordCheck(req.Password)
		return authError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case err != nil:
		return respondError(c, h.Log, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) || !u.IsActive {
		h.Log.Info("login rejected", zap.Uint64("user_id", u.ID), zap.Bool("active", u.IsActive))
		return authError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	}

	refresh, err := utils.NewRefreshToken(h.refreshTTL())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return respondError(c, h.Log, err)
	}
	return h.issue(c, http.StatusOK, u, refresh)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is returned.  Replaying a rotated token fails.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return authError(c, http.StatusBadRequest, "MISSING_REFRESH_TOKEN", "refresh_token is required")
	}
	oldHash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, oldHash)
	if errors.Is(err, repository.ErrRefreshInvalid) {
		return authError(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is invalid or expired")
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) || (err == nil && !u.IsActive) {
		_ = h.Tokens.RevokeAllForUser(ctx, userID)
		return authError(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is invalid or expired")
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}

	next, err := utils.NewRefreshToken(h.refreshTTL())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	err = h.Tokens.Rotate(ctx, userID, oldHash, utils.HashRefreshRaw(next.Raw), next.Exp)
	if errors.Is(err, repository.ErrRefreshInvalid) {
		return authError(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is invalid or expired")
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return h.issue(c, http.StatusOK, u, next)
}

func (h *AuthHandler) issue(c echo.Context, status int, u model.User, refresh utils.RefreshToken) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.RoleName(), h.accessTTL())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(status, authResp{
		User:    userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, BrokerID: u.BrokerID},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Logout revokes the refresh token in the body.  Without one, a valid
// bearer token revokes every session of its user.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if raw != "" {
		if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
			return respondError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	}

	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return authError(c, http.StatusBadRequest, "MISSING_REFRESH_TOKEN", "refresh_token or bearer token is required")
	}
	claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
	if err != nil {
		return authError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
	}
	uid, _ := claims.UserID()
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
