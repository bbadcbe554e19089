package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rehanisg222/deploymentcrm/internal/access"
	"github.com/rehanisg222/deploymentcrm/internal/model"
	"github.com/rehanisg222/deploymentcrm/internal/service"
)

// UserAPI is implemented by *service.UserService.
type UserAPI interface {
	Create(ctx context.Context, p access.Principal, in service.UserInput) (*model.User, error)
	Me(ctx context.Context, p access.Principal) (*model.User, error)
}

type UserHandler struct {
	Users UserAPI
	Log   *zap.Logger
}

func NewUserHandler(users UserAPI, log *zap.Logger) *UserHandler {
	return &UserHandler{Users: users, Log: log}
}

func (h *UserHandler) Create(c echo.Context) error {
	var in service.UserInput
	if err := decodeBody(c, &in); err != nil {
		return respondError(c, h.Log, err)
	}
	u, err := h.Users.Create(c.Request().Context(), principal(c), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// Me returns the caller's account.
func (h *UserHandler) Me(c echo.Context) error {
	u, err := h.Users.Me(c.Request().Context(), principal(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}
