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

// ActivityAPI is implemented by *service.ActivityService.
type ActivityAPI interface {
	Get(ctx context.Context, p access.Principal, id uint64) (*model.Activity, error)
	List(ctx context.Context, p access.Principal, q service.ActivityQuery) ([]model.Activity, error)
	Create(ctx context.Context, p access.Principal, in service.ActivityInput) (*model.Activity, error)
}

type ActivityHandler struct {
	Activities ActivityAPI
	Log        *zap.Logger
}

func NewActivityHandler(activities ActivityAPI, log *zap.Logger) *ActivityHandler {
	return &ActivityHandler{Activities: activities, Log: log}
}

func (h *ActivityHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	if raw := c.QueryParam("id"); raw != "" {
		id, ok := service.ParseID(raw)
		if !ok {
			return respondError(c, h.Log, service.ErrInvalidID)
		}
		a, err := h.Activities.Get(ctx, principal(c), id)
		if err != nil {
			return respondError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, a)
	}
	out, err := h.Activities.List(ctx, principal(c), service.ActivityQuery{
		LeadID:     c.QueryParam("leadId"),
		UserID:     c.QueryParam("userId"),
		Action:     c.QueryParam("action"),
		EntityType: c.QueryParam("entityType"),
		EntityID:   c.QueryParam("entityId"),
		Limit:      c.QueryParam("limit"),
		Offset:     c.QueryParam("offset"),
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ActivityHandler) Create(c echo.Context) error {
	var in service.ActivityInput
	if err := decodeBody(c, &in); err != nil {
		return respondError(c, h.Log, err)
	}
	a, err := h.Activities.Create(c.Request().Context(), principal(c), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, a)
}
