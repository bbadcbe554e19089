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

// BrokerAPI is implemented by *service.BrokerService.
type BrokerAPI interface {
	List(ctx context.Context, p access.Principal, q service.BrokerQuery) ([]model.Broker, error)
	Get(ctx context.Context, p access.Principal, id uint64) (*model.Broker, error)
	Create(ctx context.Context, p access.Principal, in service.BrokerInput) (*model.Broker, error)
	Update(ctx context.Context, p access.Principal, id uint64, in service.BrokerInput) (*model.Broker, error)
	Delete(ctx context.Context, p access.Principal, id uint64) (*model.Broker, error)
	Stats(ctx context.Context, p access.Principal, search string) ([]model.BrokerStats, error)
	LinkUser(ctx context.Context, p access.Principal, in service.LinkInput) (*model.User, error)
}

type BrokerHandler struct {
	Brokers BrokerAPI
	Log     *zap.Logger
}

func NewBrokerHandler(brokers BrokerAPI, log *zap.Logger) *BrokerHandler {
	return &BrokerHandler{Brokers: brokers, Log: log}
}

func (h *BrokerHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	if raw := c.QueryParam("id"); raw != "" {
		id, ok := service.ParseID(raw)
		if !ok {
			return respondError(c, h.Log, service.ErrInvalidID)
		}
		b, err := h.Brokers.Get(ctx, principal(c), id)
		if err != nil {
			return respondError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, b)
	}
	out, err := h.Brokers.List(ctx, principal(c), service.BrokerQuery{
		Search:   c.QueryParam("search"),
		Company:  c.QueryParam("company"),
		IsActive: c.QueryParam("isActive"),
		Limit:    c.QueryParam("limit"),
		Offset:   c.QueryParam("offset"),
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *BrokerHandler) Create(c echo.Context) error {
	var in service.BrokerInput
	if err := decodeBody(c, &in); err != nil {
		return respondError(c, h.Log, err)
	}
	b, err := h.Brokers.Create(c.Request().Context(), principal(c), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *BrokerHandler) Update(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var in service.BrokerInput
	if err := decodeBody(c, &in); err != nil {
		return respondError(c, h.Log, err)
	}
	b, err := h.Brokers.Update(c.Request().Context(), principal(c), id, in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BrokerHandler) Delete(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	b, err := h.Brokers.Delete(c.Request().Context(), principal(c), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Broker deleted successfully", "broker": b})
}

// Stats serves GET /v1/brokers/stats?search=.
func (h *BrokerHandler) Stats(c echo.Context) error {
	out, err := h.Brokers.Stats(c.Request().Context(), principal(c), c.QueryParam("search"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// LinkUser serves POST /v1/brokers/link-user.
func (h *BrokerHandler) LinkUser(c echo.Context) error {
	var in service.LinkInput
	if err := decodeBody(c, &in); err != nil {
		return respondError(c, h.Log, err)
	}
	u, err := h.Brokers.LinkUser(c.Request().Context(), principal(c), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "User successfully linked to broker",
		"user":    u,
	})
}
