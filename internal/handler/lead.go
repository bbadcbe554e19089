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

// LeadAPI is implemented by *service.LeadService.
type LeadAPI interface {
	List(ctx context.Context, p access.Principal, q service.LeadQuery) ([]model.Lead, error)
	Get(ctx context.Context, p access.Principal, id uint64, as string) (*model.Lead, error)
	Create(ctx context.Context, p access.Principal, in service.LeadInput) (*model.Lead, error)
	Update(ctx context.Context, p access.Principal, id uint64, in service.LeadInput) (*model.Lead, error)
	Delete(ctx context.Context, p access.Principal, id uint64) (*model.Lead, error)
}

type LeadHandler struct {
	Leads LeadAPI
	Log   *zap.Logger
}

func NewLeadHandler(leads LeadAPI, log *zap.Logger) *LeadHandler {
	return &LeadHandler{Leads: leads, Log: log}
}

// Get serves GET /v1/leads.  With ?id= it returns one lead, otherwise a
// filtered page.
func (h *LeadHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	p := principal(c)
	as := c.QueryParam("currentUserId")
	if raw := c.QueryParam("id"); raw != "" {
		id, ok := service.ParseID(raw)
		if !ok {
			return respondError(c, h.Log, service.ErrInvalidID)
		}
		lead, err := h.Leads.Get(ctx, p, id, as)
		if err != nil {
			return respondError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, lead)
	}
	leads, err := h.Leads.List(ctx, p, service.LeadQuery{
		Search:        c.QueryParam("search"),
		Status:        c.QueryParam("status"),
		Stage:         c.QueryParam("stage"),
		Source:        c.QueryParam("source"),
		ProjectID:     c.QueryParam("projectId"),
		Limit:         c.QueryParam("limit"),
		Offset:        c.QueryParam("offset"),
		CurrentUserID: as,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, leads)
}

func (h *LeadHandler) Create(c echo.Context) error {
	var in service.LeadInput
	if err := decodeBody(c, &in); err != nil {
		return respondError(c, h.Log, err)
	}
	lead, err := h.Leads.Create(c.Request().Context(), principal(c), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, lead)
}

// Update serves PUT /v1/leads?id=.
func (h *LeadHandler) Update(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var in service.LeadInput
	if err := decodeBody(c, &in); err != nil {
		return respondError(c, h.Log, err)
	}
	lead, err := h.Leads.Update(c.Request().Context(), principal(c), id, in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, lead)
}

func (h *LeadHandler) Delete(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	lead, err := h.Leads.Delete(c.Request().Context(), principal(c), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Lead deleted successfully", "lead": lead})
}
