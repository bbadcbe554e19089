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

// ProjectAPI is implemented by *service.ProjectService.
type ProjectAPI interface {
	List(ctx context.Context, p access.Principal, q service.ProjectQuery) ([]model.Project, error)
	Get(ctx context.Context, p access.Principal, id uint64) (*model.Project, error)
	Create(ctx context.Context, p access.Principal, in service.ProjectInput) (*model.Project, error)
	Update(ctx context.Context, p access.Principal, id uint64, in service.ProjectInput) (*model.Project, error)
	Delete(ctx context.Context, p access.Principal, id uint64) (*model.Project, error)
}

type ProjectHandler struct {
	Projects ProjectAPI
	Log      *zap.Logger
}

func NewProjectHandler(projects ProjectAPI, log *zap.Logger) *ProjectHandler {
	return &ProjectHandler{Projects: projects, Log: log}
}

// Get serves one project for ?id= and a filtered listing otherwise.
func (h *ProjectHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	if raw := c.QueryParam("id"); raw != "" {
		id, ok := service.ParseID(raw)
		if !ok {
			return respondError(c, h.Log, service.ErrInvalidID)
		}
		pr, err := h.Projects.Get(ctx, principal(c), id)
		if err != nil {
			return respondError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, pr)
	}
	out, err := h.Projects.List(ctx, principal(c), service.ProjectQuery{
		Search: c.QueryParam("search"),
		Type:   c.QueryParam("type"),
		Status: c.QueryParam("status"),
		Limit:  c.QueryParam("limit"),
		Offset: c.QueryParam("offset"),
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProjectHandler) Create(c echo.Context) error {
	var in service.ProjectInput
	if err := decodeBody(c, &in); err != nil {
		return respondError(c, h.Log, err)
	}
	pr, err := h.Projects.Create(c.Request().Context(), principal(c), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, pr)
}

func (h *ProjectHandler) Update(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var in service.ProjectInput
	if err := decodeBody(c, &in); err != nil {
		return respondError(c, h.Log, err)
	}
	pr, err := h.Projects.Update(c.Request().Context(), principal(c), id, in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, pr)
}

func (h *ProjectHandler) Delete(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	pr, err := h.Projects.Delete(c.Request().Context(), principal(c), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Project deleted successfully", "project": pr})
}
