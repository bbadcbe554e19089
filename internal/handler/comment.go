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

// CommentAPI is implemented by *service.CommentService.
type CommentAPI interface {
	List(ctx context.Context, p access.Principal, leadID uint64) ([]model.LeadComment, error)
	Add(ctx context.Context, p access.Principal, in service.CommentInput) (*model.LeadComment, error)
	Delete(ctx context.Context, p access.Principal, id uint64) error
}

type CommentHandler struct {
	Comments CommentAPI
	Log      *zap.Logger
}

func NewCommentHandler(comments CommentAPI, log *zap.Logger) *CommentHandler {
	return &CommentHandler{Comments: comments, Log: log}
}

// List serves GET /v1/lead-comments?leadId=, newest first.
func (h *CommentHandler) List(c echo.Context) error {
	leadID, err := service.RequireLeadID(c.QueryParam("leadId"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out, err := h.Comments.List(c.Request().Context(), principal(c), leadID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CommentHandler) Create(c echo.Context) error {
	var in service.CommentInput
	if err := decodeBody(c, &in); err != nil {
		return respondError(c, h.Log, err)
	}
	out, err := h.Comments.Add(c.Request().Context(), principal(c), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// Delete serves DELETE /v1/lead-comments?id=.  Unknown ids succeed.
func (h *CommentHandler) Delete(c echo.Context) error {
	id, err := service.RequireCommentID(c.QueryParam("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := h.Comments.Delete(c.Request().Context(), principal(c), id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
