package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rehanisg222/deploymentcrm/internal/access"
	"github.com/rehanisg222/deploymentcrm/internal/activity"
	"github.com/rehanisg222/deploymentcrm/internal/model"
	"github.com/rehanisg222/deploymentcrm/internal/repository"
)

// CommentStore persists lead comments.
type CommentStore interface {
	ListByLead(ctx context.Context, leadID uint64) ([]model.LeadComment, error)
	Create(ctx context.Context, c *model.LeadComment) error
	GetByID(ctx context.Context, id uint64) (*model.LeadComment, error)
	Delete(ctx context.Context, id uint64) error
}

// LeadReader is the part of the lead store comments need.
type LeadReader interface {
	Get(ctx context.Context, scope access.Scope, id uint64) (*model.Lead, error)
}

// CommentInput is the body of an add-comment request.
type CommentInput struct {
	LeadID      Field `json:"leadId"`
	UserID      Field `json:"userId"`
	Description Field `json:"description"`
}

var (
	errMissingLeadID      = invalid("MISSING_LEAD_ID", "Lead ID is required")
	errInvalidLeadID      = invalid("INVALID_LEAD_ID", "Lead ID must be a valid integer")
	errMissingDescription = invalid("MISSING_DESCRIPTION", "Description is required")
	errEmptyDescription   = invalid("EMPTY_DESCRIPTION", "Description cannot be empty")
	errInvalidUserID      = invalid("INVALID_USER_ID", "User ID must be a valid integer")
	errMissingCommentID   = invalid("MISSING_COMMENT_ID", "Comment ID is required")
	errInvalidCommentID   = invalid("INVALID_COMMENT_ID", "Comment ID must be a valid integer")
)

// CommentService manages the free-form notes attached to leads.
type CommentService struct {
	comments CommentStore
	leads    LeadReader
	activity ActivityLogger
	now      func() time.Time
}

func NewCommentService(comments CommentStore, leads LeadReader, log ActivityLogger) *CommentService {
	return &CommentService{
		comments: comments,
		leads:    leads,
		activity: log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RequireLeadID validates the leadId query parameter.
func RequireLeadID(raw string) (uint64, error) {
	if raw == "" {
		return 0, errMissingLeadID
	}
	id, ok := parseID(raw)
	if !ok {
		return 0, errInvalidLeadID
	}
	return id, nil
}

// RequireCommentID validates the id query parameter of a delete.
func RequireCommentID(raw string) (uint64, error) {
	if raw == "" {
		return 0, errMissingCommentID
	}
	id, ok := parseID(raw)
	if !ok {
		return 0, errInvalidCommentID
	}
	return id, nil
}

// leadName resolves the display name used in comment activities.  Admins
// may reference lead ids that no longer exist and get a placeholder name;
// brokers must be able to see the lead.
func (s *CommentService) leadName(ctx context.Context, p access.Principal, leadID uint64) (string, error) {
	l, err := s.leads.Get(ctx, p.LeadScope(), leadID)
	if err == nil {
		return l.FullName(), nil
	}
	if !p.IsAdmin() {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return "", errLeadNotFound
		}
		return "", err
	}
	return fmt.Sprintf("Lead #%d", leadID), nil
}

// List returns the comments of one lead, newest first.
func (s *CommentService) List(ctx context.Context, p access.Principal, leadID uint64) ([]model.LeadComment, error) {
	if !p.IsAdmin() {
		if _, err := s.leadName(ctx, p, leadID); err != nil {
			return nil, err
		}
	}
	out, err := s.comments.ListByLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.LeadComment{}
	}
	return out, nil
}

// Add stores a comment and records a description-added activity.
func (s *CommentService) Add(ctx context.Context, p access.Principal, in CommentInput) (*model.LeadComment, error) {
	if !in.LeadID.Given() {
		return nil, errMissingLeadID
	}
	leadID, ok := in.LeadID.ID()
	if !ok {
		return nil, errInvalidLeadID
	}
	if !in.Description.Truthy() {
		return nil, errMissingDescription
	}
	raw, ok := in.Description.Str()
	if !ok {
		return nil, errMissingDescription
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, errEmptyDescription
	}

	author := userRef(p)
	if in.UserID.Given() {
		id, ok := in.UserID.ID()
		if !ok {
			return nil, errInvalidUserID
		}
		if p.IsAdmin() {
			author = &id
		}
	}

	name, err := s.leadName(ctx, p, leadID)
	if err != nil {
		return nil, err
	}

	c := &model.LeadComment{LeadID: leadID, UserID: author, Description: text, CreatedAt: s.now()}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}

	s.activity.Log(ctx, activity.Entry{
		Action:      model.ActionDescriptionAdded,
		EntityType:  model.EntityComment,
		EntityID:    c.ID,
		EntityName:  name,
		Description: "Comment added to lead - " + name,
		Metadata:    model.CommentAdded{CommentLength: len([]rune(text))},
		UserID:      author,
		LeadID:      &leadID,
	})
	return c, nil
}

// Delete removes a comment.  Deleting an unknown id succeeds and records
// nothing.
func (s *CommentService) Delete(ctx context.Context, p access.Principal, id uint64) error {
	if !p.IsAdmin() {
		return errForbidden
	}
	c, err := s.comments.GetByID(ctx, id)
	if errors.Is(err, repository.ErrCommentNotFound) {
		return s.comments.Delete(ctx, id)
	}
	if err != nil {
		return err
	}

	name, err := s.leadName(ctx, p, c.LeadID)
	if err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, id); err != nil {
		return err
	}

	leadID := c.LeadID
	s.activity.Log(ctx, activity.Entry{
		Action:      model.ActionDescriptionDeleted,
		EntityType:  model.EntityComment,
		EntityID:    id,
		EntityName:  name,
		Description: "Comment deleted from lead - " + name,
		Metadata:    model.Deletion{Reason: model.ReasonManualDeletion},
		UserID:      userRef(p),
		LeadID:      &leadID,
	})
	return nil
}
