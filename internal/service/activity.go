package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rehanisg222/deploymentcrm/internal/access"
	"github.com/rehanisg222/deploymentcrm/internal/activity"
	"github.com/rehanisg222/deploymentcrm/internal/model"
	"github.com/rehanisg222/deploymentcrm/internal/repository"
)

// ActivityReader reads the audit table.
type ActivityReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Activity, error)
	List(ctx context.Context, f repository.ActivityFilter) ([]model.Activity, error)
}

// ActivityWriter stores an activity and reports failure.
type ActivityWriter interface {
	Record(ctx context.Context, e activity.Entry) (*model.Activity, error)
}

// ActivityQuery carries the raw query-string filters of a listing.
type ActivityQuery struct {
	LeadID     string
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	Limit      string
	Offset     string
}

// ActivityInput is the body of a manual activity entry.
type ActivityInput struct {
	Action      Field `json:"action"`
	EntityType  Field `json:"entityType"`
	EntityID    Field `json:"entityId"`
	EntityName  Field `json:"entityName"`
	Description Field `json:"description"`
	Metadata    Field `json:"metadata"`
	UserID      Field `json:"userId"`
	LeadID      Field `json:"leadId"`
}

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

var errActivityNotFound = notFound(CodeNotFound, "Activity not found")

func errInvalidAction() *Error {
	return enumError("INVALID_ACTION", "action", model.JoinValues(model.Actions))
}

func errInvalidEntityType() *Error {
	return enumError("INVALID_ENTITY_TYPE", "entityType", model.JoinValues(model.EntityTypes))
}

// ActivityService exposes the audit trail to admins.
type ActivityService struct {
	store  ActivityReader
	writer ActivityWriter
}

func NewActivityService(store ActivityReader, writer ActivityWriter) *ActivityService {
	return &ActivityService{store: store, writer: writer}
}

// Get returns one activity.
func (s *ActivityService) Get(ctx context.Context, p access.Principal, id uint64) (*model.Activity, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	a, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrActivityNotFound) {
		return nil, errActivityNotFound
	}
	return a, err
}

// List returns activities newest first.  Malformed numeric filters are
// ignored; unknown action or entity type values are rejected.
func (s *ActivityService) List(ctx context.Context, p access.Principal, q ActivityQuery) ([]model.Activity, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	f := repository.ActivityFilter{
		LeadID:   optionalID(q.LeadID),
		UserID:   optionalID(q.UserID),
		EntityID: optionalID(q.EntityID),
		Limit:    pageLimit(q.Limit, defaultActivityLimit, maxActivityLimit),
		Offset:   pageOffset(q.Offset),
	}
	if q.Action != "" {
		if !model.Action(q.Action).Valid() {
			return nil, errInvalidAction()
		}
		f.Action = q.Action
	}
	if q.EntityType != "" {
		if !model.EntityType(q.EntityType).Valid() {
			return nil, errInvalidEntityType()
		}
		f.EntityType = q.EntityType
	}
	return s.store.List(ctx, f)
}

// Create records a manual activity entry.
func (s *ActivityService) Create(ctx context.Context, p access.Principal, in ActivityInput) (*model.Activity, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	e, err := activityEntry(in)
	if err != nil {
		return nil, err
	}
	return s.writer.Record(ctx, e)
}

func activityEntry(in ActivityInput) (activity.Entry, error) {
	var e activity.Entry

	action, _ := in.Action.Str()
	if !in.Action.Truthy() {
		return e, invalid("MISSING_ACTION", "Action is required")
	}
	if !model.Action(action).Valid() {
		return e, errInvalidAction()
	}
	e.Action = model.Action(action)

	entityType, _ := in.EntityType.Str()
	if !in.EntityType.Truthy() {
		return e, invalid("MISSING_ENTITY_TYPE", "EntityType is required")
	}
	if !model.EntityType(entityType).Valid() {
		return e, errInvalidEntityType()
	}
	e.EntityType = model.EntityType(entityType)

	if !in.EntityID.Given() {
		return e, invalid("MISSING_ENTITY_ID", "EntityId is required")
	}
	entityID, ok := in.EntityID.ID()
	if !ok {
		return e, invalid("INVALID_ENTITY_ID", "EntityId must be a valid integer")
	}
	e.EntityID = entityID

	desc, ok := in.Description.Str()
	if !ok || desc == "" {
		return e, invalid("MISSING_DESCRIPTION", "Description is required")
	}
	if desc = strings.TrimSpace(desc); desc == "" {
		return e, invalid("EMPTY_DESCRIPTION", "Description cannot be empty")
	}
	e.Description = desc

	if in.EntityName.Truthy() {
		e.EntityName, _ = in.EntityName.Text()
	}
	if in.Metadata.Truthy() {
		e.Metadata = model.RawMetadata(in.Metadata.Raw)
	}
	if in.UserID.Given() {
		id, ok := in.UserID.ID()
		if !ok {
			return e, invalid("INVALID_USER_ID", "Invalid userId. Must be a valid integer")
		}
		e.UserID = &id
	}
	if in.LeadID.Given() {
		id, ok := in.LeadID.ID()
		if !ok {
			return e, invalid("INVALID_LEAD_ID", "Invalid leadId. Must be a valid integer")
		}
		e.LeadID = &id
	}
	return e, nil
}

func optionalID(raw string) *uint64 {
	id, ok := parseID(raw)
	if !ok {
		return nil
	}
	return &id
}
