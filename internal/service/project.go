package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rehanisg222/deploymentcrm/internal/access"
	"github.com/rehanisg222/deploymentcrm/internal/activity"
	"github.com/rehanisg222/deploymentcrm/internal/model"
	"github.com/rehanisg222/deploymentcrm/internal/repository"
)

// ProjectStore persists projects.
type ProjectStore interface {
	List(ctx context.Context, f repository.ProjectFilter) ([]model.Project, error)
	GetByID(ctx context.Context, id uint64) (*model.Project, error)
	Create(ctx context.Context, p *model.Project) error
	Update(ctx context.Context, id uint64, changes []repository.Change) error
	Delete(ctx context.Context, id uint64) error
}

// ProjectQuery carries the raw query-string filters of a listing.
type ProjectQuery struct {
	Search string
	Type   string
	Status string
	Limit  string
	Offset string
}

// ProjectInput is a create or replace request body.
type ProjectInput struct {
	Name        Field `json:"name"`
	Type        Field `json:"type"`
	Location    Field `json:"location"`
	Developer   Field `json:"developer"`
	Price       Field `json:"price"`
	Status      Field `json:"status"`
	Units       Field `json:"units"`
	Amenities   Field `json:"amenities"`
	Images      Field `json:"images"`
	Description Field `json:"description"`
}

const (
	defaultProjectLimit = 100
	maxProjectLimit     = 100
)

var (
	errProjectNotFound    = notFound("PROJECT_NOT_FOUND", "Project not found")
	errProjectRequired    = invalid("MISSING_REQUIRED_FIELDS", "Missing required fields")
	errInvalidUnits       = invalid("INVALID_UNITS", "units must be an array")
	errInvalidAmenities   = invalid("INVALID_AMENITIES", "amenities must be an array of strings")
	errInvalidImages      = invalid("INVALID_IMAGES", "images must be an array of strings")
	errProjectType        = enumError("INVALID_TYPE", "type", model.JoinValues(model.ProjectTypes))
	errProjectStatus      = enumError("INVALID_STATUS", "status", model.JoinValues(model.ProjectStatuses))
	errInvalidDescription = invalid("INVALID_DESCRIPTION", "description must be a string")
)

// ProjectService manages the project catalogue.  Every operation is
// admin-only; mutations are written to the activity log.
type ProjectService struct {
	store    ProjectStore
	activity ActivityLogger
	now      func() time.Time
}

func NewProjectService(store ProjectStore, log ActivityLogger) *ProjectService {
	return &ProjectService{store: store, activity: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *ProjectService) List(ctx context.Context, p access.Principal, q ProjectQuery) ([]model.Project, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	return s.store.List(ctx, repository.ProjectFilter{
		Search: strings.TrimSpace(q.Search),
		Type:   q.Type,
		Status: q.Status,
		Limit:  pageLimit(q.Limit, defaultProjectLimit, maxProjectLimit),
		Offset: pageOffset(q.Offset),
	})
}

func (s *ProjectService) Get(ctx context.Context, p access.Principal, id uint64) (*model.Project, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	return s.load(ctx, id)
}

// Create validates in and inserts a project with status planning unless
// another is given.
func (s *ProjectService) Create(ctx context.Context, p access.Principal, in ProjectInput) (*model.Project, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	pr, err := buildProject(in)
	if err != nil {
		return nil, err
	}
	if pr.Status == "" {
		pr.Status = model.DefaultProjectStatus
	}
	now := s.now()
	pr.CreatedAt, pr.UpdatedAt = now, now
	if err := s.store.Create(ctx, pr); err != nil {
		return nil, err
	}

	s.activity.Log(ctx, activity.Entry{
		Action:      model.ActionCreated,
		EntityType:  model.EntityProject,
		EntityID:    pr.ID,
		EntityName:  pr.Name,
		Description: "Project created - " + pr.Name,
		Metadata:    model.ProjectCreated{Type: pr.Type, Status: pr.Status, Location: pr.Location},
		UserID:      userRef(p),
	})
	return pr, nil
}

// Update replaces the project's fields.  The required fields must be sent
// again; an absent status or description is left as stored, and absent
// units, amenities or images are cleared.
func (s *ProjectService) Update(ctx context.Context, p access.Principal, id uint64, in ProjectInput) (*model.Project, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	next, err := buildProject(in)
	if err != nil {
		return nil, err
	}
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := []repository.Change{
		{Field: "name", Value: next.Name},
		{Field: "type", Value: next.Type},
		{Field: "location", Value: next.Location},
		{Field: "developer", Value: next.Developer},
		{Field: "price", Value: next.Price},
		{Field: "units", Value: next.Units},
		{Field: "amenities", Value: next.Amenities},
		{Field: "images", Value: next.Images},
	}
	if next.Status != "" {
		changes = append(changes, repository.Change{Field: "status", Value: next.Status})
	}
	if in.Description.Set {
		changes = append(changes, repository.Change{Field: "description", Value: next.Description})
	}

	var diffs []model.FieldChange
	for _, c := range changes {
		from := projectValue(existing, c.Field)
		if to := projectValue(next, c.Field); !sameProjectValue(from, to) {
			diffs = append(diffs, model.FieldChange{Field: c.Field, From: plain(from), To: plain(to)})
		}
	}
	changes = append(changes, repository.Change{Field: "updatedAt", Value: s.now()})

	if err := s.store.Update(ctx, id, changes); err != nil {
		return nil, err
	}
	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(diffs) > 0 {
		names := make([]string, len(diffs))
		for i, d := range diffs {
			names[i] = d.Field
		}
		s.activity.Log(ctx, activity.Entry{
			Action:      model.ActionUpdated,
			EntityType:  model.EntityProject,
			EntityID:    id,
			EntityName:  updated.Name,
			Description: "Project updated - fields changed: " + strings.Join(names, ", "),
			Metadata:    model.FieldChanges{Changes: diffs},
			UserID:      userRef(p),
		})
	}
	return updated, nil
}

// Delete removes a project.  Leads that referenced it lose the link.
func (s *ProjectService) Delete(ctx context.Context, p access.Principal, id uint64) (*model.Project, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, errProjectNotFound
		}
		return nil, err
	}

	s.activity.Log(ctx, activity.Entry{
		Action:      model.ActionDeleted,
		EntityType:  model.EntityProject,
		EntityID:    id,
		EntityName:  existing.Name,
		Description: "Project deleted - " + existing.Name,
		Metadata:    model.Deletion{Reason: model.ReasonManualDeletion},
		UserID:      userRef(p),
	})
	return existing, nil
}

func (s *ProjectService) load(ctx context.Context, id uint64) (*model.Project, error) {
	pr, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrProjectNotFound) {
		return nil, errProjectNotFound
	}
	return pr, err
}

// buildProject validates a request body.  Status is left empty when the
// body does not name one.
func buildProject(in ProjectInput) (*model.Project, error) {
	name, ok1 := nonEmpty(in.Name)
	typ, ok2 := nonEmpty(in.Type)
	location, ok3 := nonEmpty(in.Location)
	developer, ok4 := nonEmpty(in.Developer)
	price, ok5 := in.Price.Text()
	price = strings.TrimSpace(price)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !in.Price.Truthy() || price == "" {
		return nil, errProjectRequired
	}
	if !model.ValidProjectType(typ) {
		return nil, errProjectType
	}
	pr := &model.Project{Name: name, Type: typ, Location: location, Developer: developer, Price: price}

	if in.Status.Set {
		st, ok := in.Status.Str()
		if !ok || !model.ValidProjectStatus(st) {
			return nil, errProjectStatus
		}
		pr.Status = st
	}
	if in.Units.Truthy() {
		var items []json.RawMessage
		if err := json.Unmarshal(in.Units.Raw, &items); err != nil || items == nil {
			return nil, errInvalidUnits
		}
		pr.Units = compactJSON(in.Units.Raw)
	}
	if in.Amenities.Truthy() {
		v, ok := in.Amenities.Strings()
		if !ok {
			return nil, errInvalidAmenities
		}
		pr.Amenities = mustJSON(v)
	}
	if in.Images.Truthy() {
		v, ok := in.Images.Strings()
		if !ok {
			return nil, errInvalidImages
		}
		pr.Images = mustJSON(v)
	}
	if in.Description.Given() {
		d, ok := in.Description.Text()
		if !ok {
			return nil, errInvalidDescription
		}
		pr.Description = &d
	}
	return pr, nil
}

// projectValue reads the current value of an API field for diffing.
func projectValue(pr *model.Project, field string) any {
	switch field {
	case "name":
		return pr.Name
	case "type":
		return pr.Type
	case "location":
		return pr.Location
	case "developer":
		return pr.Developer
	case "price":
		return pr.Price
	case "status":
		return pr.Status
	case "units":
		return pr.Units
	case "amenities":
		return pr.Amenities
	case "images":
		return pr.Images
	case "description":
		return pr.Description
	}
	return nil
}

func sameProjectValue(a, b any) bool {
	ra, okA := a.(json.RawMessage)
	rb, okB := b.(json.RawMessage)
	if okA || okB {
		return bytes.Equal(compactJSON(ra), compactJSON(rb))
	}
	return sameValue(a, b)
}

func compactJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return json.RawMessage(buf.Bytes())
}

func mustJSON(v []string) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
