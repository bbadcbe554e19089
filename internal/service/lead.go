package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rehanisg222/deploymentcrm/internal/access"
	"github.com/rehanisg222/deploymentcrm/internal/activity"
	"github.com/rehanisg222/deploymentcrm/internal/model"
	"github.com/rehanisg222/deploymentcrm/internal/repository"
)

// LeadStore is the persistence the lead service needs.
type LeadStore interface {
	List(ctx context.Context, scope access.Scope, f repository.LeadFilter) ([]model.Lead, error)
	Get(ctx context.Context, scope access.Scope, id uint64) (*model.Lead, error)
	Create(ctx context.Context, l *model.Lead) error
	Update(ctx context.Context, scope access.Scope, id uint64, changes []repository.Change, now time.Time) error
	Delete(ctx context.Context, scope access.Scope, id uint64) error
}

// ActivityLogger records audit entries without failing the caller.
type ActivityLogger interface {
	Log(ctx context.Context, e activity.Entry)
}

// PrincipalResolver turns a user id into its access principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, userID uint64) (access.Principal, error)
}

// StagePolicy decides whether a lead may move between two stages.
type StagePolicy interface {
	AllowTransition(from, to string) error
}

// AnyStage permits every transition between known stages.
type AnyStage struct{}

func (AnyStage) AllowTransition(string, string) error { return nil }

// LeadInput is a create or update request body.
type LeadInput struct {
	FirstName       Field `json:"firstName"`
	LastName        Field `json:"lastName"`
	Email           Field `json:"email"`
	Phone           Field `json:"phone"`
	Source          Field `json:"source"`
	SubSource       Field `json:"subSource"`
	Status          Field `json:"status"`
	Stage           Field `json:"stage"`
	Budget          Field `json:"budget"`
	InterestedIn    Field `json:"interestedIn"`
	ProjectID       Field `json:"projectId"`
	AssignedTo      Field `json:"assignedTo"`
	BrokerID        Field `json:"brokerId"`
	Score           Field `json:"score"`
	Tags            Field `json:"tags"`
	Notes           Field `json:"notes"`
	FollowUp        Field `json:"followUp"`
	LastContactedAt Field `json:"lastContactedAt"`
	NextCallDate    Field `json:"nextCallDate"`
}

type namedField struct {
	name string
	f    Field
}

// fields lists the input in column order.
func (in *LeadInput) fields() []namedField {
	return []namedField{
		{"firstName", in.FirstName}, {"lastName", in.LastName}, {"email", in.Email},
		{"phone", in.Phone}, {"source", in.Source}, {"subSource", in.SubSource},
		{"status", in.Status}, {"stage", in.Stage}, {"budget", in.Budget},
		{"interestedIn", in.InterestedIn}, {"projectId", in.ProjectID},
		{"assignedTo", in.AssignedTo}, {"brokerId", in.BrokerID}, {"score", in.Score},
		{"tags", in.Tags}, {"notes", in.Notes}, {"followUp", in.FollowUp},
		{"lastContactedAt", in.LastContactedAt}, {"nextCallDate", in.NextCallDate},
	}
}

// LeadQuery carries the raw query-string parameters of a listing.
type LeadQuery struct {
	Search        string
	Status        string
	Stage         string
	Source        string
	ProjectID     string
	Limit         string
	Offset        string
	CurrentUserID string
}

const (
	defaultLeadLimit = 100
	maxLeadLimit     = 100
)

var (
	errLeadNotFound    = notFound(CodeNotFound, "Lead not found")
	errMissingRequired = invalid("MISSING_REQUIRED_FIELDS", "Missing required fields: firstName, lastName, email, phone, source")
	errLeadEmailExists = invalid("EMAIL_ALREADY_EXISTS", "A lead with this email already exists")
	errInvalidEmail    = invalid("INVALID_EMAIL", "Invalid email format")
	errInvalidScore    = invalid("INVALID_SCORE", "Score must be an integer between 0 and 100")
	errMissingRef      = invalid("INVALID_REFERENCE", "Referenced project, user or broker does not exist")
)

func errInvalidSource() *Error {
	return enumError("INVALID_SOURCE", "source", model.JoinValues(model.LeadSources))
}

func errInvalidStatus() *Error {
	return enumError("INVALID_STATUS", "status", model.JoinValues(model.LeadStatuses))
}

func errInvalidStage() *Error {
	return enumError("INVALID_STAGE", "stage", model.JoinValues(model.LeadStages))
}

func errInvalidRef(field string) *Error {
	return invalid("INVALID_"+codeName(field), fmt.Sprintf("%s must be a valid ID", field))
}

func errInvalidTimestamp(field string) *Error {
	return invalid("INVALID_"+codeName(field), fmt.Sprintf("%s must be a valid ISO 8601 timestamp", field))
}

// codeName turns camelCase into UPPER_SNAKE.
func codeName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// LeadService implements lead creation, update, deletion and the
// role-scoped reads.
type LeadService struct {
	store    LeadStore
	activity ActivityLogger
	resolver PrincipalResolver
	stages   StagePolicy
	now      func() time.Time
}

func NewLeadService(store LeadStore, log ActivityLogger, resolver PrincipalResolver) *LeadService {
	return &LeadService{
		store:    store,
		activity: log,
		resolver: resolver,
		stages:   AnyStage{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithStagePolicy replaces the default permissive stage policy.
func (s *LeadService) WithStagePolicy(p StagePolicy) *LeadService {
	s.stages = p
	return s
}

// viewer returns the principal whose scope a read uses.  Admins may read
// as another user; brokers always read as themselves.
func (s *LeadService) viewer(ctx context.Context, p access.Principal, as string) (access.Principal, error) {
	if as == "" || !p.IsAdmin() {
		return p, nil
	}
	id, ok := parseID(as)
	if !ok {
		return access.Principal{}, invalid("INVALID_USER_ID", "currentUserId must be a valid ID")
	}
	if id == p.UserID || s.resolver == nil {
		return p, nil
	}
	v, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, access.ErrNoRole) || errors.Is(err, access.ErrUnknownUser) || errors.Is(err, access.ErrInactiveUser) {
			return access.Principal{}, errForbidden
		}
		return access.Principal{}, err
	}
	return v, nil
}

// List returns the leads visible to the caller, newest first.
func (s *LeadService) List(ctx context.Context, p access.Principal, q LeadQuery) ([]model.Lead, error) {
	v, err := s.viewer(ctx, p, q.CurrentUserID)
	if err != nil {
		return nil, err
	}
	f := repository.LeadFilter{
		Search: strings.TrimSpace(q.Search),
		Source: q.Source,
		Limit:  pageLimit(q.Limit, defaultLeadLimit, maxLeadLimit),
		Offset: pageOffset(q.Offset),
	}
	if q.Status != "" {
		if !model.ValidStatus(q.Status) {
			return nil, errInvalidStatus()
		}
		f.Status = q.Status
	}
	if q.Stage != "" {
		if !model.ValidStage(q.Stage) {
			return nil, errInvalidStage()
		}
		f.Stage = q.Stage
	}
	if q.ProjectID != "" {
		id, ok := parseID(q.ProjectID)
		if !ok {
			return nil, errInvalidRef("projectId")
		}
		f.ProjectID = &id
	}
	return s.store.List(ctx, v.LeadScope(), f)
}

// Get returns one lead if the caller may see it.
func (s *LeadService) Get(ctx context.Context, p access.Principal, id uint64, as string) (*model.Lead, error) {
	v, err := s.viewer(ctx, p, as)
	if err != nil {
		return nil, err
	}
	l, err := s.store.Get(ctx, v.LeadScope(), id)
	if errors.Is(err, repository.ErrLeadNotFound) {
		return nil, errLeadNotFound
	}
	return l, err
}

// Create validates in and inserts a new lead.  Only admins create leads.
func (s *LeadService) Create(ctx context.Context, p access.Principal, in LeadInput) (*model.Lead, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	l, err := buildLead(in)
	if err != nil {
		return nil, err
	}
	now := s.now()
	l.CreatedAt, l.UpdatedAt = now, now
	if err := s.store.Create(ctx, l); err != nil {
		return nil, storeError(err)
	}
	if l.Tags == nil {
		l.Tags = model.Tags{}
	}

	id := l.ID
	s.activity.Log(ctx, activity.Entry{
		Action:      model.ActionCreated,
		EntityType:  model.EntityLead,
		EntityID:    l.ID,
		EntityName:  l.FullName(),
		Description: "Lead created - " + l.FullName(),
		Metadata:    model.LeadCreated{Source: l.Source, Status: l.Status, Stage: l.Stage},
		UserID:      userRef(p),
		LeadID:      &id,
	})
	return l, nil
}

func buildLead(in LeadInput) (*model.Lead, error) {
	first, ok1 := nonEmpty(in.FirstName)
	last, ok2 := nonEmpty(in.LastName)
	email, ok3 := nonEmpty(in.Email)
	phone, ok4 := nonEmpty(in.Phone)
	source, ok5 := in.Source.Str()
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || source == "" {
		return nil, errMissingRequired
	}
	if !model.ValidEmail(email) {
		return nil, errInvalidEmail
	}
	if !model.ValidSource(source) {
		return nil, errInvalidSource()
	}

	l := &model.Lead{
		FirstName: first,
		LastName:  last,
		Email:     strings.ToLower(email),
		Phone:     phone,
		Source:    source,
		Status:    model.DefaultLeadStatus,
		Stage:     model.DefaultLeadStage,
	}
	if in.Status.Set {
		v, ok := in.Status.Str()
		if !ok || !model.ValidStatus(v) {
			return nil, errInvalidStatus()
		}
		l.Status = v
	}
	if in.Stage.Set {
		v, ok := in.Stage.Str()
		if !ok || !model.ValidStage(v) {
			return nil, errInvalidStage()
		}
		l.Stage = v
	}
	if in.Score.Set {
		n, ok := validScore(in.Score)
		if !ok {
			return nil, errInvalidScore
		}
		l.Score = n
	}

	refs := []struct {
		name string
		f    Field
		dst  **uint64
	}{
		{"projectId", in.ProjectID, &l.ProjectID},
		{"assignedTo", in.AssignedTo, &l.AssignedTo},
		{"brokerId", in.BrokerID, &l.BrokerID},
	}
	for _, r := range refs {
		if !r.f.Given() {
			continue
		}
		id, ok := r.f.ID()
		if !ok {
			return nil, errInvalidRef(r.name)
		}
		*r.dst = &id
	}

	stamps := []struct {
		name string
		f    Field
		dst  **string
	}{
		{"lastContactedAt", in.LastContactedAt, &l.LastContactedAt},
		{"nextCallDate", in.NextCallDate, &l.NextCallDate},
	}
	for _, st := range stamps {
		if !st.f.Truthy() {
			continue
		}
		v, ok := st.f.Str()
		if !ok || !model.ValidISOTimestamp(v) {
			return nil, errInvalidTimestamp(st.name)
		}
		*st.dst = &v
	}

	if in.SubSource.Truthy() {
		if v, ok := in.SubSource.Text(); ok {
			v = strings.TrimSpace(v)
			l.SubSource = &v
		}
	}
	for _, t := range []struct {
		f   Field
		dst **string
	}{
		{in.Budget, &l.Budget},
		{in.InterestedIn, &l.InterestedIn},
		{in.Notes, &l.Notes},
		{in.FollowUp, &l.FollowUp},
	} {
		if !t.f.Truthy() {
			continue
		}
		if v, ok := t.f.Text(); ok {
			*t.dst = &v
		}
	}
	if in.Tags.Truthy() {
		if v, ok := in.Tags.Strings(); ok {
			l.Tags = model.Tags(v)
		}
	}
	return l, nil
}

// Update applies a partial update.  Brokers may only send the fields
// access.Principal.CanWriteLeadField allows and only on leads they own.
func (s *LeadService) Update(ctx context.Context, p access.Principal, id uint64, in LeadInput) (*model.Lead, error) {
	for _, nf := range in.fields() {
		if nf.f.Set && !p.CanWriteLeadField(nf.name) {
			return nil, forbidden(CodeFieldForbidden, fmt.Sprintf("Brokers may not change %s", nf.name))
		}
	}
	scope := p.LeadScope()
	existing, err := s.store.Get(ctx, scope, id)
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return nil, errLeadNotFound
		}
		return nil, err
	}

	changes, err := leadChanges(in)
	if err != nil {
		return nil, err
	}

	var diffs []model.FieldChange
	stageFrom, stageTo := existing.Stage, existing.Stage
	for _, c := range changes {
		switch c.Field {
		case "stage":
			stageTo = c.Value.(string)
		case "tags":
		default:
			from := leadValue(existing, c.Field)
			if !sameValue(from, c.Value) {
				diffs = append(diffs, model.FieldChange{Field: c.Field, From: from, To: plain(c.Value)})
			}
		}
	}
	if stageTo != stageFrom {
		if err := s.stages.AllowTransition(stageFrom, stageTo); err != nil {
			return nil, invalid("INVALID_STAGE_TRANSITION", err.Error())
		}
	}

	if err := s.store.Update(ctx, scope, id, changes, s.now()); err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return nil, errLeadNotFound
		}
		return nil, storeError(err)
	}
	updated, err := s.store.Get(ctx, access.Scope{Kind: access.ScopeAll}, id)
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return nil, errLeadNotFound
		}
		return nil, err
	}

	name := updated.FullName()
	leadID := updated.ID
	if stageTo != stageFrom {
		s.activity.Log(ctx, activity.Entry{
			Action:      model.ActionStageChanged,
			EntityType:  model.EntityLead,
			EntityID:    leadID,
			EntityName:  name,
			Description: fmt.Sprintf("Lead stage changed from %s to %s", stageFrom, stageTo),
			Metadata:    model.StageChange{From: stageFrom, To: stageTo},
			UserID:      userRef(p),
			LeadID:      &leadID,
		})
	}
	if len(diffs) > 0 {
		names := make([]string, len(diffs))
		for i, d := range diffs {
			names[i] = d.Field
		}
		s.activity.Log(ctx, activity.Entry{
			Action:      model.ActionUpdated,
			EntityType:  model.EntityLead,
			EntityID:    leadID,
			EntityName:  name,
			Description: "Lead updated - fields changed: " + strings.Join(names, ", "),
			Metadata:    model.FieldChanges{Changes: diffs},
			UserID:      userRef(p),
			LeadID:      &leadID,
		})
	}
	return updated, nil
}

// leadChanges validates every present field of in and returns the column
// writes in field order.
func leadChanges(in LeadInput) ([]repository.Change, error) {
	var out []repository.Change
	add := func(field string, v any) { out = append(out, repository.Change{Field: field, Value: v}) }

	for _, nf := range in.fields() {
		if !nf.f.Set {
			continue
		}
		f := nf.f
		switch nf.name {
		case "firstName", "lastName", "phone":
			v, ok := nonEmpty(f)
			if !ok {
				return nil, invalid("INVALID_"+codeName(nf.name), nf.name+" must be a non-empty string")
			}
			add(nf.name, v)
		case "email":
			v, ok := nonEmpty(f)
			if !ok || !model.ValidEmail(v) {
				return nil, errInvalidEmail
			}
			add("email", strings.ToLower(v))
		case "source":
			v, ok := f.Str()
			if !ok || !model.ValidSource(v) {
				return nil, errInvalidSource()
			}
			add("source", v)
		case "status":
			v, ok := f.Str()
			if !ok || !model.ValidStatus(v) {
				return nil, errInvalidStatus()
			}
			add("status", v)
		case "stage":
			v, ok := f.Str()
			if !ok || !model.ValidStage(v) {
				return nil, errInvalidStage()
			}
			add("stage", v)
		case "subSource":
			var v *string
			if f.Truthy() {
				if t, ok := f.Text(); ok {
					t = strings.TrimSpace(t)
					v = &t
				}
			}
			add("subSource", v)
		case "budget", "interestedIn", "notes", "followUp":
			if f.Null() {
				add(nf.name, (*string)(nil))
				continue
			}
			t, ok := f.Text()
			if !ok {
				return nil, invalid("INVALID_"+codeName(nf.name), nf.name+" must be a string")
			}
			add(nf.name, &t)
		case "projectId", "assignedTo", "brokerId":
			if f.Null() {
				add(nf.name, (*uint64)(nil))
				continue
			}
			id, ok := f.ID()
			if !ok {
				return nil, errInvalidRef(nf.name)
			}
			add(nf.name, &id)
		case "score":
			n, ok := validScore(f)
			if !ok {
				return nil, errInvalidScore
			}
			add("score", n)
		case "tags":
			v, _ := f.Strings()
			add("tags", model.Tags(v))
		case "lastContactedAt", "nextCallDate":
			if f.Null() {
				add(nf.name, (*string)(nil))
				continue
			}
			v, ok := f.Str()
			if !ok || !model.ValidISOTimestamp(v) {
				return nil, errInvalidTimestamp(nf.name)
			}
			add(nf.name, &v)
		}
	}
	return out, nil
}

// Delete removes a lead with its comments and activity history, then
// records the deletion.  Only admins delete leads.
func (s *LeadService) Delete(ctx context.Context, p access.Principal, id uint64) (*model.Lead, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	scope := p.LeadScope()
	existing, err := s.store.Get(ctx, scope, id)
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return nil, errLeadNotFound
		}
		return nil, err
	}
	if err := s.store.Delete(ctx, scope, id); err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return nil, errLeadNotFound
		}
		return nil, err
	}
	if existing.Tags == nil {
		existing.Tags = model.Tags{}
	}

	s.activity.Log(ctx, activity.Entry{
		Action:      model.ActionDeleted,
		EntityType:  model.EntityLead,
		EntityID:    id,
		EntityName:  existing.FullName(),
		Description: "Lead deleted - " + existing.FullName(),
		Metadata:    model.Deletion{Reason: model.ReasonManualDeletion},
		UserID:      userRef(p),
	})
	return existing, nil
}

// leadValue reads the current value of an API field for diffing.
func leadValue(l *model.Lead, field string) any {
	switch field {
	case "firstName":
		return l.FirstName
	case "lastName":
		return l.LastName
	case "email":
		return l.Email
	case "phone":
		return l.Phone
	case "source":
		return l.Source
	case "status":
		return l.Status
	case "subSource":
		return plain(l.SubSource)
	case "budget":
		return plain(l.Budget)
	case "interestedIn":
		return plain(l.InterestedIn)
	case "notes":
		return plain(l.Notes)
	case "followUp":
		return plain(l.FollowUp)
	case "lastContactedAt":
		return plain(l.LastContactedAt)
	case "nextCallDate":
		return plain(l.NextCallDate)
	case "projectId":
		return plain(l.ProjectID)
	case "assignedTo":
		return plain(l.AssignedTo)
	case "brokerId":
		return plain(l.BrokerID)
	case "score":
		return l.Score
	}
	return nil
}

// plain dereferences nullable values so diffs render as JSON scalars.
func plain(v any) any {
	switch t := v.(type) {
	case *string:
		if t == nil {
			return nil
		}
		return *t
	case *uint64:
		if t == nil {
			return nil
		}
		return *t
	}
	return v
}

func sameValue(a, b any) bool {
	return plain(a) == plain(b)
}

func validScore(f Field) (int, bool) {
	n, ok := f.Int()
	return n, ok && n >= 0 && n <= 100
}

// nonEmpty returns a trimmed string value that is not blank.
func nonEmpty(f Field) (string, bool) {
	s, ok := f.Str()
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func userRef(p access.Principal) *uint64 {
	if p.UserID == 0 {
		return nil
	}
	id := p.UserID
	return &id
}

func storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return errLeadEmailExists
	case errors.Is(err, repository.ErrMissingReference):
		return errMissingRef
	}
	return err
}

func pageLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func pageOffset(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
