package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rehanisg222/deploymentcrm/internal/access"
	"github.com/rehanisg222/deploymentcrm/internal/activity"
	"github.com/rehanisg222/deploymentcrm/internal/model"
	"github.com/rehanisg222/deploymentcrm/internal/repository"
)

var testNow = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func u64(v uint64) *uint64 { return &v }
func str(v string) *string { return &v }

var (
	admin      = access.Principal{UserID: 1, Role: access.RoleAdmin}
	broker7    = access.Principal{UserID: 2, Role: access.RoleBroker, BrokerID: u64(7)}
	brokerLost = access.Principal{UserID: 3, Role: access.RoleBroker}
)

// recordingLog captures the entries a service emits.
type recordingLog struct{ entries []activity.Entry }

func (r *recordingLog) Log(_ context.Context, e activity.Entry) { r.entries = append(r.entries, e) }

func (r *recordingLog) actions() []model.Action {
	out := make([]model.Action, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

type fakeLeads struct {
	rows    map[uint64]*model.Lead
	nextID  uint64
	emails  map[string]bool
	updates [][]repository.Change
	failGet error
}

func newFakeLeads(leads ...model.Lead) *fakeLeads {
	f := &fakeLeads{rows: map[uint64]*model.Lead{}, nextID: 100, emails: map[string]bool{}}
	for i := range leads {
		l := leads[i]
		f.rows[l.ID] = &l
		f.emails[l.Email] = true
	}
	return f
}

func (f *fakeLeads) List(_ context.Context, scope access.Scope, flt repository.LeadFilter) ([]model.Lead, error) {
	out := []model.Lead{}
	if scope.Empty() {
		return out, nil
	}
	ids := make([]uint64, 0, len(f.rows))
	for id := range f.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	for _, id := range ids {
		l := f.rows[id]
		if !scope.Allows(l.BrokerID) {
			continue
		}
		if flt.Status != "" && l.Status != flt.Status {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (f *fakeLeads) Get(_ context.Context, scope access.Scope, id uint64) (*model.Lead, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	l, ok := f.rows[id]
	if !ok || !scope.Allows(l.BrokerID) {
		return nil, repository.ErrLeadNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLeads) Create(_ context.Context, l *model.Lead) error {
	if f.emails[l.Email] {
		return repository.ErrEmailExists
	}
	f.nextID++
	l.ID = f.nextID
	cp := *l
	f.rows[l.ID] = &cp
	f.emails[l.Email] = true
	return nil
}

func (f *fakeLeads) Update(_ context.Context, scope access.Scope, id uint64, changes []repository.Change, now time.Time) error {
	l, ok := f.rows[id]
	if !ok || !scope.Allows(l.BrokerID) {
		return repository.ErrLeadNotFound
	}
	f.updates = append(f.updates, changes)
	for _, c := range changes {
		switch c.Field {
		case "firstName":
			l.FirstName = c.Value.(string)
		case "lastName":
			l.LastName = c.Value.(string)
		case "email":
			l.Email = c.Value.(string)
		case "phone":
			l.Phone = c.Value.(string)
		case "source":
			l.Source = c.Value.(string)
		case "status":
			l.Status = c.Value.(string)
		case "stage":
			l.Stage = c.Value.(string)
		case "score":
			l.Score = c.Value.(int)
		case "tags":
			l.Tags = c.Value.(model.Tags)
		case "subSource":
			l.SubSource = c.Value.(*string)
		case "budget":
			l.Budget = c.Value.(*string)
		case "interestedIn":
			l.InterestedIn = c.Value.(*string)
		case "notes":
			l.Notes = c.Value.(*string)
		case "followUp":
			l.FollowUp = c.Value.(*string)
		case "lastContactedAt":
			l.LastContactedAt = c.Value.(*string)
		case "nextCallDate":
			l.NextCallDate = c.Value.(*string)
		case "projectId":
			l.ProjectID = c.Value.(*uint64)
		case "assignedTo":
			l.AssignedTo = c.Value.(*uint64)
		case "brokerId":
			l.BrokerID = c.Value.(*uint64)
		}
	}
	l.UpdatedAt = now
	return nil
}

func (f *fakeLeads) Delete(_ context.Context, scope access.Scope, id uint64) error {
	l, ok := f.rows[id]
	if !ok || !scope.Allows(l.BrokerID) {
		return repository.ErrLeadNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeResolver map[uint64]access.Principal

func (r fakeResolver) Resolve(_ context.Context, id uint64) (access.Principal, error) {
	if p, ok := r[id]; ok {
		return p, nil
	}
	return access.Principal{}, access.ErrNoRole
}

type fakeComments struct {
	rows    map[uint64]*model.LeadComment
	nextID  uint64
	deleted []uint64
}

func newFakeComments(cs ...model.LeadComment) *fakeComments {
	f := &fakeComments{rows: map[uint64]*model.LeadComment{}, nextID: 500}
	for i := range cs {
		c := cs[i]
		f.rows[c.ID] = &c
	}
	return f
}

func (f *fakeComments) ListByLead(_ context.Context, leadID uint64) ([]model.LeadComment, error) {
	var out []model.LeadComment
	for _, c := range f.rows {
		if c.LeadID == leadID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeComments) Create(_ context.Context, c *model.LeadComment) error {
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.rows[c.ID] = &cp
	return nil
}

func (f *fakeComments) GetByID(_ context.Context, id uint64) (*model.LeadComment, error) {
	c, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrCommentNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeComments) Delete(_ context.Context, id uint64) error {
	f.deleted = append(f.deleted, id)
	delete(f.rows, id)
	return nil
}

type fakeUsers struct {
	rows   map[uint64]model.User
	nextID uint64
	links  map[uint64]uint64
}

func newFakeUsers(us ...model.User) *fakeUsers {
	f := &fakeUsers{rows: map[uint64]model.User{}, nextID: 10, links: map[uint64]uint64{}}
	for _, u := range us {
		f.rows[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.rows[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.rows {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) Create(_ context.Context, nu repository.NewUser, _ int) (uint64, error) {
	for _, u := range f.rows {
		if u.Email == nu.Email {
			return 0, repository.ErrEmailExists
		}
	}
	f.nextID++
	role := nu.Role
	f.rows[f.nextID] = model.User{ID: f.nextID, Name: nu.Name, Email: nu.Email, Role: &role, BrokerID: nu.BrokerID, IsActive: true}
	return f.nextID, nil
}

func (f *fakeUsers) LinkBroker(_ context.Context, userID, brokerID uint64) error {
	u, ok := f.rows[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	role := model.RoleNameBroker
	u.Role, u.BrokerID = &role, &brokerID
	f.rows[userID] = u
	f.links[userID] = brokerID
	return nil
}

type fakeBrokers struct {
	rows    map[uint64]*model.Broker
	nextID  uint64
	changes []repository.Change
	search  string
}

func newFakeBrokers(bs ...model.Broker) *fakeBrokers {
	f := &fakeBrokers{rows: map[uint64]*model.Broker{}, nextID: 20}
	for i := range bs {
		b := bs[i]
		f.rows[b.ID] = &b
	}
	return f
}

func (f *fakeBrokers) List(context.Context, repository.BrokerFilter) ([]model.Broker, error) {
	out := []model.Broker{}
	for _, b := range f.rows {
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeBrokers) GetByID(_ context.Context, id uint64) (*model.Broker, error) {
	b, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrBrokerNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBrokers) Create(_ context.Context, b *model.Broker) error {
	for _, x := range f.rows {
		if x.Email == b.Email {
			return repository.ErrEmailExists
		}
	}
	f.nextID++
	b.ID = f.nextID
	cp := *b
	f.rows[b.ID] = &cp
	return nil
}

func (f *fakeBrokers) Update(_ context.Context, id uint64, changes []repository.Change) error {
	f.changes = append(f.changes, changes...)
	b := f.rows[id]
	for _, c := range changes {
		switch c.Field {
		case "name":
			b.Name = c.Value.(string)
		case "email":
			b.Email = c.Value.(string)
		case "isActive":
			b.IsActive = c.Value.(bool)
		case "totalDeals":
			b.TotalDeals = c.Value.(int)
		}
	}
	return nil
}

func (f *fakeBrokers) Delete(_ context.Context, id uint64) error {
	if _, ok := f.rows[id]; !ok {
		return repository.ErrBrokerNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeBrokers) Stats(_ context.Context, search string) ([]model.BrokerStats, error) {
	f.search = search
	return []model.BrokerStats{{ID: 7, Name: "Prime", TotalLeads: 3}}, nil
}

type fakeProjects struct {
	rows    map[uint64]*model.Project
	nextID  uint64
	changes []repository.Change
	filter  repository.ProjectFilter
}

func newFakeProjects(ps ...model.Project) *fakeProjects {
	f := &fakeProjects{rows: map[uint64]*model.Project{}, nextID: 30}
	for i := range ps {
		p := ps[i]
		f.rows[p.ID] = &p
	}
	return f
}

func (f *fakeProjects) List(_ context.Context, flt repository.ProjectFilter) ([]model.Project, error) {
	f.filter = flt
	out := []model.Project{}
	for _, p := range f.rows {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeProjects) GetByID(_ context.Context, id uint64) (*model.Project, error) {
	p, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjects) Create(_ context.Context, p *model.Project) error {
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakeProjects) Update(_ context.Context, id uint64, changes []repository.Change) error {
	f.changes = append(f.changes, changes...)
	p := f.rows[id]
	for _, c := range changes {
		switch c.Field {
		case "name":
			p.Name = c.Value.(string)
		case "price":
			p.Price = c.Value.(string)
		case "status":
			p.Status = c.Value.(string)
		case "amenities":
			p.Amenities = c.Value.(json.RawMessage)
		case "description":
			p.Description = c.Value.(*string)
		case "updatedAt":
			p.UpdatedAt = c.Value.(time.Time)
		}
	}
	return nil
}

func (f *fakeProjects) Delete(_ context.Context, id uint64) error {
	if _, ok := f.rows[id]; !ok {
		return repository.ErrProjectNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeActivities struct {
	rows   map[uint64]*model.Activity
	filter repository.ActivityFilter
}

func (f *fakeActivities) GetByID(_ context.Context, id uint64) (*model.Activity, error) {
	a, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrActivityNotFound
	}
	return a, nil
}

func (f *fakeActivities) List(_ context.Context, flt repository.ActivityFilter) ([]model.Activity, error) {
	f.filter = flt
	return []model.Activity{}, nil
}

type recordingWriter struct{ entries []activity.Entry }

func (w *recordingWriter) Record(_ context.Context, e activity.Entry) (*model.Activity, error) {
	w.entries = append(w.entries, e)
	return &model.Activity{ID: 1, Action: e.Action, EntityType: e.EntityType, EntityID: e.EntityID, Description: e.Description}, nil
}

// decode parses a JSON request body into v the way handlers do.
func decode(t *testing.T, body string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(body), v))
}

// requireCode asserts err is a service error with the given code.
func requireCode(t *testing.T, err error, code string) *Error {
	t.Helper()
	var se *Error
	require.True(t, errors.As(err, &se), "expected *service.Error, got %v", err)
	require.Equal(t, code, se.Code, se.Message)
	return se
}
