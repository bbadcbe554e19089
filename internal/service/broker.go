package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rehanisg222/deploymentcrm/internal/access"
	"github.com/rehanisg222/deploymentcrm/internal/model"
	"github.com/rehanisg222/deploymentcrm/internal/repository"
)

// BrokerStore persists brokers.
type BrokerStore interface {
	List(ctx context.Context, f repository.BrokerFilter) ([]model.Broker, error)
	GetByID(ctx context.Context, id uint64) (*model.Broker, error)
	Create(ctx context.Context, b *model.Broker) error
	Update(ctx context.Context, id uint64, changes []repository.Change) error
	Delete(ctx context.Context, id uint64) error
	Stats(ctx context.Context, search string) ([]model.BrokerStats, error)
}

// BrokerUsers links login accounts to brokers.
type BrokerUsers interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	LinkBroker(ctx context.Context, userID, brokerID uint64) error
}

// BrokerQuery carries the raw query-string filters of a listing.
type BrokerQuery struct {
	Search   string
	Company  string
	IsActive string
	Limit    string
	Offset   string
}

// BrokerInput is a create or update request body.
type BrokerInput struct {
	Name         Field `json:"name"`
	Company      Field `json:"company"`
	Email        Field `json:"email"`
	Phone        Field `json:"phone"`
	Commission   Field `json:"commission"`
	TotalDeals   Field `json:"totalDeals"`
	TotalRevenue Field `json:"totalRevenue"`
	IsActive     Field `json:"isActive"`
	JoinedAt     Field `json:"joinedAt"`
}

// LinkInput is the body of a link-user request.
type LinkInput struct {
	UserID   Field `json:"userId"`
	BrokerID Field `json:"brokerId"`
}

const (
	defaultBrokerLimit = 20
	maxBrokerLimit     = 100
)

var (
	errBrokerNotFound    = notFound("BROKER_NOT_FOUND", "Broker not found")
	errUserNotFound      = notFound("USER_NOT_FOUND", "User not found")
	errBrokerEmailExists = invalid("EMAIL_ALREADY_EXISTS", "Email already exists")
	errBrokerEmailFormat = invalid("INVALID_EMAIL_FORMAT", "Invalid email format")
	errInvalidTotalDeals = invalid("INVALID_TOTAL_DEALS", "Total deals must be a non-negative integer")
	errInvalidIsActive   = invalid("INVALID_IS_ACTIVE", "isActive must be a boolean")
	errInvalidJoinedAt   = invalid("INVALID_JOINED_AT", "joinedAt must be a valid ISO 8601 timestamp")
	errMissingLinkUserID = invalid("MISSING_USER_ID", "userId is required")
	errMissingLinkBroker = invalid("MISSING_BROKER_ID", "brokerId is required")
	errInvalidLinkBroker = invalid("INVALID_BROKER_ID", "brokerId must be a valid integer")
)

// BrokerService manages brokers and their login links.
type BrokerService struct {
	store BrokerStore
	users BrokerUsers
	now   func() time.Time
}

func NewBrokerService(store BrokerStore, users BrokerUsers) *BrokerService {
	return &BrokerService{store: store, users: users, now: func() time.Time { return time.Now().UTC() }}
}

func (s *BrokerService) List(ctx context.Context, p access.Principal, q BrokerQuery) ([]model.Broker, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	f := repository.BrokerFilter{
		Search:  strings.TrimSpace(q.Search),
		Company: q.Company,
		Limit:   pageLimit(q.Limit, defaultBrokerLimit, maxBrokerLimit),
		Offset:  pageOffset(q.Offset),
	}
	if q.IsActive != "" {
		active := q.IsActive == "true"
		f.IsActive = &active
	}
	return s.store.List(ctx, f)
}

func (s *BrokerService) Get(ctx context.Context, p access.Principal, id uint64) (*model.Broker, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	b, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrBrokerNotFound) {
		return nil, errBrokerNotFound
	}
	return b, err
}

// Create validates in and inserts a broker.
func (s *BrokerService) Create(ctx context.Context, p access.Principal, in BrokerInput) (*model.Broker, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	required := []struct {
		f    Field
		code string
		msg  string
	}{
		{in.Name, "MISSING_NAME", "Name is required and must be a non-empty string"},
		{in.Company, "MISSING_COMPANY", "Company is required and must be a non-empty string"},
		{in.Email, "MISSING_EMAIL", "Email is required and must be a non-empty string"},
		{in.Phone, "MISSING_PHONE", "Phone is required and must be a non-empty string"},
	}
	vals := make([]string, len(required))
	for i, r := range required {
		v, ok := nonEmpty(r.f)
		if !ok {
			return nil, invalid(r.code, r.msg)
		}
		vals[i] = v
	}
	b := &model.Broker{
		Name:         vals[0],
		Company:      vals[1],
		Email:        strings.ToLower(vals[2]),
		Phone:        vals[3],
		TotalRevenue: "0",
		IsActive:     true,
		JoinedAt:     s.now(),
	}
	if !model.ValidEmail(b.Email) {
		return nil, errBrokerEmailFormat
	}
	if in.TotalDeals.Set {
		n, ok := nonNegative(in.TotalDeals)
		if !ok {
			return nil, errInvalidTotalDeals
		}
		b.TotalDeals = n
	}
	if in.IsActive.Set {
		v, ok := in.IsActive.Bool()
		if !ok {
			return nil, errInvalidIsActive
		}
		b.IsActive = v
	}
	if in.Commission.Given() {
		if v, ok := in.Commission.Text(); ok {
			b.Commission = &v
		}
	}
	if in.TotalRevenue.Given() {
		if v, ok := in.TotalRevenue.Text(); ok {
			b.TotalRevenue = v
		}
	}
	if in.JoinedAt.Given() {
		t, ok := isoTime(in.JoinedAt)
		if !ok {
			return nil, errInvalidJoinedAt
		}
		b.JoinedAt = t
	}

	if err := s.store.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, errBrokerEmailExists
		}
		return nil, err
	}
	return b, nil
}

// Update applies a partial update and returns the stored broker.
func (s *BrokerService) Update(ctx context.Context, p access.Principal, id uint64, in BrokerInput) (*model.Broker, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBrokerNotFound) {
			return nil, errBrokerNotFound
		}
		return nil, err
	}

	var changes []repository.Change
	add := func(field string, v any) { changes = append(changes, repository.Change{Field: field, Value: v}) }

	texts := []struct {
		name string
		f    Field
		code string
		msg  string
	}{
		{"name", in.Name, "INVALID_NAME", "Name must be a non-empty string"},
		{"company", in.Company, "INVALID_COMPANY", "Company must be a non-empty string"},
		{"email", in.Email, "INVALID_EMAIL", "Email must be a non-empty string"},
		{"phone", in.Phone, "INVALID_PHONE", "Phone must be a non-empty string"},
	}
	for _, t := range texts {
		if !t.f.Set {
			continue
		}
		v, ok := nonEmpty(t.f)
		if !ok {
			return nil, invalid(t.code, t.msg)
		}
		if t.name == "email" {
			v = strings.ToLower(v)
			if !model.ValidEmail(v) {
				return nil, errBrokerEmailFormat
			}
		}
		add(t.name, v)
	}
	if in.Commission.Set {
		var v *string
		if t, ok := in.Commission.Text(); ok {
			v = &t
		}
		add("commission", v)
	}
	if in.TotalDeals.Set {
		n, ok := nonNegative(in.TotalDeals)
		if !ok {
			return nil, errInvalidTotalDeals
		}
		add("totalDeals", n)
	}
	if in.TotalRevenue.Given() {
		if v, ok := in.TotalRevenue.Text(); ok {
			add("totalRevenue", v)
		}
	}
	if in.IsActive.Set {
		v, ok := in.IsActive.Bool()
		if !ok {
			return nil, errInvalidIsActive
		}
		add("isActive", v)
	}
	if in.JoinedAt.Set {
		t, ok := isoTime(in.JoinedAt)
		if !ok {
			return nil, errInvalidJoinedAt
		}
		add("joinedAt", t)
	}

	if len(changes) == 0 {
		return existing, nil
	}
	if err := s.store.Update(ctx, id, changes); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, errBrokerEmailExists
		}
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Delete removes a broker; its leads and users are unlinked, not deleted.
func (s *BrokerService) Delete(ctx context.Context, p access.Principal, id uint64) (*model.Broker, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBrokerNotFound) {
			return nil, errBrokerNotFound
		}
		return nil, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBrokerNotFound) {
			return nil, errBrokerNotFound
		}
		return nil, err
	}
	return existing, nil
}

// Stats returns the per-broker lead report.
func (s *BrokerService) Stats(ctx context.Context, p access.Principal, search string) ([]model.BrokerStats, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	return s.store.Stats(ctx, strings.TrimSpace(search))
}

// LinkUser attaches a login account to a broker and gives it the broker
// role.
func (s *BrokerService) LinkUser(ctx context.Context, p access.Principal, in LinkInput) (*model.User, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	if raw, ok := in.UserID.Text(); !ok || strings.TrimSpace(raw) == "" {
		return nil, errMissingLinkUserID
	}
	if !in.BrokerID.Truthy() {
		return nil, errMissingLinkBroker
	}
	brokerID, ok := in.BrokerID.ID()
	if !ok {
		return nil, errInvalidLinkBroker
	}
	userID, ok := in.UserID.ID()
	if !ok {
		return nil, errUserNotFound
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	if _, err := s.store.GetByID(ctx, brokerID); err != nil {
		if errors.Is(err, repository.ErrBrokerNotFound) {
			return nil, errBrokerNotFound
		}
		return nil, err
	}
	if err := s.users.LinkBroker(ctx, userID, brokerID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func nonNegative(f Field) (int, bool) {
	if n, ok := f.Int(); ok {
		return n, n >= 0
	}
	s, ok := f.Str()
	if !ok {
		return 0, false
	}
	id, ok := parseID(s)
	if ok {
		return int(id), true
	}
	return 0, strings.TrimSpace(s) == "0"
}

func isoTime(f Field) (time.Time, bool) {
	s, ok := f.Str()
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
