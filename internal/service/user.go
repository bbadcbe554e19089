package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rehanisg222/deploymentcrm/internal/access"
	"github.com/rehanisg222/deploymentcrm/internal/model"
	"github.com/rehanisg222/deploymentcrm/internal/repository"
)

// UserStore persists login accounts.
type UserStore interface {
	Create(ctx context.Context, nu repository.NewUser, cost int) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// UserInput is the body of a create-user request.
type UserInput struct {
	Name     Field `json:"name"`
	Email    Field `json:"email"`
	Password Field `json:"password"`
	Role     Field `json:"role"`
	BrokerID Field `json:"brokerId"`
}

const minPasswordLen = 8

var (
	errUserFields      = invalid("MISSING_REQUIRED_FIELDS", "Missing required fields: name, email, password, role")
	errUserEmailExists = invalid("EMAIL_ALREADY_EXISTS", "A user with this email already exists")
	errWeakPassword    = invalid("WEAK_PASSWORD", "Password must be at least 8 characters")
	errInvalidRole     = invalid("INVALID_ROLE", "Invalid role. Must be one of: admin, broker")
)

// UserService creates accounts and answers who-am-I queries.
type UserService struct {
	store UserStore
	cost  int
}

func NewUserService(store UserStore, bcryptCost int) *UserService {
	return &UserService{store: store, cost: bcryptCost}
}

// Create adds a login account.  Only admins create accounts.
func (s *UserService) Create(ctx context.Context, p access.Principal, in UserInput) (*model.User, error) {
	if !p.IsAdmin() {
		return nil, errForbidden
	}
	name, ok1 := nonEmpty(in.Name)
	email, ok2 := nonEmpty(in.Email)
	password, ok3 := in.Password.Str()
	roleRaw, ok4 := in.Role.Str()
	if !ok1 || !ok2 || !ok3 || !ok4 || password == "" {
		return nil, errUserFields
	}
	if !model.ValidEmail(email) {
		return nil, errInvalidEmail
	}
	if len(password) < minPasswordLen {
		return nil, errWeakPassword
	}
	role, err := access.ParseRole(roleRaw)
	if err != nil {
		return nil, errInvalidRole
	}
	nu := repository.NewUser{Name: name, Email: email, Password: password, Role: string(role)}
	if in.BrokerID.Given() {
		id, ok := in.BrokerID.ID()
		if !ok {
			return nil, errInvalidRef("brokerId")
		}
		nu.BrokerID = &id
	}
	return s.create(ctx, nu)
}

func (s *UserService) create(ctx context.Context, nu repository.NewUser) (*model.User, error) {
	id, err := s.store.Create(ctx, nu, s.cost)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return nil, errUserEmailExists
		case errors.Is(err, repository.ErrMissingReference):
			return nil, errMissingRef
		}
		return nil, err
	}
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Me returns the caller's own account.
func (s *UserService) Me(ctx context.Context, p access.Principal) (*model.User, error) {
	u, err := s.store.GetByID(ctx, p.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EnsureAdmin creates an admin account with the given credentials unless
// one with that email already exists.  It reports whether a row was
// written.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return false, nil
	}
	_, err := s.store.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return false, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	_, err = s.store.Create(ctx, repository.NewUser{
		Name: name, Email: email, Password: password, Role: string(access.RoleAdmin),
	}, s.cost)
	if err != nil {
		return false, err
	}
	return true, nil
}
