// Package access decides what an authenticated caller may see and change.
// Roles are parsed once at the boundary; a missing or unrecognized role is
// its own state and grants nothing.
package access

import (
	"context"
	"errors"
	"strings"

	"github.com/rehanisg222/deploymentcrm/internal/model"
)

// Role is a recognized caller role.  The zero value is not a role.
type Role string

const (
	RoleAdmin  Role = model.RoleNameAdmin
	RoleBroker Role = model.RoleNameBroker
)

var (
	// ErrNoRole is returned when the stored role is absent or unknown.
	ErrNoRole = errors.New("access: caller has no recognized role")
	// ErrUnknownUser is returned when the caller id does not resolve.
	ErrUnknownUser = errors.New("access: unknown user")
	// ErrInactiveUser is returned for disabled accounts.
	ErrInactiveUser = errors.New("access: user is inactive")
)

// ParseRole maps a stored role to a Role.  Anything other than admin or
// broker, including the empty string, yields ErrNoRole.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleBroker:
		return RoleBroker, nil
	}
	return "", ErrNoRole
}

// Principal is the resolved caller of a request.
type Principal struct {
	UserID   uint64
	Role     Role
	BrokerID *uint64
}

func (p Principal) IsAdmin() bool  { return p.Role == RoleAdmin }
func (p Principal) IsBroker() bool { return p.Role == RoleBroker }

// LeadScope returns the visibility filter for lead queries.
func (p Principal) LeadScope() Scope {
	switch p.Role {
	case RoleAdmin:
		return Scope{Kind: ScopeAll}
	case RoleBroker:
		if p.BrokerID == nil {
			return Scope{Kind: ScopeNone}
		}
		return Scope{Kind: ScopeBroker, BrokerID: *p.BrokerID}
	}
	return Scope{Kind: ScopeNone}
}

// brokerLeadFields are the lead fields a broker may change.
var brokerLeadFields = map[string]bool{
	"status":          true,
	"stage":           true,
	"followUp":        true,
	"lastContactedAt": true,
}

// CanWriteLeadField reports whether the caller may change the named
// lead field (JSON name).
func (p Principal) CanWriteLeadField(field string) bool {
	if p.IsAdmin() {
		return true
	}
	return p.IsBroker() && brokerLeadFields[field]
}

// UserLookup loads users by id.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Resolver turns an authenticated user id into a Principal by reading the
// user's current role and broker link.
type Resolver struct {
	users UserLookup
}

func NewResolver(users UserLookup) *Resolver { return &Resolver{users: users} }

// Resolve fails closed: lookup errors, inactive accounts and missing roles
// all return an error and a zero Principal.
func (r *Resolver) Resolve(ctx context.Context, userID uint64) (Principal, error) {
	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	if !u.IsActive {
		return Principal{}, ErrInactiveUser
	}
	role, err := ParseRole(u.RoleName())
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: u.ID, Role: role, BrokerID: u.BrokerID}, nil
}
