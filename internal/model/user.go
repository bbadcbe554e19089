package model

import "time"

// User represents a login account stored in the `users` table.  The
// same table backs the display-name lookup performed when activities
// are written.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – display name copied into activity rows.
//  Email        – unique, lower-cased login address.
//  PasswordHash – bcrypt hash, never serialized.
//  Role         – raw role column; NULL or unknown values grant nothing.
//  BrokerID     – broker the account acts for; required for broker access.
//  IsActive     – disabled accounts cannot authenticate.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"id"`        // users.id
	Name         string    `json:"name"`      // users.name
	Email        string    `json:"email"`     // users.email
	PasswordHash string    `json:"-"`         // users.password_hash
	Role         *string   `json:"role"`      // users.role (nullable)
	BrokerID     *uint64   `json:"brokerId"`  // users.broker_id (nullable)
	IsActive     bool      `json:"isActive"`  // users.is_active
	CreatedAt    time.Time `json:"createdAt"` // users.created_at
	UpdatedAt    time.Time `json:"updatedAt"` // users.updated_at
}

// RoleName returns the stored role or "" when the column is NULL.
func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return *u.Role
}

// LeadComment is a free-form note attached to a lead.  UserName is
// resolved by a join when comments are listed.
type LeadComment struct {
	ID          uint64    `json:"id"`          // lead_comments.id
	LeadID      uint64    `json:"leadId"`      // lead_comments.lead_id
	UserID      *uint64   `json:"userId"`      // lead_comments.user_id
	UserName    *string   `json:"userName"`    // users.name via user_id
	Description string    `json:"description"` // lead_comments.description
	CreatedAt   time.Time `json:"createdAt"`   // lead_comments.created_at
}
