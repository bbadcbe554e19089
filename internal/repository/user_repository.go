package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rehanisg222/deploymentcrm/internal/model"
	"github.com/rehanisg222/deploymentcrm/internal/utils"
)

const userColumns = `id, name, email, password_hash, role, broker_id, is_active, created_at, updated_at`

// UserRepo reads and writes login accounts.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUser carries the fields accepted when creating an account.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     string
	BrokerID *uint64
}

// Create hashes the password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, nu NewUser, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(nu.Email))
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, broker_id) VALUES (?,?,?,?,?)",
		strings.TrimSpace(nu.Name), email, hash, nu.Role, nu.BrokerID)
	if err != nil {
		return 0, writeError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u        model.User
		role     sql.NullString
		brokerID sql.NullInt64
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &brokerID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	u.Role = strPtr(role)
	u.BrokerID = u64Ptr(brokerID)
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// LinkBroker attaches the user to a broker and gives it the broker role.
func (r *UserRepo) LinkBroker(ctx context.Context, userID, brokerID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET broker_id=?, role=? WHERE id=?",
		brokerID, model.RoleNameBroker, userID)
	return err
}
