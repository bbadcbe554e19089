package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rehanisg222/deploymentcrm/internal/model"
)

const activityColumns = `id, lead_id, user_id, action, entity_type, entity_id, entity_name,
	description, metadata, user_name, user_email, created_at`

// ActivityFilter narrows an activity listing.  Nil pointers and empty
// strings are ignored.
type ActivityFilter struct {
	LeadID     *uint64
	UserID     *uint64
	Action     string
	EntityType string
	EntityID   *uint64
	Limit      int
	Offset     int
}

// ActivityRepo appends to and reads the `activities` audit table.  It
// never updates or deletes individual rows.
type ActivityRepo struct {
	db *sql.DB
}

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{db: db} }

func scanActivity(s rowScanner) (*model.Activity, error) {
	var (
		a                                  model.Activity
		leadID, userID                     sql.NullInt64
		entityName, meta, userName, userEm sql.NullString
		action, entityType                 string
	)
	err := s.Scan(&a.ID, &leadID, &userID, &action, &entityType, &a.EntityID, &entityName,
		&a.Description, &meta, &userName, &userEm, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.LeadID = u64Ptr(leadID)
	a.UserID = u64Ptr(userID)
	a.Action = model.Action(action)
	a.EntityType = model.EntityType(entityType)
	a.EntityName = strPtr(entityName)
	a.Metadata = model.DecodeMetadata(meta)
	a.UserName = strPtr(userName)
	a.UserEmail = strPtr(userEm)
	return &a, nil
}

// Insert writes a and fills in its ID.
func (r *ActivityRepo) Insert(ctx context.Context, a *model.Activity) error {
	var meta sql.NullString
	if len(a.Metadata) > 0 {
		meta = sql.NullString{String: string(a.Metadata), Valid: true}
	}
	const q = `INSERT INTO activities (lead_id, user_id, action, entity_type, entity_id, entity_name,
		description, metadata, user_name, user_email, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q,
		a.LeadID, a.UserID, string(a.Action), string(a.EntityType), a.EntityID, a.EntityName,
		a.Description, meta, a.UserName, a.UserEmail, a.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

func (r *ActivityRepo) GetByID(ctx context.Context, id uint64) (*model.Activity, error) {
	a, err := scanActivity(r.db.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = ? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	return a, nil
}

// List returns matching activities, newest first.
func (r *ActivityRepo) List(ctx context.Context, f ActivityFilter) ([]model.Activity, error) {
	var (
		where []string
		args  []any
	)
	if f.LeadID != nil {
		where = append(where, "lead_id = ?")
		args = append(args, *f.LeadID)
	}
	if f.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, f.Action)
	}
	if f.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, f.EntityType)
	}
	if f.EntityID != nil {
		where = append(where, "entity_id = ?")
		args = append(args, *f.EntityID)
	}
	q := `SELECT ` + activityColumns + ` FROM activities WHERE ` + whereClause(where) +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
