package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rehanisg222/deploymentcrm/internal/model"
)

// CommentRepo persists lead comments.
type CommentRepo struct {
	db *sql.DB
}

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{db: db} }

// ListByLead returns the comments on a lead, newest first, with the
// author's name when the author still exists.
func (r *CommentRepo) ListByLead(ctx context.Context, leadID uint64) ([]model.LeadComment, error) {
	const q = `SELECT c.id, c.lead_id, c.user_id, u.name, c.description, c.created_at
		FROM lead_comments c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.lead_id = ?
		ORDER BY c.created_at DESC, c.id DESC`
	rows, err := r.db.QueryContext(ctx, q, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.LeadComment{}
	for rows.Next() {
		var (
			c        model.LeadComment
			userID   sql.NullInt64
			userName sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.LeadID, &userID, &userName, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.UserID = u64Ptr(userID)
		c.UserName = strPtr(userName)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts c and fills in its ID.
func (r *CommentRepo) Create(ctx context.Context, c *model.LeadComment) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO lead_comments (lead_id, user_id, description, created_at) VALUES (?,?,?,?)`,
		c.LeadID, c.UserID, c.Description, c.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID returns ErrCommentNotFound when no comment has the id.
func (r *CommentRepo) GetByID(ctx context.Context, id uint64) (*model.LeadComment, error) {
	var (
		c      model.LeadComment
		userID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, lead_id, user_id, description, created_at FROM lead_comments WHERE id = ? LIMIT 1`, id).
		Scan(&c.ID, &c.LeadID, &userID, &c.Description, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	c.UserID = u64Ptr(userID)
	return &c, nil
}

// Delete removes the comment.  Deleting a missing id is not an error.
func (r *CommentRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM lead_comments WHERE id = ?`, id)
	return err
}
