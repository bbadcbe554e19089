package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rehanisg222/deploymentcrm/internal/access"
	"github.com/rehanisg222/deploymentcrm/internal/model"
)

const leadColumns = `l.id, l.first_name, l.last_name, l.email, l.phone, l.source, l.sub_source,
	l.status, l.stage, l.budget, l.interested_in, l.project_id, l.assigned_to, l.broker_id,
	l.score, l.tags, l.notes, l.follow_up, l.last_contacted_at, l.next_call_date,
	l.created_at, l.updated_at`

// leadFieldColumns maps updatable API field names to columns.
var leadFieldColumns = map[string]string{
	"firstName":       "first_name",
	"lastName":        "last_name",
	"email":           "email",
	"phone":           "phone",
	"source":          "source",
	"subSource":       "sub_source",
	"status":          "status",
	"stage":           "stage",
	"budget":          "budget",
	"interestedIn":    "interested_in",
	"projectId":       "project_id",
	"assignedTo":      "assigned_to",
	"brokerId":        "broker_id",
	"score":           "score",
	"tags":            "tags",
	"notes":           "notes",
	"followUp":        "follow_up",
	"lastContactedAt": "last_contacted_at",
	"nextCallDate":    "next_call_date",
}

// LeadFilter narrows a lead listing.  Empty strings and nil pointers are
// ignored.
type LeadFilter struct {
	Search    string
	Status    string
	Stage     string
	Source    string
	ProjectID *uint64
	Limit     int
	Offset    int
}

// LeadRepo reads and writes the `leads` table.  Every read and write that
// takes an access.Scope puts the scope predicate first in its WHERE
// clause; an empty scope short-circuits without touching the database.
type LeadRepo struct {
	db *sql.DB
}

func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

func scanLead(s rowScanner) (*model.Lead, error) {
	var (
		l                                          model.Lead
		subSource, budget, interestedIn, notes     sql.NullString
		followUp, lastContacted, nextCall, tagsRaw sql.NullString
		projectID, assignedTo, brokerID            sql.NullInt64
	)
	err := s.Scan(&l.ID, &l.FirstName, &l.LastName, &l.Email, &l.Phone, &l.Source, &subSource,
		&l.Status, &l.Stage, &budget, &interestedIn, &projectID, &assignedTo, &brokerID,
		&l.Score, &tagsRaw, &notes, &followUp, &lastContacted, &nextCall,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.SubSource = strPtr(subSource)
	l.Budget = strPtr(budget)
	l.InterestedIn = strPtr(interestedIn)
	l.Notes = strPtr(notes)
	l.FollowUp = strPtr(followUp)
	l.LastContactedAt = strPtr(lastContacted)
	l.NextCallDate = strPtr(nextCall)
	l.ProjectID = u64Ptr(projectID)
	l.AssignedTo = u64Ptr(assignedTo)
	l.BrokerID = u64Ptr(brokerID)
	l.Tags = model.DecodeTags(tagsRaw)
	return &l, nil
}

// List returns leads visible in scope that match f, newest first.
func (r *LeadRepo) List(ctx context.Context, scope access.Scope, f LeadFilter) ([]model.Lead, error) {
	if scope.Empty() {
		return []model.Lead{}, nil
	}
	cond, args := scope.Condition("l.broker_id")
	where := []string{cond}

	if f.Search != "" {
		where = append(where, "(l.first_name LIKE ? OR l.last_name LIKE ? OR l.email LIKE ?)")
		p := likePattern(f.Search)
		args = append(args, p, p, p)
	}
	if f.Status != "" {
		where = append(where, "l.status = ?")
		args = append(args, f.Status)
	}
	if f.Stage != "" {
		where = append(where, "l.stage = ?")
		args = append(args, f.Stage)
	}
	if f.Source != "" {
		where = append(where, "l.source = ?")
		args = append(args, f.Source)
	}
	if f.ProjectID != nil {
		where = append(where, "l.project_id = ?")
		args = append(args, *f.ProjectID)
	}

	q := `SELECT ` + leadColumns + ` FROM leads l WHERE ` + whereClause(where) +
		` ORDER BY l.created_at DESC, l.id DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// Get returns the lead with id when it is visible in scope.
func (r *LeadRepo) Get(ctx context.Context, scope access.Scope, id uint64) (*model.Lead, error) {
	if scope.Empty() {
		return nil, ErrLeadNotFound
	}
	cond, args := scope.Condition("l.broker_id")
	q := `SELECT ` + leadColumns + ` FROM leads l WHERE ` + whereClause([]string{cond, "l.id = ?"}) + ` LIMIT 1`
	l, err := scanLead(r.db.QueryRowContext(ctx, q, append(args, id)...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return l, nil
}

// Create inserts l and fills in its ID.
func (r *LeadRepo) Create(ctx context.Context, l *model.Lead) error {
	tags, err := model.EncodeTags(l.Tags)
	if err != nil {
		return err
	}
	const q = `INSERT INTO leads (first_name, last_name, email, phone, source, sub_source,
		status, stage, budget, interested_in, project_id, assigned_to, broker_id,
		score, tags, notes, follow_up, last_contacted_at, next_call_date, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q,
		l.FirstName, l.LastName, l.Email, l.Phone, l.Source, l.SubSource,
		l.Status, l.Stage, l.Budget, l.InterestedIn, l.ProjectID, l.AssignedTo, l.BrokerID,
		l.Score, tags, l.Notes, l.FollowUp, l.LastContactedAt, l.NextCallDate, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return writeError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// Update applies changes to the lead with id inside scope and bumps
// updated_at.  Tags values are encoded to JSON text.
func (r *LeadRepo) Update(ctx context.Context, scope access.Scope, id uint64, changes []Change, now time.Time) error {
	if scope.Empty() {
		return ErrLeadNotFound
	}
	sets := make([]string, 0, len(changes)+1)
	args := make([]any, 0, len(changes)+3)
	for _, c := range changes {
		col, ok := leadFieldColumns[c.Field]
		if !ok {
			return fmt.Errorf("lead update: unknown field %q", c.Field)
		}
		v := c.Value
		if t, ok := v.(model.Tags); ok {
			enc, err := model.EncodeTags(t)
			if err != nil {
				return err
			}
			v = enc
		}
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now)

	cond, scopeArgs := scope.Condition("broker_id")
	args = append(args, scopeArgs...)
	args = append(args, id)
	q := `UPDATE leads SET ` + strings.Join(sets, ", ") + ` WHERE ` + whereClause([]string{cond, "id = ?"})
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return writeError(err)
	}
	return nil
}

// Delete removes the lead together with its comments and activity rows in
// one transaction.
func (r *LeadRepo) Delete(ctx context.Context, scope access.Scope, id uint64) (err error) {
	if scope.Empty() {
		return ErrLeadNotFound
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	cond, args := scope.Condition("broker_id")
	res, err := tx.ExecContext(ctx, `DELETE FROM leads WHERE `+whereClause([]string{cond, "id = ?"}), append(args, id)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLeadNotFound
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM lead_comments WHERE lead_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM activities WHERE lead_id = ?`, id); err != nil {
		return err
	}
	return nil
}

// FullName returns "First Last" for any lead regardless of scope.
func (r *LeadRepo) FullName(ctx context.Context, id uint64) (string, error) {
	var first, last string
	err := r.db.QueryRowContext(ctx, `SELECT first_name, last_name FROM leads WHERE id = ? LIMIT 1`, id).Scan(&first, &last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrLeadNotFound
		}
		return "", err
	}
	return first + " " + last, nil
}
