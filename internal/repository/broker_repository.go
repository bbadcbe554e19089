package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rehanisg222/deploymentcrm/internal/model"
)

const brokerColumns = `id, name, company, email, phone, commission, total_deals, total_revenue, is_active, joined_at`

var brokerFieldColumns = map[string]string{
	"name":         "name",
	"company":      "company",
	"email":        "email",
	"phone":        "phone",
	"commission":   "commission",
	"totalDeals":   "total_deals",
	"totalRevenue": "total_revenue",
	"isActive":     "is_active",
	"joinedAt":     "joined_at",
}

// BrokerFilter narrows a broker listing.
type BrokerFilter struct {
	Search   string // matched against name, company and email
	Company  string
	IsActive *bool
	Limit    int
	Offset   int
}

// BrokerRepo encapsulates queries on the `brokers` table.
type BrokerRepo struct {
	db *sql.DB
}

func NewBrokerRepo(db *sql.DB) *BrokerRepo { return &BrokerRepo{db: db} }

func scanBroker(s rowScanner) (*model.Broker, error) {
	var (
		b          model.Broker
		commission sql.NullString
	)
	if err := s.Scan(&b.ID, &b.Name, &b.Company, &b.Email, &b.Phone, &commission,
		&b.TotalDeals, &b.TotalRevenue, &b.IsActive, &b.JoinedAt); err != nil {
		return nil, err
	}
	b.Commission = strPtr(commission)
	return &b, nil
}

// List returns brokers matching f, most recently joined first.
func (r *BrokerRepo) List(ctx context.Context, f BrokerFilter) ([]model.Broker, error) {
	var (
		where []string
		args  []any
	)
	if f.Search != "" {
		where = append(where, "(name LIKE ? OR company LIKE ? OR email LIKE ?)")
		p := likePattern(f.Search)
		args = append(args, p, p, p)
	}
	if f.IsActive != nil {
		where = append(where, "is_active = ?")
		args = append(args, *f.IsActive)
	}
	if f.Company != "" {
		where = append(where, "company = ?")
		args = append(args, f.Company)
	}
	q := `SELECT ` + brokerColumns + ` FROM brokers WHERE ` + whereClause(where) +
		` ORDER BY joined_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Broker{}
	for rows.Next() {
		b, err := scanBroker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// GetByID returns ErrBrokerNotFound when no broker has the id.
func (r *BrokerRepo) GetByID(ctx context.Context, id uint64) (*model.Broker, error) {
	b, err := scanBroker(r.db.QueryRowContext(ctx, `SELECT `+brokerColumns+` FROM brokers WHERE id = ? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBrokerNotFound
		}
		return nil, err
	}
	return b, nil
}

// Create inserts b and fills in its ID.
func (r *BrokerRepo) Create(ctx context.Context, b *model.Broker) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO brokers (name, company, email, phone, commission, total_deals, total_revenue, is_active, joined_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		b.Name, b.Company, b.Email, b.Phone, b.Commission, b.TotalDeals, b.TotalRevenue, b.IsActive, b.JoinedAt)
	if err != nil {
		return writeError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// Update applies changes to the broker with id.
func (r *BrokerRepo) Update(ctx context.Context, id uint64, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}
	sets := make([]string, 0, len(changes))
	args := make([]any, 0, len(changes)+1)
	for _, c := range changes {
		col, ok := brokerFieldColumns[c.Field]
		if !ok {
			return fmt.Errorf("broker update: unknown field %q", c.Field)
		}
		sets = append(sets, col+" = ?")
		args = append(args, c.Value)
	}
	args = append(args, id)
	if _, err := r.db.ExecContext(ctx, `UPDATE brokers SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return writeError(err)
	}
	return nil
}

// Delete unlinks the broker's leads and users, then removes the broker,
// all in one transaction.
func (r *BrokerRepo) Delete(ctx context.Context, id uint64) (err error) {
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
	if _, err = tx.ExecContext(ctx, `UPDATE leads SET broker_id = NULL WHERE broker_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE users SET broker_id = NULL WHERE broker_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM brokers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBrokerNotFound
	}
	return nil
}

// Stats counts each broker's leads per reporting bucket.  Brokers with no
// leads appear with zero counts.
func (r *BrokerRepo) Stats(ctx context.Context, search string) ([]model.BrokerStats, error) {
	var (
		where []string
		args  = []any{
			model.StageAttempted1, model.StageAttempted2, model.StageUnqualified,
			model.StatusDeadLead, model.StageSiteVisited,
		}
	)
	if search != "" {
		where = append(where, "(b.name LIKE ? OR b.company LIKE ?)")
		p := likePattern(search)
		args = append(args, p, p)
	}
	q := `SELECT b.id, b.name, b.company,
			COALESCE(SUM(l.stage = ?), 0),
			COALESCE(SUM(l.stage = ?), 0),
			COALESCE(SUM(l.stage = ?), 0),
			COALESCE(SUM(l.status = ?), 0),
			COALESCE(SUM(l.stage = ?), 0),
			COALESCE(SUM(l.follow_up IS NOT NULL AND l.follow_up <> ''), 0),
			COUNT(l.id)
		FROM brokers b
		LEFT JOIN leads l ON l.broker_id = b.id
		WHERE ` + whereClause(where) + `
		GROUP BY b.id, b.name, b.company
		ORDER BY b.name`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BrokerStats{}
	for rows.Next() {
		var s model.BrokerStats
		if err := rows.Scan(&s.ID, &s.Name, &s.Company, &s.Attempted1, &s.Attempted2,
			&s.Unqualified, &s.DeadLead, &s.SiteVisited, &s.FollowUp, &s.TotalLeads); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
