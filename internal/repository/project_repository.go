package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rehanisg222/deploymentcrm/internal/model"
)

const projectColumns = `id, name, type, location, developer, price, status, units, amenities, images, description, created_at, updated_at`

var projectFieldColumns = map[string]string{
	"name":        "name",
	"type":        "type",
	"location":    "location",
	"developer":   "developer",
	"price":       "price",
	"status":      "status",
	"units":       "units",
	"amenities":   "amenities",
	"images":      "images",
	"description": "description",
	"updatedAt":   "updated_at",
}

// ProjectFilter narrows a project listing.
type ProjectFilter struct {
	Search string // matched against name and location
	Type   string
	Status string
	Limit  int
	Offset int
}

// ProjectRepo encapsulates queries on the `projects` table.
type ProjectRepo struct {
	db *sql.DB
}

func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{db: db} }

func scanProject(s rowScanner) (*model.Project, error) {
	var (
		p                        model.Project
		units, amenities, images sql.NullString
		description              sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Type, &p.Location, &p.Developer, &p.Price, &p.Status,
		&units, &amenities, &images, &description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Units = rawJSON(units)
	p.Amenities = rawJSON(amenities)
	p.Images = rawJSON(images)
	p.Description = strPtr(description)
	return &p, nil
}

// rawJSON returns a stored JSON column, or nil for NULL and for content
// that is not valid JSON.
func rawJSON(ns sql.NullString) json.RawMessage {
	if !ns.Valid || !json.Valid([]byte(ns.String)) {
		return nil
	}
	return json.RawMessage(ns.String)
}

// jsonArg converts a JSON value into a column argument; empty becomes NULL.
func jsonArg(v any) any {
	raw, ok := v.(json.RawMessage)
	if !ok {
		return v
	}
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// List returns projects matching f, newest first.
func (r *ProjectRepo) List(ctx context.Context, f ProjectFilter) ([]model.Project, error) {
	var (
		where []string
		args  []any
	)
	if f.Search != "" {
		where = append(where, "(name LIKE ? OR location LIKE ?)")
		p := likePattern(f.Search)
		args = append(args, p, p)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	q := `SELECT ` + projectColumns + ` FROM projects WHERE ` + whereClause(where) +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// GetByID returns ErrProjectNotFound when no project has the id.
func (r *ProjectRepo) GetByID(ctx context.Context, id uint64) (*model.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

// Create inserts p and fills in its ID.
func (r *ProjectRepo) Create(ctx context.Context, p *model.Project) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (name, type, location, developer, price, status, units, amenities, images, description, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.Name, p.Type, p.Location, p.Developer, p.Price, p.Status,
		jsonArg(p.Units), jsonArg(p.Amenities), jsonArg(p.Images), p.Description, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return writeError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// Update applies changes to the project with id.  json.RawMessage values
// are stored as JSON text.
func (r *ProjectRepo) Update(ctx context.Context, id uint64, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}
	sets := make([]string, 0, len(changes))
	args := make([]any, 0, len(changes)+1)
	for _, c := range changes {
		col, ok := projectFieldColumns[c.Field]
		if !ok {
			return fmt.Errorf("project update: unknown field %q", c.Field)
		}
		sets = append(sets, col+" = ?")
		args = append(args, jsonArg(c.Value))
	}
	args = append(args, id)
	if _, err := r.db.ExecContext(ctx, `UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return writeError(err)
	}
	return nil
}

// Delete removes the project.  Leads keep their row; the foreign key
// clears their project_id.
func (r *ProjectRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProjectNotFound
	}
	return nil
}
