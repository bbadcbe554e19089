// Package activity writes the audit trail.  Mutations call Recorder.Log
// after their primary write has succeeded; Log never reports failure to
// its caller, so an audit problem cannot undo or fail the change it
// describes.  Recorder.Record is the strict variant used when the
// activity itself is the thing being created.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rehanisg222/deploymentcrm/internal/model"
	"github.com/rehanisg222/deploymentcrm/internal/repository"
)

// Store appends activity rows.
type Store interface {
	Insert(ctx context.Context, a *model.Activity) error
}

// UserLookup resolves the acting user's display fields.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Hook observes activities after they are stored.
type Hook interface {
	AfterRecord(ctx context.Context, a model.Activity) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, a model.Activity) error

func (f HookFunc) AfterRecord(ctx context.Context, a model.Activity) error { return f(ctx, a) }

// Entry describes one change to record.
type Entry struct {
	Action      model.Action
	EntityType  model.EntityType
	EntityID    uint64
	EntityName  string // stored as NULL when empty
	Description string
	Metadata    model.Metadata
	UserID      *uint64
	LeadID      *uint64
}

// Recorder turns entries into activity rows.
type Recorder struct {
	store Store
	users UserLookup
	hooks []Hook
	log   *zap.Logger
	now   func() time.Time
}

func NewRecorder(store Store, users UserLookup, log *zap.Logger, hooks ...Hook) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{store: store, users: users, hooks: hooks, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Record stores the entry and returns the row as written.
func (r *Recorder) Record(ctx context.Context, e Entry) (*model.Activity, error) {
	a, err := r.build(ctx, e)
	if err != nil {
		return nil, err
	}
	if err := r.store.Insert(ctx, a); err != nil {
		return nil, err
	}
	r.notify(ctx, *a)
	return a, nil
}

// Log stores the entry on a best-effort basis.  It runs detached from the
// request's cancellation and only reports problems to the log.
func (r *Recorder) Log(ctx context.Context, e Entry) {
	ctx = context.WithoutCancel(ctx)
	if _, err := r.Record(ctx, e); err != nil {
		r.log.Error("activity not recorded",
			zap.String("action", string(e.Action)),
			zap.String("entity_type", string(e.EntityType)),
			zap.Uint64("entity_id", e.EntityID),
			zap.Error(err))
	}
}

func (r *Recorder) build(ctx context.Context, e Entry) (*model.Activity, error) {
	a := &model.Activity{
		LeadID:      e.LeadID,
		UserID:      e.UserID,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Description: e.Description,
		CreatedAt:   r.now(),
	}
	if e.EntityName != "" {
		name := e.EntityName
		a.EntityName = &name
	}
	meta, err := model.EncodeMetadata(e.Metadata)
	if err != nil {
		return nil, err
	}
	if meta.Valid {
		a.Metadata = json.RawMessage(meta.String)
	}
	if e.UserID != nil && r.users != nil {
		u, err := r.users.GetByID(ctx, *e.UserID)
		switch {
		case err == nil:
			name, email := u.Name, u.Email
			a.UserName, a.UserEmail = &name, &email
		case errors.Is(err, repository.ErrUserNotFound):
			// deleted or unknown users leave the display fields empty
		default:
			r.log.Warn("activity user lookup failed", zap.Uint64("user_id", *e.UserID), zap.Error(err))
		}
	}
	return a, nil
}

func (r *Recorder) notify(ctx context.Context, a model.Activity) {
	for _, h := range r.hooks {
		if err := h.AfterRecord(ctx, a); err != nil {
			r.log.Warn("activity hook failed", zap.Uint64("activity_id", a.ID), zap.Error(err))
		}
	}
}
