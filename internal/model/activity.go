package model

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Action names a kind of audited change.
type Action string

const (
	ActionCreated            Action = "created"
	ActionDeleted            Action = "deleted"
	ActionUpdated            Action = "updated"
	ActionStageChanged       Action = "stage-changed"
	ActionDescriptionAdded   Action = "description-added"
	ActionDescriptionUpdated Action = "description-updated"
	ActionDescriptionDeleted Action = "description-deleted"
)

// Actions lists every accepted action in display order.
var Actions = []string{
	string(ActionCreated),
	string(ActionDeleted),
	string(ActionUpdated),
	string(ActionStageChanged),
	string(ActionDescriptionAdded),
	string(ActionDescriptionUpdated),
	string(ActionDescriptionDeleted),
}

func (a Action) Valid() bool { return oneOf(string(a), Actions) }

// EntityType names the kind of record an activity describes.
type EntityType string

const (
	EntityLead     EntityType = "lead"
	EntityPipeline EntityType = "pipeline"
	EntityComment  EntityType = "comment"
	EntityProject  EntityType = "project"
)

var EntityTypes = []string{
	string(EntityLead),
	string(EntityPipeline),
	string(EntityComment),
	string(EntityProject),
}

func (e EntityType) Valid() bool { return oneOf(string(e), EntityTypes) }

// Activity is one append-only audit row from the `activities` table.
// UserName and UserEmail are copied from the acting user when the row is
// written so the record stays readable after the user changes.
type Activity struct {
	ID          uint64          `json:"id"`
	LeadID      *uint64         `json:"leadId"`
	UserID      *uint64         `json:"userId"`
	Action      Action          `json:"action"`
	EntityType  EntityType      `json:"entityType"`
	EntityID    uint64          `json:"entityId"`
	EntityName  *string         `json:"entityName"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata"`
	UserName    *string         `json:"userName"`
	UserEmail   *string         `json:"userEmail"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Metadata is the structured payload attached to an activity.  The set
// of implementations is closed; each one matches a kind of change.
type Metadata interface {
	isMetadata()
}

// LeadCreated accompanies ActionCreated on a lead.
type LeadCreated struct {
	Source string `json:"source"`
	Status string `json:"status"`
	Stage  string `json:"stage"`
}

// StageChange accompanies ActionStageChanged.
type StageChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// FieldChange is one entry of a FieldChanges diff.  From and To hold the
// JSON form of the old and new values, including null.
type FieldChange struct {
	Field string `json:"field"`
	From  any    `json:"from"`
	To    any    `json:"to"`
}

// FieldChanges accompanies ActionUpdated.
type FieldChanges struct {
	Changes []FieldChange `json:"changes"`
}

// Deletion accompanies ActionDeleted and ActionDescriptionDeleted.
type Deletion struct {
	Reason string `json:"reason"`
}

// CommentAdded accompanies ActionDescriptionAdded.
type CommentAdded struct {
	CommentLength int `json:"commentLength"`
}

// ProjectCreated accompanies ActionCreated on a project.
type ProjectCreated struct {
	Type     string `json:"type"`
	Status   string `json:"status"`
	Location string `json:"location"`
}

// RawMetadata carries caller-supplied JSON for activities recorded
// through the API.  It must hold a valid JSON document.
type RawMetadata json.RawMessage

func (m RawMetadata) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return []byte(m), nil
}

func (LeadCreated) isMetadata()    {}
func (ProjectCreated) isMetadata() {}
func (StageChange) isMetadata()    {}
func (FieldChanges) isMetadata()   {}
func (Deletion) isMetadata()       {}
func (CommentAdded) isMetadata()   {}
func (RawMetadata) isMetadata()    {}

// ReasonManualDeletion is the deletion reason recorded by API deletes.
const ReasonManualDeletion = "manual_deletion"

// EncodeMetadata renders metadata for activities.metadata.  A nil value
// is stored as SQL NULL.
func EncodeMetadata(m Metadata) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	if raw, ok := m.(RawMetadata); ok && len(raw) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// DecodeMetadata returns the stored payload as raw JSON.  Missing or
// corrupt content is reported as nil, which renders as null.
func DecodeMetadata(raw sql.NullString) json.RawMessage {
	if !raw.Valid || raw.String == "" || !json.Valid([]byte(raw.String)) {
		return nil
	}
	return json.RawMessage(raw.String)
}
