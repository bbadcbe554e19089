package model

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Lead is a prospective buyer moving through the sales pipeline.  It
// mirrors a row of the `leads` table.  Nullable columns are pointers so
// that JSON responses render them as null rather than zero values.
//
// Fields:
//  ID              – primary key identifier.
//  FirstName       – given name, trimmed on write.
//  LastName        – family name, trimmed on write.
//  Email           – unique, lower-cased contact address.
//  Phone           – contact number, trimmed on write.
//  Source          – acquisition channel (see LeadSources).
//  SubSource       – free-text refinement of Source.
//  Status          – coarse classification (see LeadStatuses).
//  Stage           – pipeline position (see LeadStages).
//  Score           – qualification score in [0,100].
//  Tags            – ordered labels, stored as JSON text.
//  ProjectID       – optional project the lead is interested in.
//  AssignedTo      – optional user responsible for the lead.
//  BrokerID        – optional broker that owns the lead.
//  LastContactedAt – ISO-8601 timestamp string, nullable.
//  NextCallDate    – ISO-8601 timestamp string, nullable.
type Lead struct {
	ID              uint64    `json:"id"`              // leads.id
	FirstName       string    `json:"firstName"`       // leads.first_name
	LastName        string    `json:"lastName"`        // leads.last_name
	Email           string    `json:"email"`           // leads.email
	Phone           string    `json:"phone"`           // leads.phone
	Source          string    `json:"source"`          // leads.source
	SubSource       *string   `json:"subSource"`       // leads.sub_source
	Status          string    `json:"status"`          // leads.status
	Stage           string    `json:"stage"`           // leads.stage
	Budget          *string   `json:"budget"`          // leads.budget
	InterestedIn    *string   `json:"interestedIn"`    // leads.interested_in
	ProjectID       *uint64   `json:"projectId"`       // leads.project_id
	AssignedTo      *uint64   `json:"assignedTo"`      // leads.assigned_to
	BrokerID        *uint64   `json:"brokerId"`        // leads.broker_id
	Score           int       `json:"score"`           // leads.score
	Tags            Tags      `json:"tags"`            // leads.tags (JSON text)
	Notes           *string   `json:"notes"`           // leads.notes
	FollowUp        *string   `json:"followUp"`        // leads.follow_up
	LastContactedAt *string   `json:"lastContactedAt"` // leads.last_contacted_at
	NextCallDate    *string   `json:"nextCallDate"`    // leads.next_call_date
	CreatedAt       time.Time `json:"createdAt"`       // leads.created_at
	UpdatedAt       time.Time `json:"updatedAt"`       // leads.updated_at
}

// FullName is the display name used in activity rows.
func (l *Lead) FullName() string {
	return fmt.Sprintf("%s %s", l.FirstName, l.LastName)
}

// Tags is an ordered list of labels attached to a lead.  A nil list
// serializes as [] so clients never have to special-case null.
type Tags []string

func (t Tags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

// EncodeTags converts tags into the column value stored in leads.tags.
// A nil slice is stored as SQL NULL.
func EncodeTags(t Tags) (sql.NullString, error) {
	if t == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// DecodeTags parses the stored column.  Corrupt or non-array content
// yields an empty list instead of an error.
func DecodeTags(raw sql.NullString) Tags {
	if !raw.Valid || raw.String == "" {
		return Tags{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil || out == nil {
		return Tags{}
	}
	return Tags(out)
}
