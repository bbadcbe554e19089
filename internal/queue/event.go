// Package queue carries recorded activities over RabbitMQ: a publisher
// hooked into the activity recorder and a consumer that appends the feed
// to a log file.
package queue

import (
	"time"

	"github.com/rehanisg222/deploymentcrm/internal/model"
)

// ActivityEvent is published after an activity row is stored.  It holds
// enough of the row for feed consumers to render a line without querying
// the database.
type ActivityEvent struct {
	ActivityID  uint64  `json:"activity_id"`
	Action      string  `json:"action"`
	EntityType  string  `json:"entity_type"`
	EntityID    uint64  `json:"entity_id"`
	EntityName  string  `json:"entity_name,omitempty"`
	LeadID      *uint64 `json:"lead_id"`
	UserID      *uint64 `json:"user_id"`
	UserName    string  `json:"user_name,omitempty"`
	Description string  `json:"description"`
	OccurredAt  string  `json:"occurred_at"`
}

// EventFromActivity maps a stored activity to its wire form.
func EventFromActivity(a model.Activity) ActivityEvent {
	ev := ActivityEvent{
		ActivityID:  a.ID,
		Action:      string(a.Action),
		EntityType:  string(a.EntityType),
		EntityID:    a.EntityID,
		LeadID:      a.LeadID,
		UserID:      a.UserID,
		Description: a.Description,
		OccurredAt:  a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.EntityName != nil {
		ev.EntityName = *a.EntityName
	}
	if a.UserName != nil {
		ev.UserName = *a.UserName
	}
	return ev
}
