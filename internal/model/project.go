package model

import (
	"encoding/json"
	"time"
)

// Project is a development whose units leads enquire about.  Leads point
// at a project through leads.project_id.
type Project struct {
	ID          uint64          `json:"id"`          // projects.id
	Name        string          `json:"name"`        // projects.name
	Type        string          `json:"type"`        // projects.type
	Location    string          `json:"location"`    // projects.location
	Developer   string          `json:"developer"`   // projects.developer
	Price       string          `json:"price"`       // projects.price, free text such as "1.2 Cr onwards"
	Status      string          `json:"status"`      // projects.status
	Units       json.RawMessage `json:"units"`       // projects.units (JSON array or NULL)
	Amenities   json.RawMessage `json:"amenities"`   // projects.amenities (JSON array or NULL)
	Images      json.RawMessage `json:"images"`      // projects.images (JSON array or NULL)
	Description *string         `json:"description"` // projects.description
	CreatedAt   time.Time       `json:"createdAt"`   // projects.created_at
	UpdatedAt   time.Time       `json:"updatedAt"`   // projects.updated_at
}

var (
	ProjectTypes    = []string{"residential", "commercial"}
	ProjectStatuses = []string{"planning", "under-construction", "ready", "sold-out"}
)

const DefaultProjectStatus = "planning"

func ValidProjectType(s string) bool   { return oneOf(s, ProjectTypes) }
func ValidProjectStatus(s string) bool { return oneOf(s, ProjectStatuses) }
