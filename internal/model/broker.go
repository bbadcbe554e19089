package model

import "time"

// Broker is an external sales partner.  Leads point at a broker through
// leads.broker_id and login accounts through users.broker_id.
type Broker struct {
	ID           uint64    `json:"id"`           // brokers.id
	Name         string    `json:"name"`         // brokers.name
	Company      string    `json:"company"`      // brokers.company
	Email        string    `json:"email"`        // brokers.email (unique)
	Phone        string    `json:"phone"`        // brokers.phone
	Commission   *string   `json:"commission"`   // brokers.commission
	TotalDeals   int       `json:"totalDeals"`   // brokers.total_deals
	TotalRevenue string    `json:"totalRevenue"` // brokers.total_revenue
	IsActive     bool      `json:"isActive"`     // brokers.is_active
	JoinedAt     time.Time `json:"joinedAt"`     // brokers.joined_at
}

// BrokerStats is one row of the per-broker lead report.
type BrokerStats struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Company     string `json:"company"`
	Attempted1  int    `json:"attempted1"`
	Attempted2  int    `json:"attempted2"`
	Unqualified int    `json:"unqualified"`
	DeadLead    int    `json:"deadLead"`
	SiteVisited int    `json:"siteVisited"`
	FollowUp    int    `json:"followUp"`
	TotalLeads  int    `json:"totalLeads"`
}
