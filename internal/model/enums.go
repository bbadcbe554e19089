package model

import (
	"regexp"
	"strings"
	"time"
)

// Lead classification vocabularies.  The order of each slice is the order
// used in validation messages.
var (
	LeadSources  = []string{"organic", "paid", "referral", "walk-in"}
	LeadStatuses = []string{"hot lead", "new lead", "booked lead", "dead lead", "duplicate lead"}
	LeadStages   = []string{"new", "attempted 1", "attempted 2", "unqualified", "site visited", "closed won"}
)

const (
	DefaultLeadStatus = "new lead"
	DefaultLeadStage  = "new"
)

// Stage values referenced by the broker statistics report.
const (
	StageAttempted1  = "attempted 1"
	StageAttempted2  = "attempted 2"
	StageUnqualified = "unqualified"
	StageSiteVisited = "site visited"
	StatusDeadLead   = "dead lead"
)

func ValidSource(s string) bool { return oneOf(s, LeadSources) }
func ValidStatus(s string) bool { return oneOf(s, LeadStatuses) }
func ValidStage(s string) bool  { return oneOf(s, LeadStages) }

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// JoinValues renders an enum list the way error messages print it.
func JoinValues(set []string) string { return strings.Join(set, ", ") }

var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail performs the loose shape check used for leads and brokers.
func ValidEmail(s string) bool { return emailRE.MatchString(s) }

// ISOLayout is the canonical UTC timestamp layout with millisecond
// precision, e.g. 2025-01-31T09:30:00.000Z.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// ValidISOTimestamp reports whether s parses as a timestamp and formats
// back to exactly the same string.  Offsets, missing milliseconds and
// out-of-range calendar values are all rejected.
func ValidISOTimestamp(s string) bool {
	t, err := time.Parse(ISOLayout, s)
	if err != nil {
		return false
	}
	return t.UTC().Format(ISOLayout) == s
}

// Role names stored in users.role.
const (
	RoleNameAdmin  = "admin"
	RoleNameBroker = "broker"
)
