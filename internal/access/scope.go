package access

// ScopeKind enumerates the shapes of a lead visibility filter.
type ScopeKind int

const (
	ScopeNone ScopeKind = iota
	ScopeAll
	ScopeBroker
)

// Scope restricts which leads a query may touch.  The zero value matches
// nothing.
type Scope struct {
	Kind     ScopeKind
	BrokerID uint64
}

// Empty is true when no lead can match, so callers may skip the query.
func (s Scope) Empty() bool { return s.Kind == ScopeNone }

// Condition renders the scope as a SQL predicate on column.  ScopeAll
// yields an empty predicate.
func (s Scope) Condition(column string) (string, []any) {
	switch s.Kind {
	case ScopeAll:
		return "", nil
	case ScopeBroker:
		return column + " = ?", []any{s.BrokerID}
	}
	return "1 = 0", nil
}

// Allows reports whether a lead owned by brokerID is visible.
func (s Scope) Allows(brokerID *uint64) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeBroker:
		return brokerID != nil && *brokerID == s.BrokerID
	}
	return false
}
