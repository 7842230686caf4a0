package entity

import "time"

// Type is the kind of relationship an edge represents.
type Type string

const (
	TypeFollow    Type = "follow"
	TypeConnect   Type = "connect"
	TypeNeighbor  Type = "neighbor"
	TypeColleague Type = "colleague"
	TypeTrusted   Type = "trusted"
	TypeFamily    Type = "family"
)

// Status is the lifecycle state of a connection record.
type Status string

const (
	// StatusNone marks a pair whose edge was removed (disconnect or unblock).
	StatusNone     Status = "none"
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusBlocked  Status = "blocked"
)

// Active reports whether s counts toward the one-active-edge-per-pair rule.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusAccepted
}

// Metadata is the snapshot taken when a request is sent.
type Metadata struct {
	ProximityLevel    string   `json:"proximity_level,omitempty"`
	SharedInterests   []string `json:"shared_interests,omitempty"`
	MutualConnections int      `json:"mutual_connections"`
}

// Connection is a row in the `connections` table. There is one row per
// unordered user pair; FromUserID is the user who last sent a request.
type Connection struct {
	ID          string     `json:"id"`
	FromUserID  string     `json:"from_user_id"`
	ToUserID    string     `json:"to_user_id"`
	Type        Type       `json:"connection_type,omitempty"`
	Status      Status     `json:"status"`
	InitiatedBy string     `json:"initiated_by,omitempty"`
	BlockedBy   string     `json:"blocked_by,omitempty"`
	Metadata    *Metadata  `json:"metadata,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Involves reports whether userID is one side of the pair.
func (c *Connection) Involves(userID string) bool {
	return c.FromUserID == userID || c.ToUserID == userID
}

// Other returns the counterpart of userID, or "" if userID is not a party.
func (c *Connection) Other(userID string) string {
	switch userID {
	case c.FromUserID:
		return c.ToUserID
	case c.ToUserID:
		return c.FromUserID
	default:
		return ""
	}
}

// Clone returns a deep copy so repositories never share mutable state with
// callers.
func (c *Connection) Clone() *Connection {
	if c == nil {
		return nil
	}
	cp := *c
	if c.AcceptedAt != nil {
		t := *c.AcceptedAt
		cp.AcceptedAt = &t
	}
	if c.Metadata != nil {
		m := *c.Metadata
		m.SharedInterests = append([]string(nil), c.Metadata.SharedInterests...)
		cp.Metadata = &m
	}
	return &cp
}

// Filter narrows ListConnections. Zero values match everything.
type Filter struct {
	Statuses []Status
	Types    []Type
}

// Match reports whether c passes the filter.
func (f Filter) Match(c *Connection) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, c.Status) {
		return false
	}
	if len(f.Types) > 0 {
		ok := false
		for _, t := range f.Types {
			if t == c.Type {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func containsStatus(list []Status, s Status) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// PairKey is the canonical identifier of the unordered pair {a, b}.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
