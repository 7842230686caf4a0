package connection

import (
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/connection/entity"
)

// TypeInfo describes a connection kind. Permissions are opaque tags for the
// authorization layer; this package only exposes them.
type TypeInfo struct {
	Type        entity.Type `json:"type"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Level       int         `json:"level"`
	Permissions []string    `json:"permissions"`
}

// ascending by level; neighbor and colleague share level 2
var registry = []TypeInfo{
	{
		Type:        entity.TypeFollow,
		Name:        "Follow",
		Description: "See their public estate posts",
		Level:       0,
		Permissions: []string{"view_public_posts"},
	},
	{
		Type:        entity.TypeConnect,
		Name:        "Connect",
		Description: "Mutual connection with direct messaging",
		Level:       1,
		Permissions: []string{"view_public_posts", "direct_message", "view_profile"},
	},
	{
		Type:        entity.TypeNeighbor,
		Name:        "Neighbor",
		Description: "Someone you live close to in the estate",
		Level:       2,
		Permissions: []string{"view_public_posts", "direct_message", "view_profile", "view_location", "estate_alerts"},
	},
	{
		Type:        entity.TypeColleague,
		Name:        "Colleague",
		Description: "Someone you work with",
		Level:       2,
		Permissions: []string{"view_public_posts", "direct_message", "view_profile", "view_work_info"},
	},
	{
		Type:        entity.TypeTrusted,
		Name:        "Trusted Neighbor",
		Description: "A neighbor you rely on for help and safety",
		Level:       3,
		Permissions: []string{
			"view_public_posts", "direct_message", "view_profile", "view_location", "estate_alerts",
			"view_activity", "emergency_contact",
		},
	},
	{
		Type:        entity.TypeFamily,
		Name:        "Family",
		Description: "Family members with full access",
		Level:       4,
		Permissions: []string{
			"view_public_posts", "direct_message", "view_profile", "view_location", "estate_alerts",
			"view_activity", "emergency_contact", "share_household", "full_access",
		},
	},
}

// Types returns the registry table in ascending level order.
func Types() []TypeInfo {
	out := make([]TypeInfo, len(registry))
	for i, ti := range registry {
		out[i] = ti.clone()
	}
	return out
}

// GetTypeInfo returns the registry entry for t.
func GetTypeInfo(t entity.Type) (TypeInfo, bool) {
	for _, ti := range registry {
		if ti.Type == t {
			return ti.clone(), true
		}
	}
	return TypeInfo{}, false
}

// ValidType reports whether t is one of the six kinds.
func ValidType(t entity.Type) bool {
	_, ok := GetTypeInfo(t)
	return ok
}

// CanUpgrade reports whether moving from current to target raises the level.
// Unknown kinds never qualify.
func CanUpgrade(current, target entity.Type) bool {
	cur, ok := GetTypeInfo(current)
	if !ok {
		return false
	}
	tgt, ok := GetTypeInfo(target)
	if !ok {
		return false
	}
	return tgt.Level > cur.Level
}

// UpgradeOptions lists the kinds strictly above current, ascending. An empty
// current yields the entry-level kinds follow and connect.
func UpgradeOptions(current entity.Type) []TypeInfo {
	if current == "" {
		follow, _ := GetTypeInfo(entity.TypeFollow)
		connect, _ := GetTypeInfo(entity.TypeConnect)
		return []TypeInfo{follow, connect}
	}
	cur, ok := GetTypeInfo(current)
	if !ok {
		return nil
	}
	var out []TypeInfo
	for _, ti := range registry {
		if ti.Level > cur.Level {
			out = append(out, ti.clone())
		}
	}
	return out
}

func (ti TypeInfo) clone() TypeInfo {
	ti.Permissions = append([]string(nil), ti.Permissions...)
	return ti
}
