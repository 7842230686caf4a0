package trust

import "strings"

// LevelID names a trust band.
type LevelID string

const (
	LevelNewNeighbor     LevelID = "new_neighbor"
	LevelKnownNeighbor   LevelID = "known_neighbor"
	LevelTrustedNeighbor LevelID = "trusted_neighbor"
	LevelCommunityPillar LevelID = "community_pillar"
	LevelEstateElder     LevelID = "estate_elder"
)

// Level is a read-time projection of a trust score. Bounds are inclusive.
type Level struct {
	ID          LevelID  `json:"id"`
	Name        string   `json:"name"`
	Min         int      `json:"min_score"`
	Max         int      `json:"max_score"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Color       string   `json:"color"`
	Privileges  []string `json:"privileges"`
}

// ascending, contiguous over [0,100]
var levels = []Level{
	{
		ID:          LevelNewNeighbor,
		Name:        "New Neighbor",
		Min:         0,
		Max:         24,
		Description: "Recently joined the estate community",
		Icon:        "person-add-outline",
		Color:       "#9E9E9E",
		Privileges:  []string{"view_public_posts", "send_connection_requests"},
	},
	{
		ID:          LevelKnownNeighbor,
		Name:        "Known Neighbor",
		Min:         25,
		Max:         49,
		Description: "Verified contact details and getting to know the community",
		Icon:        "person-outline",
		Color:       "#2196F3",
		Privileges:  []string{"view_public_posts", "send_connection_requests", "post_in_estate_feed", "join_groups"},
	},
	{
		ID:          LevelTrustedNeighbor,
		Name:        "Trusted Neighbor",
		Min:         50,
		Max:         74,
		Description: "Identity confirmed and trusted by fellow residents",
		Icon:        "shield-checkmark-outline",
		Color:       "#4CAF50",
		Privileges: []string{
			"view_public_posts", "send_connection_requests", "post_in_estate_feed", "join_groups",
			"sell_in_marketplace", "create_events",
		},
	},
	{
		ID:          LevelCommunityPillar,
		Name:        "Community Pillar",
		Min:         75,
		Max:         89,
		Description: "Fully verified resident who actively supports the estate",
		Icon:        "ribbon-outline",
		Color:       "#FF9800",
		Privileges: []string{
			"view_public_posts", "send_connection_requests", "post_in_estate_feed", "join_groups",
			"sell_in_marketplace", "create_events", "moderate_groups", "endorse_neighbors",
		},
	},
	{
		ID:          LevelEstateElder,
		Name:        "Estate Elder",
		Min:         90,
		Max:         100,
		Description: "Long-standing leader the whole estate relies on",
		Icon:        "star-outline",
		Color:       "#9C27B0",
		Privileges: []string{
			"view_public_posts", "send_connection_requests", "post_in_estate_feed", "join_groups",
			"sell_in_marketplace", "create_events", "moderate_groups", "endorse_neighbors",
			"issue_safety_alerts", "verify_new_residents",
		},
	},
}

// Levels returns a copy of the band table in ascending order.
func Levels() []Level {
	out := make([]Level, len(levels))
	for i, l := range levels {
		out[i] = l.clone()
	}
	return out
}

// LevelByID looks a band up by its id, case-insensitively.
func LevelByID(id string) (Level, bool) {
	for _, l := range levels {
		if strings.EqualFold(string(l.ID), id) {
			return l.clone(), true
		}
	}
	return Level{}, false
}

// clone detaches Privileges from the shared table.
func (l Level) clone() Level {
	l.Privileges = append([]string(nil), l.Privileges...)
	return l
}

// HasPrivilege reports whether the band unlocks privilege.
func (l Level) HasPrivilege(privilege string) bool {
	for _, p := range l.Privileges {
		if p == privilege {
			return true
		}
	}
	return false
}
