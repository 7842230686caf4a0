// Package recommendation ranks neighbors a member may want to connect with.
// Rank is pure; Service fetches its inputs and persists dismissals.
package recommendation

import (
	"fmt"
	"sort"
	"strings"

	connentity "github.com/ovaphlow/pitchfork/service-neighbor/internal/connection/entity"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/entity"
)

// Category is a reason family. At most one tier per category counts.
type Category string

// Categories in tie-break order.
const (
	CategoryProximity Category = "proximity"
	CategoryMutual    Category = "mutual_connections"
	CategoryInterests Category = "shared_interests"
	CategoryActivity  Category = "activity_similarity"
	CategorySafety    Category = "safety_network"
)

var categoryOrder = map[Category]int{
	CategoryProximity: 0,
	CategoryMutual:    1,
	CategoryInterests: 2,
	CategoryActivity:  3,
	CategorySafety:    4,
}

// Tier names the strength band selected within a category.
type Tier string

const (
	TierSameBuilding Tier = "same_building"
	TierSameEstate   Tier = "same_estate"
	TierNearbyEstate Tier = "nearby_estate"
	TierSameArea     Tier = "same_area"
	TierHigh         Tier = "high"
	TierMedium       Tier = "medium"
	TierLow          Tier = "low"
	TierImportant    Tier = "important"
	TierHelpful      Tier = "helpful"
	TierRelevant     Tier = "relevant"
)

const maxScore = 100

var proximityStrength = map[entity.ProximityLevel]int{
	entity.ProximitySameBuilding: 40,
	entity.ProximitySameEstate:   30,
	entity.ProximityNearbyEstate: 20,
	entity.ProximitySameArea:     15,
}

var (
	safetyBadges    = []string{"security_volunteer", "first_aider", "neighborhood_watch", "estate_security"}
	safetyInterests = []string{"security", "safety", "first_aid", "emergency_response"}
)

// Reason is one weighted factor behind a recommendation.
type Reason struct {
	Category    Category `json:"type"`
	Tier        Tier     `json:"tier"`
	Description string   `json:"description"`
	Strength    int      `json:"strength"`
}

// ProximitySummary says where the candidate lives relative to the requester.
type ProximitySummary struct {
	Level        entity.ProximityLevel `json:"level"`
	SameBuilding bool                  `json:"same_building"`
	EstateName   string                `json:"estate_name,omitempty"`
}

// Recommendation is one ranked candidate.
type Recommendation struct {
	Profile           *entity.Profile  `json:"profile"`
	Score             int              `json:"score"`
	Reasons           []Reason         `json:"reasons"`
	Proximity         ProximitySummary `json:"proximity"`
	MutualConnections int              `json:"mutual_connections"`
	SharedInterests   []string         `json:"shared_interests,omitempty"`
}

// Input is everything Rank looks at.
type Input struct {
	Requester  *entity.Profile
	Candidates []*entity.Profile
	// Connections holds the requester's records in any status plus the
	// accepted edges of the candidates, used for exclusion and mutual counts.
	Connections []*connentity.Connection
	Dismissed   map[string]struct{}
	// Activity maps candidate id to a 0-1 similarity from an external signal.
	// Missing ids contribute no activity reason.
	Activity            map[string]float64
	Nearby              entity.NearbyFunc
	Limit               int
	PrioritizeProximity bool
}

// Rank scores every eligible candidate and returns at most Limit of them.
// Identical input always yields identical output order.
func Rank(in Input) []Recommendation {
	if in.Requester == nil || in.Limit <= 0 {
		return []Recommendation{}
	}
	me := in.Requester.ID

	excluded := map[string]struct{}{me: {}}
	for id := range in.Dismissed {
		excluded[id] = struct{}{}
	}
	adjacency := make(map[string]map[string]struct{})
	for _, c := range in.Connections {
		if c == nil {
			continue
		}
		if c.Involves(me) && (c.Status.Active() || c.Status == connentity.StatusBlocked) {
			excluded[c.Other(me)] = struct{}{}
		}
		if c.Status == connentity.StatusAccepted {
			link(adjacency, c.FromUserID, c.ToUserID)
			link(adjacency, c.ToUserID, c.FromUserID)
		}
	}

	out := make([]Recommendation, 0, len(in.Candidates))
	seen := make(map[string]struct{}, len(in.Candidates))
	for _, cand := range in.Candidates {
		if cand == nil || !cand.Active || !cand.Privacy.AllowConnections {
			continue
		}
		if _, skip := excluded[cand.ID]; skip {
			continue
		}
		if _, dup := seen[cand.ID]; dup {
			continue
		}
		seen[cand.ID] = struct{}{}
		out = append(out, score(in, cand, mutualCount(adjacency, me, cand.ID)))
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j], in.PrioritizeProximity) })
	if len(out) > in.Limit {
		out = out[:in.Limit]
	}
	return out
}

func less(a, b Recommendation, prioritizeProximity bool) bool {
	if prioritizeProximity && a.Proximity.SameBuilding != b.Proximity.SameBuilding {
		return a.Proximity.SameBuilding
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Proximity.SameBuilding != b.Proximity.SameBuilding {
		return a.Proximity.SameBuilding
	}
	return a.Profile.ID < b.Profile.ID
}

func score(in Input, cand *entity.Profile, mutuals int) Recommendation {
	level := entity.Proximity(in.Requester, cand, in.Nearby)
	shared := in.Requester.SharedInterests(cand)

	var reasons []Reason
	if r, ok := proximityReason(level, cand); ok {
		reasons = append(reasons, r)
	}
	if r, ok := mutualReason(mutuals); ok {
		reasons = append(reasons, r)
	}
	if r, ok := interestReason(shared); ok {
		reasons = append(reasons, r)
	}
	if sim, ok := in.Activity[cand.ID]; ok {
		if r, ok := activityReason(sim); ok {
			reasons = append(reasons, r)
		}
	}
	if r, ok := safetyReason(cand); ok {
		reasons = append(reasons, r)
	}

	sort.SliceStable(reasons, func(i, j int) bool {
		if reasons[i].Strength != reasons[j].Strength {
			return reasons[i].Strength > reasons[j].Strength
		}
		return categoryOrder[reasons[i].Category] < categoryOrder[reasons[j].Category]
	})

	total := 0
	for _, r := range reasons {
		total += r.Strength
	}
	if total > maxScore {
		total = maxScore
	}
	if reasons == nil {
		reasons = []Reason{}
	}
	return Recommendation{
		Profile: cand,
		Score:   total,
		Reasons: reasons,
		Proximity: ProximitySummary{
			Level:        level,
			SameBuilding: level == entity.ProximitySameBuilding,
			EstateName:   cand.Location.EstateName,
		},
		MutualConnections: mutuals,
		SharedInterests:   shared,
	}
}

func proximityReason(level entity.ProximityLevel, cand *entity.Profile) (Reason, bool) {
	strength, ok := proximityStrength[level]
	if !ok {
		return Reason{}, false
	}
	var desc string
	switch level {
	case entity.ProximitySameBuilding:
		desc = "Lives in your building"
	case entity.ProximitySameEstate:
		desc = "Lives in your estate"
	case entity.ProximityNearbyEstate:
		desc = "Lives in a nearby estate"
		if cand.Location.EstateName != "" {
			desc = "Lives nearby in " + cand.Location.EstateName
		}
	default:
		desc = "Lives in your area"
	}
	return Reason{Category: CategoryProximity, Tier: Tier(level), Description: desc, Strength: strength}, true
}

func mutualReason(n int) (Reason, bool) {
	var tier Tier
	var strength int
	switch {
	case n >= 8:
		tier, strength = TierHigh, 35
	case n >= 3:
		tier, strength = TierMedium, 25
	case n >= 1:
		tier, strength = TierLow, 15
	default:
		return Reason{}, false
	}
	desc := fmt.Sprintf("%d mutual connections", n)
	if n == 1 {
		desc = "1 mutual connection"
	}
	return Reason{Category: CategoryMutual, Tier: tier, Description: desc, Strength: strength}, true
}

func interestReason(shared []string) (Reason, bool) {
	n := len(shared)
	var tier Tier
	var strength int
	switch {
	case n >= 5:
		tier, strength = TierHigh, 30
	case n >= 2:
		tier, strength = TierMedium, 20
	case n == 1:
		tier, strength = TierLow, 10
	default:
		return Reason{}, false
	}
	shown := shared
	if len(shown) > 3 {
		shown = shown[:3]
	}
	desc := "Shares your interest in " + strings.Join(shown, ", ")
	return Reason{Category: CategoryInterests, Tier: tier, Description: desc, Strength: strength}, true
}

func activityReason(sim float64) (Reason, bool) {
	switch {
	case sim >= 0.7:
		return Reason{Category: CategoryActivity, Tier: TierHigh, Description: "Very similar community activity", Strength: 25}, true
	case sim >= 0.4:
		return Reason{Category: CategoryActivity, Tier: TierMedium, Description: "Similar community activity", Strength: 15}, true
	case sim > 0:
		return Reason{Category: CategoryActivity, Tier: TierLow, Description: "Some overlapping community activity", Strength: 10}, true
	default:
		return Reason{}, false
	}
}

func safetyReason(cand *entity.Profile) (Reason, bool) {
	badge := anyBadge(cand, safetyBadges)
	interest := anyOf(cand.Interests, safetyInterests)
	switch {
	case badge && interest:
		return Reason{Category: CategorySafety, Tier: TierImportant, Description: "Active in estate safety", Strength: 20}, true
	case badge:
		return Reason{Category: CategorySafety, Tier: TierHelpful, Description: "Holds a safety badge", Strength: 15}, true
	case interest:
		return Reason{Category: CategorySafety, Tier: TierRelevant, Description: "Interested in neighborhood safety", Strength: 10}, true
	default:
		return Reason{}, false
	}
}

func anyBadge(p *entity.Profile, badges []string) bool {
	for _, b := range badges {
		if p.HasBadge(b) {
			return true
		}
	}
	return false
}

func anyOf(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

func link(adj map[string]map[string]struct{}, a, b string) {
	set, ok := adj[a]
	if !ok {
		set = make(map[string]struct{})
		adj[a] = set
	}
	set[b] = struct{}{}
}

func mutualCount(adj map[string]map[string]struct{}, a, b string) int {
	na, nb := adj[a], adj[b]
	if len(nb) < len(na) {
		na, nb = nb, na
	}
	n := 0
	for id := range na {
		if id == a || id == b {
			continue
		}
		if _, ok := nb[id]; ok {
			n++
		}
	}
	return n
}
