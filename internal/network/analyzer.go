// Package network measures how much of their neighborhood two members share.
// Analyze is a pure function over mutual connections; Service loads them from
// the repositories and memoizes results per unordered pair.
package network

import (
	"fmt"
	"math"

	connentity "github.com/ovaphlow/pitchfork/service-neighbor/internal/connection/entity"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/entity"
)

const (
	// StrongThreshold is the strength at which a mutual counts as strong.
	StrongThreshold = 75
	// denseMutualCount is the mutual count treated as a fully dense estate network.
	denseMutualCount = 20
	maxPaths         = 3
	pathInterests    = 2
)

// PathType classifies how two members are linked.
type PathType string

const (
	PathThroughMutual    PathType = "through_mutual"
	PathThroughCommunity PathType = "through_community"
)

// MutualConnection is a third member connected to both compared users.
type MutualConnection struct {
	Profile         *entity.Profile        `json:"profile"`
	ConnectionA     *connentity.Connection `json:"connection_a,omitempty"`
	ConnectionB     *connentity.Connection `json:"connection_b,omitempty"`
	Strength        int                    `json:"connection_strength"`
	SharedInterests []string               `json:"shared_interests,omitempty"`
	ActivityOverlap float64                `json:"activity_overlap"`
}

// Path is a representative route between the two users.
type Path struct {
	ViaID           string   `json:"via_id"`
	ViaName         string   `json:"via_name"`
	Strength        int      `json:"strength"`
	CommonInterests []string `json:"common_interests"`
	PathType        PathType `json:"path_type"`
	Description     string   `json:"description"`
}

// Analysis aggregates a set of mutual connections for one user pair.
type Analysis struct {
	TotalMutualConnections    int     `json:"total_mutual_connections"`
	StrongConnections         int     `json:"strong_connections"`
	AverageConnectionStrength float64 `json:"average_connection_strength"`
	SharedNetworkDensity      float64 `json:"shared_network_density"`
	NetworkOverlap            float64 `json:"network_overlap"`
	TrustabilityScore         int     `json:"trustability_score"`
	ConnectionPaths           []Path  `json:"connection_paths"`
}

// Analyze computes the aggregate metrics. Every field except ConnectionPaths
// is independent of input order; paths follow the first three inputs.
func Analyze(mutuals []MutualConnection) Analysis {
	out := Analysis{ConnectionPaths: []Path{}}
	n := len(mutuals)
	if n == 0 {
		return out
	}

	sum := 0
	for _, m := range mutuals {
		sum += m.Strength
		if m.Strength >= StrongThreshold {
			out.StrongConnections++
		}
	}
	out.TotalMutualConnections = n
	out.AverageConnectionStrength = math.Round(float64(sum)/float64(n)*10) / 10
	out.SharedNetworkDensity = math.Min(float64(n)/denseMutualCount, 1.0)
	out.NetworkOverlap = out.SharedNetworkDensity * 0.5
	out.TrustabilityScore = int(math.Round(math.Min(out.AverageConnectionStrength*1.1, 100)))

	for i := 0; i < n && i < maxPaths; i++ {
		out.ConnectionPaths = append(out.ConnectionPaths, pathFor(mutuals[i]))
	}
	return out
}

func pathFor(m MutualConnection) Path {
	p := Path{
		Strength:        m.Strength,
		CommonInterests: firstN(m.SharedInterests, pathInterests),
		PathType:        PathThroughCommunity,
	}
	if m.Strength >= StrongThreshold {
		p.PathType = PathThroughMutual
	}
	name := "a mutual neighbor"
	estate := ""
	if m.Profile != nil {
		p.ViaID = m.Profile.ID
		p.ViaName = m.Profile.DisplayName
		if p.ViaName != "" {
			name = p.ViaName
		}
		estate = m.Profile.Location.EstateName
		if estate == "" {
			estate = m.Profile.Location.EstateID
		}
	}
	switch {
	case len(m.SharedInterests) > 0:
		p.Description = fmt.Sprintf("Connected through %s, who shares your interest in %s", name, m.SharedInterests[0])
	case estate != "":
		p.Description = fmt.Sprintf("Connected through %s from %s", name, estate)
	default:
		p.Description = fmt.Sprintf("Connected through %s", name)
	}
	return p
}

func firstN(in []string, n int) []string {
	if len(in) < n {
		n = len(in)
	}
	return append([]string{}, in[:n]...)
}
