package network

import (
	"math"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/connection"
	connentity "github.com/ovaphlow/pitchfork/service-neighbor/internal/connection/entity"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/trust"
)

// StrengthFunc rates, on 0-100, how strongly mutual links the two compared
// users given its connection with each of them.
type StrengthFunc func(mutual *entity.Profile, withA, withB *connentity.Connection) int

const (
	baseStrength     = 40
	perTypeLevel     = 10
	trustContributes = 0.2
)

// DefaultStrength combines the closeness of both edges with the mutual's own
// trust: 40 + 10 * mean type level + trust score / 5, capped at 100.
func DefaultStrength(scorer *trust.Scorer) StrengthFunc {
	if scorer == nil {
		scorer = trust.NewScorer(nil)
	}
	return func(mutual *entity.Profile, withA, withB *connentity.Connection) int {
		level := (typeLevel(withA) + typeLevel(withB)) / 2
		v := float64(baseStrength) + perTypeLevel*level + trustContributes*float64(scorer.Score(mutual))
		return int(math.Min(math.Round(v), 100))
	}
}

func typeLevel(c *connentity.Connection) float64 {
	if c == nil {
		return 0
	}
	info, ok := connection.GetTypeInfo(c.Type)
	if !ok {
		return 0
	}
	return float64(info.Level)
}

func clampStrength(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
