// Package trust maps a member's verification and community activity onto a
// 0-100 trust score and the named band that score falls in.
package trust

import (
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/entity"
)

const (
	MinScore = 0
	MaxScore = 100

	phonePoints    = 20
	identityPoints = 30
	addressPoints  = 30

	endorsementPoints = 2
	endorsementCap    = 10
	eventsCap         = 10
)

// Scorer computes trust scores. It holds no state besides its logger and is
// safe for concurrent use.
type Scorer struct {
	logger *zap.SugaredLogger
}

// NewScorer returns a Scorer; a nil logger discards anomaly reports.
func NewScorer(logger *zap.SugaredLogger) *Scorer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scorer{logger: logger}
}

// Score returns the trust score of p. Each term is clamped to [0, cap]
// before summing and the total is capped at MaxScore.
func (s *Scorer) Score(p *entity.Profile) int {
	if p == nil {
		return MinScore
	}
	total := 0
	if p.PhoneVerified {
		total += phonePoints
	}
	if p.IdentityVerified {
		total += identityPoints
	}
	if p.AddressVerified {
		total += addressPoints
	}
	total += bounded(p.Endorsements*endorsementPoints, endorsementCap)
	total += bounded(p.EventsOrganized, eventsCap)
	if total > MaxScore {
		total = MaxScore
	}
	return total
}

// Level returns the band for score. Scores outside [0,100] are clamped and
// logged rather than rejected.
func (s *Scorer) Level(score int) Level {
	if score < MinScore || score > MaxScore {
		s.logger.Warnw("trust score out of range, clamping", "score", score)
		score = clamp(score)
	}
	for _, l := range levels {
		if score >= l.Min && score <= l.Max {
			return l.clone()
		}
	}
	// unreachable while the table covers [0,100]
	return levels[0].clone()
}

// Assess returns both the score and its band.
func (s *Scorer) Assess(p *entity.Profile) (int, Level) {
	score := s.Score(p)
	return score, s.Level(score)
}

func bounded(v, limit int) int {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}

func clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
