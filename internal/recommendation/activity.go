package recommendation

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/entity"
)

// ParticipationSignal is the built-in ActivitySignal. It compares how much
// two members take part in community life (events organized plus
// endorsements received) as min/max of the two totals. Members who hide
// their activity get no signal, and neither do two inactive members.
// It works on the profiles it is given and never reads the store.
type ParticipationSignal struct{}

func NewParticipationSignal() *ParticipationSignal {
	return &ParticipationSignal{}
}

func (p *ParticipationSignal) Similarity(_ context.Context, me *entity.Profile, candidates []*entity.Profile) (map[string]float64, error) {
	out := make(map[string]float64, len(candidates))
	if me == nil || !me.Privacy.ShowActivity {
		return out, nil
	}
	for _, c := range candidates {
		if c == nil || !c.Privacy.ShowActivity {
			continue
		}
		if v := participationSimilarity(me, c); v > 0 {
			out[c.ID] = v
		}
	}
	return out, nil
}

func participationSimilarity(a, b *entity.Profile) float64 {
	x, y := participation(a), participation(b)
	if x == 0 || y == 0 {
		return 0
	}
	if x > y {
		x, y = y, x
	}
	return float64(x) / float64(y)
}

func participation(p *entity.Profile) int {
	return max(p.EventsOrganized, 0) + max(p.Endorsements, 0)
}
