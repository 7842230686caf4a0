package recommendation

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/apperr"
	connentity "github.com/ovaphlow/pitchfork/service-neighbor/internal/connection/entity"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/entity"
)

// ProfileSource supplies the requester and the candidate pool.
type ProfileSource interface {
	GetProfile(ctx context.Context, id string) (*entity.Profile, error)
	ListCandidates(ctx context.Context, estateID string, excluding map[string]struct{}) ([]*entity.Profile, error)
	ListCandidatesInArea(ctx context.Context, area string, excluding map[string]struct{}) ([]*entity.Profile, error)
}

// ConnectionSource lists connection records of a user.
type ConnectionSource interface {
	ListConnections(ctx context.Context, userID string, filter connentity.Filter) ([]*connentity.Connection, error)
}

// DismissalStore persists the per-viewer exclusion set.
type DismissalStore interface {
	Dismiss(ctx context.Context, viewerID, candidateID string) error
	ListDismissed(ctx context.Context, viewerID string) (map[string]struct{}, error)
}

// ActivitySignal reports 0-1 activity similarity between a user and each
// already loaded candidate, keyed by candidate id. Ids missing from the
// result have no signal.
type ActivitySignal interface {
	Similarity(ctx context.Context, me *entity.Profile, candidates []*entity.Profile) (map[string]float64, error)
}

// Neighborhood knows which estates are adjacent.
type Neighborhood interface {
	Nearby(estateA, estateB string) bool
	NearbyEstates(estateID string) []string
}

// Options are the per-request knobs.
type Options struct {
	Limit               int
	PrioritizeProximity bool
}

// Limits bounds the requested result size.
type Limits struct {
	Default int
	Max     int
}

// maxFanOut caps concurrent repository reads per request.
const maxFanOut = 8

type Service struct {
	profiles  ProfileSource
	conns     ConnectionSource
	dismissed DismissalStore
	activity  ActivitySignal
	hood      Neighborhood
	limits    Limits
	logger    *zap.SugaredLogger
	metrics   *metrics.Metrics
}

// NewService wires the ranker to its data sources. activity and hood may be
// nil.
func NewService(profiles ProfileSource, conns ConnectionSource, dismissed DismissalStore, activity ActivitySignal,
	hood Neighborhood, limits Limits, logger *zap.SugaredLogger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if limits.Default <= 0 {
		limits.Default = 10
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	return &Service{
		profiles:  profiles,
		conns:     conns,
		dismissed: dismissed,
		activity:  activity,
		hood:      hood,
		limits:    limits,
		logger:    logger,
		metrics:   m,
	}
}

// Recommend ranks the viewer's neighborhood.
func (s *Service) Recommend(ctx context.Context, viewerID string, opts Options) ([]Recommendation, error) {
	me, err := s.profiles.GetProfile(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = s.limits.Default
	}
	if limit > s.limits.Max {
		limit = s.limits.Max
	}

	var (
		mu         sync.Mutex
		candidates []*entity.Profile
		mine       []*connentity.Connection
		dismissed  map[string]struct{}
	)
	self := map[string]struct{}{me.ID: {}}
	addCandidates := func(ps []*entity.Profile) {
		mu.Lock()
		candidates = append(candidates, ps...)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanOut)
	for _, estate := range s.estatesFor(me) {
		g.Go(func() error {
			ps, err := s.profiles.ListCandidates(gctx, estate, self)
			if err != nil {
				return err
			}
			addCandidates(ps)
			return nil
		})
	}
	if me.Location.Area != "" {
		g.Go(func() error {
			ps, err := s.profiles.ListCandidatesInArea(gctx, me.Location.Area, self)
			if err != nil {
				return err
			}
			addCandidates(ps)
			return nil
		})
	}
	g.Go(func() (err error) {
		mine, err = s.conns.ListConnections(gctx, me.ID, connentity.Filter{})
		return err
	})
	g.Go(func() (err error) {
		dismissed, err = s.dismissed.ListDismissed(gctx, me.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	edges, err := s.secondDegree(ctx, me.ID, mine)
	if err != nil {
		return nil, err
	}

	in := Input{
		Requester:           me,
		Candidates:          candidates,
		Connections:         append(mine, edges...),
		Dismissed:           dismissed,
		Activity:            s.similarity(ctx, me, candidates),
		Limit:               limit,
		PrioritizeProximity: opts.PrioritizeProximity,
	}
	if s.hood != nil {
		in.Nearby = s.hood.Nearby
	}
	recs := Rank(in)
	s.metrics.RecordRecommendations(len(recs))
	s.logger.Debugw("recommendations ranked",
		"viewer", me.ID,
		"candidates", len(candidates),
		"returned", len(recs),
	)
	return recs, nil
}

// Dismiss hides candidateID from the viewer's future recommendations.
func (s *Service) Dismiss(ctx context.Context, viewerID, candidateID string) error {
	if candidateID == "" || candidateID == viewerID {
		return apperr.Validation("invalid candidate %q", candidateID)
	}
	if _, err := s.profiles.GetProfile(ctx, candidateID); err != nil {
		return err
	}
	if err := s.dismissed.Dismiss(ctx, viewerID, candidateID); err != nil {
		return err
	}
	s.logger.Debugw("recommendation dismissed", "viewer", viewerID, "candidate", candidateID)
	return nil
}

func (s *Service) estatesFor(me *entity.Profile) []string {
	if me.Location.EstateID == "" {
		return nil
	}
	out := []string{me.Location.EstateID}
	if s.hood != nil {
		out = append(out, s.hood.NearbyEstates(me.Location.EstateID)...)
	}
	return out
}

// secondDegree loads the accepted edges of the viewer's accepted neighbors,
// which is all Rank needs to count mutual connections.
func (s *Service) secondDegree(ctx context.Context, me string, mine []*connentity.Connection) ([]*connentity.Connection, error) {
	accepted := connentity.Filter{Statuses: []connentity.Status{connentity.StatusAccepted}}
	var (
		mu  sync.Mutex
		out []*connentity.Connection
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanOut)
	for _, c := range mine {
		if c.Status != connentity.StatusAccepted {
			continue
		}
		neighbor := c.Other(me)
		g.Go(func() error {
			cs, err := s.conns.ListConnections(gctx, neighbor, accepted)
			if err != nil {
				return err
			}
			mu.Lock()
			out = append(out, cs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// similarity asks the activity signal; a failing signal only drops the
// activity reason.
func (s *Service) similarity(ctx context.Context, me *entity.Profile, candidates []*entity.Profile) map[string]float64 {
	if s.activity == nil || len(candidates) == 0 {
		return nil
	}
	sim, err := s.activity.Similarity(ctx, me, candidates)
	if err != nil {
		s.logger.Warnw("activity signal unavailable", "viewer", me.ID, "err", err)
		return nil
	}
	return sim
}
