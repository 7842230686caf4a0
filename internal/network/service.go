package network

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/apperr"
	connentity "github.com/ovaphlow/pitchfork/service-neighbor/internal/connection/entity"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/entity"
)

type ProfileReader interface {
	GetProfile(ctx context.Context, id string) (*entity.Profile, error)
}

type ConnectionSource interface {
	ListConnections(ctx context.Context, userID string, filter connentity.Filter) ([]*connentity.Connection, error)
}

const maxFanOut = 8

// Service builds mutual connections from the repositories and analyzes them.
type Service struct {
	profiles ProfileReader
	conns    ConnectionSource
	strength StrengthFunc
	cache    *PairCache
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
}

// NewService wires the analyzer. cache may be nil to disable memoization;
// strength defaults to DefaultStrength.
func NewService(profiles ProfileReader, conns ConnectionSource, strength StrengthFunc, cache *PairCache,
	logger *zap.SugaredLogger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if strength == nil {
		strength = DefaultStrength(nil)
	}
	return &Service{profiles: profiles, conns: conns, strength: strength, cache: cache, logger: logger, metrics: m}
}

// Analyze compares viewer with other. The result is the same from either
// side except that connection paths are withheld when other hides mutual
// connections. A blocked pair cannot be analyzed.
func (s *Service) Analyze(ctx context.Context, viewer, other string) (Analysis, error) {
	if viewer == "" || other == "" || viewer == other {
		return Analysis{}, apperr.Validation("analysis needs two distinct users")
	}
	entry, hit, err := s.cache.GetSet(ctx, viewer, other, func(ctx context.Context) (pairEntry, error) {
		return s.compute(ctx, viewer, other)
	})
	if err != nil {
		return Analysis{}, err
	}
	s.metrics.RecordCacheLookup(hit)

	out := entry.Analysis
	if !entry.ShowPaths[other] {
		out.ConnectionPaths = []Path{}
	} else {
		out.ConnectionPaths = append([]Path(nil), entry.Analysis.ConnectionPaths...)
	}
	return out, nil
}

// Mutuals returns the mutual connections of the pair, strongest first.
func (s *Service) Mutuals(ctx context.Context, viewer, other string) ([]MutualConnection, error) {
	if viewer == "" || other == "" || viewer == other {
		return nil, apperr.Validation("analysis needs two distinct users")
	}
	a, b := ordered(viewer, other)
	return s.mutuals(ctx, a, b)
}

// Invalidate drops cached analyses. It matches connection.ChangeListener.
func (s *Service) Invalidate(_ context.Context, _ *connentity.Connection) {
	s.cache.Invalidate()
}

// ProfileChanged drops cached analyses after a privacy, location or
// activity change. It matches profile.ChangeListener.
func (s *Service) ProfileChanged(_ context.Context, _ *entity.Profile) {
	s.cache.Invalidate()
}

func (s *Service) compute(ctx context.Context, viewer, other string) (pairEntry, error) {
	a, b := ordered(viewer, other)
	pa, pb, err := s.loadPair(ctx, a, b)
	if err != nil {
		return pairEntry{}, err
	}

	mutuals, err := s.mutualsOf(ctx, pa, pb)
	if err != nil {
		return pairEntry{}, err
	}
	analysis := Analyze(mutuals)
	s.logger.Debugw("network analyzed",
		"pair", connentity.PairKey(a, b),
		"mutuals", analysis.TotalMutualConnections,
		"trustability", analysis.TrustabilityScore,
	)
	return pairEntry{
		Analysis: analysis,
		ShowPaths: map[string]bool{
			pa.ID: pa.Privacy.ShowMutualConnections,
			pb.ID: pb.Privacy.ShowMutualConnections,
		},
	}, nil
}

func (s *Service) mutuals(ctx context.Context, a, b string) ([]MutualConnection, error) {
	pa, pb, err := s.loadPair(ctx, a, b)
	if err != nil {
		return nil, err
	}
	return s.mutualsOf(ctx, pa, pb)
}

func (s *Service) loadPair(ctx context.Context, a, b string) (pa, pb *entity.Profile, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		pa, err = s.profiles.GetProfile(gctx, a)
		return err
	})
	g.Go(func() (err error) {
		pb, err = s.profiles.GetProfile(gctx, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return pa, pb, nil
}

// mutualsOf builds the mutual connections of pa and pb in canonical order:
// strength descending, then id.
func (s *Service) mutualsOf(ctx context.Context, pa, pb *entity.Profile) ([]MutualConnection, error) {
	var ca, cb []*connentity.Connection
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ca, err = s.conns.ListConnections(gctx, pa.ID, connentity.Filter{})
		return err
	})
	g.Go(func() (err error) {
		cb, err = s.conns.ListConnections(gctx, pb.ID, connentity.Filter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, c := range ca {
		if c.Involves(pb.ID) && c.Status == connentity.StatusBlocked {
			return nil, fmt.Errorf("analyze %s: %w", connentity.PairKey(pa.ID, pb.ID), apperr.ErrNotPermitted)
		}
	}

	edgesA := acceptedByPeer(pa.ID, ca)
	edgesB := acceptedByPeer(pb.ID, cb)
	var shared []string
	for id := range edgesA {
		if id == pb.ID {
			continue
		}
		if _, ok := edgesB[id]; ok {
			shared = append(shared, id)
		}
	}
	sort.Strings(shared)

	profiles := make([]*entity.Profile, len(shared))
	var mu sync.Mutex
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(maxFanOut)
	for i, id := range shared {
		g.Go(func() error {
			p, err := s.profiles.GetProfile(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			profiles[i] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	common := pa.SharedInterests(pb)
	out := make([]MutualConnection, 0, len(shared))
	for i, p := range profiles {
		if p == nil || !p.Active {
			continue
		}
		withA, withB := edgesA[shared[i]], edgesB[shared[i]]
		out = append(out, MutualConnection{
			Profile:         p,
			ConnectionA:     withA,
			ConnectionB:     withB,
			Strength:        clampStrength(s.strength(p, withA, withB)),
			SharedInterests: intersect(common, p.Interests),
			ActivityOverlap: overlap(common, p.Interests),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Strength != out[j].Strength {
			return out[i].Strength > out[j].Strength
		}
		return out[i].Profile.ID < out[j].Profile.ID
	})
	return out, nil
}

func acceptedByPeer(me string, cs []*connentity.Connection) map[string]*connentity.Connection {
	out := make(map[string]*connentity.Connection, len(cs))
	for _, c := range cs {
		if c.Status == connentity.StatusAccepted {
			out[c.Other(me)] = c
		}
	}
	return out
}

// intersect keeps the items of base that appear in other, in base order.
func intersect(base, other []string) []string {
	if len(base) == 0 || len(other) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(other))
	for _, v := range other {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range base {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

// overlap is the share of the pair's common interests the mutual also holds.
func overlap(common, mutual []string) float64 {
	if len(common) == 0 {
		return 0
	}
	return float64(len(intersect(common, mutual))) / float64(len(common))
}

func ordered(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
