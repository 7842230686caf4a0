package profile

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/trust"
)

// Repository is the profile store. ListCandidates returns active members of
// an estate minus the excluded ids.
type Repository interface {
	GetProfile(ctx context.Context, id string) (*entity.Profile, error)
	ListCandidates(ctx context.Context, estateID string, excluding map[string]struct{}) ([]*entity.Profile, error)
	ListCandidatesInArea(ctx context.Context, area string, excluding map[string]struct{}) ([]*entity.Profile, error)
	Upsert(ctx context.Context, p *entity.Profile) error
	Deactivate(ctx context.Context, id string) error
}

// Annotated is a profile with its derived trust score and band.
type Annotated struct {
	*entity.Profile
	TrustScore int         `json:"trust_score"`
	TrustLevel trust.Level `json:"trust_level"`
}

// TrustView is the trust projection of one member.
type TrustView struct {
	UserID string      `json:"user_id"`
	Score  int         `json:"score"`
	Level  trust.Level `json:"level"`
}

// Update carries the fields a member may edit on their own profile.
// Verification flags and community counters are set by other systems.
type Update struct {
	DisplayName string          `json:"display_name"`
	Location    entity.Location `json:"location"`
	Interests   []string        `json:"interests"`
	Privacy     entity.Privacy  `json:"privacy"`
}

// ChangeListener is called after a profile was written.
type ChangeListener func(ctx context.Context, p *entity.Profile)

type Option func(*Service)

// WithListener registers fn to run after every successful profile change.
func WithListener(fn ChangeListener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, fn) }
}

type Service struct {
	repo      Repository
	scorer    *trust.Scorer
	logger    *zap.SugaredLogger
	listeners []ChangeListener
}

func NewService(repo Repository, scorer *trust.Scorer, logger *zap.SugaredLogger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if scorer == nil {
		scorer = trust.NewScorer(logger)
	}
	s := &Service{repo: repo, scorer: scorer, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Annotate attaches the trust score and band to p.
func (s *Service) Annotate(p *entity.Profile) Annotated {
	score, level := s.scorer.Assess(p)
	return Annotated{Profile: p, TrustScore: score, TrustLevel: level}
}

// Get loads and annotates a profile.
func (s *Service) Get(ctx context.Context, id string) (Annotated, error) {
	p, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		return Annotated{}, err
	}
	return s.Annotate(p), nil
}

// Trust returns only the trust projection of a member.
func (s *Service) Trust(ctx context.Context, id string) (TrustView, error) {
	p, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		return TrustView{}, err
	}
	score, level := s.scorer.Assess(p)
	return TrustView{UserID: p.ID, Score: score, Level: level}, nil
}

// UpdateOwn applies u to the actor's profile, creating it on first use.
func (s *Service) UpdateOwn(ctx context.Context, actor string, u Update) (Annotated, error) {
	if actor == "" {
		return Annotated{}, apperr.Validation("user id is required")
	}
	name := strings.TrimSpace(u.DisplayName)
	if name == "" {
		return Annotated{}, apperr.Validation("display_name is required")
	}
	if strings.TrimSpace(u.Location.EstateID) == "" {
		return Annotated{}, apperr.Validation("location.estate_id is required")
	}

	p, err := s.repo.GetProfile(ctx, actor)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return Annotated{}, err
		}
		p = &entity.Profile{ID: actor, VerificationLevel: entity.VerificationBasic}
	}
	p.DisplayName = name
	p.Location = u.Location
	p.Interests = normalizeTags(u.Interests)
	p.Privacy = u.Privacy
	p.Active = true

	if err := s.repo.Upsert(ctx, p); err != nil {
		return Annotated{}, err
	}
	s.logger.Infow("profile updated", "id", actor, "estate", p.Location.EstateID)
	out, err := s.Get(ctx, actor)
	if err != nil {
		return Annotated{}, err
	}
	s.notify(ctx, out.Profile)
	return out, nil
}

// Deactivate hides a member from recommendations and new requests.
func (s *Service) Deactivate(ctx context.Context, actor string) error {
	if err := s.repo.Deactivate(ctx, actor); err != nil {
		return err
	}
	s.logger.Infow("profile deactivated", "id", actor)
	s.notify(ctx, &entity.Profile{ID: actor})
	return nil
}

func (s *Service) notify(ctx context.Context, p *entity.Profile) {
	for _, fn := range s.listeners {
		fn(ctx, p)
	}
}

// normalizeTags lowercases, trims and dedupes tags, keeping first-seen order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
