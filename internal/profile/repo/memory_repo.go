package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/entity"
)

// MemoryRepo is an in-process profile store used by tests and local runs.
type MemoryRepo struct {
	mu       sync.RWMutex
	profiles map[string]*entity.Profile
}

func NewMemoryRepo(profiles ...*entity.Profile) *MemoryRepo {
	r := &MemoryRepo{profiles: make(map[string]*entity.Profile)}
	for _, p := range profiles {
		r.profiles[p.ID] = cloneProfile(p)
	}
	return r
}

func (r *MemoryRepo) GetProfile(_ context.Context, id string) (*entity.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, apperr.NotFound("profile", id)
	}
	return cloneProfile(p), nil
}

func (r *MemoryRepo) ListCandidates(_ context.Context, estateID string, excluding map[string]struct{}) ([]*entity.Profile, error) {
	return r.filter(func(p *entity.Profile) bool { return p.Location.EstateID == estateID }, excluding), nil
}

func (r *MemoryRepo) ListCandidatesInArea(_ context.Context, area string, excluding map[string]struct{}) ([]*entity.Profile, error) {
	return r.filter(func(p *entity.Profile) bool { return area != "" && p.Location.Area == area }, excluding), nil
}

func (r *MemoryRepo) filter(keep func(*entity.Profile) bool, excluding map[string]struct{}) []*entity.Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Profile
	for id, p := range r.profiles {
		if _, skip := excluding[id]; skip || !p.Active || !keep(p) {
			continue
		}
		out = append(out, cloneProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Upsert mirrors ProfileRepo.Upsert: an existing profile keeps its
// verification flags, counters and badges.
func (r *MemoryRepo) Upsert(_ context.Context, p *entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	cp := cloneProfile(p)
	cp.Active = true
	cp.UpdatedAt = now
	if existing, ok := r.profiles[p.ID]; ok {
		cp.CreatedAt = existing.CreatedAt
		cp.VerificationLevel = existing.VerificationLevel
		cp.PhoneVerified = existing.PhoneVerified
		cp.IdentityVerified = existing.IdentityVerified
		cp.AddressVerified = existing.AddressVerified
		cp.Endorsements = existing.Endorsements
		cp.EventsOrganized = existing.EventsOrganized
		cp.Badges = append([]string(nil), existing.Badges...)
	} else {
		cp.CreatedAt = now
	}
	r.profiles[p.ID] = cp
	return nil
}

func (r *MemoryRepo) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return apperr.NotFound("profile", id)
	}
	p.Active = false
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneProfile(p *entity.Profile) *entity.Profile {
	cp := *p
	cp.Interests = append([]string(nil), p.Interests...)
	cp.Badges = append([]string(nil), p.Badges...)
	return &cp
}
