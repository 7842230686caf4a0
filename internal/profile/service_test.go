package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/auth"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/trust"
)

func verified() *entity.Profile {
	return &entity.Profile{
		ID:               "ada",
		DisplayName:      "Ada",
		Location:         entity.Location{EstateID: "oak"},
		PhoneVerified:    true,
		IdentityVerified: true,
		Endorsements:     6,
		Active:           true,
	}
}

func TestService_TrustAnnotation(t *testing.T) {
	svc := NewService(repo.NewMemoryRepo(verified()), nil, nil)

	v, err := svc.Trust(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, 62, v.Score)
	assert.Equal(t, trust.LevelTrustedNeighbor, v.Level.ID)

	a, err := svc.Get(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, 62, a.TrustScore)
	assert.Equal(t, "Ada", a.DisplayName)

	_, err = svc.Trust(context.Background(), "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_UpdateOwn(t *testing.T) {
	ctx := context.Background()
	r := repo.NewMemoryRepo(verified())
	svc := NewService(r, nil, nil)

	a, err := svc.UpdateOwn(ctx, "ada", Update{
		DisplayName: "  Ada L ",
		Location:    entity.Location{EstateID: "elm", BuildingID: "b2"},
		Interests:   []string{"Chess", "chess", " ", "Gardening"},
		Privacy:     entity.Privacy{AllowConnections: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada L", a.DisplayName)
	assert.Equal(t, []string{"chess", "gardening"}, a.Interests)
	assert.True(t, a.PhoneVerified, "verification is not member editable")
	assert.Equal(t, 62, a.TrustScore)

	created, err := svc.UpdateOwn(ctx, "newbie", Update{DisplayName: "N", Location: entity.Location{EstateID: "oak"}})
	require.NoError(t, err)
	assert.Equal(t, entity.VerificationBasic, created.VerificationLevel)
	assert.Equal(t, 0, created.TrustScore)

	_, err = svc.UpdateOwn(ctx, "ada", Update{DisplayName: "", Location: entity.Location{EstateID: "oak"}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.UpdateOwn(ctx, "ada", Update{DisplayName: "A"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

// staleRepo serves one outdated snapshot, as a read racing a verification
// update would.
type staleRepo struct {
	*repo.MemoryRepo
	stale *entity.Profile
}

func (r *staleRepo) GetProfile(ctx context.Context, id string) (*entity.Profile, error) {
	if p := r.stale; p != nil && p.ID == id {
		r.stale = nil
		return p, nil
	}
	return r.MemoryRepo.GetProfile(ctx, id)
}

func TestService_UpdateOwnKeepsConcurrentVerification(t *testing.T) {
	ctx := context.Background()
	r := &staleRepo{
		MemoryRepo: repo.NewMemoryRepo(verified()),
		stale:      &entity.Profile{ID: "ada", DisplayName: "Ada", Location: entity.Location{EstateID: "oak"}, Active: true},
	}
	var seen []string
	svc := NewService(r, nil, nil, WithListener(func(_ context.Context, p *entity.Profile) {
		seen = append(seen, p.ID)
	}))

	a, err := svc.UpdateOwn(ctx, "ada", Update{DisplayName: "Ada L", Location: entity.Location{EstateID: "oak"}})
	require.NoError(t, err)
	assert.Equal(t, "Ada L", a.DisplayName)
	assert.True(t, a.PhoneVerified)
	assert.True(t, a.IdentityVerified)
	assert.Equal(t, 6, a.Endorsements)
	assert.Equal(t, 62, a.TrustScore)

	require.NoError(t, svc.Deactivate(ctx, "ada"))
	assert.Equal(t, []string{"ada", "ada"}, seen)

	assert.ErrorIs(t, svc.Deactivate(ctx, "ghost"), apperr.ErrNotFound)
	assert.Len(t, seen, 2, "failed writes do not notify")
}

func TestService_Deactivate(t *testing.T) {
	ctx := context.Background()
	r := repo.NewMemoryRepo(verified())
	svc := NewService(r, nil, nil)

	require.NoError(t, svc.Deactivate(ctx, "ada"))
	p, err := r.GetProfile(ctx, "ada")
	require.NoError(t, err)
	assert.False(t, p.Active)

	left, err := r.ListCandidates(ctx, "oak", nil)
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.ErrorIs(t, svc.Deactivate(ctx, "ghost"), apperr.ErrNotFound)
}

func TestHandler_Routes(t *testing.T) {
	h := NewHandler(NewService(repo.NewMemoryRepo(verified()), nil, nil), nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /profiles/{id}/trust", h.Trust)
	mux.HandleFunc("PUT /profiles/me", h.UpdateMe)
	mux.HandleFunc("DELETE /profiles/me", h.DeactivateMe)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profiles/ada/trust", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var v TrustView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, 62, v.Score)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profiles/ghost/trust", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/profiles/me", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPut, "/profiles/me", strings.NewReader(`{"display_name":"Ada","location":{"estate_id":"oak"}}`))
	req = req.WithContext(auth.WithActor(req.Context(), "ada"))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	big := `{"display_name":"Ada","location":{"estate_id":"oak"},"interests":["` + strings.Repeat("x", maxBodyBytes) + `"]}`
	req = httptest.NewRequest(http.MethodPut, "/profiles/me", strings.NewReader(big))
	req = req.WithContext(auth.WithActor(req.Context(), "ada"))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/profiles/me", nil)
	req = req.WithContext(auth.WithActor(req.Context(), "ada"))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
