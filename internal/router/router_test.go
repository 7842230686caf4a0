package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/auth"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/connection"
	connentity "github.com/ovaphlow/pitchfork/service-neighbor/internal/connection/entity"
	connrepo "github.com/ovaphlow/pitchfork/service-neighbor/internal/connection/repo"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/network"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/entity"
	profrepo "github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/recommendation"
	dismissrepo "github.com/ovaphlow/pitchfork/service-neighbor/internal/recommendation/repo"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/trust"
	"github.com/ovaphlow/pitchfork/service-neighbor/pkg/utilities"
)

const (
	secret = "router-secret"
	issuer = "neighbor"
)

func resident(id string) *entity.Profile {
	return &entity.Profile{
		ID:          id,
		DisplayName: id,
		Location:    entity.Location{EstateID: "oak", BuildingID: "b1"},
		Privacy:     entity.Privacy{AllowConnections: true, ShowMutualConnections: true},
		Active:      true,
	}
}

func token(t *testing.T, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

type stack struct {
	handler http.Handler
	metrics *metrics.Metrics
}

func newStack(t *testing.T, limiter *ClientLimiter) *stack {
	t.Helper()
	m := metrics.New()
	scorer := trust.NewScorer(nil)
	profiles := profrepo.NewMemoryRepo(resident("ada"), resident("bola"), resident("chidi"))
	conns := connrepo.NewMemoryRepo()

	cache, err := network.NewPairCache(time.Minute)
	require.NoError(t, err)
	netSvc := network.NewService(profiles, conns, network.DefaultStrength(scorer), cache, nil, m)
	connSvc := connection.NewService(conns, profiles, utilities.NewIDGenerator(1), nil,
		connection.WithListener(netSvc.Invalidate))
	recSvc := recommendation.NewService(profiles, conns, dismissrepo.NewMemoryRepo(), nil, nil,
		recommendation.Limits{Default: 10, Max: 20}, nil, m)

	return &stack{
		metrics: m,
		handler: RegisterRoutes(Deps{
			Metrics:        m,
			Verifier:       auth.NewVerifier(secret, issuer, nil),
			Limiter:        limiter,
			Trust:          trust.NewHandler(scorer),
			Profiles:       profile.NewHandler(profile.NewService(profiles, scorer, nil), nil),
			Connections:    connection.NewHandler(connSvc, nil, m, 3),
			Network:        network.NewHandler(netSvc, nil),
			Recommendation: recommendation.NewHandler(recSvc, nil),
		}),
	}
}

func (s *stack) do(t *testing.T, method, path, actor, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, prefix+path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, prefix+path, nil)
	}
	if actor != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, actor))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_Public(t *testing.T) {
	s := newStack(t, nil)

	rec := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = s.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "neighbor_http_requests_total")
}

func TestRoutes_RequireToken(t *testing.T) {
	s := newStack(t, nil)
	for _, path := range []string{
		"/trust/levels",
		"/connection-types",
		"/connections",
		"/recommendations",
		"/network/bola",
		"/profiles/bola",
	} {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, path, "", "").Code)
		})
	}
}

func TestRoutes_ConnectionLifecycle(t *testing.T) {
	s := newStack(t, nil)

	rec := s.do(t, http.MethodPost, "/connections", "ada", `{"to_user_id":"bola","connection_type":"neighbor"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c connentity.Connection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, connentity.StatusPending, c.Status)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/connections/"+c.ID+"/accept", "ada", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/connections/"+c.ID+"/accept", "bola", "").Code)

	rec = s.do(t, http.MethodPost, "/connections", "chidi", `{"to_user_id":"ada","connection_type":"connect"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var c2 connentity.Connection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c2))
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/connections/"+c2.ID+"/accept", "ada", "").Code)

	rec = s.do(t, http.MethodGet, "/network/chidi", "bola", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var analysis network.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Equal(t, 1, analysis.TotalMutualConnections, "ada links bola and chidi")

	rec = s.do(t, http.MethodGet, "/connections?status=accepted", "ada", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []connentity.Connection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	// the route label is the pattern, not the concrete path
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.HTTPRequests.WithLabelValues(
		http.MethodPost, "POST "+prefix+"/connections/{id}/accept", "403")))
}

func TestRoutes_RateLimit(t *testing.T) {
	s := newStack(t, NewClientLimiter(1, 2))

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, s.do(t, http.MethodGet, "/health", "", "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.RateLimited))
}

func TestRequestID_Preserved(t *testing.T) {
	s := newStack(t, nil)
	req := httptest.NewRequest(http.MethodGet, prefix+"/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}
