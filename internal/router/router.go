package router

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/auth"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/connection"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/network"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/recommendation"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/trust"
)

const prefix = "/neighbor-api"

// Deps carries what RegisterRoutes mounts.
type Deps struct {
	Logger   *zap.SugaredLogger
	Metrics  *metrics.Metrics
	Verifier *auth.Verifier
	Limiter  *ClientLimiter

	Trust          *trust.Handler
	Profiles       *profile.Handler
	Connections    *connection.Handler
	Network        *network.Handler
	Recommendation *recommendation.Handler
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
// Everything except health and metrics requires a bearer token.
func RegisterRoutes(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET "+prefix+"/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		mux.Handle("GET "+prefix+"/metrics", d.Metrics.Handler())
	}

	protected := func(pattern string, h http.HandlerFunc) {
		var handler http.Handler = h
		if d.Verifier != nil {
			handler = d.Verifier.Require(handler)
		}
		mux.Handle(pattern, handler)
	}

	if h := d.Trust; h != nil {
		protected("GET "+prefix+"/trust/levels", h.Levels)
		protected("GET "+prefix+"/trust/levels/{score}", h.LevelForScore)
	}
	if h := d.Profiles; h != nil {
		protected("GET "+prefix+"/profiles/{id}", h.Get)
		protected("GET "+prefix+"/profiles/{id}/trust", h.Trust)
		protected("PUT "+prefix+"/profiles/me", h.UpdateMe)
		protected("DELETE "+prefix+"/profiles/me", h.DeactivateMe)
	}
	if h := d.Connections; h != nil {
		protected("GET "+prefix+"/connection-types", h.ListTypes)
		protected("GET "+prefix+"/connection-types/{type}", h.GetType)
		protected("GET "+prefix+"/connection-types/{type}/upgrades", h.UpgradeOptions)

		protected("POST "+prefix+"/connections", h.Send)
		protected("GET "+prefix+"/connections", h.List)
		protected("GET "+prefix+"/connections/{id}", h.Get)
		protected("POST "+prefix+"/connections/{id}/accept", h.Accept)
		protected("POST "+prefix+"/connections/{id}/decline", h.Decline)
		protected("POST "+prefix+"/connections/{id}/upgrade", h.Upgrade)
		protected("POST "+prefix+"/connections/{id}/disconnect", h.Disconnect)
		protected("POST "+prefix+"/connections/{id}/block", h.Block)
		protected("POST "+prefix+"/connections/{id}/unblock", h.Unblock)
		protected("POST "+prefix+"/users/{id}/block", h.BlockUser)
	}
	if h := d.Network; h != nil {
		protected("GET "+prefix+"/network/{otherID}", h.Analyze)
	}
	if h := d.Recommendation; h != nil {
		protected("GET "+prefix+"/recommendations", h.List)
		protected("POST "+prefix+"/recommendations/{candidateID}/dismiss", h.Dismiss)
	}

	// outermost first: request id + logging, security headers, rate limit, metrics
	var handler http.Handler = MetricsMiddleware(d.Metrics)(mux)
	if d.Limiter != nil {
		handler = d.Limiter.Middleware(d.Metrics)(handler)
	}
	handler = SecurityHeadersMiddleware()(handler)
	handler = LoggingMiddleware(logger)(handler)
	return RequestIDMiddleware()(handler)
}
