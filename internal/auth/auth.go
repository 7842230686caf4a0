// Package auth identifies the acting user from a bearer token. Tokens are
// issued elsewhere; this package only verifies them.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type ctxKey struct{}

// WithActor returns a context carrying the acting user id.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// ActorFromContext returns the acting user id set by Require.
func ActorFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	issuer string
	logger *zap.SugaredLogger
}

func NewVerifier(secret, issuer string, logger *zap.SugaredLogger) *Verifier {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, logger: logger}
}

// Verify parses token and returns its subject.
func (v *Verifier) Verify(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", errors.Join(ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return "", errors.Join(ErrUnauthenticated, errors.New("token has no subject"))
	}
	return claims.Subject, nil
}

// Require rejects requests without a valid bearer token and stores the
// subject in the request context.
func (v *Verifier) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearer(r)
		if !ok {
			unauthorized(w)
			return
		}
		sub, err := v.Verify(raw)
		if err != nil {
			v.logger.Debugw("rejected token", "path", r.URL.Path, "err", err)
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), sub)))
	})
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="neighbor"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthenticated"})
}
