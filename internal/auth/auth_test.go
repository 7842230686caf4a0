package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(sub string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    "pitchfork",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
}

func TestVerifier_Verify(t *testing.T) {
	v := NewVerifier(secret, "pitchfork", nil)

	expired := validClaims("u1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExp := validClaims("u1")
	noExp.ExpiresAt = nil
	wrongIss := validClaims("u1")
	wrongIss.Issuer = "other"

	tests := []struct {
		name    string
		token   string
		wantSub string
	}{
		{"valid", sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims("u1")), "u1"},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("nope"), validClaims("u1")), ""},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(secret), expired), ""},
		{"no expiry", sign(t, jwt.SigningMethodHS256, []byte(secret), noExp), ""},
		{"wrong issuer", sign(t, jwt.SigningMethodHS256, []byte(secret), wrongIss), ""},
		{"no subject", sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims("")), ""},
		{"other alg", sign(t, jwt.SigningMethodHS512, []byte(secret), validClaims("u1")), ""},
		{"garbage", "abc.def.ghi", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := v.Verify(tt.token)
			if tt.wantSub == "" {
				assert.ErrorIs(t, err, ErrUnauthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, sub)
		})
	}
}

func TestVerifier_Require(t *testing.T) {
	v := NewVerifier(secret, "", nil)
	var got string
	h := v.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "bearer "+sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims("alice")))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "alice", got)
}

func TestActorFromContext_Empty(t *testing.T) {
	_, ok := ActorFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
	_, ok = ActorFromContext(WithActor(t.Context(), ""))
	assert.False(t, ok)
}
