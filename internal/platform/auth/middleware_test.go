package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func validClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "cmt-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Roles:   []string{access.RoleAdmin},
		StateID: 3,
	}
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %d, got nil error", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func run(mw echo.MiddlewareFunc, header string, path string) (access.Identity, bool, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath(path)

	var id access.Identity
	var called bool
	err := mw(func(c echo.Context) error {
		called = true
		id, _ = access.IdentityFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	})(c)
	return id, called, err
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, called, err := run(JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "", "/api/v1/dashboard/stats")
	expectStatus(t, err, http.StatusUnauthorized)
	if called {
		t.Error("handler should not run without a token")
	}
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), tt.header, "/")
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ClaimsBecomeIdentity(t *testing.T) {
	claims := validClaims()
	claims.Roles = []string{access.RoleCaseManager}
	claims.CaseManagerID = "CM-042"
	tokenStr := createTestToken(t, claims, testSigningKey)

	id, called, err := run(JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Issuer: "cmt-auth"}), "Bearer "+tokenStr, "/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("handler was not called")
	}
	if id.UserID != "user-123" || id.StateID != 3 || id.CaseManagerID != "CM-042" || !id.Has(access.RoleCaseManager) {
		t.Errorf("unexpected identity %+v", id)
	}
}

func TestJWTMiddleware_RejectedTokens(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-1 * time.Hour))

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
		cfg   JWTConfig
	}{
		{"expired", createTestToken(t, expired, testSigningKey), JWTConfig{SigningKey: testSigningKey}},
		{"no expiry", createTestToken(t, noExpiry, testSigningKey), JWTConfig{SigningKey: testSigningKey}},
		{"wrong key", createTestToken(t, validClaims(), []byte("another-key")), JWTConfig{SigningKey: testSigningKey}},
		{"wrong issuer", createTestToken(t, validClaims(), testSigningKey), JWTConfig{SigningKey: testSigningKey, Issuer: "other"}},
		{"wrong audience", createTestToken(t, validClaims(), testSigningKey), JWTConfig{SigningKey: testSigningKey, Audience: "cmt-api"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, called, err := run(JWTMiddleware(tt.cfg), "Bearer "+tt.token, "/")
			expectStatus(t, err, http.StatusUnauthorized)
			if called {
				t.Error("handler should not run")
			}
		})
	}
}

func TestJWTMiddleware_SkipsPublicPaths(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Skipper: AuthSkipper})
	_, called, err := run(mw, "", "/health")
	if err != nil || !called {
		t.Errorf("public path should bypass auth, err=%v called=%v", err, called)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	mw := DevAuthMiddleware(JWTConfig{SigningKey: testSigningKey})

	id, called, err := run(mw, "", "/")
	if err != nil || !called {
		t.Fatalf("expected dev request through, err=%v", err)
	}
	if !id.Has(access.RoleSuperAdmin) {
		t.Errorf("expected super admin dev identity, got %+v", id)
	}

	_, _, err = run(mw, "Bearer not-a-token", "/")
	expectStatus(t, err, http.StatusUnauthorized)

	id, _, err = run(mw, "Bearer "+createTestToken(t, validClaims(), testSigningKey), "/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.UserID != "user-123" {
		t.Errorf("a presented token should win over the dev identity, got %+v", id)
	}
}
