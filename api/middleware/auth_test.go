package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	pkgauth "github.com/farmlinker/farmlinker-backend/pkg/auth"
	"github.com/farmlinker/farmlinker-backend/pkg/config"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	"github.com/farmlinker/farmlinker-backend/pkg/enums"
)

type stubUsers map[int64]*models.User

func (s stubUsers) FindByID(_ context.Context, id int64) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "farmlinker", ExpirationMinutes: 60}

func testUsers() stubUsers {
	return stubUsers{
		1: {ID: 1, Email: "seller@example.com", Role: enums.UserRoleSeller},
		2: {ID: 2, Email: "buyer@example.com", Role: enums.UserRoleBuyer},
	}
}

func mint(t *testing.T, userID int64, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(testJWT, time.Now(), pkgauth.AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

// echoIdentity reports what Authenticate placed in the context.
func echoIdentity(t *testing.T, wantID int64, wantRole enums.UserRole) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		if !ok || id != wantID {
			t.Fatalf("expected user %d in context, got %d (%v)", wantID, id, ok)
		}
		if role := RoleFromContext(r.Context()); role != wantRole {
			t.Fatalf("expected role %s, got %s", wantRole, role)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticateBearer(t *testing.T) {
	// the token claims buyer but the stored account decides the role
	handler := Authenticate(BearerResolver{JWT: testJWT}, testUsers(), nil)(echoIdentity(t, 1, enums.UserRoleSeller))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+mint(t, 1, enums.UserRoleBuyer))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthenticateRejects(t *testing.T) {
	handler := Authenticate(BearerResolver{JWT: testJWT}, testUsers(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	otherIssuer := testJWT
	otherIssuer.Issuer = "someone-else"
	foreign, err := pkgauth.MintAccessToken(otherIssuer, time.Now(), pkgauth.AccessTokenPayload{UserID: 1, Role: enums.UserRoleSeller})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	cases := map[string]string{
		"missing":      "",
		"empty bearer": "Bearer ",
		"garbage":      "Bearer not-a-jwt",
		"wrong issuer": "Bearer " + foreign,
		"unknown user": "Bearer " + mint(t, 99, enums.UserRoleBuyer),
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestHeaderResolver(t *testing.T) {
	handler := Authenticate(HeaderResolver{}, testUsers(), nil)(echoIdentity(t, 2, enums.UserRoleBuyer))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set(UserIDHeader, "2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	for _, raw := range []string{"", "abc", "-1"} {
		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		if raw != "" {
			req.Header.Set(UserIDHeader, raw)
		}
		if _, err := (HeaderResolver{}).Resolve(req); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestNewIdentityResolverFollowsMode(t *testing.T) {
	cfg := &config.Config{JWT: testJWT}
	if _, ok := NewIdentityResolver(cfg).(BearerResolver); !ok {
		t.Fatal("expected bearer resolver by default")
	}
	cfg.Auth.Mode = config.AuthModeHeader
	if _, ok := NewIdentityResolver(cfg).(HeaderResolver); !ok {
		t.Fatal("expected header resolver in header mode")
	}
}

func TestRequireSeller(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := RequireSeller(nil)(ok)

	cases := []struct {
		name   string
		ctx    context.Context
		status int
	}{
		{"anonymous", context.Background(), http.StatusUnauthorized},
		{"buyer", WithIdentity(context.Background(), 2, enums.UserRoleBuyer), http.StatusForbidden},
		{"seller", WithIdentity(context.Background(), 1, enums.UserRoleSeller), http.StatusOK},
		{"both", WithIdentity(context.Background(), 3, enums.UserRoleBoth), http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/products", nil).WithContext(tc.ctx)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, rec.Code)
		}
	}
}
