package middleware

import (
	"net/http"
	"strconv"
	"strings"

	pkgauth "github.com/farmlinker/farmlinker-backend/pkg/auth"
	"github.com/farmlinker/farmlinker-backend/pkg/config"
	pkgerrors "github.com/farmlinker/farmlinker-backend/pkg/errors"
)

// UserIDHeader carries the caller id when header identity is enabled.
const UserIDHeader = "X-User-Id"

// IdentityResolver extracts the claimed user id from a request. Failures are
// returned as typed unauthorized errors.
type IdentityResolver interface {
	Resolve(r *http.Request) (int64, error)
}

// BearerResolver verifies an HS256 access token from the Authorization header.
type BearerResolver struct {
	JWT config.JWTConfig
}

func (b BearerResolver) Resolve(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	token := raw
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgauth.ParseAccessToken(b.JWT, token)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	return claims.UserID, nil
}

// HeaderResolver trusts X-User-Id. Development only.
type HeaderResolver struct{}

func (HeaderResolver) Resolve(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid user id header")
	}
	return id, nil
}

// NewIdentityResolver picks the resolver for the configured auth mode.
func NewIdentityResolver(cfg *config.Config) IdentityResolver {
	if cfg.Auth.HeaderMode() {
		return HeaderResolver{}
	}
	return BearerResolver{JWT: cfg.JWT}
}
