package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/farmlinker/farmlinker-backend/api/responses"
	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	pkgerrors "github.com/farmlinker/farmlinker-backend/pkg/errors"
	"github.com/farmlinker/farmlinker-backend/pkg/logger"
)

// UserLookup loads the account behind a resolved identity.
type UserLookup interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// Authenticate resolves the caller and requires the account to exist. The
// role placed in the context is read from the account, not from the token.
func Authenticate(resolver IdentityResolver, users UserLookup, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID, err := resolver.Resolve(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			user, err := users.FindByID(ctx, userID)
			if errors.Is(err, store.ErrNotFound) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown user"))
				return
			}
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user"))
				return
			}

			ctx = WithIdentity(ctx, user.ID, user.Role)
			if logg != nil {
				ctx = logg.WithIdentity(ctx, user.ID, string(user.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSeller admits accounts that may list products.
func RequireSeller(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserIDFromContext(r.Context()); !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !RoleFromContext(r.Context()).CanSell() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "seller account required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
