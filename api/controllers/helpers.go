package controllers

import (
	"net/http"

	"github.com/farmlinker/farmlinker-backend/api/middleware"
	pkgerrors "github.com/farmlinker/farmlinker-backend/pkg/errors"
)

func requireUser(r *http.Request) (int64, error) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return userID, nil
}
