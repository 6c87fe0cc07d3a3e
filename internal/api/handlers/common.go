package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	apierrors "formbridge/internal/pkg/errors"
	"formbridge/internal/platform/auth"
	"formbridge/internal/platform/models"
	"formbridge/internal/platform/repositories"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func nowUnix() int64 {
	return time.Now().Unix()
}

// resolveUser turns a session token into a live user record, writing the
// error response itself when it cannot: 403 for a missing token, 401 for a
// bad token, an unknown user, or a logged-out one.
func resolveUser(w http.ResponseWriter, token string, tokenSvc *auth.TokenService, users *repositories.UserRepository) *models.User {
	if token == "" {
		apierrors.WriteError(w, http.StatusForbidden, apierrors.ErrCodeForbidden, "Error params", nil)
		return nil
	}
	claims, err := tokenSvc.Validate(token)
	if err != nil {
		apierrors.WriteError(w, http.StatusUnauthorized, apierrors.ErrCodeUnauthorized, "Token invalid.", nil)
		return nil
	}
	user, err := users.GetByID(claims.UserID)
	if err != nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Internal error", nil)
		return nil
	}
	if user == nil || user.LoggedOut() {
		apierrors.WriteError(w, http.StatusUnauthorized, apierrors.ErrCodeUnauthorized, "Token invalid.", nil)
		return nil
	}
	return user
}
