package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"formbridge/internal/engine/accounts"
	"formbridge/internal/engine/tokens"
	apierrors "formbridge/internal/pkg/errors"
	"formbridge/internal/platform/auth"
	"formbridge/internal/platform/google"
	"formbridge/internal/platform/models"
	"formbridge/internal/platform/repositories"
)

type AuthHandler struct {
	oauth    *google.OAuthClient
	accounts *accounts.Service
	users    *repositories.UserRepository
	guard    *tokens.Guard
	tokenSvc *auth.TokenService
}

func NewAuthHandler(oauth *google.OAuthClient, accountsSvc *accounts.Service, users *repositories.UserRepository, guard *tokens.Guard, tokenSvc *auth.TokenService) *AuthHandler {
	return &AuthHandler{
		oauth:    oauth,
		accounts: accountsSvc,
		users:    users,
		guard:    guard,
		tokenSvc: tokenSvc,
	}
}

func (h *AuthHandler) OpenAuthPage(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.oauth.AuthCodeURL(), http.StatusFound)
}

// OAuthCallback serves the page the provider redirects back to. It only has
// to hand the callback URI to the window that opened the consent popup.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(`<!DOCTYPE html>
<html>
<body>
<script>
  if (window.opener) {
    window.opener.postMessage({ callbackUri: window.location.href }, '*');
    window.close();
  }
</script>
Authorized. You can close this window.
</body>
</html>`))
}

type generateTokenRequest struct {
	CallbackURI string `json:"callbackUri" validate:"required"`
}

func (h *AuthHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	var req generateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if err := validate.Struct(&req); err != nil {
		apierrors.WriteError(w, http.StatusForbidden, apierrors.ErrCodeForbidden, "Params error", nil)
		return
	}

	token, err := h.oauth.ExchangeCode(r.Context(), req.CallbackURI)
	if err != nil {
		if errors.Is(err, google.ErrUnauthorized) {
			apierrors.WriteError(w, http.StatusForbidden, apierrors.ErrCodeForbidden, "Params error", nil)
			return
		}
		log.Error().Err(err).Msg("code exchange failed")
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Internal error", nil)
		return
	}

	expiredAt := nowUnix() + token.ExpiresIn
	userID, err := h.accounts.Authorize(r.Context(), token.AccessToken, token.RefreshToken, expiredAt)
	if err != nil {
		log.Error().Err(err).Msg("authorize failed")
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Internal error", nil)
		return
	}

	jwtToken, err := h.tokenSvc.Generate(userID)
	if err != nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Internal error", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authorize": true,
		"token":     jwtToken,
	})
}

func (h *AuthHandler) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r.URL.Query().Get("token"))
	if user == nil {
		return
	}

	if err := h.guard.EnsureFresh(r.Context(), user); err != nil {
		if errors.Is(err, tokens.ErrReauthorizationRequired) {
			apierrors.WriteError(w, http.StatusUnauthorized, apierrors.ErrCodeReauthorize, "Token invalid.", nil)
			return
		}
		log.Error().Err(err).Str("user_id", user.ID).Msg("token refresh failed")
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Internal error", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": map[string]interface{}{
			"name": user.Name,
		},
	})
}

type revokeTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// RevokeToken logs the user out and retires everything they had subscribed.
func (h *AuthHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	var req revokeTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteError(w, http.StatusForbidden, apierrors.ErrCodeForbidden, "Error params", nil)
		return
	}

	user := h.requireUser(w, req.Token)
	if user == nil {
		return
	}

	if err := h.accounts.Unauthorize(r.Context(), user); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("logout failed")
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Internal error", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"result":     "ok",
		"authorized": false,
	})
}

func (h *AuthHandler) requireUser(w http.ResponseWriter, token string) *models.User {
	return resolveUser(w, token, h.tokenSvc, h.users)
}
