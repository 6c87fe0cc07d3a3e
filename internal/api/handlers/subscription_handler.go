package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"formbridge/internal/engine/tokens"
	"formbridge/internal/engine/watch"
	apierrors "formbridge/internal/pkg/errors"
	"formbridge/internal/platform/auth"
	"formbridge/internal/platform/google"
	"formbridge/internal/platform/repositories"
)

const maxFormsPerCall = 10

type SubscriptionHandler struct {
	users    *repositories.UserRepository
	registry *watch.Registry
	guard    *tokens.Guard
	tokenSvc *auth.TokenService
	forms    func(accessToken string) *google.Client
}

func NewSubscriptionHandler(users *repositories.UserRepository, registry *watch.Registry, guard *tokens.Guard, tokenSvc *auth.TokenService, forms func(accessToken string) *google.Client) *SubscriptionHandler {
	return &SubscriptionHandler{
		users:    users,
		registry: registry,
		guard:    guard,
		tokenSvc: tokenSvc,
		forms:    forms,
	}
}

type subscribeRequest struct {
	Token        string   `json:"token" validate:"required"`
	RCWebhookURI string   `json:"rcWebhookUri" validate:"required,url"`
	FormIDs      []string `json:"formIds" validate:"required,min=1,max=10,dive,required"`
}

// Subscribe validates the whole batch before any record is touched; an
// oversized or malformed request mutates nothing.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Token == "" {
		apierrors.WriteError(w, http.StatusForbidden, apierrors.ErrCodeForbidden, "Error params", nil)
		return
	}
	if len(req.FormIDs) > maxFormsPerCall {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeBatchTooLarge, "Too many forms in one request", nil)
		return
	}
	if err := validate.Struct(&req); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid subscribe request", nil)
		return
	}

	user := resolveUser(w, req.Token, h.tokenSvc, h.users)
	if user == nil {
		return
	}

	if err := h.guard.EnsureFresh(r.Context(), user); err != nil {
		if errors.Is(err, tokens.ErrReauthorizationRequired) {
			apierrors.WriteError(w, http.StatusUnauthorized, apierrors.ErrCodeReauthorize, "Unauthorized", nil)
			return
		}
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Internal server error", nil)
		return
	}

	targetID := watch.TargetIDFromURI(req.RCWebhookURI)
	if err := h.registry.Subscribe(r.Context(), user, targetID, req.RCWebhookURI, req.FormIDs); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("subscribe failed")
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Internal server error", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

type unsubscribeRequest struct {
	Token        string `json:"token" validate:"required"`
	RCWebhookURI string `json:"rcWebhookUri" validate:"required,url"`
	FormID       string `json:"formId" validate:"required"`
}

func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Token == "" {
		apierrors.WriteError(w, http.StatusForbidden, apierrors.ErrCodeForbidden, "Error params", nil)
		return
	}
	if err := validate.Struct(&req); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid unsubscribe request", nil)
		return
	}

	user := resolveUser(w, req.Token, h.tokenSvc, h.users)
	if user == nil {
		return
	}

	targetID := watch.TargetIDFromURI(req.RCWebhookURI)
	if err := h.registry.Unsubscribe(r.Context(), user, targetID, req.FormID); err != nil {
		if errors.Is(err, google.ErrUnauthorized) {
			apierrors.WriteError(w, http.StatusUnauthorized, apierrors.ErrCodeReauthorize, "Unauthorized", nil)
			return
		}
		log.Error().Err(err).Str("user_id", user.ID).Msg("unsubscribe failed")
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Internal server error", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

// GetFormData fetches the schemas of up to ten forms for the selection UI.
func (h *SubscriptionHandler) GetFormData(w http.ResponseWriter, r *http.Request) {
	rawIDs := r.URL.Query().Get("formIds")
	if rawIDs == "" {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Missing formIds", nil)
		return
	}
	formIDs := strings.Split(rawIDs, ",")
	if len(formIDs) > maxFormsPerCall {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeBatchTooLarge, "Too many forms in one request", nil)
		return
	}

	user := resolveUser(w, r.URL.Query().Get("token"), h.tokenSvc, h.users)
	if user == nil {
		return
	}

	if err := h.guard.EnsureFresh(r.Context(), user); err != nil {
		if errors.Is(err, tokens.ErrReauthorizationRequired) {
			apierrors.WriteError(w, http.StatusUnauthorized, apierrors.ErrCodeReauthorize, "Unauthorized", nil)
			return
		}
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Internal server error", nil)
		return
	}

	api := h.forms(user.AccessToken)
	forms := make([]*google.Form, 0, len(formIDs))
	for _, formID := range formIDs {
		form, err := api.GetForm(r.Context(), strings.TrimSpace(formID))
		if err != nil {
			if errors.Is(err, google.ErrUnauthorized) {
				h.guard.ClearAuth(user)
				apierrors.WriteError(w, http.StatusUnauthorized, apierrors.ErrCodeReauthorize, "Unauthorized", nil)
				return
			}
			log.Error().Err(err).Str("form_id", formID).Msg("form fetch failed")
			apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Internal server error", nil)
			return
		}
		forms = append(forms, form)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"forms": forms})
}
