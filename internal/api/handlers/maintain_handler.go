package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	apierrors "formbridge/internal/pkg/errors"
	"formbridge/internal/platform/repositories"
)

const maintainPageSize = 50

// MaintainHandler hosts operator-only maintenance endpoints. They are dark
// unless a maintain token is configured.
type MaintainHandler struct {
	users *repositories.UserRepository
	token string
}

func NewMaintainHandler(users *repositories.UserRepository, token string) *MaintainHandler {
	return &MaintainHandler{users: users, token: token}
}

// RemoveUserNames scrubs stored display names, one page per call. The caller
// chains calls with the returned last_key until it comes back empty.
func (h *MaintainHandler) RemoveUserNames(w http.ResponseWriter, r *http.Request) {
	if h.token == "" {
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrCodeNotFound, "Not found", nil)
		return
	}
	if r.URL.Query().Get("maintain_token") != h.token {
		apierrors.WriteError(w, http.StatusForbidden, apierrors.ErrCodeForbidden, "Forbidden", nil)
		return
	}

	lastKey := r.URL.Query().Get("last_key")
	users, err := h.users.ListPage(lastKey, maintainPageSize)
	if err != nil {
		log.Error().Err(err).Msg("maintain: user scan failed")
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Internal error", nil)
		return
	}

	nextKey := ""
	if len(users) == maintainPageSize {
		nextKey = users[len(users)-1].ID
	}
	for _, user := range users {
		if user.Name == "" {
			continue
		}
		user.Name = ""
		if err := h.users.Update(user); err != nil {
			log.Error().Err(err).Str("user_id", user.ID).Msg("maintain: name scrub failed")
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"last_key": nextKey})
}
