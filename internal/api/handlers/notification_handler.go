package handlers

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"formbridge/internal/engine/notify"
	apierrors "formbridge/internal/pkg/errors"
)

type NotificationHandler struct {
	dispatcher   *notify.Dispatcher
	sharedSecret string
}

func NewNotificationHandler(dispatcher *notify.Dispatcher, sharedSecret string) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher, sharedSecret: sharedSecret}
}

type notificationEnvelope struct {
	Message *struct {
		Attributes  map[string]string `json:"attributes"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
}

// Receive is the provider's push entrypoint. Malformed envelopes are the
// only client errors; an unknown watch id answers not-found; every internal
// failure still acknowledges with 200 and a soft "error" result so the
// provider does not retry-storm a push that retrying cannot fix.
func (h *NotificationHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var envelope notificationEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil || envelope.Message == nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid notification payload", nil)
		return
	}

	watchID := envelope.Message.Attributes["watchId"]
	publishTime, timeErr := time.Parse(time.RFC3339, envelope.Message.PublishTime)
	if watchID == "" || envelope.Message.PublishTime == "" || timeErr != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid notification payload", nil)
		return
	}

	err := h.dispatcher.OnReceiveNotification(r.Context(), watchID, publishTime)
	if err != nil {
		if errors.Is(err, notify.ErrUnknownWatch) {
			apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrCodeNotFound, "Unknown watch id", nil)
			return
		}
		log.Error().Err(err).Str("watch_id", watchID).Msg("notification dispatch failed")
		writeJSON(w, http.StatusOK, map[string]string{"result": "error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

// InteractiveMessages receives card-button callbacks from the chat side.
// There are no interactive actions to act on yet; the endpoint exists so
// signature verification and payload validation stay in place.
func (h *NotificationHandler) InteractiveMessages(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid body", nil)
		return
	}

	if h.sharedSecret != "" {
		mac := hmac.New(sha1.New, []byte(h.sharedSecret))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))
		if r.Header.Get("X-Glip-Signature") != expected {
			apierrors.WriteError(w, http.StatusUnauthorized, apierrors.ErrCodeUnauthorized, "Invalid signature", nil)
			return
		}
	}

	var payload struct {
		Data interface{} `json:"data"`
		User interface{} `json:"user"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Data == nil || payload.User == nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Params error", nil)
		return
	}

	writeJSON(w, http.StatusOK, "OK")
}
