package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"formbridge/internal/engine/tokens"
	"formbridge/internal/engine/watch"
	apierrors "formbridge/internal/pkg/errors"
	"formbridge/internal/platform/repositories"
)

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp apierrors.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp.Code
}

func TestSubscribe_BatchTooLargeMutatesNothing(t *testing.T) {
	// Nil collaborators prove the request is rejected before any of them
	// are touched.
	handler := NewSubscriptionHandler(nil, nil, nil, nil, nil)

	formIDs := make([]string, 11)
	for i := range formIDs {
		formIDs[i] = "form"
	}
	w := postJSON(t, handler.Subscribe, "/subscribe", map[string]interface{}{
		"token":        "anything",
		"rcWebhookUri": "https://hooks.example.com/abc",
		"formIds":      formIDs,
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	if code := errorCode(t, w); code != apierrors.ErrCodeBatchTooLarge {
		t.Errorf("Expected %s, got %s", apierrors.ErrCodeBatchTooLarge, code)
	}
}

func TestSubscribe_MissingToken(t *testing.T) {
	handler := NewSubscriptionHandler(nil, nil, nil, nil, nil)

	w := postJSON(t, handler.Subscribe, "/subscribe", map[string]interface{}{
		"rcWebhookUri": "https://hooks.example.com/abc",
		"formIds":      []string{"form-1"},
	})

	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d", w.Code)
	}
}

func TestSubscribe_InvalidWebhookURI(t *testing.T) {
	handler := NewSubscriptionHandler(nil, nil, nil, nil, nil)

	w := postJSON(t, handler.Subscribe, "/subscribe", map[string]interface{}{
		"token":        "anything",
		"rcWebhookUri": "not a url",
		"formIds":      []string{"form-1"},
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	if code := errorCode(t, w); code != apierrors.ErrCodeInvalidInput {
		t.Errorf("Expected %s, got %s", apierrors.ErrCodeInvalidInput, code)
	}
}

func TestSubscribe_BadSessionToken(t *testing.T) {
	db := setupTestDB(t)
	users := repositories.NewUserRepository(db)
	handler := NewSubscriptionHandler(users, nil, nil, newTestTokenService(), nil)

	w := postJSON(t, handler.Subscribe, "/subscribe", map[string]interface{}{
		"token":        "not-a-jwt",
		"rcWebhookUri": "https://hooks.example.com/abc",
		"formIds":      []string{"form-1"},
	})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
}

func TestSubscribe_CreatesSubscription(t *testing.T) {
	db := setupTestDB(t)
	users := repositories.NewUserRepository(db)
	subs := repositories.NewSubscriptionRepository(db)
	api := &fakeWatchAPI{}
	registry := watch.NewRegistry(users, subs, func(string) watch.FormsAPI { return api })
	guard := tokens.NewGuard(nil, users)
	tokenSvc := newTestTokenService()
	user := seedUser(t, users)

	handler := NewSubscriptionHandler(users, registry, guard, tokenSvc, nil)

	w := postJSON(t, handler.Subscribe, "/subscribe", map[string]interface{}{
		"token":        sessionToken(t, tokenSvc, user.ID),
		"rcWebhookUri": "https://hooks.example.com/abc",
		"formIds":      []string{"form-1", "form-2"},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"result":"ok"`) {
		t.Errorf("Expected ok result, got %s", w.Body.String())
	}
	if api.created != 2 {
		t.Errorf("Expected 2 watches created, got %d", api.created)
	}

	stored, err := users.GetByID(user.ID)
	if err != nil {
		t.Fatalf("Failed to reload user: %v", err)
	}
	if len(stored.Subscriptions) != 2 {
		t.Errorf("Expected 2 index entries, got %d", len(stored.Subscriptions))
	}
}

func TestUnsubscribe_RemovesTarget(t *testing.T) {
	db := setupTestDB(t)
	users := repositories.NewUserRepository(db)
	subs := repositories.NewSubscriptionRepository(db)
	api := &fakeWatchAPI{}
	registry := watch.NewRegistry(users, subs, func(string) watch.FormsAPI { return api })
	guard := tokens.NewGuard(nil, users)
	tokenSvc := newTestTokenService()
	user := seedUser(t, users)

	handler := NewSubscriptionHandler(users, registry, guard, tokenSvc, nil)

	uri := "https://hooks.example.com/abc"
	w := postJSON(t, handler.Subscribe, "/subscribe", map[string]interface{}{
		"token":        sessionToken(t, tokenSvc, user.ID),
		"rcWebhookUri": uri,
		"formIds":      []string{"form-1"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Subscribe failed: %d", w.Code)
	}

	w = postJSON(t, handler.Unsubscribe, "/unsubscribe", map[string]interface{}{
		"token":        sessionToken(t, tokenSvc, user.ID),
		"rcWebhookUri": uri,
		"formId":       "form-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(api.deleted) != 1 {
		t.Errorf("Expected 1 watch cancelled, got %d", len(api.deleted))
	}

	stored, err := users.GetByID(user.ID)
	if err != nil {
		t.Fatalf("Failed to reload user: %v", err)
	}
	if len(stored.Subscriptions) != 0 {
		t.Errorf("Expected empty index, got %d entries", len(stored.Subscriptions))
	}
}
