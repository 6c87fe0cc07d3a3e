package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"formbridge/internal/platform/auth"
	"formbridge/internal/platform/config"
	"formbridge/internal/platform/google"
	"formbridge/internal/platform/models"
	"formbridge/internal/platform/repositories"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		access_token TEXT NOT NULL DEFAULT '',
		refresh_token TEXT NOT NULL DEFAULT '',
		token_expired_at INTEGER NOT NULL DEFAULT 0,
		subscriptions TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE subscriptions (
		id TEXT PRIMARY KEY,
		form_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		watch_expired_at INTEGER NOT NULL DEFAULT 0,
		message_received_at INTEGER NOT NULL DEFAULT 0,
		webhook_targets TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func newTestTokenService() *auth.TokenService {
	return auth.NewTokenService(config.JWTConfig{Secret: "test-secret", TokenTTL: time.Hour})
}

func seedUser(t *testing.T, users *repositories.UserRepository) *models.User {
	t.Helper()
	user := &models.User{
		ID:             "user-1",
		Name:           "Test User",
		AccessToken:    "access",
		RefreshToken:   "refresh",
		TokenExpiredAt: time.Now().Add(time.Hour).Unix(),
	}
	if err := users.Create(user); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return user
}

func sessionToken(t *testing.T, tokenSvc *auth.TokenService, userID string) string {
	t.Helper()
	token, err := tokenSvc.Generate(userID)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

// fakeWatchAPI stands in for the provider's watch endpoints.
type fakeWatchAPI struct {
	created int
	deleted []string
}

func (f *fakeWatchAPI) CreateWatch(ctx context.Context, formID string) (*google.Watch, error) {
	f.created++
	now := time.Now().UTC()
	return &google.Watch{
		ID:         fmt.Sprintf("watch-%s-%d", formID, f.created),
		CreateTime: now.Format(time.RFC3339),
		ExpireTime: now.Add(7 * 24 * time.Hour).Format(time.RFC3339),
	}, nil
}

func (f *fakeWatchAPI) RenewWatch(ctx context.Context, formID, watchID string) (*google.Watch, error) {
	return &google.Watch{
		ID:         watchID,
		ExpireTime: time.Now().UTC().Add(7 * 24 * time.Hour).Format(time.RFC3339),
	}, nil
}

func (f *fakeWatchAPI) DeleteWatch(ctx context.Context, formID, watchID string) error {
	f.deleted = append(f.deleted, watchID)
	return nil
}

// fakeNotifyAPI stands in for the provider's form and response endpoints.
type fakeNotifyAPI struct {
	form      *google.Form
	responses []google.FormResponse
}

func (f *fakeNotifyAPI) GetForm(ctx context.Context, formID string) (*google.Form, error) {
	return f.form, nil
}

func (f *fakeNotifyAPI) ListResponses(ctx context.Context, formID string, after time.Time) ([]google.FormResponse, error) {
	return f.responses, nil
}

func (f *fakeNotifyAPI) DeleteWatch(ctx context.Context, formID, watchID string) error {
	return nil
}

// fakeCardSender records deliveries instead of posting them.
type fakeCardSender struct {
	posts []string
	texts []string
}

func (f *fakeCardSender) PostCard(ctx context.Context, uri string, attachment interface{}) (bool, error) {
	f.posts = append(f.posts, uri)
	return false, nil
}

func (f *fakeCardSender) PostText(ctx context.Context, uri, title string) error {
	f.texts = append(f.texts, uri)
	return nil
}
