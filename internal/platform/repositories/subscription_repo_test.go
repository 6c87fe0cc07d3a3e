package repositories

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"formbridge/internal/platform/models"
)

var subscriptionColumns = []string{
	"id", "form_id", "user_id", "watch_expired_at", "message_received_at", "webhook_targets", "created_at", "updated_at",
}

func TestSubscriptionRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows(subscriptionColumns).
		AddRow("w1", "form-1", "user-1", int64(1700000000), int64(1699990000),
			`[{"id":"t1","uri":"https://hooks.example.com/a","active":true}]`, int64(0), int64(0))
	mock.ExpectQuery("SELECT (.+) FROM subscriptions WHERE id =").WithArgs("w1").WillReturnRows(rows)

	repo := NewSubscriptionRepository(db)
	sub, err := repo.GetByID("w1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if sub == nil {
		t.Fatal("Expected a subscription")
	}
	if sub.FormID != "form-1" || sub.MessageReceivedAt != 1699990000 {
		t.Errorf("Unexpected subscription: %+v", sub)
	}
	if len(sub.Targets) != 1 || !sub.Targets[0].Active {
		t.Errorf("Targets column not decoded: %+v", sub.Targets)
	}
}

func TestSubscriptionRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM subscriptions WHERE id =").WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(subscriptionColumns))

	repo := NewSubscriptionRepository(db)
	sub, err := repo.GetByID("nope")
	if err != nil {
		t.Fatalf("Expected nil error for a missing record, got %v", err)
	}
	if sub != nil {
		t.Fatal("Expected nil subscription")
	}
}

func TestSubscriptionRepository_UpdateSerializesTargets(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE subscriptions").
		WithArgs("form-1", "user-1", int64(1700000000), int64(1699990000),
			`[{"id":"t1","uri":"https://hooks.example.com/a","active":false}]`,
			sqlmock.AnyArg(), "w1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewSubscriptionRepository(db)
	err = repo.Update(&models.Subscription{
		ID:                "w1",
		FormID:            "form-1",
		UserID:            "user-1",
		WatchExpiredAt:    1700000000,
		MessageReceivedAt: 1699990000,
		Targets:           []models.WebhookTarget{{ID: "t1", URI: "https://hooks.example.com/a", Active: false}},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestSubscriptionRepository_ListExpiringWithin(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows(subscriptionColumns).
		AddRow("w1", "form-1", "user-1", int64(1500), int64(0), "[]", int64(0), int64(0)).
		AddRow("w2", "form-2", "user-1", int64(1800), int64(0), "[]", int64(0), int64(0))
	mock.ExpectQuery("SELECT (.+) FROM subscriptions\\s+WHERE watch_expired_at > (.+) AND watch_expired_at <=").
		WithArgs(int64(1000), int64(2000)).WillReturnRows(rows)

	repo := NewSubscriptionRepository(db)
	subs, err := repo.ListExpiringWithin(1000, 2000)
	if err != nil {
		t.Fatalf("ListExpiringWithin failed: %v", err)
	}
	if len(subs) != 2 || subs[0].ID != "w1" {
		t.Errorf("Unexpected result: %+v", subs)
	}
}

func TestSubscriptionRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM subscriptions WHERE id =").WithArgs("w1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewSubscriptionRepository(db)
	if err := repo.Delete("w1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
}
