package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"formbridge/internal/platform/models"
)

type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(sub *models.Subscription) error {
	sub.CreatedAt = time.Now().Unix()
	sub.UpdatedAt = sub.CreatedAt

	targetsJSON, err := json.Marshal(sub.Targets)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO subscriptions (id, form_id, user_id, watch_expired_at, message_received_at, webhook_targets, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.FormID, sub.UserID, sub.WatchExpiredAt, sub.MessageReceivedAt, string(targetsJSON), sub.CreatedAt, sub.UpdatedAt)
	return err
}

func (r *SubscriptionRepository) GetByID(id string) (*models.Subscription, error) {
	row := r.db.QueryRow(`
		SELECT id, form_id, user_id, watch_expired_at, message_received_at, webhook_targets, created_at, updated_at
		FROM subscriptions WHERE id = ?
	`, id)

	sub, err := scanSubscription(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

func (r *SubscriptionRepository) Update(sub *models.Subscription) error {
	sub.UpdatedAt = time.Now().Unix()

	targetsJSON, err := json.Marshal(sub.Targets)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		UPDATE subscriptions
		SET form_id = ?, user_id = ?, watch_expired_at = ?, message_received_at = ?, webhook_targets = ?, updated_at = ?
		WHERE id = ?
	`, sub.FormID, sub.UserID, sub.WatchExpiredAt, sub.MessageReceivedAt, string(targetsJSON), sub.UpdatedAt, sub.ID)
	return err
}

func (r *SubscriptionRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM subscriptions WHERE id = ?`, id)
	return err
}

func (r *SubscriptionRepository) ListByUser(userID string) ([]*models.Subscription, error) {
	rows, err := r.db.Query(`
		SELECT id, form_id, user_id, watch_expired_at, message_received_at, webhook_targets, created_at, updated_at
		FROM subscriptions WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

// ListExpiringWithin returns subscriptions whose lease is still live but runs
// out inside the lookahead window, ordered by owner so the renewal sweep can
// reuse one refreshed token per user.
func (r *SubscriptionRepository) ListExpiringWithin(now, deadline int64) ([]*models.Subscription, error) {
	rows, err := r.db.Query(`
		SELECT id, form_id, user_id, watch_expired_at, message_received_at, webhook_targets, created_at, updated_at
		FROM subscriptions
		WHERE watch_expired_at > ? AND watch_expired_at <= ?
		ORDER BY user_id, watch_expired_at
	`, now, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	sub := &models.Subscription{}
	var targetsStr sql.NullString
	err := row.Scan(&sub.ID, &sub.FormID, &sub.UserID, &sub.WatchExpiredAt, &sub.MessageReceivedAt, &targetsStr, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if targetsStr.Valid && targetsStr.String != "" {
		json.Unmarshal([]byte(targetsStr.String), &sub.Targets)
	}
	return sub, nil
}

func collectSubscriptions(rows *sql.Rows) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
