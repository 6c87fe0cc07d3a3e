package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"formbridge/internal/platform/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *models.User) error {
	user.CreatedAt = time.Now().Unix()
	user.UpdatedAt = user.CreatedAt

	subsJSON, err := json.Marshal(user.Subscriptions)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO users (id, name, email, access_token, refresh_token, token_expired_at, subscriptions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Name, user.Email, user.AccessToken, user.RefreshToken, user.TokenExpiredAt, string(subsJSON), user.CreatedAt, user.UpdatedAt)
	return err
}

func (r *UserRepository) GetByID(id string) (*models.User, error) {
	user := &models.User{}
	var subsStr sql.NullString
	err := r.db.QueryRow(`
		SELECT id, name, email, access_token, refresh_token, token_expired_at, subscriptions, created_at, updated_at
		FROM users WHERE id = ?
	`, id).Scan(&user.ID, &user.Name, &user.Email, &user.AccessToken, &user.RefreshToken, &user.TokenExpiredAt, &subsStr, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if subsStr.Valid && subsStr.String != "" {
		json.Unmarshal([]byte(subsStr.String), &user.Subscriptions)
	}
	return user, nil
}

func (r *UserRepository) Update(user *models.User) error {
	user.UpdatedAt = time.Now().Unix()

	subsJSON, err := json.Marshal(user.Subscriptions)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		UPDATE users
		SET name = ?, email = ?, access_token = ?, refresh_token = ?, token_expired_at = ?, subscriptions = ?, updated_at = ?
		WHERE id = ?
	`, user.Name, user.Email, user.AccessToken, user.RefreshToken, user.TokenExpiredAt, string(subsJSON), user.UpdatedAt, user.ID)
	return err
}

// ListPage scans users in primary-key order after lastKey, for maintenance
// sweeps over the whole table.
func (r *UserRepository) ListPage(lastKey string, limit int) ([]*models.User, error) {
	rows, err := r.db.Query(`
		SELECT id, name, email, access_token, refresh_token, token_expired_at, subscriptions, created_at, updated_at
		FROM users WHERE id > ? ORDER BY id LIMIT ?
	`, lastKey, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		var subsStr sql.NullString
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.AccessToken, &user.RefreshToken, &user.TokenExpiredAt, &subsStr, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		if subsStr.Valid && subsStr.String != "" {
			json.Unmarshal([]byte(subsStr.String), &user.Subscriptions)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
