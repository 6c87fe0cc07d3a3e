package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"formbridge/internal/platform/google"
	"formbridge/internal/platform/models"
)

// ErrReauthorizationRequired means the stored grant is dead. The operation
// chain stops here; nothing short of the user signing in again fixes it.
var ErrReauthorizationRequired = errors.New("tokens: reauthorization required")

type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*google.Token, error)
}

type UserStore interface {
	Update(user *models.User) error
}

// Guard keeps a user's access token usable. Every upstream call goes through
// EnsureFresh first; the refresh happens synchronously and the new tokens are
// persisted before the caller proceeds.
type Guard struct {
	oauth Refresher
	users UserStore
	now   func() time.Time
}

func NewGuard(oauth Refresher, users UserStore) *Guard {
	return &Guard{oauth: oauth, users: users, now: time.Now}
}

func (g *Guard) EnsureFresh(ctx context.Context, user *models.User) error {
	if user.AccessToken == "" || user.RefreshToken == "" {
		return ErrReauthorizationRequired
	}
	if user.TokenExpiredAt > g.now().Unix() {
		return nil
	}

	token, err := g.oauth.RefreshToken(ctx, user.RefreshToken)
	if err != nil {
		if errors.Is(err, google.ErrUnauthorized) {
			// Refresh token revoked or expired. Clear the stored grant so
			// every later call short-circuits to "authorization required".
			g.ClearAuth(user)
			return ErrReauthorizationRequired
		}
		// Transient failure: keep the stored token for the next attempt.
		return err
	}

	user.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		user.RefreshToken = token.RefreshToken
	}
	user.TokenExpiredAt = g.now().Unix() + token.ExpiresIn
	return g.users.Update(user)
}

// ClearAuth wipes the stored credentials and persists the user. The
// subscriptions index is left in place; it is disposable once the user is
// logged out and gets rebuilt on the next sign-in.
func (g *Guard) ClearAuth(user *models.User) {
	user.AccessToken = ""
	user.RefreshToken = ""
	user.TokenExpiredAt = 0
	if err := g.users.Update(user); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to persist cleared tokens")
	}
}
