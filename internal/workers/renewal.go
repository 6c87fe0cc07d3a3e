package workers

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"formbridge/internal/engine/tokens"
	"formbridge/internal/engine/watch"
	"formbridge/internal/platform/google"
	"formbridge/internal/platform/models"
	"formbridge/internal/platform/repositories"
)

// Renewer walks subscriptions whose watch lease runs out soon and renews
// them before the provider stops pushing. Renewal is idempotent upstream, so
// racing a live subscribe call on the same watch is harmless.
type Renewer struct {
	users     *repositories.UserRepository
	subs      *repositories.SubscriptionRepository
	guard     *tokens.Guard
	forms     watch.FormsAPIFactory
	lookahead time.Duration
	now       func() time.Time
}

func NewRenewer(users *repositories.UserRepository, subs *repositories.SubscriptionRepository, guard *tokens.Guard, forms watch.FormsAPIFactory, lookahead time.Duration) *Renewer {
	if lookahead <= 0 {
		lookahead = 72 * time.Hour
	}
	return &Renewer{users: users, subs: subs, guard: guard, forms: forms, lookahead: lookahead, now: time.Now}
}

// Run performs one sweep. Individual failures are logged and skipped; a user
// whose grant turns out dead is skipped entirely for the rest of the sweep.
func (r *Renewer) Run(ctx context.Context) error {
	now := r.now().Unix()
	deadline := r.now().Add(r.lookahead).Unix()

	due, err := r.subs.ListExpiringWithin(now, deadline)
	if err != nil {
		return err
	}

	userCache := make(map[string]*models.User)
	deadUsers := make(map[string]bool)

	for _, sub := range due {
		if deadUsers[sub.UserID] {
			continue
		}

		user, ok := userCache[sub.UserID]
		if !ok {
			user, err = r.users.GetByID(sub.UserID)
			if err != nil {
				log.Error().Err(err).Str("user_id", sub.UserID).Msg("renewal: user load failed")
				continue
			}
			userCache[sub.UserID] = user
		}
		if user == nil || user.LoggedOut() {
			deadUsers[sub.UserID] = true
			continue
		}

		if err := r.guard.EnsureFresh(ctx, user); err != nil {
			if errors.Is(err, tokens.ErrReauthorizationRequired) {
				log.Info().Str("user_id", user.ID).Msg("renewal: user needs reauthorization, skipping")
				deadUsers[user.ID] = true
			} else {
				log.Warn().Err(err).Str("user_id", user.ID).Msg("renewal: token refresh failed")
			}
			continue
		}

		renewed, err := r.forms(user.AccessToken).RenewWatch(ctx, sub.FormID, sub.ID)
		if err != nil {
			if errors.Is(err, google.ErrUnauthorized) {
				r.guard.ClearAuth(user)
				deadUsers[user.ID] = true
			}
			log.Warn().Err(err).Str("subscription_id", sub.ID).Msg("renewal: watch renew failed")
			continue
		}

		sub.WatchExpiredAt = google.ParseWatchTime(renewed.ExpireTime)
		if err := r.subs.Update(sub); err != nil {
			log.Error().Err(err).Str("subscription_id", sub.ID).Msg("renewal: save failed")
			continue
		}
		log.Debug().Str("subscription_id", sub.ID).Msg("renewal: watch renewed")
	}
	return nil
}
