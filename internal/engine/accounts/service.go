package accounts

import (
	"context"

	"github.com/rs/zerolog/log"

	"formbridge/internal/platform/google"
	"formbridge/internal/platform/models"
	"formbridge/internal/platform/repositories"
)

// ProviderAPI is the slice of the provider client sign-in/sign-out needs.
type ProviderAPI interface {
	GetUserInfo(ctx context.Context) (*google.UserInfo, error)
	DeleteWatch(ctx context.Context, formID, watchID string) error
}

type ProviderAPIFactory func(accessToken string) ProviderAPI

type Revoker interface {
	RevokeToken(ctx context.Context, token string) error
}

// Service resolves local user records from upstream identity and tears
// everything down again on sign-out.
type Service struct {
	users    *repositories.UserRepository
	subs     *repositories.SubscriptionRepository
	provider ProviderAPIFactory
	oauth    Revoker
}

func NewService(users *repositories.UserRepository, subs *repositories.SubscriptionRepository, provider ProviderAPIFactory, oauth Revoker) *Service {
	return &Service{users: users, subs: subs, provider: provider, oauth: oauth}
}

// Authorize exchanges a fresh access token for upstream identity and
// creates or updates the local user record. On re-login only the token
// fields change; the stored name and subscription index survive.
func (s *Service) Authorize(ctx context.Context, accessToken, refreshToken string, tokenExpiredAt int64) (string, error) {
	info, err := s.provider(accessToken).GetUserInfo(ctx)
	if err != nil {
		return "", err
	}

	user, err := s.users.GetByID(info.Sub)
	if err != nil {
		return "", err
	}

	if user == nil {
		user = &models.User{
			ID:             info.Sub,
			Name:           info.Name,
			Email:          info.Email,
			AccessToken:    accessToken,
			RefreshToken:   refreshToken,
			TokenExpiredAt: tokenExpiredAt,
			Subscriptions:  []models.SubscriptionRef{},
		}
		if err := s.users.Create(user); err != nil {
			return "", err
		}
		return info.Sub, nil
	}

	user.AccessToken = accessToken
	if refreshToken != "" {
		user.RefreshToken = refreshToken
	}
	user.TokenExpiredAt = tokenExpiredAt
	if user.Name == "" {
		user.Name = info.Name
	}
	if user.Email == "" {
		user.Email = info.Email
	}
	if err := s.users.Update(user); err != nil {
		return "", err
	}
	return info.Sub, nil
}

// Unauthorize logs a user out. Watch cancellation and token revocation are
// best effort; the local teardown (no subscriptions referencing the user, no
// stored tokens) always happens.
func (s *Service) Unauthorize(ctx context.Context, user *models.User) error {
	api := s.provider(user.AccessToken)

	// The index may hold one entry per target for the same subscription, and
	// may also have drifted from the records. Work off the union, once per id.
	type watchRef struct{ formID string }
	refs := make(map[string]watchRef)
	for _, ref := range user.Subscriptions {
		refs[ref.SubscriptionID] = watchRef{formID: ref.FormID}
	}
	live, err := s.subs.ListByUser(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("logout: listing subscriptions failed")
	}
	for _, sub := range live {
		refs[sub.ID] = watchRef{formID: sub.FormID}
	}

	for subID, ref := range refs {
		if err := api.DeleteWatch(ctx, ref.formID, subID); err != nil {
			log.Warn().Err(err).Str("subscription_id", subID).Msg("logout: watch cancel failed")
		}
		if err := s.subs.Delete(subID); err != nil {
			log.Error().Err(err).Str("subscription_id", subID).Msg("logout: subscription delete failed")
		}
	}

	revokeWith := user.RefreshToken
	if revokeWith == "" {
		revokeWith = user.AccessToken
	}
	if err := s.oauth.RevokeToken(ctx, revokeWith); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("logout: token revoke failed")
	}

	user.AccessToken = ""
	user.RefreshToken = ""
	user.TokenExpiredAt = 0
	user.Subscriptions = []models.SubscriptionRef{}
	return s.users.Update(user)
}
