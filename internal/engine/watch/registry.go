package watch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"formbridge/internal/platform/google"
	"formbridge/internal/platform/models"
	"formbridge/internal/platform/repositories"
)

// FormsAPI is the slice of the provider client the registry needs: the
// lease-based watch operations.
type FormsAPI interface {
	CreateWatch(ctx context.Context, formID string) (*google.Watch, error)
	RenewWatch(ctx context.Context, formID, watchID string) (*google.Watch, error)
	DeleteWatch(ctx context.Context, formID, watchID string) error
}

// FormsAPIFactory builds a client bound to one user's access token.
type FormsAPIFactory func(accessToken string) FormsAPI

// Registry owns the mapping from (user, form) to one upstream watch and from
// that watch to the set of webhook targets interested in it.
type Registry struct {
	users *repositories.UserRepository
	subs  *repositories.SubscriptionRepository
	forms FormsAPIFactory
	now   func() time.Time
}

func NewRegistry(users *repositories.UserRepository, subs *repositories.SubscriptionRepository, forms FormsAPIFactory) *Registry {
	return &Registry{users: users, subs: subs, forms: forms, now: time.Now}
}

// Subscribe attaches one webhook target to each of the given forms. Forms are
// processed independently: an upstream failure on one is logged and skipped
// without rolling back the others. The user record is persisted once at the
// end with the accumulated index.
func (r *Registry) Subscribe(ctx context.Context, user *models.User, targetID, targetURI string, formIDs []string) error {
	api := r.forms(user.AccessToken)
	index := append([]models.SubscriptionRef(nil), user.Subscriptions...)

	for _, formID := range formIDs {
		updated, err := r.subscribeForm(ctx, api, user, index, targetID, targetURI, formID)
		if err != nil {
			log.Warn().Err(err).
				Str("user_id", user.ID).
				Str("form_id", formID).
				Msg("subscribe skipped form")
			continue
		}
		index = updated
	}

	user.Subscriptions = index
	return r.users.Update(user)
}

func (r *Registry) subscribeForm(ctx context.Context, api FormsAPI, user *models.User, index []models.SubscriptionRef, targetID, targetURI, formID string) ([]models.SubscriptionRef, error) {
	target := models.WebhookTarget{ID: targetID, URI: targetURI, Active: true}

	// Any prior attachment of this form counts, whatever target created it.
	var existing *models.SubscriptionRef
	for i := range index {
		if index[i].FormID == formID {
			existing = &index[i]
			break
		}
	}

	if existing != nil {
		sub, err := r.subs.GetByID(existing.SubscriptionID)
		if err != nil {
			return index, err
		}
		if sub != nil && !sub.Lapsed(r.now().Unix()) {
			watch, err := api.RenewWatch(ctx, formID, sub.ID)
			if err != nil {
				return index, err
			}
			sub.WatchExpiredAt = google.ParseWatchTime(watch.ExpireTime)
			// Reset the high-water mark so the newly attached target only
			// sees future responses, not the form's whole history.
			sub.MessageReceivedAt = r.now().Unix()
			sub.UpsertTarget(target)
			if err := r.subs.Update(sub); err != nil {
				return index, err
			}
			return setIndexRef(index, formID, targetID, sub.ID), nil
		}
		if sub != nil {
			// The lease lapsed; the upstream watch is gone and cannot be
			// renewed. Drop the record and create from scratch.
			if err := r.subs.Delete(sub.ID); err != nil {
				return index, err
			}
			index = dropIndexBySubscription(index, sub.ID)
		} else {
			// Index pointed at a subscription that no longer exists.
			index = dropIndexBySubscription(index, existing.SubscriptionID)
		}
	}

	watch, err := api.CreateWatch(ctx, formID)
	if err != nil {
		return index, err
	}

	sub := &models.Subscription{
		ID:                watch.ID,
		FormID:            formID,
		UserID:            user.ID,
		WatchExpiredAt:    google.ParseWatchTime(watch.ExpireTime),
		MessageReceivedAt: google.ParseWatchTime(watch.CreateTime),
		Targets:           []models.WebhookTarget{target},
	}
	if err := r.subs.Create(sub); err != nil {
		return index, err
	}
	return setIndexRef(index, formID, targetID, sub.ID), nil
}

// Unsubscribe detaches one target from one form. When the target was the
// subscription's last one the upstream watch is cancelled (if still leased)
// and the record destroyed; otherwise only the target entry is removed.
func (r *Registry) Unsubscribe(ctx context.Context, user *models.User, targetID, formID string) error {
	api := r.forms(user.AccessToken)

	var remaining []models.SubscriptionRef
	for _, ref := range user.Subscriptions {
		if ref.FormID != formID || ref.TargetID != targetID {
			remaining = append(remaining, ref)
			continue
		}

		sub, err := r.subs.GetByID(ref.SubscriptionID)
		if err != nil {
			return err
		}
		if sub == nil {
			continue // index was stale; nothing upstream to undo
		}

		if len(sub.Targets) <= 1 {
			if !sub.Lapsed(r.now().Unix()) {
				if err := api.DeleteWatch(ctx, sub.FormID, sub.ID); err != nil {
					return err
				}
			}
			if err := r.subs.Delete(sub.ID); err != nil {
				return err
			}
		} else {
			sub.RemoveTarget(targetID)
			if err := r.subs.Update(sub); err != nil {
				return err
			}
		}
	}

	user.Subscriptions = remaining
	return r.users.Update(user)
}

func setIndexRef(index []models.SubscriptionRef, formID, targetID, subID string) []models.SubscriptionRef {
	out := make([]models.SubscriptionRef, 0, len(index)+1)
	for _, ref := range index {
		if ref.FormID == formID && ref.TargetID == targetID {
			continue
		}
		out = append(out, ref)
	}
	return append(out, models.SubscriptionRef{SubscriptionID: subID, FormID: formID, TargetID: targetID})
}

func dropIndexBySubscription(index []models.SubscriptionRef, subID string) []models.SubscriptionRef {
	// Fresh allocation: the caller keeps its own copy of the index when a
	// form fails partway, so compacting in place would corrupt it.
	out := make([]models.SubscriptionRef, 0, len(index))
	for _, ref := range index {
		if ref.SubscriptionID != subID {
			out = append(out, ref)
		}
	}
	return out
}
