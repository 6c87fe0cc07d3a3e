package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"formbridge/internal/engine/tokens"
	"formbridge/internal/engine/watch"
	"formbridge/internal/platform/google"
	"formbridge/internal/platform/models"
	"formbridge/internal/platform/repositories"
)

// ErrUnknownWatch marks a push for a watch id with no local subscription.
// The provider cannot know a watch was retired here, so the HTTP boundary
// answers not-found and nothing else happens.
var ErrUnknownWatch = errors.New("notify: unknown watch id")

type FormsAPI interface {
	GetForm(ctx context.Context, formID string) (*google.Form, error)
	ListResponses(ctx context.Context, formID string, after time.Time) ([]google.FormResponse, error)
	DeleteWatch(ctx context.Context, formID, watchID string) error
}

type FormsAPIFactory func(accessToken string) FormsAPI

type TokenGuard interface {
	EnsureFresh(ctx context.Context, user *models.User) error
	ClearAuth(user *models.User)
}

type CardSender interface {
	PostCard(ctx context.Context, uri string, attachment interface{}) (gone bool, err error)
	PostText(ctx context.Context, uri, title string) error
}

const authLostNotice = "Your Google Forms connection has expired. Please reopen the add-in and sign in again to keep receiving notifications."

// Dispatcher reacts to an inbound provider push: fetch whatever arrived since
// the high-water mark, render each response once, and fan it out to every
// active webhook target of the subscription.
type Dispatcher struct {
	users  *repositories.UserRepository
	subs   *repositories.SubscriptionRepository
	guard  TokenGuard
	forms  FormsAPIFactory
	sender CardSender
	now    func() time.Time
}

func NewDispatcher(users *repositories.UserRepository, subs *repositories.SubscriptionRepository, guard TokenGuard, forms FormsAPIFactory, sender CardSender) *Dispatcher {
	return &Dispatcher{users: users, subs: subs, guard: guard, forms: forms, sender: sender, now: time.Now}
}

// OnReceiveNotification handles one push. The only error classes that reach
// the caller are ErrUnknownWatch, storage failures, and transient upstream
// failures during the fetch; everything tied to dead authorization resolves
// to a silent no-op, because retrying cannot fix it.
func (d *Dispatcher) OnReceiveNotification(ctx context.Context, watchID string, publishTime time.Time) error {
	sub, err := d.subs.GetByID(watchID)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrUnknownWatch
	}

	user, err := d.users.GetByID(sub.UserID)
	if err != nil {
		return err
	}
	if user == nil || user.LoggedOut() {
		return nil
	}

	if err := d.guard.EnsureFresh(ctx, user); err != nil {
		if errors.Is(err, tokens.ErrReauthorizationRequired) {
			d.notifyAuthLost(ctx, sub)
			return nil
		}
		return err
	}

	api := d.forms(user.AccessToken)

	form, err := api.GetForm(ctx, sub.FormID)
	if err != nil {
		return d.fetchError(user, err)
	}
	responses, err := api.ListResponses(ctx, sub.FormID, time.Unix(sub.MessageReceivedAt, 0))
	if err != nil {
		return d.fetchError(user, err)
	}

	gone := d.fanOut(ctx, sub, form, responses)
	for targetID := range gone {
		sub.DeactivateTarget(targetID)
	}

	if sub.AllTargetsInactive() {
		return d.retire(ctx, api, sub)
	}

	sub.MessageReceivedAt = publishTime.Unix()
	return d.subs.Update(sub)
}

// fanOut posts every response to every active target concurrently and
// reports which targets signalled that their endpoint is gone. One target's
// failure never blocks or aborts another's delivery.
func (d *Dispatcher) fanOut(ctx context.Context, sub *models.Subscription, form *google.Form, responses []google.FormResponse) map[string]bool {
	gone := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := range responses {
		attachment := BuildAdaptiveCard(FormatResponse(form, &responses[i]))
		for _, target := range sub.Targets {
			if !target.Active {
				continue
			}
			wg.Add(1)
			go func(target models.WebhookTarget) {
				defer wg.Done()
				targetGone, err := d.sender.PostCard(ctx, target.URI, attachment)
				if err != nil {
					// Transient: the target stays active and catches up on
					// the next notification.
					log.Warn().Err(err).
						Str("subscription_id", sub.ID).
						Str("target_id", target.ID).
						Msg("card delivery failed")
					return
				}
				if targetGone {
					mu.Lock()
					gone[target.ID] = true
					mu.Unlock()
				}
			}(target)
		}
	}
	wg.Wait()
	return gone
}

// retire destroys a subscription whose every target is inactive: best-effort
// upstream cancel, record delete, and index cleanup on the owning user.
func (d *Dispatcher) retire(ctx context.Context, api FormsAPI, sub *models.Subscription) error {
	if !sub.Lapsed(d.now().Unix()) {
		if err := api.DeleteWatch(ctx, sub.FormID, sub.ID); err != nil {
			log.Warn().Err(err).Str("subscription_id", sub.ID).Msg("watch cancel failed during retirement")
		}
	}
	if err := d.subs.Delete(sub.ID); err != nil {
		return err
	}

	owner, err := d.users.GetByID(sub.UserID)
	if err != nil || owner == nil {
		return err
	}
	live, err := d.subs.ListByUser(owner.ID)
	if err != nil {
		return err
	}
	owner.Subscriptions = watch.ReconcileIndex(owner, live)
	return d.users.Update(owner)
}

// notifyAuthLost tells the subscribed channels why the cards stopped. Best
// effort; the channels cannot fix anything, but silence is worse.
func (d *Dispatcher) notifyAuthLost(ctx context.Context, sub *models.Subscription) {
	for _, target := range sub.Targets {
		if !target.Active {
			continue
		}
		if err := d.sender.PostText(ctx, target.URI, authLostNotice); err != nil {
			log.Warn().Err(err).
				Str("subscription_id", sub.ID).
				Str("target_id", target.ID).
				Msg("auth-lost notice failed")
		}
	}
}

// fetchError sorts a schema/response fetch failure: a 401 kills the stored
// grant and ends quietly, anything else propagates for the caller to report
// as a soft error and lean on provider redelivery.
func (d *Dispatcher) fetchError(user *models.User, err error) error {
	if errors.Is(err, google.ErrUnauthorized) {
		d.guard.ClearAuth(user)
		return nil
	}
	return err
}
