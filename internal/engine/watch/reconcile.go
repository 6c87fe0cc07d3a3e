package watch

import (
	"formbridge/internal/platform/models"
)

// ReconcileIndex rebuilds a user's subscription index from the authoritative
// Subscription records. The index is only a cache; whenever the two diverge
// the records win. Ordering follows the records' target order so repeated
// reconciliation is stable.
func ReconcileIndex(user *models.User, live []*models.Subscription) []models.SubscriptionRef {
	var index []models.SubscriptionRef
	for _, sub := range live {
		if sub.UserID != user.ID {
			continue
		}
		for _, target := range sub.Targets {
			index = append(index, models.SubscriptionRef{
				SubscriptionID: sub.ID,
				FormID:         sub.FormID,
				TargetID:       target.ID,
			})
		}
	}
	return index
}

// DropSubscriptionRefs strips every index entry pointing at the given
// subscription id, used when a subscription is retired.
func DropSubscriptionRefs(index []models.SubscriptionRef, subID string) []models.SubscriptionRef {
	var out []models.SubscriptionRef
	for _, ref := range index {
		if ref.SubscriptionID != subID {
			out = append(out, ref)
		}
	}
	return out
}
