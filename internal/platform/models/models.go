package models

// User is one authorized Google account. The primary key is the stable
// external identity id (the OAuth "sub" claim). An empty AccessToken means
// the user is logged out and no per-form operation may proceed.
type User struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	AccessToken    string            `json:"-"`
	RefreshToken   string            `json:"-"`
	TokenExpiredAt int64             `json:"token_expired_at"`
	Subscriptions  []SubscriptionRef `json:"subscriptions"` // JSON column in DB
	CreatedAt      int64             `json:"created_at"`
	UpdatedAt      int64             `json:"updated_at"`
}

// SubscriptionRef is one entry of the user's local subscription index: which
// webhook target the user attached to which form, and under which watch. The
// index is a secondary cache; the Subscription record stays authoritative.
type SubscriptionRef struct {
	SubscriptionID string `json:"subscriptionId"`
	FormID         string `json:"formId"`
	TargetID       string `json:"targetId"`
}

func (u *User) LoggedOut() bool {
	return u.AccessToken == ""
}

// Subscription is one upstream watch, keyed by the watch id the forms
// provider assigned. It fans notifications out to every webhook target in
// Targets and must be destroyed the moment the target set empties.
type Subscription struct {
	ID                string          `json:"id"` // upstream watch id
	FormID            string          `json:"form_id"`
	UserID            string          `json:"user_id"`
	WatchExpiredAt    int64           `json:"watch_expired_at"`
	MessageReceivedAt int64           `json:"message_received_at"` // high-water mark
	Targets           []WebhookTarget `json:"webhook_targets"`     // JSON column in DB
	CreatedAt         int64           `json:"created_at"`
	UpdatedAt         int64           `json:"updated_at"`
}

// WebhookTarget is one chat endpoint interested in this subscription's form.
// ID is derived from the URI so the same endpoint never registers twice.
type WebhookTarget struct {
	ID     string `json:"id"`
	URI    string `json:"uri"`
	Active bool   `json:"active"`
}

func (s *Subscription) Lapsed(now int64) bool {
	return s.WatchExpiredAt <= now
}

// UpsertTarget deduplicates by target id; the newest registration for a given
// id wins and is ordered first.
func (s *Subscription) UpsertTarget(target WebhookTarget) {
	kept := make([]WebhookTarget, 0, len(s.Targets)+1)
	kept = append(kept, target)
	for _, t := range s.Targets {
		if t.ID != target.ID {
			kept = append(kept, t)
		}
	}
	s.Targets = kept
}

func (s *Subscription) RemoveTarget(targetID string) {
	kept := s.Targets[:0]
	for _, t := range s.Targets {
		if t.ID != targetID {
			kept = append(kept, t)
		}
	}
	s.Targets = kept
}

func (s *Subscription) HasTarget(targetID string) bool {
	for _, t := range s.Targets {
		if t.ID == targetID {
			return true
		}
	}
	return false
}

func (s *Subscription) DeactivateTarget(targetID string) {
	for i := range s.Targets {
		if s.Targets[i].ID == targetID {
			s.Targets[i].Active = false
		}
	}
}

// AllTargetsInactive reports whether nothing is left to deliver to. True for
// an empty set as well, which also means the subscription is dead.
func (s *Subscription) AllTargetsInactive() bool {
	for _, t := range s.Targets {
		if t.Active {
			return false
		}
	}
	return true
}
