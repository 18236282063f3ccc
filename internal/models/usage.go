package models

import (
	"time"
)

// UsageLabel names a quota-limited action
type UsageLabel string

const (
	UsageApproveComment UsageLabel = "approve_comment"
	UsageQuickApprove   UsageLabel = "quick_approve"
	UsageCreateSite     UsageLabel = "create_site"
)

// FreeTierLimits are the per-label ceilings applied to owners without an
// active subscription. The two period labels reset monthly; create_site
// is counted live from non-deleted project rows.
var FreeTierLimits = map[UsageLabel]int{
	UsageApproveComment: 100,
	UsageQuickApprove:   10,
	UsageCreateSite:     3,
}

// Usage is one per-(owner, label) monotonically increasing counter
type Usage struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Label     UsageLabel `json:"label" db:"label"`
	Count     int        `json:"count" db:"count"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// SubscriptionStatusActive and friends mirror the payment provider's states
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription is an owner's paid entitlement record. This service only
// reads subscriptions; the payment provider webhook writes them.
type Subscription struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Status    string     `json:"status" db:"status"`
	EndsAt    *time.Time `json:"ends_at,omitempty" db:"ends_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the subscription currently exempts the owner
// from free-tier ceilings: active, or cancelled but paid through a future
// date.
func (s *Subscription) IsActive(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.Status == SubscriptionStatusActive {
		return true
	}
	return s.Status == SubscriptionStatusCancelled && s.EndsAt != nil && s.EndsAt.After(now)
}
