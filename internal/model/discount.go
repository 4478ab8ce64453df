package model

import "time"

// Discount is a time-boxed percentage promo code.  EventID scopes the
// code to a single event; nil means it applies to all events.  The
// booking workflow treats discounts as read-only.
type Discount struct {
	ID       uint64    `json:"discount_id"`        // discounts.discount_id
	Code     string    `json:"code"`               // discounts.code (lookup key)
	Percent  int       `json:"percent"`            // discounts.percent (0-100)
	StartsAt time.Time `json:"starts_at"`          // discounts.starts_at
	EndsAt   time.Time `json:"ends_at"`            // discounts.ends_at
	EventID  *uint64   `json:"event_id,omitempty"` // discounts.event_id (nullable scope)
	IsActive bool      `json:"is_active"`          // discounts.is_active
}

// AppliesTo reports whether the discount is redeemable for the given
// event at the given instant: active flag set, inside the validity
// window, and either unscoped or scoped to that event.
func (d *Discount) AppliesTo(eventID uint64, now time.Time) bool {
	if !d.IsActive || now.Before(d.StartsAt) || now.After(d.EndsAt) {
		return false
	}
	return d.EventID == nil || *d.EventID == eventID
}
