// Package pricing computes the price of a prospective booking: base
// price, promo-code discount and loyalty-point discount.  It is a pure
// function of its inputs; persistence of the resulting figures is the
// booking service's job.
package pricing

import (
	"time"

	"github.com/starevents/ticketing/internal/model"
)

// PointsPerPercent is how many loyalty points one percent of
// redemption discount costs.
const PointsPerPercent = 10

// MaxRedeemPercent caps how much of a booking can be paid with points.
const MaxRedeemPercent = 50

// Quote breaks down the price of a prospective booking.  All money
// fields are in cents.  RedeemPercent and RequiredPoints reflect the
// redemption actually granted, after clamping and the balance check.
type Quote struct {
	BaseCents           int64  `json:"base_cents"`
	PromoCode           string `json:"promo_code,omitempty"`
	PromoDiscountCents  int64  `json:"promo_discount_cents"`
	RedeemPercent       int    `json:"redeem_percent"`
	RequiredPoints      int    `json:"required_points"`
	RedeemDiscountCents int64  `json:"redeem_discount_cents"`
	FinalCents          int64  `json:"final_cents"`
}

// DiscountCents is the combined promo and redemption discount.
func (q Quote) DiscountCents() int64 { return q.PromoDiscountCents + q.RedeemDiscountCents }

// Compute prices quantity tickets at ticketPriceCents each.
//
// The promo discount applies only when promo is non-nil and valid for
// the event at the given instant; an inapplicable promo silently
// contributes zero rather than failing the quote.  redeemPercent is
// clamped into [0, MaxRedeemPercent] and costs PointsPerPercent points
// per percent; when the customer's balance cannot cover the required
// points the redemption is forced to zero entirely.  The redemption
// discount is computed on the promo-discounted amount, so the final
// price can never go negative.
func Compute(ticketPriceCents int64, quantity int, promo *model.Discount, eventID uint64, now time.Time, redeemPercent, balance int) Quote {
	q := Quote{BaseCents: ticketPriceCents * int64(quantity)}

	if promo != nil && promo.AppliesTo(eventID, now) {
		q.PromoCode = promo.Code
		q.PromoDiscountCents = q.BaseCents * int64(promo.Percent) / 100
	}

	if redeemPercent > MaxRedeemPercent {
		redeemPercent = MaxRedeemPercent
	}
	if redeemPercent < 0 {
		redeemPercent = 0
	}
	required := redeemPercent * PointsPerPercent
	if required > balance {
		redeemPercent = 0
		required = 0
	}
	q.RedeemPercent = redeemPercent
	q.RequiredPoints = required
	if redeemPercent > 0 {
		q.RedeemDiscountCents = (q.BaseCents - q.PromoDiscountCents) * int64(redeemPercent) / 100
	}

	q.FinalCents = q.BaseCents - q.PromoDiscountCents - q.RedeemDiscountCents
	return q
}

// EarnedPoints converts a paid amount into loyalty points: one point
// per 100 currency units spent post-discount, rounded down.
func EarnedPoints(finalCents int64) int {
	return int(finalCents / 10000)
}
