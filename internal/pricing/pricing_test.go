package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/starevents/ticketing/internal/model"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func activePromo(percent int, eventID *uint64) *model.Discount {
	return &model.Discount{
		Code:     "SPRING",
		Percent:  percent,
		StartsAt: now.Add(-24 * time.Hour),
		EndsAt:   now.Add(24 * time.Hour),
		EventID:  eventID,
		IsActive: true,
	}
}

func TestComputeBaseOnly(t *testing.T) {
	q := Compute(10000, 2, nil, 1, now, 0, 0)
	assert.Equal(t, int64(20000), q.BaseCents)
	assert.Equal(t, int64(0), q.PromoDiscountCents)
	assert.Equal(t, int64(0), q.RedeemDiscountCents)
	assert.Equal(t, int64(20000), q.FinalCents)
	assert.Equal(t, 0, q.RequiredPoints)
}

func TestComputePromoApplied(t *testing.T) {
	q := Compute(10000, 2, activePromo(10, nil), 1, now, 0, 0)
	assert.Equal(t, "SPRING", q.PromoCode)
	assert.Equal(t, int64(2000), q.PromoDiscountCents)
	assert.Equal(t, int64(18000), q.FinalCents)
}

func TestComputePromoScopedToOtherEventIgnored(t *testing.T) {
	other := uint64(99)
	q := Compute(10000, 2, activePromo(10, &other), 1, now, 0, 0)
	assert.Empty(t, q.PromoCode)
	assert.Equal(t, int64(0), q.PromoDiscountCents)
	assert.Equal(t, int64(20000), q.FinalCents)
}

func TestComputeExpiredPromoIgnored(t *testing.T) {
	promo := activePromo(10, nil)
	promo.EndsAt = now.Add(-time.Hour)
	q := Compute(10000, 2, promo, 1, now, 0, 0)
	assert.Equal(t, int64(0), q.PromoDiscountCents)
}

func TestComputeInactivePromoIgnored(t *testing.T) {
	promo := activePromo(10, nil)
	promo.IsActive = false
	q := Compute(10000, 2, promo, 1, now, 0, 0)
	assert.Equal(t, int64(0), q.PromoDiscountCents)
}

func TestComputeRedeemAfterPromo(t *testing.T) {
	// 20% redemption on the promo-discounted 18000, not on the base.
	q := Compute(10000, 2, activePromo(10, nil), 1, now, 20, 1000)
	assert.Equal(t, 20, q.RedeemPercent)
	assert.Equal(t, 200, q.RequiredPoints)
	assert.Equal(t, int64(3600), q.RedeemDiscountCents)
	assert.Equal(t, int64(14400), q.FinalCents)
	assert.Equal(t, q.BaseCents-q.PromoDiscountCents-q.RedeemDiscountCents, q.FinalCents)
}

func TestComputeRedeemClampedToFifty(t *testing.T) {
	q := Compute(10000, 2, nil, 1, now, 90, 10000)
	assert.Equal(t, MaxRedeemPercent, q.RedeemPercent)
	assert.Equal(t, 500, q.RequiredPoints)
	assert.Equal(t, int64(10000), q.RedeemDiscountCents)
}

func TestComputeNegativeRedeemClampedToZero(t *testing.T) {
	q := Compute(10000, 2, nil, 1, now, -5, 10000)
	assert.Equal(t, 0, q.RedeemPercent)
	assert.Equal(t, int64(0), q.RedeemDiscountCents)
}

func TestComputeRedeemForcedToZeroOnShortBalance(t *testing.T) {
	// 20% needs 200 points but the customer has only 100: redemption is
	// dropped entirely, not partially granted.
	q := Compute(10000, 2, nil, 1, now, 20, 100)
	assert.Equal(t, 0, q.RedeemPercent)
	assert.Equal(t, 0, q.RequiredPoints)
	assert.Equal(t, int64(0), q.RedeemDiscountCents)
	assert.Equal(t, int64(20000), q.FinalCents)
}

func TestComputeFinalNeverNegative(t *testing.T) {
	q := Compute(10000, 1, activePromo(100, nil), 1, now, 50, 10000)
	assert.Equal(t, int64(0), q.FinalCents)
	assert.GreaterOrEqual(t, q.FinalCents, int64(0))
}

func TestEarnedPoints(t *testing.T) {
	assert.Equal(t, 2, EarnedPoints(20000)) // 200.00 -> 2 points
	assert.Equal(t, 0, EarnedPoints(9900))  // 99.00 -> 0 points
	assert.Equal(t, 1, EarnedPoints(19999)) // 199.99 -> 1 point
}
