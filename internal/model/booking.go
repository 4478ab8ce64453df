package model

import "time"

// BookingStatus is the single source of truth for a booking's lifecycle.
// PENDING is the initial state; the other three are terminal.  Payment
// state is derived from it rather than kept as a parallel field.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingPaid      BookingStatus = "PAID"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingExpired   BookingStatus = "EXPIRED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s BookingStatus) Terminal() bool { return s != BookingPending }

// CanTransition reports whether moving from s to next is a legal
// lifecycle step.  Only PENDING may transition, and only into one of
// the three terminal states.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	if s != BookingPending {
		return false
	}
	switch next {
	case BookingPaid, BookingCancelled, BookingExpired:
		return true
	}
	return false
}

// Booking records a customer's claim on event seats.  It is created in
// PENDING state with the seats already decremented from the event and
// terminates in exactly one of PAID, CANCELLED or EXPIRED.  After a
// terminal transition the row is immutable except for QRCodePath,
// written once when the booking becomes PAID.
//
// Fields:
//  ID                  - primary key identifier.
//  EventID             - event being booked.
//  CustomerID          - identity-provider ID of the customer.
//  Quantity            - number of tickets (at least 1; the paid cap
//                        per customer per event is enforced by the service).
//  TotalPriceCents     - base price before discounts.
//  FinalPriceCents     - price after promo and loyalty discounts.
//  PromoCode           - promo code that actually applied, if any.
//  DiscountCents       - combined discount amount.
//  PointsRedeemed      - loyalty points reserved for redemption.
//  PointsDiscountCents - portion of the discount funded by points.
//  Status              - lifecycle state.
//  BookedAt            - creation timestamp.
//  ReservationExpiresAt - hold deadline; set only while PENDING.
//  QRCodePath          - stored ticket artifact path, set on PAID.
type Booking struct {
	ID                   uint64        `json:"booking_id"`             // bookings.booking_id
	EventID              uint64        `json:"event_id"`               // bookings.event_id
	CustomerID           string        `json:"customer_id"`            // bookings.customer_id
	Quantity             int           `json:"quantity"`               // bookings.quantity
	TotalPriceCents      int64         `json:"total_price_cents"`      // bookings.total_price_cents
	FinalPriceCents      int64         `json:"final_price_cents"`      // bookings.final_price_cents
	PromoCode            *string       `json:"promo_code,omitempty"`   // bookings.promo_code (nullable)
	DiscountCents        int64         `json:"discount_cents"`         // bookings.discount_cents
	PointsRedeemed       int           `json:"points_redeemed"`        // bookings.points_redeemed
	PointsDiscountCents  int64         `json:"points_discount_cents"`  // bookings.points_discount_cents
	Status               BookingStatus `json:"status"`                 // bookings.status
	BookedAt             time.Time     `json:"booked_at"`              // bookings.booked_at
	ReservationExpiresAt *time.Time    `json:"reservation_expires_at"` // bookings.reservation_expires_at (nullable)
	QRCodePath           *string       `json:"qr_code_path,omitempty"` // bookings.qr_code_path (nullable)
}

// PaymentState derives the payment-specific view of the booking from
// its lifecycle status.
func (b *Booking) PaymentState() string {
	switch b.Status {
	case BookingPaid:
		return "PAID"
	case BookingCancelled, BookingExpired:
		return "CANCELLED"
	default:
		return "PENDING"
	}
}

// HoldExpired reports whether a pending booking's reservation window
// has elapsed at the given instant.  Terminal bookings never report
// an expired hold.
func (b *Booking) HoldExpired(now time.Time) bool {
	if b.Status != BookingPending || b.ReservationExpiresAt == nil {
		return false
	}
	return b.ReservationExpiresAt.Before(now)
}
