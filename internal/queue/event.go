// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingPaidEvent is published when a booking is successfully paid.
// It contains enough information for downstream consumers to log,
// notify, or feed analytics without querying the primary database.
type BookingPaidEvent struct {
	BookingID       uint64 `json:"booking_id"`
	CustomerID      string `json:"customer_id"`
	EventID         uint64 `json:"event_id"`
	EventTitle      string `json:"event_title"`
	Quantity        int    `json:"quantity"`
	FinalPriceCents int64  `json:"final_price_cents"`
	PointsEarned    int    `json:"points_earned"`
	PointsRedeemed  int    `json:"points_redeemed"`
	PaidAt          string `json:"paid_at"`
}
