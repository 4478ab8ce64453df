package model

import "time"

// EventStatus is the moderation state of an event.  Only approved
// events are visible to customers and bookable.
type EventStatus string

const (
	EventPending  EventStatus = "PENDING"  // submitted by an organizer, awaiting review
	EventApproved EventStatus = "APPROVED" // visible and bookable
	EventRejected EventStatus = "REJECTED" // hidden from customers
)

// Event represents a ticketed event at a venue.  AvailableSeats is a
// mutable counter owned by the inventory ledger; the invariant
// 0 <= AvailableSeats <= TotalSeats is enforced by the ledger's
// conditional reserve/release statements, never by raw field writes.
//
// Fields:
//  ID               - primary key identifier.
//  Title            - event title shown to customers.
//  Description      - optional longer description.
//  VenueID          - venue where the event takes place.
//  CategoryID       - category used for browsing filters.
//  OrganizerID      - identity-provider ID of the organizer.
//  TicketPriceCents - price of a single ticket in cents.
//  TotalSeats       - seating capacity of the event.
//  AvailableSeats   - seats not currently sold or held.
//  StartsAt         - when the event begins.
//  EndsAt           - when the event ends (after StartsAt).
//  Status           - moderation state (PENDING, APPROVED, REJECTED).
//  CreatedAt        - creation timestamp.
//  UpdatedAt        - last update timestamp.
type Event struct {
	ID               uint64      `json:"event_id"`           // events.event_id
	Title            string      `json:"title"`              // events.title
	Description      *string     `json:"description"`        // events.description (nullable)
	VenueID          uint64      `json:"venue_id"`           // events.venue_id
	CategoryID       uint64      `json:"category_id"`        // events.category_id
	OrganizerID      string      `json:"organizer_id"`       // events.organizer_id
	TicketPriceCents int64       `json:"ticket_price_cents"` // events.ticket_price_cents
	TotalSeats       int         `json:"total_seats"`        // events.total_seats
	AvailableSeats   int         `json:"available_seats"`    // events.available_seats
	StartsAt         time.Time   `json:"starts_at"`          // events.starts_at
	EndsAt           time.Time   `json:"ends_at"`            // events.ends_at
	Status           EventStatus `json:"status"`             // events.status
	CreatedAt        time.Time   `json:"created_at"`         // events.created_at
	UpdatedAt        time.Time   `json:"updated_at"`         // events.updated_at
}
