// Package repository defines the data access layer for the ticketing
// service together with the sentinel errors shared across repositories.
// These sentinel values allow higher layers such as the booking service
// and handlers to distinguish between failure scenarios without string
// matching. For example, ErrInsufficientSeats signals that a seat
// reservation lost the race for the last seats, while ErrConflict
// signals that an operation cannot proceed due to dependent records
// (e.g. deleting an event that already has bookings).
package repository

import "errors"

// ErrEventNotFound is returned when no event exists for the given ID.
var ErrEventNotFound = errors.New("event not found")

// ErrBookingNotFound is returned when no booking exists for the given
// ID, or when it belongs to a different customer.  Handlers should
// translate this into an HTTP 404 response.
var ErrBookingNotFound = errors.New("booking not found")

// ErrDiscountNotFound is returned when no discount row exists for the
// given ID or code.
var ErrDiscountNotFound = errors.New("discount not found")

// ErrInsufficientSeats is returned when a conditional seat decrement
// affects no rows because the event no longer has enough available
// seats.  The ledger guarantees no state was mutated.
var ErrInsufficientSeats = errors.New("insufficient seats")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state, such as deleting an event that still
// has bookings. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")
