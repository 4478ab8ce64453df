package booking

import "errors"

// ErrInvalidQuantity is returned when the requested quantity is less
// than one.
var ErrInvalidQuantity = errors.New("invalid quantity")

// ErrEventNotBookable is returned when the event exists but has not
// been approved for sale.
var ErrEventNotBookable = errors.New("event is not open for booking")

// ErrPurchaseLimit is returned when the booking would push the
// customer past the paid-ticket cap for the event.
var ErrPurchaseLimit = errors.New("purchase limit exceeded for this event")

// ErrReservationExpired is returned when the reservation hold elapsed
// before payment.  The transition to EXPIRED has already been
// committed when this error is observed.
var ErrReservationExpired = errors.New("reservation expired")

// ErrAlreadyPaid is returned by Confirm when the booking was paid
// earlier.  The operation is a no-op; callers should treat it as
// success.
var ErrAlreadyPaid = errors.New("booking already paid")

// ErrStateConflict is returned when an operation is illegal in the
// booking's current state, such as paying a cancelled booking or
// cancelling a paid one.
var ErrStateConflict = errors.New("operation not allowed in current booking state")
