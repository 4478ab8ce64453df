// Package booking implements the reservation state machine that owns
// the lifecycle of a booking: PENDING at creation, then exactly one of
// PAID, CANCELLED or EXPIRED.  Every operation runs as a single
// transaction so the seat counter, the booking row and the loyalty
// balance can never be observed half-updated.
package booking

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/starevents/ticketing/internal/config"
	"github.com/starevents/ticketing/internal/loyalty"
	"github.com/starevents/ticketing/internal/model"
	"github.com/starevents/ticketing/internal/pricing"
	"github.com/starevents/ticketing/internal/queue"
	"github.com/starevents/ticketing/internal/repository"
	"github.com/starevents/ticketing/internal/ticket"
)

// Publisher notifies downstream consumers that a booking was paid.
// Publishing is best effort; failures must not fail the payment.
type Publisher interface {
	BookingPaid(ctx context.Context, ev queue.BookingPaidEvent) error
}

// Settings are the workflow knobs of the state machine.
type Settings struct {
	HoldTTL          time.Duration    // reservation hold length (10m in production)
	MaxPerEvent      int              // paid-ticket cap per customer per event
	ConfirmCapPolicy config.CapPolicy // what to do when the cap check fails at confirm time
}

// Service is the reservation state machine.  It is the only component
// allowed to create or transition bookings; seat-counter changes happen
// as a side effect through the event repository's ledger methods, in
// the same transaction as the status change they belong to.
type Service struct {
	db        *sql.DB
	events    *repository.EventRepo
	bookings  *repository.BookingRepo
	discounts *repository.DiscountRepo
	ledger    *loyalty.Ledger
	tickets   ticket.Generator
	publisher Publisher
	settings  Settings
	now       func() time.Time
}

// NewService constructs the reservation state machine.  tickets and
// publisher may be nil, disabling QR generation and event publishing
// respectively; the repositories and ledger must be non-nil.
func NewService(db *sql.DB, events *repository.EventRepo, bookings *repository.BookingRepo, discounts *repository.DiscountRepo, ledger *loyalty.Ledger, tickets ticket.Generator, publisher Publisher, settings Settings) *Service {
	if db == nil || events == nil || bookings == nil || discounts == nil || ledger == nil {
		panic("nil dependency passed to NewService")
	}
	if settings.HoldTTL <= 0 {
		settings.HoldTTL = 10 * time.Minute
	}
	if settings.MaxPerEvent <= 0 {
		settings.MaxPerEvent = 4
	}
	return &Service{
		db:        db,
		events:    events,
		bookings:  bookings,
		discounts: discounts,
		ledger:    ledger,
		tickets:   tickets,
		publisher: publisher,
		settings:  settings,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateRequest carries the customer's checkout choices.
type CreateRequest struct {
	EventID       uint64 `json:"event_id"`
	Quantity      int    `json:"quantity"`
	PromoCode     string `json:"promo_code"`
	RedeemPercent int    `json:"redeem_percent"`
}

// CreateResult is the newly created reservation plus its price
// breakdown.
type CreateResult struct {
	Booking *model.Booking `json:"booking"`
	Quote   pricing.Quote  `json:"quote"`
}

// Create reserves seats for a customer: it validates quantity and the
// purchase cap, prices the booking, persists it in PENDING state with
// a reservation deadline and decrements the event's seat counter, all
// in one transaction.  Nothing is mutated on any rejection.
func (s *Service) Create(ctx context.Context, customerID string, req CreateRequest) (*CreateResult, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	var out CreateResult
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		ev, err := s.events.GetForUpdateTx(ctx, tx, req.EventID)
		if err != nil {
			return err
		}
		if ev.Status != model.EventApproved {
			return ErrEventNotBookable
		}
		if req.Quantity > ev.AvailableSeats {
			return repository.ErrInsufficientSeats
		}
		paid, err := s.bookings.SumPaidQuantityTx(ctx, tx, customerID, ev.ID, 0)
		if err != nil {
			return err
		}
		if paid+req.Quantity > s.settings.MaxPerEvent {
			return ErrPurchaseLimit
		}

		var promo *model.Discount
		if req.PromoCode != "" {
			if promo, err = s.discounts.FindActiveByCodeTx(ctx, tx, req.PromoCode); err != nil {
				return err
			}
		}
		balance, err := s.ledger.BalanceTx(ctx, tx, customerID)
		if err != nil {
			return err
		}
		now := s.now()
		quote := pricing.Compute(ev.TicketPriceCents, req.Quantity, promo, ev.ID, now, req.RedeemPercent, balance)

		expires := now.Add(s.settings.HoldTTL)
		b := &model.Booking{
			EventID:              ev.ID,
			CustomerID:           customerID,
			Quantity:             req.Quantity,
			TotalPriceCents:      quote.BaseCents,
			FinalPriceCents:      quote.FinalCents,
			DiscountCents:        quote.DiscountCents(),
			PointsRedeemed:       quote.RequiredPoints,
			PointsDiscountCents:  quote.RedeemDiscountCents,
			Status:               model.BookingPending,
			BookedAt:             now,
			ReservationExpiresAt: &expires,
		}
		if quote.PromoCode != "" {
			code := quote.PromoCode
			b.PromoCode = &code
		}
		if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
			return err
		}
		if err := s.events.ReserveSeatsTx(ctx, tx, ev.ID, req.Quantity); err != nil {
			return err
		}
		out = CreateResult{Booking: b, Quote: quote}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Quote prices a prospective booking without reserving anything.  It
// also reports how many tickets the customer may still buy for the
// event.  Used by the checkout screen.
func (s *Service) Quote(ctx context.Context, customerID string, req CreateRequest) (pricing.Quote, int, error) {
	if req.Quantity < 1 {
		return pricing.Quote{}, 0, ErrInvalidQuantity
	}
	ev, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return pricing.Quote{}, 0, err
	}
	if ev.Status != model.EventApproved {
		return pricing.Quote{}, 0, ErrEventNotBookable
	}
	var promo *model.Discount
	if req.PromoCode != "" {
		if promo, err = s.discounts.FindActiveByCode(ctx, req.PromoCode); err != nil {
			return pricing.Quote{}, 0, err
		}
	}
	balance, err := s.ledger.Balance(ctx, customerID)
	if err != nil {
		return pricing.Quote{}, 0, err
	}
	paid, err := s.bookings.SumPaidQuantity(ctx, customerID, ev.ID)
	if err != nil {
		return pricing.Quote{}, 0, err
	}
	remaining := s.settings.MaxPerEvent - paid
	if remaining < 0 {
		remaining = 0
	}
	return pricing.Compute(ev.TicketPriceCents, req.Quantity, promo, ev.ID, s.now(), req.RedeemPercent, balance), remaining, nil
}

// ConfirmResult is the outcome of a successful payment confirmation.
type ConfirmResult struct {
	Booking    *model.Booking     `json:"booking"`
	Settlement loyalty.Settlement `json:"settlement"`
}

// outcome lets a transaction commit state (an expiry, a policy cancel)
// while still reporting a user-facing error: fn returns nil so the
// commit happens, and the captured error is surfaced afterwards.
type outcome struct {
	result ConfirmResult
	err    error
}

// Confirm transitions a PENDING booking to PAID.
//
// If the reservation deadline has passed the booking is expired
// instead (seats released) and ErrReservationExpired is reported.  A
// booking that is already PAID yields ErrAlreadyPaid without touching
// anything.  The purchase cap is re-validated against other paid
// bookings; on breach the configured policy decides between leaving
// the booking PENDING (hold) and cancelling it outright (cancel).  On
// success the loyalty ledger settles earned and redeemed points, the
// ticket artifact is generated and its path stored, and a
// booking.paid event is published after commit.
func (s *Service) Confirm(ctx context.Context, customerID string, bookingID uint64) (*ConfirmResult, error) {
	var out outcome
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		out = outcome{} // reset in case of retry
		b, err := s.bookings.GetForCustomerTx(ctx, tx, bookingID, customerID)
		if err != nil {
			return err
		}
		switch b.Status {
		case model.BookingPaid:
			out.result.Booking = b
			out.err = ErrAlreadyPaid
			return nil
		case model.BookingCancelled, model.BookingExpired:
			out.err = ErrStateConflict
			return nil
		}
		now := s.now()
		if b.HoldExpired(now) {
			if err := s.expireTx(ctx, tx, b); err != nil {
				return err
			}
			out.err = ErrReservationExpired
			return nil
		}
		paid, err := s.bookings.SumPaidQuantityTx(ctx, tx, customerID, b.EventID, b.ID)
		if err != nil {
			return err
		}
		if paid+b.Quantity > s.settings.MaxPerEvent {
			if s.settings.ConfirmCapPolicy == config.CapPolicyCancel {
				if err := s.cancelTx(ctx, tx, b); err != nil {
					return err
				}
			}
			out.err = ErrPurchaseLimit
			return nil
		}

		settlement, err := s.ledger.SettleTx(ctx, tx, b)
		if err != nil {
			return err
		}
		if err := s.bookings.TransitionTx(ctx, tx, b.ID, model.BookingPaid); err != nil {
			return err
		}
		b.Status = model.BookingPaid
		b.ReservationExpiresAt = nil

		if s.tickets != nil {
			ev, err := s.events.GetByID(ctx, b.EventID)
			if err != nil {
				return err
			}
			path, err := s.tickets.Generate(ctx, ticket.Request{
				BookingID:  b.ID,
				CustomerID: b.CustomerID,
				EventTitle: ev.Title,
			})
			if err != nil {
				// The payment stands even when the artifact fails; the
				// ticket can be regenerated from the booking later.
				log.Printf("booking: ticket artifact for #%d failed: %v", b.ID, err)
			} else {
				if err := s.bookings.SetQRPathTx(ctx, tx, b.ID, path); err != nil {
					return err
				}
				b.QRCodePath = &path
			}
		}
		out.result = ConfirmResult{Booking: b, Settlement: settlement}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.err != nil {
		if out.err == ErrAlreadyPaid {
			return &out.result, out.err
		}
		return nil, out.err
	}
	s.publishPaid(ctx, out.result)
	return &out.result, nil
}

// Cancel transitions a PENDING booking to CANCELLED and returns its
// seats.  Any other current state is rejected with ErrStateConflict
// and nothing changes.
func (s *Service) Cancel(ctx context.Context, customerID string, bookingID uint64) (*model.Booking, error) {
	var cancelled *model.Booking
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err := s.bookings.GetForCustomerTx(ctx, tx, bookingID, customerID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingPending {
			return ErrStateConflict
		}
		if err := s.cancelTx(ctx, tx, b); err != nil {
			return err
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// Summary returns a booking for display.  When the reservation
// deadline has passed it performs the lazy expiry transition first and
// reports ErrReservationExpired alongside the updated booking.
func (s *Service) Summary(ctx context.Context, customerID string, bookingID uint64) (*model.Booking, error) {
	var out outcome
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		out = outcome{}
		b, err := s.bookings.GetForCustomerTx(ctx, tx, bookingID, customerID)
		if err != nil {
			return err
		}
		if b.HoldExpired(s.now()) {
			if err := s.expireTx(ctx, tx, b); err != nil {
				return err
			}
			out.err = ErrReservationExpired
		}
		out.result.Booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.result.Booking, out.err
}

// ExpireDue expires up to limit overdue PENDING bookings and returns
// their seats, all in one transaction.  It is idempotent: rows already
// transitioned by a racing request or another sweeper instance are
// skipped by the guarded update.  Returns the number of bookings
// expired.
func (s *Service) ExpireDue(ctx context.Context, limit int) (int, error) {
	expired := 0
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		expired = 0
		due, err := s.bookings.ExpiredPendingTx(ctx, tx, limit)
		if err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}
		ids := make([]uint64, 0, len(due))
		perEvent := make(map[uint64]int)
		for _, b := range due {
			ids = append(ids, b.ID)
			perEvent[b.EventID] += b.Quantity
		}
		n, err := s.bookings.ExpireBatchTx(ctx, tx, ids)
		if err != nil {
			return err
		}
		for eventID, qty := range perEvent {
			if err := s.events.ReleaseSeatsTx(ctx, tx, eventID, qty); err != nil {
				return err
			}
		}
		expired = int(n)
		return nil
	})
	return expired, err
}

// expireTx transitions b to EXPIRED and releases its seats.  Must run
// while b's row is locked and PENDING.
func (s *Service) expireTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	if err := s.bookings.TransitionTx(ctx, tx, b.ID, model.BookingExpired); err != nil {
		return err
	}
	if err := s.events.ReleaseSeatsTx(ctx, tx, b.EventID, b.Quantity); err != nil {
		return err
	}
	b.Status = model.BookingExpired
	b.ReservationExpiresAt = nil
	return nil
}

// cancelTx transitions b to CANCELLED and releases its seats.  Must
// run while b's row is locked and PENDING.
func (s *Service) cancelTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	if err := s.bookings.TransitionTx(ctx, tx, b.ID, model.BookingCancelled); err != nil {
		return err
	}
	if err := s.events.ReleaseSeatsTx(ctx, tx, b.EventID, b.Quantity); err != nil {
		return err
	}
	b.Status = model.BookingCancelled
	b.ReservationExpiresAt = nil
	return nil
}

// publishPaid emits the booking.paid event.  Failures are logged and
// swallowed: the payment has already committed.
func (s *Service) publishPaid(ctx context.Context, res ConfirmResult) {
	if s.publisher == nil {
		return
	}
	b := res.Booking
	ev, err := s.events.GetByID(ctx, b.EventID)
	title := ""
	if err == nil {
		title = ev.Title
	}
	msg := queue.BookingPaidEvent{
		BookingID:       b.ID,
		CustomerID:      b.CustomerID,
		EventID:         b.EventID,
		EventTitle:      title,
		Quantity:        b.Quantity,
		FinalPriceCents: b.FinalPriceCents,
		PointsEarned:    res.Settlement.Earned,
		PointsRedeemed:  res.Settlement.Redeemed,
		PaidAt:          s.now().Format(time.RFC3339),
	}
	if err := s.publisher.BookingPaid(ctx, msg); err != nil {
		log.Printf("booking: publish booking.paid for #%d failed: %v", b.ID, err)
	}
}

// ListForCustomer returns the customer's bookings, optionally limited
// to paid history.
func (s *Service) ListForCustomer(ctx context.Context, customerID string, paidOnly bool) ([]repository.BookingDetail, error) {
	return s.bookings.ListByCustomer(ctx, customerID, paidOnly)
}
