// Package sweeper runs the background task that reclaims expired
// reservation holds.  Request handlers expire overdue bookings lazily
// when they happen to touch them; the sweeper is the eager path that
// catches everything else.
package sweeper

import (
	"context"
	"log"
	"math/rand"
	"time"
)

// Expirer is the slice of the reservation state machine the sweeper
// needs: expire up to limit overdue bookings, return how many changed.
type Expirer interface {
	ExpireDue(ctx context.Context, limit int) (int, error)
}

// Sweeper polls for overdue PENDING bookings on a fixed interval and
// expires them in batches.  It is stateless between ticks: a restart
// just resumes polling and the next tick's query naturally picks up
// anything still overdue.  The jittered start keeps multiple instances
// from ticking in lockstep; correctness under concurrent instances
// comes from the claim step inside ExpireDue, not from timing.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration
	jitter   time.Duration
	batch    int
}

// New returns a Sweeper ticking every interval with a random start
// delay of up to jitter, expiring at most batch bookings per tick.
func New(expirer Expirer, interval, jitter time.Duration, batch int) *Sweeper {
	if expirer == nil {
		panic("nil expirer passed to sweeper.New")
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{expirer: expirer, interval: interval, jitter: jitter, batch: batch}
}

// Run polls until ctx is cancelled.  Each tick runs one ExpireDue
// batch; errors are logged and the loop keeps going.  A failed tick is
// retried implicitly by the next one.
func (s *Sweeper) Run(ctx context.Context) {
	if s.jitter > 0 {
		delay := time.Duration(rand.Int63n(int64(s.jitter)))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.expirer.ExpireDue(ctx, s.batch)
			if err != nil {
				log.Printf("sweeper: expire tick failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("sweeper: expired %d overdue reservation(s)", n)
			}
		}
	}
}
