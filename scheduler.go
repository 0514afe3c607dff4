package leaserenew

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"log"
	"time"
)

// DefaultPeriod is the time between the end of one renewal cycle and the start of the next.
const DefaultPeriod = 5 * time.Minute

// Renewal is a single renewal attempt against a session.
type Renewal interface {
	RenewOnce(ctx context.Context, s *Session) error
}

// Scheduler runs a Renewal immediately and then periodically until its
// context is cancelled.
type Scheduler struct {
	Session *Session
	Renewal Renewal
	Metrics *Metrics
	Period  time.Duration
	// Tick is how often the loop checks whether a cycle is due.
	Tick time.Duration
}

// NewScheduler returns a Scheduler with a five minute period checked every second.
func NewScheduler(s *Session, r Renewal) *Scheduler {
	return &Scheduler{Session: s, Renewal: r, Period: DefaultPeriod, Tick: time.Second}
}

// Run blocks until ctx is done. Cycles run on the calling goroutine, so they
// never overlap; a cycle's failure is logged and does not stop the loop.
func (sc *Scheduler) Run(ctx context.Context) error {
	log.Print("Scheduler started, performing initial renewal")
	sc.cycle(ctx)

	log.Printf("Scheduling renewals every %s", sc.Period)
	next := time.Now().Add(sc.Period)
	ticker := time.NewTicker(sc.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Print("Scheduler stopped")
			return ctx.Err()
		case now := <-ticker.C:
			if now.Before(next) {
				continue
			}
			sc.cycle(ctx)
			next = time.Now().Add(sc.Period)
		}
	}
}

// cycle runs one renewal, containing any error or panic
func (sc *Scheduler) cycle(ctx context.Context) {
	id := uuid.NewString()
	log.Printf("Cycle %s: starting server renewal", id)

	err := sc.renew(ctx)
	sc.Metrics.observeCycle(err)
	if err != nil {
		log.Printf("Cycle %s: %s", id, err)
		return
	}
	log.Printf("Cycle %s: done", id)
}

func (sc *Scheduler) renew(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrRenewalFailed, r)
			sc.Session.Invalidate(err)
		}
	}()
	return sc.Renewal.RenewOnce(ctx, sc.Session)
}
