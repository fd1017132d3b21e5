package app

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/clock"
	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/domain"
)

// Sweeper expires overdue Active reservations and reclaims expired seat
// holds in the background. It is a latency optimization only: every
// touch-point already checks-and-expires lazily, so correctness never
// depends on the sweep having run.
type Sweeper struct {
	reservations *ReservationService
	store        ReservationStore
	seats        SeatStore
	clock        clock.Clock
	logger       *logrus.Logger
	interval     time.Duration
	batchSize    int
}

const (
	defaultSweepInterval = 30 * time.Second
	defaultSweepBatch    = 100
)

func NewSweeper(reservations *ReservationService, store ReservationStore, seats SeatStore, clk clock.Clock, logger *logrus.Logger, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		reservations: reservations,
		store:        store,
		seats:        seats,
		clock:        clk,
		logger:       logger,
		interval:     defaultSweepInterval,
		batchSize:    defaultSweepBatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SweeperOption func(*Sweeper)

func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithSweepBatchSize(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, reclaimed, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.WithError(err).Warn("sweep pass finished with errors")
			}
			if expired > 0 || reclaimed > 0 {
				s.logger.WithFields(logrus.Fields{
					"reservations_expired": expired,
					"seats_reclaimed":      reclaimed,
				}).Info("sweep pass")
			}
		}
	}
}

// SweepOnce runs a single pass and returns how many reservations were
// expired and how many seat holds were reclaimed.
func (s *Sweeper) SweepOnce(ctx context.Context) (expired, reclaimed int, err error) {
	now := s.clock.Now()

	overdue, listErr := s.store.ListExpired(ctx, now, s.batchSize)
	if listErr != nil {
		return 0, 0, listErr
	}
	for _, r := range overdue {
		expireErr := s.reservations.Expire(ctx, r.ID)
		switch {
		case expireErr == nil:
			expired++
		case errors.Is(expireErr, domain.ErrAlreadyTerminal):
			// A concurrent confirm, cancel or rival sweep won the flip.
		default:
			err = errors.Join(err, expireErr)
		}
	}

	n, seatErr := s.seats.ReleaseExpired(ctx, now, s.batchSize)
	if seatErr != nil {
		err = errors.Join(err, seatErr)
	}
	reclaimed = n

	return expired, reclaimed, err
}
