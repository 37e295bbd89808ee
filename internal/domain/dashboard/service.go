package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/cohort"
)

// Options tune how aggregate queries are dispatched.
type Options struct {
	// Concurrency bounds parallel queries per aggregate; 0 means unbounded.
	Concurrency int
	// ReadSnapshot runs every aggregate inside one read-only transaction.
	ReadSnapshot bool
}

// Request is one dashboard query. A nil Window selects the default window.
type Request struct {
	Identity access.Identity
	Window   *carerecord.Window
	Cohort   cohort.Filter
}

type Service struct {
	store    carerecord.Store
	resolver *access.Resolver
	opts     Options
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(store carerecord.Store, resolver *access.Resolver, logger zerolog.Logger, opts Options) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the clock used for "today".
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) today() time.Time {
	t := s.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) batch() carerecord.Batch {
	return carerecord.Batch{Store: s.store, Limit: s.opts.Concurrency, Snapshot: s.opts.ReadSnapshot}
}

// window returns the requested window or the span of recorded next
// appointment dates. With nothing recorded it falls back to today.
func (s *Service) window(ctx context.Context, req Request) (carerecord.Window, error) {
	if req.Window != nil {
		return *req.Window, nil
	}
	w, err := s.store.NextAppointmentRange(ctx)
	if errors.Is(err, carerecord.ErrNotFound) {
		today := s.today()
		s.logger.Info().Msg("no next appointment dates recorded, using today as the window")
		return carerecord.Window{Start: today, End: today}, nil
	}
	if err != nil {
		return carerecord.Window{}, err
	}
	return w, nil
}
