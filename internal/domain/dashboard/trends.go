package dashboard

import (
	"context"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
)

// TrendPoint is one bucket of a trend series.
type TrendPoint struct {
	WeekLabel string `json:"week_label"`
	WeekStart string `json:"week_start"`
	WeekEnd   string `json:"week_end"`
	Count     int    `json:"count"`
}

type Trends struct {
	DrugPickups []TrendPoint `json:"drug_pickups"`
	ViralLoads  []TrendPoint `json:"viral_loads"`
	TotalVisits []TrendPoint `json:"total_visit"`
}

// DrugPickupReturns counts pickup appointments due in b whose patient has
// since picked up again within b.
func DrugPickupReturns(b carerecord.Window) *predicate.Node {
	return predicate.And(
		predicate.Gt(lastPickup, predicate.Col("event.pharmacy_last_pickup_date")),
		b.Contains(lastPickup),
		b.Contains(predicate.Col("event.next_appointment_date")),
	)
}

// ViralLoadReturns counts sample collections whose patient has a newer
// collection within b. Viral load events carry no next appointment date, so
// only the patient side is bounded by b.
func ViralLoadReturns(b carerecord.Window) *predicate.Node {
	return predicate.And(
		predicate.Gt(sampleDate, predicate.Col("event.last_date_of_sample_collection")),
		b.Contains(sampleDate),
	)
}

// Visits counts patients whose last pickup falls in b.
func Visits(b carerecord.Window) *predicate.Node {
	return b.Contains(lastPickup)
}

// Trends computes the three weekly series. Bucket bounds are fixed before
// any query is dispatched, so parallel dispatch does not change results.
func (s *Service) Trends(ctx context.Context, req Request) (*Trends, error) {
	scope, err := s.resolver.Resolve(ctx, req.Identity)
	if err != nil {
		return nil, err
	}
	w, err := s.window(ctx, req)
	if err != nil {
		return nil, err
	}
	if w.Days() > carerecord.MaxWindowDays {
		trimmed := w.Trailing(carerecord.MaxWindowDays)
		s.logger.Warn().Time("start", w.Start).Time("end", w.End).Time("trimmed_start", trimmed.Start).
			Msg("default window too long for weekly trends, keeping the most recent part")
		w = trimmed
	}

	buckets := WeeklyBuckets(w)
	out := &Trends{
		DrugPickups: points(buckets),
		ViralLoads:  points(buckets),
		TotalVisits: points(buckets),
	}
	if scope.MatchesNothing() {
		return out, nil
	}

	base := req.Cohort.Apply(scope.Predicate(access.Patients))
	queries := make([]carerecord.Query, 0, 3*len(buckets))
	for i, b := range buckets {
		queries = append(queries,
			carerecord.EventCount(s.store, carerecord.EventQuery{
				Kind:        carerecord.DrugPickupEvent,
				Where:       predicate.And(base, DrugPickupReturns(b.Window)),
				JoinPatient: true,
			}, &out.DrugPickups[i].Count),
			carerecord.EventCount(s.store, carerecord.EventQuery{
				Kind:        carerecord.ViralLoadEvent,
				Where:       predicate.And(base, ViralLoadReturns(b.Window)),
				JoinPatient: true,
			}, &out.ViralLoads[i].Count),
			carerecord.PatientCount(s.store, predicate.And(base, Visits(b.Window)), &out.TotalVisits[i].Count),
		)
	}
	if err := s.batch().Run(ctx, queries...); err != nil {
		s.logger.Error().Err(err).Int("buckets", len(buckets)).Msg("appointment trends failed")
		return nil, err
	}
	return out, nil
}

func points(buckets []Bucket) []TrendPoint {
	out := make([]TrendPoint, len(buckets))
	for i, b := range buckets {
		out[i] = TrendPoint{
			WeekLabel: b.Label,
			WeekStart: b.Window.Start.Format(carerecord.DateLayout),
			WeekEnd:   b.Window.End.Format(carerecord.DateLayout),
		}
	}
	return out
}
