package carerecord

import (
	"context"
	"time"

	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
)

// ObserveFunc receives the duration and outcome of one store call.
type ObserveFunc func(op string, d time.Duration, err error)

// InstrumentedStore reports every call of the wrapped Store to an ObserveFunc.
type InstrumentedStore struct {
	next    Store
	observe ObserveFunc
}

func NewInstrumentedStore(next Store, observe ObserveFunc) *InstrumentedStore {
	return &InstrumentedStore{next: next, observe: observe}
}

func (s *InstrumentedStore) track(op string, start time.Time, err error) {
	if s.observe != nil {
		s.observe(op, time.Since(start), err)
	}
}

func (s *InstrumentedStore) StateName(ctx context.Context, stateID int) (name string, err error) {
	defer func(start time.Time) { s.track("state_name", start, err) }(time.Now())
	return s.next.StateName(ctx, stateID)
}

func (s *InstrumentedStore) CaseManager(ctx context.Context, id string) (cm *CaseManager, err error) {
	defer func(start time.Time) { s.track("case_manager", start, err) }(time.Now())
	return s.next.CaseManager(ctx, id)
}

func (s *InstrumentedStore) Team(ctx context.Context, id int) (t *Team, err error) {
	defer func(start time.Time) { s.track("team", start, err) }(time.Now())
	return s.next.Team(ctx, id)
}

func (s *InstrumentedStore) NextAppointmentRange(ctx context.Context) (w Window, err error) {
	defer func(start time.Time) { s.track("next_appointment_range", start, err) }(time.Now())
	return s.next.NextAppointmentRange(ctx)
}

func (s *InstrumentedStore) CountPatients(ctx context.Context, where *predicate.Node) (n int, err error) {
	defer func(start time.Time) { s.track("count_patients", start, err) }(time.Now())
	return s.next.CountPatients(ctx, where)
}

func (s *InstrumentedStore) CountEvents(ctx context.Context, q EventQuery) (n int, err error) {
	defer func(start time.Time) { s.track("count_"+q.Kind.String()+"_events", start, err) }(time.Now())
	return s.next.CountEvents(ctx, q)
}

func (s *InstrumentedStore) ListCaseManagers(ctx context.Context, where *predicate.Node) (out []CaseManager, err error) {
	defer func(start time.Time) { s.track("list_case_managers", start, err) }(time.Now())
	return s.next.ListCaseManagers(ctx, where)
}

func (s *InstrumentedStore) ListTeams(ctx context.Context, where *predicate.Node) (out []Team, err error) {
	defer func(start time.Time) { s.track("list_teams", start, err) }(time.Now())
	return s.next.ListTeams(ctx, where)
}

func (s *InstrumentedStore) ListPatients(ctx context.Context, q PatientQuery) (out []Patient, err error) {
	defer func(start time.Time) { s.track("list_patients", start, err) }(time.Now())
	return s.next.ListPatients(ctx, q)
}

func (s *InstrumentedStore) CaseManagerScores(ctx context.Context, q ScoreQuery) (out []ScoredCaseManager, err error) {
	defer func(start time.Time) { s.track("case_manager_scores", start, err) }(time.Now())
	return s.next.CaseManagerScores(ctx, q)
}

func (s *InstrumentedStore) TeamScores(ctx context.Context, q ScoreQuery) (out []TeamMemberScore, err error) {
	defer func(start time.Time) { s.track("team_scores", start, err) }(time.Now())
	return s.next.TeamScores(ctx, q)
}

func (s *InstrumentedStore) ReadSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.next.ReadSnapshot(ctx, fn)
}
