// Package casemanager reports the caseload of a single case manager.
package casemanager

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/dashboard"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
)

// Outcome values recorded on the patient line list.
const (
	OutcomeDead           = "Dead"
	OutcomeTransferredOut = "Transferred out"
	OutcomeStopped        = "Stopped"
)

type ViralLoad struct {
	Eligible     int `json:"eligible"`
	TotalResults int `json:"total_results"`
	Suppressed   int `json:"suppressed"`
	Collected    int `json:"collected"`
}

type Appointments struct {
	Total    int `json:"total"`
	Upcoming int `json:"upcoming"`
	PastDue  int `json:"past_due"`
}

type Stats struct {
	CaseManagerID  string       `json:"case_manager_id"`
	TotalPatients  int          `json:"total_patients"`
	TxCur          int          `json:"tx_cur"`
	IIT            int          `json:"iit"`
	Dead           int          `json:"dead"`
	TransferredOut int          `json:"transferred_out"`
	Stopped        int          `json:"stopped"`
	ViralLoad      ViralLoad    `json:"viral_load"`
	Appointments   Appointments `json:"appointments"`
}

type Service struct {
	store    carerecord.Store
	resolver *access.Resolver
	batch    carerecord.Batch
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(store carerecord.Store, resolver *access.Resolver, logger zerolog.Logger, opts dashboard.Options) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		batch:    carerecord.Batch{Store: store, Limit: opts.Concurrency, Snapshot: opts.ReadSnapshot},
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Stats computes the caseload of case manager cmID. Callers may only see
// case managers inside their scope; anyone else is not found.
func (s *Service) Stats(ctx context.Context, id access.Identity, cmID string) (*Stats, error) {
	scope, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	cm, err := s.store.CaseManager(ctx, cmID)
	if err != nil {
		return nil, err
	}
	if !scope.AllowsCaseManager(cm) {
		return nil, carerecord.NotFound("case manager %s", cmID)
	}

	today := predicate.Date(s.now().UTC())
	patients := predicate.Eq(predicate.Col("patient.case_manager_id"), predicate.Val(cm.CMID))
	own := func(n *predicate.Node) *predicate.Node { return predicate.And(patients, n) }
	outcome := func(v string) *predicate.Node {
		return own(predicate.Eq(predicate.Col("patient.outcomes"), predicate.Val(v)))
	}
	byEventCM := predicate.Eq(predicate.Col("event.case_manager"), predicate.Val(cm.ID))
	nextDate := predicate.DateOf(predicate.Col("event.next_appointment_date"))

	out := &Stats{CaseManagerID: cm.ID}
	err = s.batch.Run(ctx,
		carerecord.PatientCount(s.store, patients, &out.TotalPatients),
		carerecord.PatientCount(s.store, own(dashboard.TxCurrent()), &out.TxCur),
		carerecord.PatientCount(s.store, own(predicate.And(
			predicate.Ne(predicate.Col("patient.current_art_status"), predicate.Val(dashboard.StatusActive)),
			predicate.NullOrEmpty(predicate.Col("patient.outcomes")),
		)), &out.IIT),
		carerecord.PatientCount(s.store, outcome(OutcomeDead), &out.Dead),
		carerecord.PatientCount(s.store, outcome(OutcomeTransferredOut), &out.TransferredOut),
		carerecord.PatientCount(s.store, outcome(OutcomeStopped), &out.Stopped),

		carerecord.EventCount(s.store, carerecord.EventQuery{Kind: carerecord.ViralLoadEvent, Where: byEventCM},
			&out.ViralLoad.Eligible),
		carerecord.PatientCount(s.store, own(dashboard.ViralLoadResult(today)), &out.ViralLoad.TotalResults),
		carerecord.PatientCount(s.store, own(dashboard.ViralLoadSuppressed(today)), &out.ViralLoad.Suppressed),
		carerecord.EventCount(s.store, carerecord.EventQuery{
			Kind: carerecord.ViralLoadEvent,
			Where: own(predicate.Gt(
				predicate.Col("patient.last_date_of_sample_collection"),
				predicate.Col("event.last_date_of_sample_collection"),
			)),
			JoinPatient:      true,
			DistinctPatients: true,
		}, &out.ViralLoad.Collected),

		carerecord.EventCount(s.store, carerecord.EventQuery{Kind: carerecord.DrugPickupEvent, Where: byEventCM},
			&out.Appointments.Total),
		carerecord.EventCount(s.store, carerecord.EventQuery{
			Kind:  carerecord.DrugPickupEvent,
			Where: predicate.And(byEventCM, predicate.Ge(nextDate, predicate.Val(today))),
		}, &out.Appointments.Upcoming),
		carerecord.EventCount(s.store, carerecord.EventQuery{
			Kind:  carerecord.DrugPickupEvent,
			Where: predicate.And(byEventCM, predicate.Lt(nextDate, predicate.Val(today))),
		}, &out.Appointments.PastDue),
	)
	if err != nil {
		s.logger.Error().Err(err).Str("case_manager_id", cmID).Msg("case manager stats failed")
		return nil, err
	}
	return out, nil
}
