package dashboard

import (
	"context"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
)

type ViralLoadStats struct {
	Eligible     int `json:"eligible"`
	TotalResults int `json:"total_results"`
	Suppressed   int `json:"suppressed"`
	Collected    int `json:"collected"`
}

// Stats are the care-continuum counts for one scope and window.
type Stats struct {
	Start      string         `json:"start"`
	End        string         `json:"end"`
	TxCur      int            `json:"tx_cur"`
	IIT        int            `json:"iit"`
	DrugPickup int            `json:"drug_pickup"`
	ViralLoad  ViralLoadStats `json:"viral_load"`
}

// Stats computes the dashboard counts over the caller's patients. The
// cohort narrows which patients are counted; the metric definitions are
// the same with or without it.
func (s *Service) Stats(ctx context.Context, req Request) (*Stats, error) {
	scope, err := s.resolver.Resolve(ctx, req.Identity)
	if err != nil {
		return nil, err
	}
	w, err := s.window(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &Stats{
		Start: w.Start.Format(carerecord.DateLayout),
		End:   w.End.Format(carerecord.DateLayout),
	}
	if scope.MatchesNothing() {
		return out, nil
	}

	base := req.Cohort.Apply(scope.Predicate(access.Patients))
	within := func(metric *predicate.Node) *predicate.Node {
		return predicate.And(base, metric)
	}
	today := s.today()

	queries := []carerecord.Query{
		carerecord.PatientCount(s.store, within(TxCurrent()), &out.TxCur),
		carerecord.PatientCount(s.store, within(InterruptedTreatment(w)), &out.IIT),
		carerecord.PatientCount(s.store, within(DrugPickup(w)), &out.DrugPickup),
		carerecord.PatientCount(s.store, within(ViralLoadEligible()), &out.ViralLoad.Eligible),
		carerecord.PatientCount(s.store, within(ViralLoadResult(w.End)), &out.ViralLoad.TotalResults),
		carerecord.PatientCount(s.store, within(ViralLoadSuppressed(w.End)), &out.ViralLoad.Suppressed),
		carerecord.PatientCount(s.store, within(SampleCollected(w, today)), &out.ViralLoad.Collected),
	}
	if err := s.batch().Run(ctx, queries...); err != nil {
		s.logger.Error().Err(err).Str("scope", scope.String()).Msg("dashboard stats failed")
		return nil, err
	}
	return out, nil
}
