package performance

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/cohort"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
	"github.com/Ecews-Speed-Project/cmt-api/pkg/pagination"
)

type Service struct {
	store    carerecord.Store
	resolver *access.Resolver
	logger   zerolog.Logger
}

func NewService(store carerecord.Store, resolver *access.Resolver, logger zerolog.Logger) *Service {
	return &Service{store: store, resolver: resolver, logger: logger}
}

// CaseManagers lists visible performance records in record id order and
// returns one page along with the total.
func (s *Service) CaseManagers(ctx context.Context, id access.Identity, f cohort.Filter, p pagination.Params) ([]carerecord.ScoredCaseManager, int, error) {
	rows, err := s.AllCaseManagers(ctx, id, f)
	if err != nil {
		return nil, 0, err
	}
	lo, hi := p.Bounds(len(rows))
	return rows[lo:hi], len(rows), nil
}

// AllCaseManagers is CaseManagers without paging.
func (s *Service) AllCaseManagers(ctx context.Context, id access.Identity, f cohort.Filter) ([]carerecord.ScoredCaseManager, error) {
	scope, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope.MatchesNothing() {
		return []carerecord.ScoredCaseManager{}, nil
	}
	rows, err := s.store.CaseManagerScores(ctx, carerecord.ScoreQuery{
		Where:  scope.Predicate(access.CaseManagers),
		Cohort: f.Predicate(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("scope", scope.String()).Msg("case manager performance failed")
		return nil, err
	}
	if rows == nil {
		rows = []carerecord.ScoredCaseManager{}
	}
	return rows, nil
}

// CaseManager returns every performance record of one case manager.
func (s *Service) CaseManager(ctx context.Context, id access.Identity, caseManagerID string) ([]carerecord.ScoredCaseManager, error) {
	scope, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.CaseManagerScores(ctx, carerecord.ScoreQuery{
		Where: predicate.And(
			scope.Predicate(access.CaseManagers),
			predicate.Eq(predicate.Col("case_manager.id"), predicate.Val(caseManagerID)),
		),
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, carerecord.NotFound("no performance records for case manager %s", caseManagerID)
	}
	s.logger.Debug().Str("case_manager_id", caseManagerID).Int("records", len(rows)).Msg("case manager performance")
	return rows, nil
}

// Teams rolls performance up to every visible team.
func (s *Service) Teams(ctx context.Context, id access.Identity, f cohort.Filter) ([]TeamRollup, error) {
	return s.rollup(ctx, id, f, nil)
}

// Team rolls up the teams called name and returns the first in
// (name, state, facility) order.
func (s *Service) Team(ctx context.Context, id access.Identity, name string) (*TeamRollup, error) {
	teams, err := s.rollup(ctx, id, cohort.Filter{}, predicate.Eq(predicate.Col("team.name"), predicate.Val(name)))
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return nil, carerecord.NotFound("no performance records for team %q", name)
	}
	return &teams[0], nil
}

func (s *Service) rollup(ctx context.Context, id access.Identity, f cohort.Filter, where *predicate.Node) ([]TeamRollup, error) {
	scope, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope.MatchesNothing() {
		return []TeamRollup{}, nil
	}
	rows, err := s.store.TeamScores(ctx, carerecord.ScoreQuery{
		Where:  predicate.And(scope.Predicate(access.Teams), where),
		Cohort: f.Predicate(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("scope", scope.String()).Msg("team performance failed")
		return nil, err
	}
	return Rollup(rows), nil
}
