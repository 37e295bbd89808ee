package performance

import (
	"context"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
)

// TeamSummary is one team with the case managers matched to it by value
// triple and the number of patients they hold.
type TeamSummary struct {
	carerecord.Team
	CaseManagers []carerecord.CaseManager `json:"case_managers"`
	PatientCount int                      `json:"patient_count"`
}

// TeamDetail is one team with its roster and rolled-up performance.
type TeamDetail struct {
	TeamSummary
	Performance *TeamRollup `json:"performance"`
}

// TeamDirectory lists the visible teams with their rosters.
func (s *Service) TeamDirectory(ctx context.Context, id access.Identity) ([]TeamSummary, error) {
	scope, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	out := []TeamSummary{}
	if scope.MatchesNothing() {
		return out, nil
	}
	teams, err := s.store.ListTeams(ctx, scope.Predicate(access.Teams))
	if err != nil {
		s.logger.Error().Err(err).Str("scope", scope.String()).Msg("team directory failed")
		return nil, err
	}
	for i := range teams {
		summary, err := s.summarize(ctx, &teams[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *summary)
	}
	return out, nil
}

func (s *Service) summarize(ctx context.Context, team *carerecord.Team) (*TeamSummary, error) {
	roster, err := s.store.ListCaseManagers(ctx, predicate.And(
		predicate.Eq(predicate.Col("case_manager.cmt"), predicate.Val(team.Name)),
		predicate.Eq(predicate.Col("case_manager.state"), predicate.Val(team.State)),
		predicate.Eq(predicate.Col("case_manager.facilities"), predicate.Val(team.FacilityName)),
	))
	if err != nil {
		return nil, err
	}
	out := &TeamSummary{Team: *team, CaseManagers: roster}
	if out.CaseManagers == nil {
		out.CaseManagers = []carerecord.CaseManager{}
	}
	if len(roster) == 0 {
		return out, nil
	}
	keys := make([]interface{}, len(roster))
	for i, cm := range roster {
		keys[i] = cm.CMID
	}
	out.PatientCount, err = s.store.CountPatients(ctx, predicate.In(predicate.Col("patient.case_manager_id"), keys...))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TeamDetail looks a team up by id. Teams outside the caller's scope are
// reported as not found.
func (s *Service) TeamDetail(ctx context.Context, id access.Identity, teamID int) (*TeamDetail, error) {
	scope, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	team, err := s.store.Team(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !scope.AllowsTeam(team) {
		return nil, carerecord.NotFound("team %d", teamID)
	}

	summary, err := s.summarize(ctx, team)
	if err != nil {
		return nil, err
	}
	out := &TeamDetail{TeamSummary: *summary}

	rows, err := s.store.TeamScores(ctx, carerecord.ScoreQuery{
		Where: predicate.Eq(predicate.Col("team.id"), predicate.Val(team.ID)),
	})
	if err != nil {
		return nil, err
	}
	if r := Rollup(rows); len(r) > 0 {
		out.Performance = &r[0]
	}
	return out, nil
}
