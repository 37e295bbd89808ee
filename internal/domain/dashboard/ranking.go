package dashboard

import (
	"context"
	"math"
	"sort"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
)

// TopN is the number of case managers and teams on the leaderboards.
const TopN = 3

type TopCaseManager struct {
	CaseManagerID string  `json:"case_manager_id"`
	FullName      string  `json:"fullname"`
	Role          string  `json:"role"`
	Team          string  `json:"cmt"`
	Facility      string  `json:"facility"`
	State         string  `json:"state"`
	FinalScore    float64 `json:"final_score"`
}

type TopTeam struct {
	Team         string  `json:"cmt"`
	State        string  `json:"state"`
	Facility     string  `json:"facility"`
	CaseManagers int     `json:"case_managers"`
	FinalScore   float64 `json:"final_score"`
}

// RankCaseManagers keeps each case manager's best record and returns the
// top n by score. Rows must be ordered by record id: on equal scores the
// first record seen wins, and equal case managers order by business id.
func RankCaseManagers(rows []carerecord.ScoredCaseManager, n int) []TopCaseManager {
	best := map[string]int{}
	var order []string
	for i, r := range rows {
		id := r.CaseManager.ID
		j, seen := best[id]
		if !seen {
			order = append(order, id)
			best[id] = i
			continue
		}
		if r.Record.FinalScore > rows[j].Record.FinalScore {
			best[id] = i
		}
	}

	out := make([]TopCaseManager, 0, len(order))
	for _, id := range order {
		r := rows[best[id]]
		out = append(out, TopCaseManager{
			CaseManagerID: r.CaseManager.ID,
			FullName:      r.CaseManager.FullName,
			Role:          r.CaseManager.Role,
			Team:          r.CaseManager.Team,
			Facility:      r.CaseManager.Facility,
			State:         r.CaseManager.State,
			FinalScore:    r.Record.FinalScore,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FinalScore != out[j].FinalScore {
			return out[i].FinalScore > out[j].FinalScore
		}
		return out[i].CaseManagerID < out[j].CaseManagerID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// RankTeams averages the per-case-manager best scores of each team and
// returns the top n teams. A case manager's team is its own (cmt, state,
// facility) value, with or without a matching team row. Equal averages
// order by name, state, then facility.
func RankTeams(rows []carerecord.ScoredCaseManager, n int) []TopTeam {
	type member struct {
		team carerecord.TeamKey
		cm   string
	}
	best := map[member]float64{}
	var members []member
	for _, r := range rows {
		m := member{team: r.CaseManager.TeamKey(), cm: r.CaseManager.ID}
		score, seen := best[m]
		if !seen {
			members = append(members, m)
			best[m] = r.Record.FinalScore
			continue
		}
		if r.Record.FinalScore > score {
			best[m] = r.Record.FinalScore
		}
	}

	type group struct {
		sum   float64
		count int
	}
	groups := map[carerecord.TeamKey]*group{}
	var keys []carerecord.TeamKey
	for _, m := range members {
		g, ok := groups[m.team]
		if !ok {
			g = &group{}
			groups[m.team] = g
			keys = append(keys, m.team)
		}
		g.sum += best[m]
		g.count++
	}

	out := make([]TopTeam, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		out = append(out, TopTeam{
			Team:         k.Name,
			State:        k.State,
			Facility:     k.Facility,
			CaseManagers: g.count,
			FinalScore:   g.sum / float64(g.count),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		if a.State != b.State {
			return a.State < b.State
		}
		return a.Facility < b.Facility
	})
	if len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].FinalScore = math.Round(out[i].FinalScore*100) / 100
	}
	return out
}

// TopCaseManagers ranks the case managers visible to the caller. A cohort
// only decides which case managers are eligible.
func (s *Service) TopCaseManagers(ctx context.Context, req Request) ([]TopCaseManager, error) {
	scope, err := s.resolver.Resolve(ctx, req.Identity)
	if err != nil {
		return nil, err
	}
	if scope.MatchesNothing() {
		return []TopCaseManager{}, nil
	}
	rows, err := s.store.CaseManagerScores(ctx, carerecord.ScoreQuery{
		Where:  scope.Predicate(access.CaseManagers),
		Cohort: req.Cohort.Predicate(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("scope", scope.String()).Msg("top case managers failed")
		return nil, err
	}
	top := RankCaseManagers(rows, TopN)
	if len(top) < TopN {
		s.logger.Debug().Int("found", len(top)).Msg("fewer case managers than leaderboard slots")
	}
	return top, nil
}

// TopTeams ranks the teams visible to the caller. A case manager sees the
// standing of its own team.
func (s *Service) TopTeams(ctx context.Context, req Request) ([]TopTeam, error) {
	scope, err := s.resolver.Resolve(ctx, req.Identity)
	if err != nil {
		return nil, err
	}
	if scope.MatchesNothing() {
		return []TopTeam{}, nil
	}
	rows, err := s.store.CaseManagerScores(ctx, carerecord.ScoreQuery{
		Where:  scope.Predicate(access.TeamMembers),
		Cohort: req.Cohort.Predicate(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("scope", scope.String()).Msg("top teams failed")
		return nil, err
	}
	return RankTeams(rows, TopN), nil
}
