package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/cohort"
)

func scored(recordID int, cmID string, score float64) carerecord.ScoredCaseManager {
	return carerecord.ScoredCaseManager{
		CaseManager: carerecord.CaseManager{ID: cmID},
		Record:      carerecord.PerformanceRecord{ID: recordID, CaseManagerID: cmID, FinalScore: score},
	}
}

func ids(top []TopCaseManager) []string {
	out := make([]string, len(top))
	for i, cm := range top {
		out[i] = cm.CaseManagerID
	}
	return out
}

func TestRankCaseManagers_TopThree(t *testing.T) {
	rows := []carerecord.ScoredCaseManager{
		scored(1, "CM-D", 60),
		scored(2, "CM-B", 90),
		scored(3, "CM-C", 75),
		scored(4, "CM-A", 90),
	}
	top := RankCaseManagers(rows, TopN)
	assert.Equal(t, []string{"CM-A", "CM-B", "CM-C"}, ids(top))
}

func TestRankCaseManagers_BestRecordPerCaseManager(t *testing.T) {
	rows := []carerecord.ScoredCaseManager{
		scored(1, "CM-A", 40),
		scored(2, "CM-B", 55),
		scored(3, "CM-A", 95),
		scored(4, "CM-A", 95),
	}
	top := RankCaseManagers(rows, TopN)
	require.Len(t, top, 2)
	assert.Equal(t, []string{"CM-A", "CM-B"}, ids(top))
	assert.Equal(t, 95.0, top[0].FinalScore)
}

func TestRankCaseManagers_Empty(t *testing.T) {
	assert.Empty(t, RankCaseManagers(nil, TopN))
}

func TestTopTeams(t *testing.T) {
	svc := newTestService(rankingStore(), Options{})

	top, err := svc.TopTeams(context.Background(), Request{Identity: superAdmin})
	require.NoError(t, err)
	require.Len(t, top, 3)

	assert.Equal(t, TopTeam{Team: "Beta", State: "Cross River", Facility: "Calabar GH", CaseManagers: 1, FinalScore: 85}, top[0])
	// CM-A's best is 90 and CM-B's 70; Alpha ties Delta and wins on name.
	assert.Equal(t, TopTeam{Team: "Alpha", State: "Akwa Ibom", Facility: "Uyo GH", CaseManagers: 2, FinalScore: 80}, top[1])
	assert.Equal(t, "Delta", top[2].Team)
}

func TestTopTeams_StateScope(t *testing.T) {
	svc := newTestService(rankingStore(), Options{})

	top, err := svc.TopTeams(context.Background(), Request{Identity: akwaAdmin})
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Alpha", top[0].Team)
	assert.Equal(t, "Delta", top[1].Team)
}

func TestTopCaseManagers(t *testing.T) {
	svc := newTestService(rankingStore(), Options{})

	top, err := svc.TopCaseManagers(context.Background(), Request{Identity: superAdmin})
	require.NoError(t, err)
	assert.Equal(t, []string{"CM-A", "CM-C", "CM-E"}, ids(top))
	assert.Equal(t, "Ada", top[0].FullName)
	assert.Equal(t, "Alpha", top[0].Team)
}

func TestTopCaseManagers_CohortRestrictsEligibility(t *testing.T) {
	svc := newTestService(rankingStore(), Options{})

	top, err := svc.TopCaseManagers(context.Background(), Request{
		Identity: superAdmin,
		Cohort:   cohort.Filter{Pediatric: true},
	})
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "CM-D", top[0].CaseManagerID)
	assert.Equal(t, 60.0, top[0].FinalScore, "cohorts must not change scores")
}

func TestTopCaseManagers_UnscopedIsEmptyNotNil(t *testing.T) {
	top, err := newTestService(rankingStore(), Options{}).TopCaseManagers(context.Background(), Request{Identity: nobody})
	require.NoError(t, err)
	assert.NotNil(t, top)
	assert.Empty(t, top)
}

func TestTopCaseManagers_StoreFailureIsNotEmptyResult(t *testing.T) {
	store := rankingStore()
	store.Err = errors.New("timeout")
	top, err := newTestService(store, Options{}).TopCaseManagers(context.Background(), Request{Identity: superAdmin})
	assert.Nil(t, top)
	assert.ErrorIs(t, err, carerecord.ErrStore)
}

func teamScored(recordID int, cmID, team string, score float64) carerecord.ScoredCaseManager {
	row := scored(recordID, cmID, score)
	row.CaseManager.Team = team
	row.CaseManager.State = "Akwa Ibom"
	row.CaseManager.Facility = "Uyo GH"
	return row
}

func TestRankTeams_AveragesBestPerMember(t *testing.T) {
	rows := []carerecord.ScoredCaseManager{
		teamScored(1, "CM-A", "Alpha", 40),
		teamScored(2, "CM-B", "Alpha", 60),
		teamScored(3, "CM-A", "Alpha", 81),
		teamScored(4, "CM-C", "Beta", 70),
	}
	top := RankTeams(rows, TopN)
	require.Len(t, top, 2)
	assert.Equal(t, TopTeam{Team: "Alpha", State: "Akwa Ibom", Facility: "Uyo GH", CaseManagers: 2, FinalScore: 70.5}, top[0])
	assert.Equal(t, "Beta", top[1].Team)
}

func TestRankTeams_SameNameInAnotherFacilityIsAnotherTeam(t *testing.T) {
	other := teamScored(2, "CM-B", "Alpha", 30)
	other.CaseManager.Facility = "Eket GH"
	top := RankTeams([]carerecord.ScoredCaseManager{teamScored(1, "CM-A", "Alpha", 90), other}, TopN)
	require.Len(t, top, 2)
	assert.Equal(t, "Uyo GH", top[0].Facility)
	assert.Equal(t, "Eket GH", top[1].Facility)
}

func TestTopTeams_TeamWithoutTeamRow(t *testing.T) {
	store := rankingStore()
	store.CaseManagers = append(store.CaseManagers,
		carerecord.CaseManager{CMID: 6, ID: "CM-F", FullName: "Femi", Team: "Omega", State: "Akwa Ibom", Facility: "Ikot GH"})
	store.Performance = append(store.Performance, carerecord.PerformanceRecord{ID: 7, CaseManagerID: "CM-F", FinalScore: 99})
	svc := newTestService(store, Options{})

	top, err := svc.TopTeams(context.Background(), Request{Identity: superAdmin})
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, TopTeam{Team: "Omega", State: "Akwa Ibom", Facility: "Ikot GH", CaseManagers: 1, FinalScore: 99}, top[0])
	assert.Equal(t, "Beta", top[1].Team)
}
