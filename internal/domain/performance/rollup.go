package performance

import (
	"math"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
)

type Appointments struct {
	Completed      int     `json:"completed"`
	Scheduled      int     `json:"scheduled"`
	CompletionRate float64 `json:"completion_rate"`
}

type ViralLoad struct {
	Suppressed      int     `json:"suppressed"`
	Eligible        int     `json:"eligible"`
	FYEligible      int     `json:"fy_eligible"`
	Samples         int     `json:"samples"`
	Results         int     `json:"results"`
	SuppressionRate float64 `json:"suppression_rate"`
}

// TeamRollup is the summed performance of one team's case managers.
type TeamRollup struct {
	Team           string       `json:"cmt"`
	State          string       `json:"state"`
	FacilityName   string       `json:"facility_name"`
	CaseManagers   int          `json:"case_managers_count"`
	TxCur          int          `json:"tx_cur"`
	IIT            int          `json:"iit"`
	TransferredOut int          `json:"transferred_out"`
	Dead           int          `json:"dead"`
	Discontinued   int          `json:"discontinued"`
	Appointments   Appointments `json:"appointments"`
	ViralLoad      ViralLoad    `json:"viral_load"`
	AverageScore   float64      `json:"average_score"`
}

// Rate is num/den as a percentage, with den floored at 1.
func Rate(num, den int) float64 {
	return float64(num) / float64(max(den, 1)) * 100
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Rollup groups team member scores by team. Counters are summed first and
// rates computed from the sums; the score is the mean over all records.
// Rows must arrive grouped by team, as TeamScores returns them. A record
// reached twice within one team, through a repeated team row or a repeated
// case manager row, counts once.
func Rollup(rows []carerecord.TeamMemberScore) []TeamRollup {
	out := []TeamRollup{}
	var (
		cur     *TeamRollup
		curKey  carerecord.TeamKey
		members map[string]bool
		seen    map[int]bool
		scores  float64
		records int
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.CaseManagers = len(members)
		cur.Appointments.CompletionRate = Rate(cur.Appointments.Completed, cur.Appointments.Scheduled)
		cur.ViralLoad.SuppressionRate = Rate(cur.ViralLoad.Suppressed, cur.ViralLoad.Results)
		cur.AverageScore = round2(scores / float64(records))
		out = append(out, *cur)
	}

	for _, r := range rows {
		if key := r.Team.Key(); cur == nil || key != curKey {
			flush()
			curKey = key
			cur = &TeamRollup{Team: key.Name, State: key.State, FacilityName: key.Facility}
			members = map[string]bool{}
			seen = map[int]bool{}
			scores, records = 0, 0
		}
		rec := r.Record
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		members[r.CaseManager.ID] = true
		cur.TxCur += rec.TxCur
		cur.IIT += rec.IIT
		cur.TransferredOut += rec.TransferredOut
		cur.Dead += rec.Dead
		cur.Discontinued += rec.Discontinued
		cur.Appointments.Completed += rec.AppointmentsCompleted
		cur.Appointments.Scheduled += rec.AppointmentsScheduled
		cur.ViralLoad.Suppressed += rec.ViralLoadSuppressed
		cur.ViralLoad.Eligible += rec.ViralLoadEligible
		cur.ViralLoad.FYEligible += rec.FYViralLoadEligible
		cur.ViralLoad.Samples += rec.ViralLoadSamples
		cur.ViralLoad.Results += rec.ViralLoadResults
		scores += rec.FinalScore
		records++
	}
	flush()
	return out
}
