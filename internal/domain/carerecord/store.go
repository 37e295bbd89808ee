package carerecord

import (
	"context"

	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
)

// Store is the read-only query surface over the care record tables. Every
// filter is a predicate tree over qualified columns (see schema.go); join
// semantics are fixed by the store:
//
//   - events join patients on the natural key (pep_id, datim_code)
//   - performance joins case managers on the business id
//   - teams join case managers on (name, state, facility)
//   - cohort predicates select case managers having at least one matching
//     patient by surrogate key
type Store interface {
	StateName(ctx context.Context, stateID int) (string, error)
	CaseManager(ctx context.Context, id string) (*CaseManager, error)
	Team(ctx context.Context, id int) (*Team, error)

	// NextAppointmentRange is the min/max drug-pickup next appointment date.
	NextAppointmentRange(ctx context.Context) (Window, error)

	CountPatients(ctx context.Context, where *predicate.Node) (int, error)
	CountEvents(ctx context.Context, q EventQuery) (int, error)

	// ListPatients returns one page of patients in id order.
	ListPatients(ctx context.Context, q PatientQuery) ([]Patient, error)
	ListCaseManagers(ctx context.Context, where *predicate.Node) ([]CaseManager, error)
	// ListTeams returns teams ordered by name, state, facility, then id.
	ListTeams(ctx context.Context, where *predicate.Node) ([]Team, error)
	// CaseManagerScores returns performance records with their case manager,
	// ordered by record id.
	CaseManagerScores(ctx context.Context, q ScoreQuery) ([]ScoredCaseManager, error)
	// TeamScores returns performance records matched through case managers to
	// teams, ordered by team name, state, facility, then record id.
	TeamScores(ctx context.Context, q ScoreQuery) ([]TeamMemberScore, error)

	// ReadSnapshot runs fn so that every query it issues through ctx sees one
	// consistent snapshot. The snapshot is always closed before returning.
	ReadSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventQuery counts appointment events.
type EventQuery struct {
	Kind EventKind
	// Where filters over event.* columns, and patient.* when JoinPatient.
	Where       *predicate.Node
	JoinPatient bool
	// DistinctPatients counts distinct joined patients instead of events.
	DistinctPatients bool
}

// PatientQuery selects a page of patients. A zero Limit returns every match.
type PatientQuery struct {
	Where  *predicate.Node
	Limit  int
	Offset int
}

// ScoreQuery selects performance records.
type ScoreQuery struct {
	// Where filters over case_manager.*, performance.* and, for team
	// queries, team.* columns.
	Where *predicate.Node
	// Cohort, when set, keeps only case managers with a matching patient.
	Cohort *predicate.Node
}

func orTrue(n *predicate.Node) *predicate.Node {
	if n == nil {
		return predicate.True()
	}
	return n
}
