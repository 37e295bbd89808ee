package carerecord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/db"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PGStore reads the care record tables from PostgreSQL.
type PGStore struct{ pool *pgxpool.Pool }

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

const cmCols = `cm.cm_id, cm.id, cm.fullname, cm.role, cm.cmt, cm.state, cm.facilities`

const teamCols = `t.id, t.name, t.state, t.facility_name`

const perfCols = `perf.id, perf.case_manager_id,
	COALESCE(perf.tx_cur, 0), COALESCE(perf.iit, 0), COALESCE(perf.dead, 0),
	COALESCE(perf.discontinued, 0), COALESCE(perf.transferred_out, 0),
	COALESCE(perf.appointments_schedule, 0), COALESCE(perf.appointments_completed, 0),
	COALESCE(perf.viral_load_eligible, 0), COALESCE(perf.fy_viral_load_eligible, 0),
	COALESCE(perf.viral_load_samples, 0),
	COALESCE(perf.viral_load_results, 0), COALESCE(perf.viral_load_suppressed, 0),
	COALESCE(perf.final_score, 0)::float8, perf.created_date, perf.updated_date`

const patientCols = `p.id::text, COALESCE(p.pep_id, ''), COALESCE(p.datim_code, ''), p.case_manager_id,
	COALESCE(p.state, ''), COALESCE(p.lga, ''), COALESCE(p.facility_name, ''),
	p.sex, p.dob, p.current_age, p.current_age_months, p.art_start_date, p.days_on_art,
	p.pharmacy_last_pickup_date, p.days_of_arv_refill, p.current_pregnancy_status,
	p.current_viral_load::float8, p.date_of_current_viral_load, p.last_date_of_sample_collection,
	p.outcomes, p.outcomes_date, p.current_art_status`

func scanTargetsPatient(p *Patient) []interface{} {
	return []interface{}{&p.ID, &p.PepID, &p.DatimCode, &p.CaseManagerKey,
		&p.State, &p.LGA, &p.FacilityName,
		&p.Sex, &p.DateOfBirth, &p.CurrentAge, &p.CurrentAgeMonths, &p.ARTStartDate, &p.DaysOnART,
		&p.PharmacyLastPickupDate, &p.DaysOfARVRefill, &p.CurrentPregnancyStatus,
		&p.CurrentViralLoad, &p.DateOfCurrentViralLoad, &p.LastDateOfSampleCollection,
		&p.Outcomes, &p.OutcomesDate, &p.CurrentARTStatus}
}

func scanTargetsCM(cm *CaseManager) []interface{} {
	return []interface{}{&cm.CMID, &cm.ID, &cm.FullName, &cm.Role, &cm.Team, &cm.State, &cm.Facility}
}

func scanTargetsTeam(t *Team) []interface{} {
	return []interface{}{&t.ID, &t.Name, &t.State, &t.FacilityName}
}

func scanTargetsPerf(r *PerformanceRecord) []interface{} {
	return []interface{}{&r.ID, &r.CaseManagerID,
		&r.TxCur, &r.IIT, &r.Dead, &r.Discontinued, &r.TransferredOut,
		&r.AppointmentsScheduled, &r.AppointmentsCompleted,
		&r.ViralLoadEligible, &r.FYViralLoadEligible, &r.ViralLoadSamples, &r.ViralLoadResults, &r.ViralLoadSuppressed,
		&r.FinalScore, &r.CreatedAt, &r.UpdatedAt}
}

func (s *PGStore) StateName(ctx context.Context, stateID int) (string, error) {
	var name string
	err := s.conn(ctx).QueryRow(ctx, `SELECT name FROM `+stateTable+` WHERE id = $1`, stateID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", NotFound("state %d", stateID)
	}
	return name, storeErr("state name", err)
}

func (s *PGStore) CaseManager(ctx context.Context, id string) (*CaseManager, error) {
	var cm CaseManager
	err := s.conn(ctx).QueryRow(ctx,
		`SELECT `+cmCols+` FROM `+caseManagerTable+` cm WHERE cm.id = $1 ORDER BY cm.cm_id LIMIT 1`,
		id).Scan(scanTargetsCM(&cm)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFound("case manager %s", id)
	}
	if err != nil {
		return nil, storeErr("case manager", err)
	}
	return &cm, nil
}

func (s *PGStore) Team(ctx context.Context, id int) (*Team, error) {
	var t Team
	err := s.conn(ctx).QueryRow(ctx,
		`SELECT `+teamCols+` FROM `+teamTable+` t WHERE t.id = $1`, id).Scan(scanTargetsTeam(&t)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFound("team %d", id)
	}
	if err != nil {
		return nil, storeErr("team", err)
	}
	return &t, nil
}

func (s *PGStore) NextAppointmentRange(ctx context.Context) (Window, error) {
	var lo, hi *time.Time
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT MIN(CAST(next_appointment_date AS DATE)), MAX(CAST(next_appointment_date AS DATE))
		FROM `+drugPickupTable).Scan(&lo, &hi)
	if err != nil {
		return Window{}, storeErr("next appointment range", err)
	}
	if lo == nil || hi == nil {
		return Window{}, NotFound("no next appointment dates recorded")
	}
	return NewWindow(*lo, *hi)
}

func (s *PGStore) count(ctx context.Context, op, query string, args []interface{}) (int, error) {
	var n int
	if err := s.conn(ctx).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, storeErr(op, err)
	}
	return n, nil
}

func (s *PGStore) CountPatients(ctx context.Context, where *predicate.Node) (int, error) {
	where = orTrue(where)
	if predicate.IsFalse(where) {
		return 0, nil
	}
	clause, args, err := predicate.Compile(where, patientCtx, 1)
	if err != nil {
		return 0, fmt.Errorf("compile patient filter: %w", err)
	}
	return s.count(ctx, "count patients",
		`SELECT COUNT(DISTINCT p.id) FROM `+patientTable+` p WHERE `+clause, args)
}

func (s *PGStore) CountEvents(ctx context.Context, q EventQuery) (int, error) {
	where := orTrue(q.Where)
	if predicate.IsFalse(where) {
		return 0, nil
	}
	if q.DistinctPatients && !q.JoinPatient {
		return 0, fmt.Errorf("distinct patient count requires the patient join")
	}
	clause, args, err := predicate.Compile(where, eventCtx(q.Kind, q.JoinPatient), 1)
	if err != nil {
		return 0, fmt.Errorf("compile %s event filter: %w", q.Kind, err)
	}

	target := "e.id"
	if q.DistinctPatients {
		target = "p.id"
	}
	query := `SELECT COUNT(DISTINCT ` + target + `) FROM ` + eventTable(q.Kind) + ` e`
	if q.JoinPatient {
		query += ` JOIN ` + patientTable + ` p ON p.pep_id = e.pep_id AND p.datim_code = e.datim_code`
	}
	query += ` WHERE ` + clause
	return s.count(ctx, "count "+q.Kind.String()+" events", query, args)
}

func (s *PGStore) ListCaseManagers(ctx context.Context, where *predicate.Node) ([]CaseManager, error) {
	where = orTrue(where)
	if predicate.IsFalse(where) {
		return nil, nil
	}
	clause, args, err := predicate.Compile(where, caseManagerCtx, 1)
	if err != nil {
		return nil, fmt.Errorf("compile case manager filter: %w", err)
	}

	rows, err := s.conn(ctx).Query(ctx,
		`SELECT `+cmCols+` FROM `+caseManagerTable+` cm WHERE `+clause+` ORDER BY cm.fullname, cm.cm_id`,
		args...)
	if err != nil {
		return nil, storeErr("list case managers", err)
	}
	defer rows.Close()

	var out []CaseManager
	for rows.Next() {
		var cm CaseManager
		if err := rows.Scan(scanTargetsCM(&cm)...); err != nil {
			return nil, storeErr("scan case manager", err)
		}
		out = append(out, cm)
	}
	return out, storeErr("iterate case managers", rows.Err())
}

func (s *PGStore) ListTeams(ctx context.Context, where *predicate.Node) ([]Team, error) {
	where = orTrue(where)
	if predicate.IsFalse(where) {
		return nil, nil
	}
	clause, args, err := predicate.Compile(where, teamCtx, 1)
	if err != nil {
		return nil, fmt.Errorf("compile team filter: %w", err)
	}

	rows, err := s.conn(ctx).Query(ctx,
		`SELECT `+teamCols+` FROM `+teamTable+` t WHERE `+clause+` ORDER BY t.name, t.state, t.facility_name, t.id`,
		args...)
	if err != nil {
		return nil, storeErr("list teams", err)
	}
	defer rows.Close()

	var out []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(scanTargetsTeam(&t)...); err != nil {
			return nil, storeErr("scan team", err)
		}
		out = append(out, t)
	}
	return out, storeErr("iterate teams", rows.Err())
}

func (s *PGStore) ListPatients(ctx context.Context, q PatientQuery) ([]Patient, error) {
	where := orTrue(q.Where)
	if predicate.IsFalse(where) {
		return nil, nil
	}
	clause, args, err := predicate.Compile(where, patientCtx, 1)
	if err != nil {
		return nil, fmt.Errorf("compile patient filter: %w", err)
	}

	query := `SELECT ` + patientCols + ` FROM ` + patientTable + ` p WHERE ` + clause + ` ORDER BY p.id`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list patients", err)
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(scanTargetsPatient(&p)...); err != nil {
			return nil, storeErr("scan patient", err)
		}
		out = append(out, p)
	}
	return out, storeErr("iterate patients", rows.Err())
}

// scoreFilter compiles where plus the optional cohort EXISTS clause.
func scoreFilter(q ScoreQuery, ctx *predicate.Context) (string, []interface{}, error) {
	clause, args, err := predicate.Compile(orTrue(q.Where), ctx, 1)
	if err != nil {
		return "", nil, err
	}
	if q.Cohort == nil {
		return clause, args, nil
	}
	cohort, cohortArgs, err := predicate.Compile(q.Cohort, ctx, 1+len(args))
	if err != nil {
		return "", nil, err
	}
	clause += ` AND EXISTS (SELECT 1 FROM ` + patientTable + ` p WHERE p.case_manager_id = cm.cm_id AND ` + cohort + `)`
	return clause, append(args, cohortArgs...), nil
}

func (s *PGStore) CaseManagerScores(ctx context.Context, q ScoreQuery) ([]ScoredCaseManager, error) {
	if predicate.IsFalse(orTrue(q.Where)) || predicate.IsFalse(q.Cohort) {
		return nil, nil
	}
	clause, args, err := scoreFilter(q, scoreCtx)
	if err != nil {
		return nil, fmt.Errorf("compile score filter: %w", err)
	}

	rows, err := s.conn(ctx).Query(ctx, `
		SELECT `+cmCols+`, `+perfCols+`
		FROM `+caseManagerTable+` cm
		JOIN `+performanceTable+` perf ON perf.case_manager_id = cm.id
		WHERE `+clause+`
		ORDER BY perf.id`, args...)
	if err != nil {
		return nil, storeErr("case manager scores", err)
	}
	defer rows.Close()

	var out []ScoredCaseManager
	for rows.Next() {
		var sc ScoredCaseManager
		targets := append(scanTargetsCM(&sc.CaseManager), scanTargetsPerf(&sc.Record)...)
		if err := rows.Scan(targets...); err != nil {
			return nil, storeErr("scan case manager score", err)
		}
		out = append(out, sc)
	}
	return out, storeErr("iterate case manager scores", rows.Err())
}

func (s *PGStore) TeamScores(ctx context.Context, q ScoreQuery) ([]TeamMemberScore, error) {
	if predicate.IsFalse(orTrue(q.Where)) || predicate.IsFalse(q.Cohort) {
		return nil, nil
	}
	clause, args, err := scoreFilter(q, teamScoreCtx)
	if err != nil {
		return nil, fmt.Errorf("compile team score filter: %w", err)
	}

	rows, err := s.conn(ctx).Query(ctx, `
		SELECT `+teamCols+`, `+cmCols+`, `+perfCols+`
		FROM `+teamTable+` t
		JOIN `+caseManagerTable+` cm
			ON cm.cmt = t.name AND cm.state = t.state AND cm.facilities = t.facility_name
		JOIN `+performanceTable+` perf ON perf.case_manager_id = cm.id
		WHERE `+clause+`
		ORDER BY t.name, t.state, t.facility_name, perf.id`, args...)
	if err != nil {
		return nil, storeErr("team scores", err)
	}
	defer rows.Close()

	var out []TeamMemberScore
	for rows.Next() {
		var ts TeamMemberScore
		targets := scanTargetsTeam(&ts.Team)
		targets = append(targets, scanTargetsCM(&ts.CaseManager)...)
		targets = append(targets, scanTargetsPerf(&ts.Record)...)
		if err := rows.Scan(targets...); err != nil {
			return nil, storeErr("scan team score", err)
		}
		out = append(out, ts)
	}
	return out, storeErr("iterate team scores", rows.Err())
}

func (s *PGStore) ReadSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return storeErr("read snapshot", db.ReadOnly(ctx, s.pool, fn))
}
