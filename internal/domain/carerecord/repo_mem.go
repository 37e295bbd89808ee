package carerecord

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
)

// MemoryStore is an in-memory Store that evaluates the same predicate trees
// as PGStore. Populate the exported slices before use.
type MemoryStore struct {
	States       []State
	Patients     []Patient
	CaseManagers []CaseManager
	Teams        []Team
	DrugPickups  []DrugPickupAppointment
	ViralLoads   []ViralLoadAppointment
	Performance  []PerformanceRecord

	// Err, when set, is returned by every query as a store failure.
	Err error

	mu      sync.Mutex
	queries int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Queries is the number of store calls made so far.
func (m *MemoryStore) Queries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

func (m *MemoryStore) begin(op string) error {
	m.mu.Lock()
	m.queries++
	m.mu.Unlock()
	if m.Err != nil {
		return storeErr(op, m.Err)
	}
	return nil
}

func (m *MemoryStore) StateName(ctx context.Context, stateID int) (string, error) {
	if err := m.begin("state name"); err != nil {
		return "", err
	}
	for _, s := range m.States {
		if s.ID == stateID {
			return s.Name, nil
		}
	}
	return "", NotFound("state %d", stateID)
}

func (m *MemoryStore) CaseManager(ctx context.Context, id string) (*CaseManager, error) {
	if err := m.begin("case manager"); err != nil {
		return nil, err
	}
	var found *CaseManager
	for i := range m.CaseManagers {
		cm := m.CaseManagers[i]
		if cm.ID == id && (found == nil || cm.CMID < found.CMID) {
			found = &cm
		}
	}
	if found == nil {
		return nil, NotFound("case manager %s", id)
	}
	return found, nil
}

func (m *MemoryStore) Team(ctx context.Context, id int) (*Team, error) {
	if err := m.begin("team"); err != nil {
		return nil, err
	}
	for i := range m.Teams {
		if m.Teams[i].ID == id {
			t := m.Teams[i]
			return &t, nil
		}
	}
	return nil, NotFound("team %d", id)
}

func (m *MemoryStore) NextAppointmentRange(ctx context.Context) (Window, error) {
	if err := m.begin("next appointment range"); err != nil {
		return Window{}, err
	}
	var lo, hi time.Time
	seen := false
	for _, a := range m.DrugPickups {
		if a.NextAppointmentDate == nil {
			continue
		}
		d := predicate.Date(*a.NextAppointmentDate)
		if !seen || d.Before(lo) {
			lo = d
		}
		if !seen || d.After(hi) {
			hi = d
		}
		seen = true
	}
	if !seen {
		return Window{}, NotFound("no next appointment dates recorded")
	}
	return NewWindow(lo, hi)
}

func match(n *predicate.Node, row predicate.Row) (bool, error) {
	ok, err := predicate.Eval(orTrue(n), row)
	if err != nil {
		return false, fmt.Errorf("evaluate filter: %w", err)
	}
	return ok, nil
}

func (m *MemoryStore) CountPatients(ctx context.Context, where *predicate.Node) (int, error) {
	if err := m.begin("count patients"); err != nil {
		return 0, err
	}
	ids := map[string]bool{}
	for i := range m.Patients {
		ok, err := match(where, m.Patients[i].Row())
		if err != nil {
			return 0, err
		}
		if ok {
			ids[m.Patients[i].ID] = true
		}
	}
	return len(ids), nil
}

func (m *MemoryStore) eventRows(kind EventKind) []predicate.MapRow {
	var rows []predicate.MapRow
	if kind == ViralLoadEvent {
		for i := range m.ViralLoads {
			rows = append(rows, m.ViralLoads[i].Row())
		}
		return rows
	}
	for i := range m.DrugPickups {
		rows = append(rows, m.DrugPickups[i].Row())
	}
	return rows
}

func (m *MemoryStore) CountEvents(ctx context.Context, q EventQuery) (int, error) {
	if err := m.begin("count " + q.Kind.String() + " events"); err != nil {
		return 0, err
	}
	if q.DistinctPatients && !q.JoinPatient {
		return 0, fmt.Errorf("distinct patient count requires the patient join")
	}

	seen := map[interface{}]bool{}
	for _, ev := range m.eventRows(q.Kind) {
		if !q.JoinPatient {
			ok, err := match(q.Where, ev)
			if err != nil {
				return 0, err
			}
			if ok {
				seen[ev["event.id"]] = true
			}
			continue
		}
		for i := range m.Patients {
			p := &m.Patients[i]
			if p.PepID != ev["event.pep_id"] || p.DatimCode != ev["event.datim_code"] {
				continue
			}
			ok, err := match(q.Where, predicate.Merge(ev, p.Row()))
			if err != nil {
				return 0, err
			}
			if !ok {
				continue
			}
			if q.DistinctPatients {
				seen[p.ID] = true
			} else {
				seen[ev["event.id"]] = true
			}
		}
	}
	return len(seen), nil
}

func (m *MemoryStore) ListCaseManagers(ctx context.Context, where *predicate.Node) ([]CaseManager, error) {
	if err := m.begin("list case managers"); err != nil {
		return nil, err
	}
	var out []CaseManager
	for i := range m.CaseManagers {
		ok, err := match(where, m.CaseManagers[i].Row())
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, m.CaseManagers[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].CMID < out[j].CMID
	})
	return out, nil
}

func (m *MemoryStore) ListTeams(ctx context.Context, where *predicate.Node) ([]Team, error) {
	if err := m.begin("list teams"); err != nil {
		return nil, err
	}
	var out []Team
	for i := range m.Teams {
		ok, err := match(where, m.Teams[i].Row())
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, m.Teams[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.State != b.State {
			return a.State < b.State
		}
		if a.FacilityName != b.FacilityName {
			return a.FacilityName < b.FacilityName
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m *MemoryStore) ListPatients(ctx context.Context, q PatientQuery) ([]Patient, error) {
	if err := m.begin("list patients"); err != nil {
		return nil, err
	}
	var out []Patient
	for i := range m.Patients {
		ok, err := match(q.Where, m.Patients[i].Row())
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, m.Patients[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if q.Offset >= len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

// hasCohortPatient reports whether cm has a patient matching cohort.
func (m *MemoryStore) hasCohortPatient(cm *CaseManager, cohort *predicate.Node) (bool, error) {
	if cohort == nil {
		return true, nil
	}
	for i := range m.Patients {
		p := &m.Patients[i]
		if p.CaseManagerKey == nil || *p.CaseManagerKey != cm.CMID {
			continue
		}
		ok, err := match(cohort, p.Row())
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (m *MemoryStore) CaseManagerScores(ctx context.Context, q ScoreQuery) ([]ScoredCaseManager, error) {
	if err := m.begin("case manager scores"); err != nil {
		return nil, err
	}
	var out []ScoredCaseManager
	for i := range m.CaseManagers {
		cm := &m.CaseManagers[i]
		eligible, err := m.hasCohortPatient(cm, q.Cohort)
		if err != nil {
			return nil, err
		}
		if !eligible {
			continue
		}
		for j := range m.Performance {
			rec := &m.Performance[j]
			if rec.CaseManagerID != cm.ID {
				continue
			}
			ok, err := match(q.Where, predicate.Merge(cm.Row(), rec.Row()))
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, ScoredCaseManager{CaseManager: *cm, Record: *rec})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Record.ID < out[j].Record.ID })
	return out, nil
}

func (m *MemoryStore) TeamScores(ctx context.Context, q ScoreQuery) ([]TeamMemberScore, error) {
	if err := m.begin("team scores"); err != nil {
		return nil, err
	}
	var out []TeamMemberScore
	for t := range m.Teams {
		team := &m.Teams[t]
		for i := range m.CaseManagers {
			cm := &m.CaseManagers[i]
			if !team.Includes(cm) {
				continue
			}
			eligible, err := m.hasCohortPatient(cm, q.Cohort)
			if err != nil {
				return nil, err
			}
			if !eligible {
				continue
			}
			for j := range m.Performance {
				rec := &m.Performance[j]
				if rec.CaseManagerID != cm.ID {
					continue
				}
				ok, err := match(q.Where, predicate.Merge(team.Row(), cm.Row(), rec.Row()))
				if err != nil {
					return nil, err
				}
				if ok {
					out = append(out, TeamMemberScore{Team: *team, CaseManager: *cm, Record: *rec})
				}
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Team.Name != b.Team.Name {
			return a.Team.Name < b.Team.Name
		}
		if a.Team.State != b.Team.State {
			return a.Team.State < b.Team.State
		}
		if a.Team.FacilityName != b.Team.FacilityName {
			return a.Team.FacilityName < b.Team.FacilityName
		}
		return a.Record.ID < b.Record.ID
	})
	return out, nil
}

func (m *MemoryStore) ReadSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
