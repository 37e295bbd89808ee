package carerecord

import (
	"time"

	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
)

// Patient maps to the cms.patient_line_list table.
type Patient struct {
	ID                         string     `db:"id" json:"id"`
	PepID                      string     `db:"pep_id" json:"pep_id"`
	DatimCode                  string     `db:"datim_code" json:"datim_code"`
	CaseManagerKey             *int       `db:"case_manager_id" json:"case_manager_id,omitempty"`
	State                      string     `db:"state" json:"state"`
	LGA                        string     `db:"lga" json:"lga"`
	FacilityName               string     `db:"facility_name" json:"facility_name"`
	Sex                        *string    `db:"sex" json:"sex,omitempty"`
	DateOfBirth                *time.Time `db:"dob" json:"dob,omitempty"`
	CurrentAge                 *int       `db:"current_age" json:"current_age,omitempty"`
	CurrentAgeMonths           *int       `db:"current_age_months" json:"current_age_months,omitempty"`
	ARTStartDate               *time.Time `db:"art_start_date" json:"art_start_date,omitempty"`
	DaysOnART                  *int       `db:"days_on_art" json:"days_on_art,omitempty"`
	PharmacyLastPickupDate     *time.Time `db:"pharmacy_last_pickup_date" json:"pharmacy_last_pickup_date,omitempty"`
	DaysOfARVRefill            *int       `db:"days_of_arv_refill" json:"days_of_arv_refill,omitempty"`
	CurrentPregnancyStatus     *string    `db:"current_pregnancy_status" json:"current_pregnancy_status,omitempty"`
	CurrentViralLoad           *float64   `db:"current_viral_load" json:"current_viral_load,omitempty"`
	DateOfCurrentViralLoad     *time.Time `db:"date_of_current_viral_load" json:"date_of_current_viral_load,omitempty"`
	LastDateOfSampleCollection *time.Time `db:"last_date_of_sample_collection" json:"last_date_of_sample_collection,omitempty"`
	Outcomes                   *string    `db:"outcomes" json:"outcomes,omitempty"`
	OutcomesDate               *time.Time `db:"outcomes_date" json:"outcomes_date,omitempty"`
	CurrentARTStatus           *string    `db:"current_art_status" json:"current_art_status,omitempty"`
}

// Row exposes the patient's columns under the "patient" qualifier.
func (p *Patient) Row() predicate.MapRow {
	return predicate.MapRow{
		"patient.id":                             p.ID,
		"patient.pep_id":                         p.PepID,
		"patient.datim_code":                     p.DatimCode,
		"patient.case_manager_id":                p.CaseManagerKey,
		"patient.state":                          p.State,
		"patient.lga":                            p.LGA,
		"patient.facility_name":                  p.FacilityName,
		"patient.sex":                            p.Sex,
		"patient.dob":                            p.DateOfBirth,
		"patient.current_age":                    p.CurrentAge,
		"patient.current_age_months":             p.CurrentAgeMonths,
		"patient.art_start_date":                 p.ARTStartDate,
		"patient.days_on_art":                    p.DaysOnART,
		"patient.pharmacy_last_pickup_date":      p.PharmacyLastPickupDate,
		"patient.days_of_arv_refill":             p.DaysOfARVRefill,
		"patient.current_pregnancy_status":       p.CurrentPregnancyStatus,
		"patient.current_viral_load":             p.CurrentViralLoad,
		"patient.date_of_current_viral_load":     p.DateOfCurrentViralLoad,
		"patient.last_date_of_sample_collection": p.LastDateOfSampleCollection,
		"patient.outcomes":                       p.Outcomes,
		"patient.outcomes_date":                  p.OutcomesDate,
		"patient.current_art_status":             p.CurrentARTStatus,
	}
}

// CaseManager maps to cms.case_managers. Patients reference CMID; events and
// performance records reference ID.
type CaseManager struct {
	CMID     int    `db:"cm_id" json:"cm_id"`
	ID       string `db:"id" json:"case_manager_id"`
	FullName string `db:"fullname" json:"fullname"`
	Role     string `db:"role" json:"role"`
	Team     string `db:"cmt" json:"cmt"`
	State    string `db:"state" json:"state"`
	Facility string `db:"facilities" json:"facility"`
}

func (cm *CaseManager) Row() predicate.MapRow {
	return predicate.MapRow{
		"case_manager.cm_id":      cm.CMID,
		"case_manager.id":         cm.ID,
		"case_manager.fullname":   cm.FullName,
		"case_manager.role":       cm.Role,
		"case_manager.cmt":        cm.Team,
		"case_manager.state":      cm.State,
		"case_manager.facilities": cm.Facility,
	}
}

// TeamKey is the team the case manager declares, whether or not cms.cmt
// holds a row for it.
func (cm *CaseManager) TeamKey() TeamKey {
	return TeamKey{Name: cm.Team, State: cm.State, Facility: cm.Facility}
}

// TeamKey is the value triple that identifies a team.
type TeamKey struct {
	Name     string `json:"cmt"`
	State    string `json:"state"`
	Facility string `json:"facility_name"`
}

// Team maps to cms.cmt.
type Team struct {
	ID           int    `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	State        string `db:"state" json:"state"`
	FacilityName string `db:"facility_name" json:"facility_name"`
}

func (t *Team) Key() TeamKey {
	return TeamKey{Name: t.Name, State: t.State, Facility: t.FacilityName}
}

// Includes reports whether cm belongs to the team by value match.
func (t *Team) Includes(cm *CaseManager) bool {
	return t.Name == cm.Team && t.State == cm.State && t.FacilityName == cm.Facility
}

func (t *Team) Row() predicate.MapRow {
	return predicate.MapRow{
		"team.id":            t.ID,
		"team.name":          t.Name,
		"team.state":         t.State,
		"team.facility_name": t.FacilityName,
	}
}

// EventKind selects one of the appointment event tables.
type EventKind int

const (
	DrugPickupEvent EventKind = iota
	ViralLoadEvent
)

func (k EventKind) String() string {
	if k == ViralLoadEvent {
		return "viral_load"
	}
	return "drug_pickup"
}

// DrugPickupAppointment maps to dbo.drug_pickup_appointments.
type DrugPickupAppointment struct {
	ID                     int        `db:"id" json:"id"`
	PepID                  string     `db:"pep_id" json:"pep_id"`
	DatimCode              string     `db:"datim_code" json:"datim_code"`
	CaseManagerID          string     `db:"case_manager" json:"case_manager"`
	PharmacyLastPickupDate *time.Time `db:"pharmacy_last_pickup_date" json:"pharmacy_last_pickup_date,omitempty"`
	DaysOfARVRefill        *int       `db:"days_of_arv_refill" json:"days_of_arv_refill,omitempty"`
	NextAppointmentDate    *time.Time `db:"next_appointment_date" json:"next_appointment_date,omitempty"`
}

func (a *DrugPickupAppointment) Row() predicate.MapRow {
	return predicate.MapRow{
		"event.id":                        a.ID,
		"event.pep_id":                    a.PepID,
		"event.datim_code":                a.DatimCode,
		"event.case_manager":              a.CaseManagerID,
		"event.pharmacy_last_pickup_date": a.PharmacyLastPickupDate,
		"event.days_of_arv_refill":        a.DaysOfARVRefill,
		"event.next_appointment_date":     a.NextAppointmentDate,
	}
}

// ViralLoadAppointment maps to dbo.viral_load_appointments.
type ViralLoadAppointment struct {
	ID                         int        `db:"id" json:"id"`
	PepID                      string     `db:"pep_id" json:"pep_id"`
	DatimCode                  string     `db:"datim_code" json:"datim_code"`
	CaseManagerID              string     `db:"case_manager" json:"case_manager"`
	LastDateOfSampleCollection *time.Time `db:"last_date_of_sample_collection" json:"last_date_of_sample_collection,omitempty"`
}

func (a *ViralLoadAppointment) Row() predicate.MapRow {
	return predicate.MapRow{
		"event.id":                             a.ID,
		"event.pep_id":                         a.PepID,
		"event.datim_code":                     a.DatimCode,
		"event.case_manager":                   a.CaseManagerID,
		"event.last_date_of_sample_collection": a.LastDateOfSampleCollection,
	}
}

// PerformanceRecord maps to cms.performance. One row per case manager per
// computation period, written by the refresh scripts.
type PerformanceRecord struct {
	ID                    int       `db:"id" json:"id"`
	CaseManagerID         string    `db:"case_manager_id" json:"case_manager_id"`
	TxCur                 int       `db:"tx_cur" json:"tx_cur"`
	IIT                   int       `db:"iit" json:"iit"`
	Dead                  int       `db:"dead" json:"dead"`
	Discontinued          int       `db:"discontinued" json:"discontinued"`
	TransferredOut        int       `db:"transferred_out" json:"transferred_out"`
	AppointmentsScheduled int       `db:"appointments_schedule" json:"appointments_schedule"`
	AppointmentsCompleted int       `db:"appointments_completed" json:"appointments_completed"`
	ViralLoadEligible     int       `db:"viral_load_eligible" json:"viral_load_eligible"`
	FYViralLoadEligible   int       `db:"fy_viral_load_eligible" json:"fy_viral_load_eligible"`
	ViralLoadSamples      int       `db:"viral_load_samples" json:"viral_load_samples"`
	ViralLoadResults      int       `db:"viral_load_results" json:"viral_load_results"`
	ViralLoadSuppressed   int       `db:"viral_load_suppressed" json:"viral_load_suppressed"`
	FinalScore            float64   `db:"final_score" json:"final_score"`
	CreatedAt             time.Time `db:"created_date" json:"created_date"`
	UpdatedAt             time.Time `db:"updated_date" json:"updated_date"`
}

func (r *PerformanceRecord) Row() predicate.MapRow {
	return predicate.MapRow{
		"performance.id":              r.ID,
		"performance.case_manager_id": r.CaseManagerID,
		"performance.final_score":     r.FinalScore,
		"performance.created_date":    r.CreatedAt,
	}
}

// ScoredCaseManager pairs a performance record with its case manager.
type ScoredCaseManager struct {
	CaseManager CaseManager       `json:"case_manager"`
	Record      PerformanceRecord `json:"performance"`
}

// TeamMemberScore pairs a performance record with its case manager and the
// team matched by value triple.
type TeamMemberScore struct {
	Team        Team              `json:"team"`
	CaseManager CaseManager       `json:"case_manager"`
	Record      PerformanceRecord `json:"performance"`
}

// State maps to dbo.states.
type State struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Code string `db:"code" json:"code"`
}
