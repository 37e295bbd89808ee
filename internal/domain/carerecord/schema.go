package carerecord

import "github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"

const (
	patientTable     = "cms.patient_line_list"
	caseManagerTable = "cms.case_managers"
	teamTable        = "cms.cmt"
	performanceTable = "cms.performance"
	drugPickupTable  = "dbo.drug_pickup_appointments"
	viralLoadTable   = "dbo.viral_load_appointments"
	stateTable       = "dbo.states"
)

var patientColumns = []string{
	"id", "pep_id", "datim_code", "case_manager_id", "state", "lga", "facility_name",
	"sex", "dob", "current_age", "current_age_months", "art_start_date", "days_on_art",
	"pharmacy_last_pickup_date", "days_of_arv_refill", "current_pregnancy_status",
	"current_viral_load", "date_of_current_viral_load", "last_date_of_sample_collection",
	"outcomes", "outcomes_date", "current_art_status",
}

var caseManagerColumns = []string{"cm_id", "id", "fullname", "role", "cmt", "state", "facilities"}

var teamColumns = []string{"id", "name", "state", "facility_name"}

var performanceColumns = []string{"id", "case_manager_id", "final_score", "created_date"}

var drugPickupColumns = []string{
	"id", "pep_id", "datim_code", "case_manager",
	"pharmacy_last_pickup_date", "days_of_arv_refill", "next_appointment_date",
}

var viralLoadColumns = []string{
	"id", "pep_id", "datim_code", "case_manager", "last_date_of_sample_collection",
}

func eventTable(kind EventKind) string {
	if kind == ViralLoadEvent {
		return viralLoadTable
	}
	return drugPickupTable
}

func eventColumns(kind EventKind) []string {
	if kind == ViralLoadEvent {
		return viralLoadColumns
	}
	return drugPickupColumns
}

// Compile contexts: qualifier -> alias used in the queries of repo_pg.go.

var patientCtx = &predicate.Context{
	Aliases: map[string]string{"patient": "p"},
	Columns: map[string][]string{"patient": patientColumns},
}

func eventCtx(kind EventKind, joinPatient bool) *predicate.Context {
	ctx := &predicate.Context{
		Aliases: map[string]string{"event": "e"},
		Columns: map[string][]string{"event": eventColumns(kind)},
	}
	if joinPatient {
		ctx.Aliases["patient"] = "p"
		ctx.Columns["patient"] = patientColumns
	}
	return ctx
}

var caseManagerCtx = &predicate.Context{
	Aliases: map[string]string{"case_manager": "cm"},
	Columns: map[string][]string{"case_manager": caseManagerColumns},
}

var teamCtx = &predicate.Context{
	Aliases: map[string]string{"team": "t"},
	Columns: map[string][]string{"team": teamColumns},
}

var scoreCtx = &predicate.Context{
	Aliases: map[string]string{"case_manager": "cm", "performance": "perf", "patient": "p"},
	Columns: map[string][]string{
		"case_manager": caseManagerColumns,
		"performance":  performanceColumns,
		"patient":      patientColumns,
	},
}

var teamScoreCtx = &predicate.Context{
	Aliases: map[string]string{"case_manager": "cm", "performance": "perf", "team": "t", "patient": "p"},
	Columns: map[string][]string{
		"case_manager": caseManagerColumns,
		"performance":  performanceColumns,
		"team":         teamColumns,
		"patient":      patientColumns,
	},
}
