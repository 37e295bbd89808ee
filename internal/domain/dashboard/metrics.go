package dashboard

import (
	"time"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
)

const (
	StatusActive = "Active"

	// IITGraceDays is added to the refill duration to get the date a
	// patient is expected back.
	IITGraceDays = 28
	// ViralLoadEligibleDays is the time on treatment before a viral load
	// test is due.
	ViralLoadEligibleDays = 180
	// ViralLoadResultDays bounds how old a result may be, counted back from
	// the window end.
	ViralLoadResultDays = 365
	// SuppressionThreshold is in copies/ml.
	SuppressionThreshold = 1000.0
)

var (
	artStatus   = predicate.Col("patient.current_art_status")
	lastPickup  = predicate.Col("patient.pharmacy_last_pickup_date")
	sampleDate  = predicate.Col("patient.last_date_of_sample_collection")
	viralLoad   = predicate.Col("patient.current_viral_load")
	viralLoadAt = predicate.Col("patient.date_of_current_viral_load")
)

func active() *predicate.Node {
	return predicate.Eq(artStatus, predicate.Val(StatusActive))
}

// TxCurrent matches patients active on treatment.
func TxCurrent() *predicate.Node { return active() }

// ExpectedReturn is the last pickup date plus the refill duration and the
// grace period.
func ExpectedReturn() predicate.Expr {
	return predicate.AddDays(
		predicate.DateOf(lastPickup),
		predicate.Plus(predicate.Col("patient.days_of_arv_refill"), predicate.Val(IITGraceDays)),
	)
}

// InterruptedTreatment matches inactive patients with no recorded outcome
// whose expected return date falls in w.
func InterruptedTreatment(w carerecord.Window) *predicate.Node {
	return predicate.And(
		predicate.Ne(artStatus, predicate.Val(StatusActive)),
		predicate.NullOrEmpty(predicate.Col("patient.outcomes")),
		predicate.Between(ExpectedReturn(), predicate.Val(w.Start), predicate.Val(w.End)),
	)
}

// DrugPickup matches patients whose last pickup falls in w.
func DrugPickup(w carerecord.Window) *predicate.Node {
	return predicate.And(predicate.NotNull(lastPickup), w.Contains(lastPickup))
}

// ViralLoadEligible matches active patients with at least 180 days on treatment.
func ViralLoadEligible() *predicate.Node {
	return predicate.And(
		active(),
		predicate.Ge(predicate.Col("patient.days_on_art"), predicate.Val(ViralLoadEligibleDays)),
	)
}

// ViralLoadResult matches eligible patients with a result taken within the
// year before end.
func ViralLoadResult(end time.Time) *predicate.Node {
	age := predicate.DaysBetween(viralLoadAt, predicate.Val(end))
	return predicate.And(
		ViralLoadEligible(),
		predicate.NotNull(viralLoad),
		predicate.Between(age, predicate.Val(0), predicate.Val(ViralLoadResultDays)),
	)
}

func ViralLoadSuppressed(end time.Time) *predicate.Node {
	return predicate.And(
		ViralLoadResult(end),
		predicate.Lt(viralLoad, predicate.Val(SuppressionThreshold)),
	)
}

// SampleCollected matches active patients past 180 days since treatment
// start, measured to today, whose last sample was collected in w.
func SampleCollected(w carerecord.Window, today time.Time) *predicate.Node {
	return predicate.And(
		active(),
		predicate.Ge(
			predicate.DaysBetween(predicate.Col("patient.art_start_date"), predicate.Val(today)),
			predicate.Val(ViralLoadEligibleDays),
		),
		w.Contains(sampleDate),
	)
}
