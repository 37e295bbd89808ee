// Package cohort narrows patient-derived queries to the pediatric and PMTCT
// sub-populations. Cohorts select which entities are counted; they never
// change how a metric is defined.
package cohort

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
)

// PediatricMaxAge is the oldest age in years counted as pediatric.
const PediatricMaxAge = 19

// Filter holds the requested cohorts. The zero value selects everyone.
type Filter struct {
	Pediatric bool `json:"pediatrics"`
	PMTCT     bool `json:"pmtct"`
}

func (f Filter) Empty() bool { return !f.Pediatric && !f.PMTCT }

// Pediatric matches 0-19 year olds and any patient with an age in months.
func Pediatric() *predicate.Node {
	return predicate.Or(
		predicate.Between(predicate.Col("patient.current_age"), predicate.Val(0), predicate.Val(PediatricMaxAge)),
		predicate.Gt(predicate.Col("patient.current_age_months"), predicate.Val(0)),
	)
}

// PMTCT matches pregnant or breastfeeding female patients.
func PMTCT() *predicate.Node {
	return predicate.And(
		predicate.Eq(predicate.Lower(predicate.Col("patient.sex")), predicate.Val("f")),
		predicate.In(predicate.Lower(predicate.Col("patient.current_pregnancy_status")), "pregnant", "breastfeeding"),
	)
}

// Predicate renders the filter over patient.* columns, or nil when empty.
func (f Filter) Predicate() *predicate.Node {
	if f.Empty() {
		return nil
	}
	var parts []*predicate.Node
	if f.Pediatric {
		parts = append(parts, Pediatric())
	}
	if f.PMTCT {
		parts = append(parts, PMTCT())
	}
	return predicate.And(parts...)
}

// Apply restricts base to the cohort.
func (f Filter) Apply(base *predicate.Node) *predicate.Node {
	return predicate.And(base, f.Predicate())
}

// Combine ANDs two filters.
func (f Filter) Combine(o Filter) Filter {
	return Filter{Pediatric: f.Pediatric || o.Pediatric, PMTCT: f.PMTCT || o.PMTCT}
}

// FromContext reads the pediatrics and pmtct query flags.
func FromContext(c echo.Context) (Filter, error) {
	ped, err := flag(c, "pediatrics")
	if err != nil {
		return Filter{}, err
	}
	pmtct, err := flag(c, "pmtct")
	if err != nil {
		return Filter{}, err
	}
	return Filter{Pediatric: ped, PMTCT: pmtct}, nil
}

func flag(c echo.Context, name string) (bool, error) {
	v := c.QueryParam(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, carerecord.Invalid("%s must be true or false", name)
	}
	return b, nil
}
