package carerecord

import (
	"time"

	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
)

// DateLayout is the accepted format for date query parameters.
const DateLayout = "2006-01-02"

// MaxWindowDays bounds a requested window to about ten years.
const MaxWindowDays = 3660

// Window is an inclusive range of calendar dates.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow truncates both bounds to calendar dates and rejects an inverted range.
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: predicate.Date(start), End: predicate.Date(end)}
	if w.End.Before(w.Start) {
		return Window{}, Invalid("end date %s is before start date %s",
			w.End.Format(DateLayout), w.Start.Format(DateLayout))
	}
	return w, nil
}

// ParseWindow parses optional YYYY-MM-DD bounds. When both are empty it
// returns ok=false and the caller derives a default window; supplying only
// one bound is rejected.
func ParseWindow(start, end string) (w Window, ok bool, err error) {
	if start == "" && end == "" {
		return Window{}, false, nil
	}
	if start == "" || end == "" {
		return Window{}, false, Invalid("start and end must be supplied together")
	}
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return Window{}, false, Invalid("start date %q must be YYYY-MM-DD", start)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return Window{}, false, Invalid("end date %q must be YYYY-MM-DD", end)
	}
	w, err = NewWindow(s, e)
	if err != nil {
		return Window{}, false, err
	}
	if w.Days() > MaxWindowDays {
		return Window{}, false, Invalid("window of %d days exceeds the %d day limit", w.Days(), MaxWindowDays)
	}
	return w, true, nil
}

// Days is the inclusive number of calendar days in the window. Bounds are
// UTC midnights, so the count is exact for any span.
func (w Window) Days() int {
	return int((w.End.Unix()-w.Start.Unix())/secondsPerDay) + 1
}

const secondsPerDay = 24 * 60 * 60

// Trailing returns the last days of w, or w itself when it is not longer.
func (w Window) Trailing(days int) Window {
	if days <= 0 || w.Days() <= days {
		return w
	}
	return Window{Start: w.End.AddDate(0, 0, -(days - 1)), End: w.End}
}

// Contains matches e when its calendar date falls inside the window.
func (w Window) Contains(e predicate.Expr) *predicate.Node {
	return predicate.Between(predicate.DateOf(e), predicate.Val(w.Start), predicate.Val(w.End))
}
