package refresh

import (
	"fmt"
	"strings"
	"time"
)

// Job names match the script subdirectories under the refresh scripts root.
type Job string

const (
	Daily   Job = "daily"
	Monthly Job = "monthly"
)

var Jobs = []Job{Daily, Monthly}

func ParseJob(s string) (Job, error) {
	switch Job(strings.ToLower(strings.TrimSpace(s))) {
	case Daily:
		return Daily, nil
	case Monthly:
		return Monthly, nil
	}
	return "", fmt.Errorf("unknown refresh job %q (want daily or monthly)", s)
}

// NextRun returns the first firing time of job strictly after t. Daily runs
// at 00:00 UTC, monthly at 00:00 UTC on the last day of the month.
func NextRun(job Job, t time.Time) time.Time {
	t = t.UTC()
	y, m, d := t.Date()
	switch job {
	case Monthly:
		last := time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
		if last.After(t) {
			return last
		}
		return time.Date(y, m+2, 0, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
	}
}

// Due returns the earliest firing time after t across jobs and every job
// that fires at that instant, in declaration order.
func Due(jobs []Job, t time.Time) (time.Time, []Job) {
	var at time.Time
	var due []Job
	for _, j := range jobs {
		next := NextRun(j, t)
		switch {
		case due == nil || next.Before(at):
			at, due = next, []Job{j}
		case next.Equal(at):
			due = append(due, j)
		}
	}
	return at, due
}
