package dashboard

import (
	"fmt"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
)

const bucketDays = 7

// Bucket is one weekly slice of a window. Both bounds are inclusive.
type Bucket struct {
	Label  string
	Index  int
	Window carerecord.Window
}

// WeeklyBuckets partitions w into consecutive seven-day buckets labelled
// Week1..WeekN. The last bucket ends at w.End and may be shorter.
func WeeklyBuckets(w carerecord.Window) []Bucket {
	n := (w.Days() + bucketDays - 1) / bucketDays
	buckets := make([]Bucket, 0, n)
	for i := 0; i < n; i++ {
		start := w.Start.AddDate(0, 0, i*bucketDays)
		end := start.AddDate(0, 0, bucketDays-1)
		if end.After(w.End) {
			end = w.End
		}
		buckets = append(buckets, Bucket{
			Label:  fmt.Sprintf("Week%d", i+1),
			Index:  i,
			Window: carerecord.Window{Start: start, End: end},
		})
	}
	return buckets
}
