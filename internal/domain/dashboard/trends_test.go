package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
)

func TestWeeklyBuckets_Partition(t *testing.T) {
	start := day("2024-01-01")
	for span := 0; span < 60; span++ {
		w, err := carerecord.NewWindow(start, start.AddDate(0, 0, span))
		require.NoError(t, err)
		buckets := WeeklyBuckets(w)

		days := span + 1
		require.Len(t, buckets, (days+6)/7, "span %d", span)
		assert.True(t, buckets[0].Window.Start.Equal(w.Start), "span %d: first bucket starts at the window start", span)
		assert.True(t, buckets[len(buckets)-1].Window.End.Equal(w.End), "span %d: last bucket ends at the window end", span)

		covered := 0
		for i, b := range buckets {
			assert.Equal(t, i, b.Index)
			assert.False(t, b.Window.End.Before(b.Window.Start))
			assert.LessOrEqual(t, b.Window.Days(), 7)
			if i > 0 {
				assert.True(t, b.Window.Start.Equal(buckets[i-1].Window.End.AddDate(0, 0, 1)),
					"span %d: bucket %d must start the day after the previous one ends", span, i)
			}
			covered += b.Window.Days()
		}
		assert.Equal(t, days, covered, "span %d", span)
	}
}

func TestWeeklyBuckets_Labels(t *testing.T) {
	buckets := WeeklyBuckets(*window("2024-02-01", "2024-02-16"))
	require.Len(t, buckets, 3)
	assert.Equal(t, "Week1", buckets[0].Label)
	assert.Equal(t, "Week3", buckets[2].Label)
	assert.Equal(t, day("2024-02-15"), buckets[2].Window.Start)
	assert.Equal(t, 2, buckets[2].Window.Days())
}

func TestTrends(t *testing.T) {
	svc := newTestService(trendStore(), Options{Concurrency: 2})

	got, err := svc.Trends(context.Background(), Request{Identity: superAdmin, Window: window("2024-03-01", "2024-03-14")})
	require.NoError(t, err)

	counts := func(points []TrendPoint) []int {
		out := make([]int, len(points))
		for i, p := range points {
			out[i] = p.Count
		}
		return out
	}
	assert.Equal(t, []int{1, 1}, counts(got.DrugPickups))
	assert.Equal(t, []int{0, 1}, counts(got.ViralLoads))
	assert.Equal(t, []int{1, 1}, counts(got.TotalVisits))

	assert.Equal(t, TrendPoint{WeekLabel: "Week2", WeekStart: "2024-03-08", WeekEnd: "2024-03-14", Count: 1}, got.DrugPickups[1])
}

func TestTrends_ScopeAppliesPerBucket(t *testing.T) {
	store := trendStore()
	store.States = []carerecord.State{{ID: 1, Name: "Akwa Ibom"}, {ID: 2, Name: "Cross River"}}
	store.Patients[1].State = "Cross River"
	svc := newTestService(store, Options{})

	got, err := svc.Trends(context.Background(), Request{Identity: akwaAdmin, Window: window("2024-03-01", "2024-03-14")})
	require.NoError(t, err)
	assert.Equal(t, 1, got.DrugPickups[0].Count)
	assert.Equal(t, 0, got.DrugPickups[1].Count)
	assert.Equal(t, 0, got.TotalVisits[1].Count)
}

func TestTrends_UnscopedReturnsEmptyBuckets(t *testing.T) {
	got, err := newTestService(trendStore(), Options{}).
		Trends(context.Background(), Request{Identity: nobody, Window: window("2024-03-01", "2024-03-14")})
	require.NoError(t, err)
	require.Len(t, got.TotalVisits, 2)
	assert.Zero(t, got.TotalVisits[0].Count)
}

func TestTrends_StoreFailure(t *testing.T) {
	store := trendStore()
	store.Err = errors.New("deadlock")
	_, err := newTestService(store, Options{}).
		Trends(context.Background(), Request{Identity: superAdmin, Window: window("2024-03-01", "2024-03-14")})
	assert.ErrorIs(t, err, carerecord.ErrStore)
}

func TestWeeklyBuckets_CenturiesLongWindow(t *testing.T) {
	w := *window("1700-01-01", "2100-12-31")
	buckets := WeeklyBuckets(w)

	require.Len(t, buckets, (w.Days()+6)/7)
	assert.True(t, buckets[len(buckets)-1].Window.End.Equal(w.End), "last bucket ends at %s",
		buckets[len(buckets)-1].Window.End.Format(carerecord.DateLayout))
}

func TestTrends_DefaultWindowIsTrimmed(t *testing.T) {
	store := trendStore()
	store.DrugPickups = append(store.DrugPickups,
		carerecord.DrugPickupAppointment{ID: 9, PepID: "Z", DatimCode: "F9", NextAppointmentDate: dayPtr("1900-01-01")})

	got, err := newTestService(store, Options{Concurrency: 4}).Trends(context.Background(), Request{Identity: superAdmin})
	require.NoError(t, err)

	require.Len(t, got.TotalVisits, (carerecord.MaxWindowDays+6)/7)
	assert.Equal(t, "2024-03-13", got.TotalVisits[len(got.TotalVisits)-1].WeekEnd)
}
