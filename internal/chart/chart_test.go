package chart

import (
	"testing"
	"time"

	"github.com/septivank/device-activity-log/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func at(d time.Duration, state bool) db.Activity {
	return db.Activity{Timestamp: testNow.Add(-d).UnixMilli(), State: state, EnvironmentID: "e1"}
}

func TestSettingsFor(t *testing.T) {
	tests := []struct {
		r      TimeRange
		window time.Duration
		width  time.Duration
	}{
		{Range1h, time.Hour, 5 * time.Minute},
		{Range6h, 6 * time.Hour, 30 * time.Minute},
		{Range24h, 24 * time.Hour, time.Hour},
		{Range7d, 7 * 24 * time.Hour, 6 * time.Hour},
		{Range30d, 30 * 24 * time.Hour, 24 * time.Hour},
		{TimeRange("90d"), 24 * time.Hour, time.Hour},
		{TimeRange(""), 24 * time.Hour, time.Hour},
	}

	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			s := SettingsFor(tt.r)
			assert.Equal(t, tt.window, s.Window)
			assert.Equal(t, tt.width, s.BucketWidth)
		})
	}
}

func TestProcess_EmptyWindow(t *testing.T) {
	activities := []db.Activity{at(2*time.Hour, true)}

	buckets := Process(activities, Range1h, testNow, time.UTC)

	assert.NotNil(t, buckets)
	assert.Empty(t, buckets)
}

func TestProcess_SameBucket(t *testing.T) {
	// 11:31 and 11:34 both floor to 11:30
	activities := []db.Activity{at(29*time.Minute, true), at(26*time.Minute, false)}

	buckets := Process(activities, Range1h, testNow, time.UTC)

	require.Len(t, buckets, 1)
	assert.Equal(t, 2, buckets[0].Total)
	assert.Equal(t, 1, buckets[0].Active)
	assert.Equal(t, 1, buckets[0].Inactive)
	assert.Equal(t, testNow.Add(-30*time.Minute).UnixMilli(), buckets[0].Timestamp)
	assert.Equal(t, "11:30", buckets[0].Time)
}

func TestProcess_StraddlingBoundary(t *testing.T) {
	// 11:33 and 11:36 fall either side of 11:35
	activities := []db.Activity{at(24*time.Minute, true), at(27*time.Minute, true)}

	buckets := Process(activities, Range1h, testNow, time.UTC)

	require.Len(t, buckets, 2)
	assert.Equal(t, 1, buckets[0].Total)
	assert.Equal(t, 1, buckets[1].Total)
	assert.Less(t, buckets[0].Timestamp, buckets[1].Timestamp)
	assert.Equal(t, "11:30", buckets[0].Time)
	assert.Equal(t, "11:35", buckets[1].Time)
}

func TestProcess_BoundariesIndependentOfNow(t *testing.T) {
	activities := []db.Activity{at(10*time.Minute, true), at(42*time.Minute, false), at(43*time.Minute, true)}

	first := Process(activities, Range1h, testNow, time.UTC)
	second := Process(activities, Range1h, testNow.Add(2*time.Minute+17*time.Second), time.UTC)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Timestamp, second[i].Timestamp)
		assert.Zero(t, first[i].Timestamp%(5*time.Minute).Milliseconds())
	}
}

func TestProcess_ExcludesFutureAndSortsAscending(t *testing.T) {
	activities := []db.Activity{
		at(-time.Minute, true), // in the future
		at(time.Hour, true),
		at(20*time.Hour, false),
		at(3*time.Hour, true),
	}

	buckets := Process(activities, Range24h, testNow, time.UTC)

	require.Len(t, buckets, 3)
	for i := 1; i < len(buckets); i++ {
		assert.Less(t, buckets[i-1].Timestamp, buckets[i].Timestamp)
	}
	total := 0
	for _, b := range buckets {
		total += b.Total
	}
	assert.Equal(t, 3, total)
}

func TestFormatTimeLabel(t *testing.T) {
	ts := time.Date(2026, 10, 12, 18, 0, 0, 0, time.UTC).UnixMilli()
	tokyo := time.FixedZone("JST", 9*60*60)

	tests := []struct {
		name string
		r    TimeRange
		loc  *time.Location
		want string
	}{
		{"1h utc", Range1h, time.UTC, "18:00"},
		{"6h utc", Range6h, time.UTC, "18:00"},
		{"24h utc", Range24h, time.UTC, "18:00"},
		{"7d utc", Range7d, time.UTC, "Mon 18"},
		{"30d utc", Range30d, time.UTC, "Oct 12"},
		{"unknown utc", TimeRange("bogus"), time.UTC, "18:00"},
		{"24h tokyo", Range24h, tokyo, "03:00"},
		{"7d tokyo", Range7d, tokyo, "Tue 03"},
		{"30d tokyo", Range30d, tokyo, "Oct 13"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeLabel(ts, tt.r, tt.loc))
		})
	}
}
