// Package chart groups activities into epoch-aligned time buckets for
// activity-over-time charts.
package chart

import (
	"sort"
	"time"

	"github.com/septivank/device-activity-log/internal/db"
)

// TimeRange names one of the supported chart windows
type TimeRange string

const (
	Range1h  TimeRange = "1h"
	Range6h  TimeRange = "6h"
	Range24h TimeRange = "24h"
	Range7d  TimeRange = "7d"
	Range30d TimeRange = "30d"
)

// Settings describes the look-back window and bucket width of a range
type Settings struct {
	Window      time.Duration
	BucketWidth time.Duration
}

var rangeSettings = map[TimeRange]Settings{
	Range1h:  {Window: time.Hour, BucketWidth: 5 * time.Minute},
	Range6h:  {Window: 6 * time.Hour, BucketWidth: 30 * time.Minute},
	Range24h: {Window: 24 * time.Hour, BucketWidth: time.Hour},
	Range7d:  {Window: 7 * 24 * time.Hour, BucketWidth: 6 * time.Hour},
	Range30d: {Window: 30 * 24 * time.Hour, BucketWidth: 24 * time.Hour},
}

// SettingsFor returns the settings of r. Unknown ranges use the 24h settings.
func SettingsFor(r TimeRange) Settings {
	if s, ok := rangeSettings[r]; ok {
		return s
	}
	return rangeSettings[Range24h]
}

// Bucket is one populated interval of the chart
type Bucket struct {
	Time      string `json:"time"`
	Active    int    `json:"active"`
	Inactive  int    `json:"inactive"`
	Total     int    `json:"total"`
	Timestamp int64  `json:"timestamp"`
}

// Process buckets the activities falling in [now-window, now] by floor(timestamp/width)*width.
// Only populated buckets are returned, ordered by start time; no activity yields an empty slice.
func Process(activities []db.Activity, r TimeRange, now time.Time, loc *time.Location) []Bucket {
	settings := SettingsFor(r)
	nowMs := now.UnixMilli()
	startMs := nowMs - settings.Window.Milliseconds()
	widthMs := settings.BucketWidth.Milliseconds()

	groups := make(map[int64]*Bucket)
	for _, a := range activities {
		if a.Timestamp < startMs || a.Timestamp > nowMs {
			continue
		}
		bucketStart := floorDiv(a.Timestamp, widthMs) * widthMs
		b, ok := groups[bucketStart]
		if !ok {
			b = &Bucket{Timestamp: bucketStart}
			groups[bucketStart] = b
		}
		if a.State {
			b.Active++
		} else {
			b.Inactive++
		}
		b.Total++
	}

	buckets := make([]Bucket, 0, len(groups))
	for _, b := range groups {
		b.Time = FormatTimeLabel(b.Timestamp, r, loc)
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Timestamp < buckets[j].Timestamp
	})
	return buckets
}

// FormatTimeLabel renders a bucket start for display in loc.
// Sub-day ranges show "15:04", 7d shows "Mon 15", 30d shows "Jan 2".
func FormatTimeLabel(epochMillis int64, r TimeRange, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	t := time.UnixMilli(epochMillis).In(loc)

	switch r {
	case Range7d:
		return t.Format("Mon 15")
	case Range30d:
		return t.Format("Jan 2")
	default:
		return t.Format("15:04")
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
