package activity

import (
	"context"
	"time"

	"github.com/septivank/device-activity-log/internal/chart"
	"github.com/septivank/device-activity-log/internal/db"
)

const recentActivityLimit = 50

// DeviceUsageSummary is recomputed from raw activities on every call and is
// independent of the incrementally maintained user statistics.
type DeviceUsageSummary struct {
	TotalActivations   int                   `json:"totalActivations"`
	TotalDeactivations int                   `json:"totalDeactivations"`
	TotalAccesses      int                   `json:"totalAccesses"`
	UserAccess         map[string]UserAccess `json:"userAccess"`
	RecentActivity     []db.Activity         `json:"recentActivity"`
	DailyUsage         map[string]UsageCount `json:"dailyUsage"`
	HourlyUsage        map[int]UsageCount    `json:"hourlyUsage"`
}

// UserAccess summarizes one user's use of a device
type UserAccess struct {
	UserName      string `json:"userName"`
	Activations   int    `json:"activations"`
	Deactivations int    `json:"deactivations"`
	LastAccess    int64  `json:"lastAccess"`
}

// UsageCount holds activation/deactivation counts for a day or hour
type UsageCount struct {
	Activations   int `json:"activations"`
	Deactivations int `json:"deactivations"`
}

func (u *UsageCount) add(state bool) {
	if state {
		u.Activations++
	} else {
		u.Deactivations++
	}
}

// GetDeviceUsageStats rescans the device's activities. Days are keyed like
// "Fri Oct 16 2026" and hours 0-23, both in the log's location.
func (l *Log) GetDeviceUsageStats(ctx context.Context, deviceID, environmentID string) DeviceUsageSummary {
	activities := l.GetDeviceActivities(ctx, deviceID, environmentID)

	recent := activities
	if len(recent) > recentActivityLimit {
		recent = recent[:recentActivityLimit]
	}

	summary := DeviceUsageSummary{
		TotalAccesses:  len(activities),
		UserAccess:     make(map[string]UserAccess),
		RecentActivity: recent,
		DailyUsage:     make(map[string]UsageCount),
		HourlyUsage:    make(map[int]UsageCount),
	}

	for _, a := range activities {
		if a.State {
			summary.TotalActivations++
		} else {
			summary.TotalDeactivations++
		}

		access, ok := summary.UserAccess[a.UserID]
		if !ok {
			access = UserAccess{UserName: a.UserName, LastAccess: a.Timestamp}
		}
		if a.State {
			access.Activations++
		} else {
			access.Deactivations++
		}
		if a.Timestamp > access.LastAccess {
			access.LastAccess = a.Timestamp
		}
		summary.UserAccess[a.UserID] = access

		t := time.UnixMilli(a.Timestamp).In(l.loc)

		dayKey := t.Format("Mon Jan 02 2006")
		day := summary.DailyUsage[dayKey]
		day.add(a.State)
		summary.DailyUsage[dayKey] = day

		hour := summary.HourlyUsage[t.Hour()]
		hour.add(a.State)
		summary.HourlyUsage[t.Hour()] = hour
	}

	return summary
}

// ProcessActivitiesForChart buckets the environment's recent activities for charting
func (l *Log) ProcessActivitiesForChart(ctx context.Context, environmentID string, timeRange chart.TimeRange) []chart.Bucket {
	activities := l.GetActivities(ctx, environmentID)
	return chart.Process(activities, timeRange, l.now(), l.loc)
}
