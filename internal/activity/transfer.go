package activity

import (
	"context"
	"time"

	"github.com/septivank/device-activity-log/internal/db"
)

// Export is a point-in-time snapshot of the log and statistics
type Export struct {
	Activities    []db.Activity          `json:"activities"`
	UserStats     map[string]db.UserStat `json:"userStats"`
	ExportDate    string                 `json:"exportDate"`
	EnvironmentID string                 `json:"environmentId,omitempty"`
}

// ExportActivities snapshots the log and statistics, optionally for one environment
func (l *Log) ExportActivities(ctx context.Context, environmentID string) Export {
	l.mu.Lock()
	defer l.mu.Unlock()

	activities := filterActivities(l.loadActivities(ctx), func(a db.Activity) bool {
		return environmentID == "" || a.EnvironmentID == environmentID
	})

	return Export{
		Activities:    activities,
		UserStats:     l.userStatsFor(ctx, environmentID),
		ExportDate:    l.now().UTC().Format(time.RFC3339Nano),
		EnvironmentID: environmentID,
	}
}

// ImportActivities merges an export into the live data.
//
// Activities are concatenated after the existing log and deduplicated by id, so
// existing records win; the result is sorted newest first and capped. User stats
// are merged by key with imported rows replacing existing ones wholesale; they
// are not recomputed from the merged log. A nil Activities or UserStats is skipped.
func (l *Log) ImportActivities(ctx context.Context, data Export) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	if data.Activities != nil {
		existing := l.loadActivities(ctx)
		merged := make([]db.Activity, 0, len(existing)+len(data.Activities))
		seen := make(map[string]struct{}, cap(merged))
		for _, a := range append(existing, data.Activities...) {
			if _, dup := seen[a.ID]; dup {
				continue
			}
			seen[a.ID] = struct{}{}
			merged = append(merged, a)
		}

		if err := l.saveActivities(ctx, l.retain(merged)); err != nil {
			return err
		}
	}

	if data.UserStats != nil {
		stats := l.loadUserStats(ctx)
		for key, stat := range data.UserStats {
			stats[key] = stat
		}
		if err := l.saveUserStats(ctx, stats); err != nil {
			return err
		}
	}

	return nil
}
