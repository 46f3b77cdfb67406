package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/septivank/device-activity-log/internal/db"
	"github.com/septivank/device-activity-log/internal/store"
	"go.uber.org/zap"
)

// updateUserActivityStats increments the rollup row of the entry's user.
// It never rescans the log, so counters survive eviction of the raw records.
func (l *Log) updateUserActivityStats(ctx context.Context, e Entry, now time.Time) error {
	stats := l.loadUserStats(ctx)
	nowMs := now.UnixMilli()
	key := db.UserStatKey(e.EnvironmentID, e.UserID)

	stat, ok := stats[key]
	if !ok {
		stat = db.UserStat{
			UserID:        e.UserID,
			UserName:      e.UserName,
			EnvironmentID: e.EnvironmentID,
			FirstActivity: nowMs,
		}
	}
	if stat.Devices == nil {
		stat.Devices = make(map[string]db.DeviceStat)
	}

	device, ok := stat.Devices[e.DeviceID]
	if !ok {
		device = db.DeviceStat{DeviceName: e.DeviceName}
	}

	if e.State {
		stat.TotalActivations++
		device.Activations++
	} else {
		stat.TotalDeactivations++
		device.Deactivations++
	}
	device.LastAccess = nowMs
	stat.Devices[e.DeviceID] = device
	stat.LastActivity = nowMs
	stats[key] = stat

	return l.saveUserStats(ctx, stats)
}

// GetUserActivityStats returns the persisted rollups keyed by "<environmentId>_<userId>",
// optionally restricted to one environment.
func (l *Log) GetUserActivityStats(ctx context.Context, environmentID string) map[string]db.UserStat {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.userStatsFor(ctx, environmentID)
}

func (l *Log) userStatsFor(ctx context.Context, environmentID string) map[string]db.UserStat {
	stats := l.loadUserStats(ctx)
	if environmentID == "" {
		return stats
	}

	prefix := environmentID + "_"
	filtered := make(map[string]db.UserStat)
	for key, stat := range stats {
		if strings.HasPrefix(key, prefix) {
			filtered[key] = stat
		}
	}
	return filtered
}

// loadUserStats reads the statistics blob. Missing or corrupt data yields an empty map.
func (l *Log) loadUserStats(ctx context.Context) map[string]db.UserStat {
	raw, err := l.store.Get(ctx, l.statsKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.logger.Warn("failed to read user stats, treating as empty", zap.Error(err))
		}
		return make(map[string]db.UserStat)
	}

	var stats map[string]db.UserStat
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		l.logger.Warn("failed to decode user stats, treating as empty", zap.Error(err))
		return make(map[string]db.UserStat)
	}
	if stats == nil {
		stats = make(map[string]db.UserStat)
	}
	return stats
}

func (l *Log) saveUserStats(ctx context.Context, stats map[string]db.UserStat) error {
	body, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal user stats: %w", err)
	}
	if err := l.store.Set(ctx, l.statsKey, string(body)); err != nil {
		return fmt.Errorf("failed to store user stats: %w", err)
	}
	return nil
}
