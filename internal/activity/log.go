// Package activity maintains the device activity log and the rollups derived from it.
//
// The log and the user statistics are each persisted as one JSON blob and
// rewritten in full on every mutation. Within a process, calls on a Log are
// serialized; processes sharing the same backing store are not coordinated,
// and the last full rewrite wins.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/device-activity-log/internal/db"
	"github.com/septivank/device-activity-log/internal/notify"
	"github.com/septivank/device-activity-log/internal/store"
	"go.uber.org/zap"
)

const (
	// MaxActivityRecords is the default retention cap of the log
	MaxActivityRecords = 10000
	// DefaultActivityKey is the store key of the activity log blob
	DefaultActivityKey = "smart_home_device_activity"
	// DefaultStatsKey is the store key of the user statistics blob
	DefaultStatsKey = "smart_home_user_activity"
)

// ErrClosed is returned by mutating operations on a closed Log
var ErrClosed = errors.New("activity: log closed")

// Entry holds the caller-supplied fields of a new activity
type Entry struct {
	DeviceID      string
	DeviceName    string
	RoomID        string
	RoomName      string
	State         bool
	UserID        string
	UserName      string
	EnvironmentID string
}

// Log is the append path and query surface over the persisted activity log
type Log struct {
	mu          sync.Mutex
	store       store.BlobStore
	notifier    *notify.Notifier
	logger      *zap.Logger
	now         func() time.Time
	newID       func(time.Time) string
	loc         *time.Location
	maxRecords  int
	activityKey string
	statsKey    string
	closed      bool
}

// Option configures a Log
type Option func(*Log)

// WithLogger sets the logger used for fail-open reads and listener failures
func WithLogger(logger *zap.Logger) Option {
	return func(l *Log) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator overrides how activity ids are derived from the creation time
func WithIDGenerator(newID func(time.Time) string) Option {
	return func(l *Log) {
		if newID != nil {
			l.newID = newID
		}
	}
}

// WithMaxRecords overrides the retention cap
func WithMaxRecords(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.maxRecords = n
		}
	}
}

// WithLocation sets the time zone used for day/hour breakdowns and chart labels
func WithLocation(loc *time.Location) Option {
	return func(l *Log) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithKeys overrides the store keys of the log and statistics blobs
func WithKeys(activityKey, statsKey string) Option {
	return func(l *Log) {
		if activityKey != "" {
			l.activityKey = activityKey
		}
		if statsKey != "" {
			l.statsKey = statsKey
		}
	}
}

// New creates a Log persisting into s
func New(s store.BlobStore, opts ...Option) *Log {
	l := &Log{
		store:       s,
		logger:      zap.NewNop(),
		now:         time.Now,
		newID:       newActivityID,
		loc:         time.Local,
		maxRecords:  MaxActivityRecords,
		activityKey: DefaultActivityKey,
		statsKey:    DefaultStatsKey,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.notifier = notify.NewNotifier(l.logger)
	return l
}

// newActivityID joins the creation time in millis with a random suffix
func newActivityID(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return strconv.FormatInt(t.UnixMilli(), 10) + suffix
}

// LogActivity records a state transition, evicts beyond the retention cap,
// updates the user statistics and notifies listeners.
func (l *Log) LogActivity(ctx context.Context, e Entry) (db.Activity, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return db.Activity{}, ErrClosed
	}

	now := l.now()
	activity := db.Activity{
		ID:            l.newID(now),
		DeviceID:      e.DeviceID,
		DeviceName:    e.DeviceName,
		RoomID:        e.RoomID,
		RoomName:      e.RoomName,
		State:         e.State,
		UserID:        e.UserID,
		UserName:      e.UserName,
		EnvironmentID: e.EnvironmentID,
		Timestamp:     now.UnixMilli(),
		Date:          now.UTC().Format("2006-01-02T15:04:05.000Z"),
	}

	activities := append(l.loadActivities(ctx), activity)
	activities = l.retain(activities)

	if err := l.saveActivities(ctx, activities); err != nil {
		l.mu.Unlock()
		return db.Activity{}, err
	}

	if err := l.updateUserActivityStats(ctx, e, now); err != nil {
		l.mu.Unlock()
		return db.Activity{}, err
	}
	l.mu.Unlock()

	// Listeners run outside the lock so they may query the log.
	l.notifier.Publish(ctx, notify.Event{Activity: activity, EnvironmentID: e.EnvironmentID})

	return activity, nil
}

// retain sorts newest first and truncates to the retention cap
func (l *Log) retain(activities []db.Activity) []db.Activity {
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Timestamp > activities[j].Timestamp
	})
	if len(activities) > l.maxRecords {
		l.logger.Debug("evicting activities beyond retention cap",
			zap.Int("evicted", len(activities)-l.maxRecords),
			zap.Int("max_records", l.maxRecords),
		)
		activities = activities[:l.maxRecords]
	}
	return activities
}

// GetActivities returns the persisted log, optionally filtered to one environment.
// An empty environmentID returns every record.
func (l *Log) GetActivities(ctx context.Context, environmentID string) []db.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return filterActivities(l.loadActivities(ctx), func(a db.Activity) bool {
		return environmentID == "" || a.EnvironmentID == environmentID
	})
}

// GetDeviceActivities returns the activities of one device
func (l *Log) GetDeviceActivities(ctx context.Context, deviceID, environmentID string) []db.Activity {
	return filterActivities(l.GetActivities(ctx, environmentID), func(a db.Activity) bool {
		return a.DeviceID == deviceID
	})
}

// GetUserActivities returns the activities performed by one user
func (l *Log) GetUserActivities(ctx context.Context, userID, environmentID string) []db.Activity {
	return filterActivities(l.GetActivities(ctx, environmentID), func(a db.Activity) bool {
		return a.UserID == userID
	})
}

// GetActivitiesInRange returns the activities with start <= timestamp <= end
func (l *Log) GetActivitiesInRange(ctx context.Context, start, end time.Time, environmentID string) []db.Activity {
	startMs, endMs := start.UnixMilli(), end.UnixMilli()
	return filterActivities(l.GetActivities(ctx, environmentID), func(a db.Activity) bool {
		return a.Timestamp >= startMs && a.Timestamp <= endMs
	})
}

// ClearAllActivities removes the log and statistics blobs
func (l *Log) ClearAllActivities(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if err := l.store.Remove(ctx, l.activityKey); err != nil {
		return fmt.Errorf("failed to clear activities: %w", err)
	}
	if err := l.store.Remove(ctx, l.statsKey); err != nil {
		return fmt.Errorf("failed to clear user stats: %w", err)
	}
	return nil
}

// ClearEnvironmentActivities rewrites both blobs without the records of one environment
func (l *Log) ClearEnvironmentActivities(ctx context.Context, environmentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	remaining := filterActivities(l.loadActivities(ctx), func(a db.Activity) bool {
		return a.EnvironmentID != environmentID
	})
	if err := l.saveActivities(ctx, remaining); err != nil {
		return err
	}

	prefix := environmentID + "_"
	stats := l.loadUserStats(ctx)
	for key := range stats {
		if strings.HasPrefix(key, prefix) {
			delete(stats, key)
		}
	}
	return l.saveUserStats(ctx, stats)
}

// OnActivityLogged registers a listener for newly logged activities
func (l *Log) OnActivityLogged(listener notify.Listener) notify.Subscription {
	return l.notifier.Subscribe(listener)
}

// OffActivityLogged removes a listener registered with OnActivityLogged
func (l *Log) OffActivityLogged(sub notify.Subscription) bool {
	return l.notifier.Unsubscribe(sub)
}

// Close tears down the notifier. Persisted data is left untouched.
func (l *Log) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.notifier.Close()
	return nil
}

// loadActivities reads the log blob. Missing or corrupt data yields an empty log.
func (l *Log) loadActivities(ctx context.Context) []db.Activity {
	raw, err := l.store.Get(ctx, l.activityKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.logger.Warn("failed to read activities, treating as empty", zap.Error(err))
		}
		return []db.Activity{}
	}

	var activities []db.Activity
	if err := json.Unmarshal([]byte(raw), &activities); err != nil {
		l.logger.Warn("failed to decode activities, treating as empty", zap.Error(err))
		return []db.Activity{}
	}
	if activities == nil {
		activities = []db.Activity{}
	}
	return activities
}

func (l *Log) saveActivities(ctx context.Context, activities []db.Activity) error {
	body, err := json.Marshal(activities)
	if err != nil {
		return fmt.Errorf("failed to marshal activities: %w", err)
	}
	if err := l.store.Set(ctx, l.activityKey, string(body)); err != nil {
		return fmt.Errorf("failed to store activities: %w", err)
	}
	return nil
}

func filterActivities(activities []db.Activity, keep func(db.Activity) bool) []db.Activity {
	out := make([]db.Activity, 0, len(activities))
	for _, a := range activities {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}
