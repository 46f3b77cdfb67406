package activity

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/septivank/device-activity-log/internal/store"
)

var referenceTime = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type testClock struct {
	current time.Time
}

func (c *testClock) Now() time.Time { return c.current }

func (c *testClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func sequentialIDs() func(time.Time) string {
	n := 0
	return func(time.Time) string {
		n++
		return fmt.Sprintf("act-%d", n)
	}
}

func newTestLog(t *testing.T, opts ...Option) (*Log, *store.Memory, *testClock) {
	t.Helper()
	mem := store.NewMemory()
	clock := &testClock{current: referenceTime}
	base := []Option{
		WithClock(clock.Now),
		WithIDGenerator(sequentialIDs()),
		WithLocation(time.UTC),
	}
	l := New(mem, append(base, opts...)...)
	t.Cleanup(func() { l.Close() })
	return l, mem, clock
}

func entry(deviceID, environmentID, userID string, state bool) Entry {
	return Entry{
		DeviceID:      deviceID,
		DeviceName:    "Device " + deviceID,
		RoomID:        "r1",
		RoomName:      "Living Room",
		State:         state,
		UserID:        userID,
		UserName:      "User " + userID,
		EnvironmentID: environmentID,
	}
}

func mustLog(t *testing.T, l *Log, e Entry) {
	t.Helper()
	if _, err := l.LogActivity(context.Background(), e); err != nil {
		t.Fatalf("LogActivity failed: %v", err)
	}
}

// failingStore reads like an empty store and refuses writes to failKey
type failingStore struct {
	*store.Memory
	failKey string
}

var errWriteRefused = errors.New("write refused")

func (f *failingStore) Set(ctx context.Context, key, value string) error {
	if key == f.failKey {
		return errWriteRefused
	}
	return f.Memory.Set(ctx, key, value)
}

// brokenReadStore fails every Get with a backend error
type brokenReadStore struct {
	*store.Memory
}

func (b *brokenReadStore) Get(context.Context, string) (string, error) {
	return "", errors.New("backend unavailable")
}
