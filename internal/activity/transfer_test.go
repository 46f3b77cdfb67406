package activity

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/septivank/device-activity-log/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportActivities(t *testing.T) {
	l, _, clock := newTestLog(t)
	ctx := context.Background()

	mustLog(t, l, entry("d1", "e1", "u1", true))
	clock.Advance(time.Second)
	mustLog(t, l, entry("d2", "e2", "u2", false))

	all := l.ExportActivities(ctx, "")
	assert.Len(t, all.Activities, 2)
	assert.Len(t, all.UserStats, 2)
	assert.Empty(t, all.EnvironmentID)
	assert.Equal(t, "2026-10-16T09:00:01Z", all.ExportDate)

	e1 := l.ExportActivities(ctx, "e1")
	require.Len(t, e1.Activities, 1)
	assert.Equal(t, "e1", e1.Activities[0].EnvironmentID)
	assert.Contains(t, e1.UserStats, "e1_u1")
	assert.NotContains(t, e1.UserStats, "e2_u2")
	assert.Equal(t, "e1", e1.EnvironmentID)
}

func TestExport_JSONShape(t *testing.T) {
	l, _, _ := newTestLog(t)
	ctx := context.Background()
	mustLog(t, l, entry("d1", "e1", "u1", true))

	body, err := json.Marshal(l.ExportActivities(ctx, "e1"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	for _, key := range []string{"activities", "userStats", "exportDate", "environmentId"} {
		assert.Contains(t, decoded, key)
	}
	first := decoded["activities"].([]any)[0].(map[string]any)
	assert.Equal(t, "d1", first["deviceId"])
	assert.Equal(t, true, first["state"])
}

func TestImportActivities_Idempotent(t *testing.T) {
	source, _, clock := newTestLog(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		mustLog(t, source, entry("d1", "e1", "u1", i%2 == 0))
		clock.Advance(time.Minute)
	}
	data := source.ExportActivities(ctx, "")

	target, _, _ := newTestLog(t)
	require.NoError(t, target.ImportActivities(ctx, data))
	once := target.GetActivities(ctx, "")

	require.NoError(t, target.ImportActivities(ctx, data))
	twice := target.GetActivities(ctx, "")

	assert.Equal(t, once, twice)
	assert.Len(t, twice, 4)
}

func TestImportActivities_ExistingRecordsWin(t *testing.T) {
	l, _, _ := newTestLog(t)
	ctx := context.Background()

	original, err := l.LogActivity(ctx, entry("d1", "e1", "u1", true))
	require.NoError(t, err)

	conflicting := original
	conflicting.DeviceName = "Renamed"
	conflicting.State = false

	require.NoError(t, l.ImportActivities(ctx, Export{Activities: []db.Activity{conflicting}}))

	activities := l.GetActivities(ctx, "")
	require.Len(t, activities, 1)
	assert.Equal(t, original, activities[0])
}

func TestImportActivities_SortsAndCaps(t *testing.T) {
	l, _, _ := newTestLog(t, WithMaxRecords(3))
	ctx := context.Background()

	base := referenceTime.UnixMilli()
	incoming := []db.Activity{
		{ID: "a", Timestamp: base + 1},
		{ID: "b", Timestamp: base + 4},
		{ID: "c", Timestamp: base + 2},
		{ID: "d", Timestamp: base + 5},
		{ID: "b", Timestamp: base + 9}, // duplicate id, first occurrence wins
	}

	require.NoError(t, l.ImportActivities(ctx, Export{Activities: incoming}))

	activities := l.GetActivities(ctx, "")
	ids := make([]string, 0, len(activities))
	for _, a := range activities {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"d", "b", "c"}, ids)
}

func TestImportActivities_UserStatsOverwriteByKey(t *testing.T) {
	l, _, _ := newTestLog(t)
	ctx := context.Background()

	mustLog(t, l, entry("d1", "e1", "u1", true))
	mustLog(t, l, entry("d1", "e1", "u2", true))

	replacement := db.UserStat{UserID: "u1", UserName: "Imported", EnvironmentID: "e1", TotalDeactivations: 7}
	data := Export{
		UserStats: map[string]db.UserStat{
			"e1_u1": replacement,
			"e9_u9": {UserID: "u9", EnvironmentID: "e9", TotalActivations: 1},
		},
	}
	require.NoError(t, l.ImportActivities(ctx, data))

	stats := l.GetUserActivityStats(ctx, "")
	assert.Equal(t, replacement, stats["e1_u1"], "imported rows replace existing rows wholesale")
	assert.Equal(t, 1, stats["e1_u2"].TotalActivations)
	assert.Equal(t, 1, stats["e9_u9"].TotalActivations)
	assert.Len(t, l.GetActivities(ctx, ""), 2, "nil activities leave the log untouched")

	// The maintainer keeps incrementing the imported row.
	mustLog(t, l, entry("d1", "e1", "u1", true))
	stat := l.GetUserActivityStats(ctx, "e1")["e1_u1"]
	assert.Equal(t, 1, stat.TotalActivations)
	assert.Equal(t, 7, stat.TotalDeactivations)
}
