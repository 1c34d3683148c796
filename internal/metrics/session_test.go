package metrics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMetrics_BucketsByJankSeverity(t *testing.T) {
	s := NewSessionMetrics("sess-1", "DEFAULT")
	s.ReportActualWorkDuration([]time.Duration{
		10 * time.Millisecond, // not jank
		20 * time.Millisecond, // 17to25ms
		30 * time.Millisecond, // 25to34ms
		150 * time.Millisecond, // over100ms -> also missed cadence
	})

	snap := s.Dump()
	assert.Equal(t, int64(4), snap.Histogram.TotalFrames)
	assert.Equal(t, int64(1), snap.Histogram.Buckets["17to25ms"])
	assert.Equal(t, int64(1), snap.Histogram.Buckets["25to34ms"])
	assert.Equal(t, int64(1), snap.Histogram.Buckets["over100ms"])
	assert.Equal(t, int64(1), snap.MissedCadence)
}

func TestSessionMetrics_ResetClearsState(t *testing.T) {
	s := NewSessionMetrics("sess-2", "GAME")
	s.ReportActualWorkDuration([]time.Duration{200 * time.Millisecond})
	require.Equal(t, int64(1), s.Dump().MissedCadence)

	s.Reset()
	snap := s.Dump()
	assert.Equal(t, int64(0), snap.MissedCadence)
	assert.Equal(t, int64(0), snap.Histogram.TotalFrames)
}

func TestStore_SaveAndLoadSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "metrics.db")

	store, err := OpenStore(ctx, dbPath)
	require.NoError(t, err)
	defer store.Close()

	s := NewSessionMetrics(NewSessionID(), "DEFAULT")
	s.ReportActualWorkDuration([]time.Duration{20 * time.Millisecond, 150 * time.Millisecond})
	want := s.Dump()

	require.NoError(t, store.SaveSnapshot(ctx, want))

	got, ok, err := store.LoadSnapshot(ctx, want.SessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.MissedCadence, got.MissedCadence)
	assert.Equal(t, want.Histogram.TotalFrames, got.Histogram.TotalFrames)
	assert.Equal(t, want.Histogram.Buckets["over100ms"], got.Histogram.Buckets["over100ms"])
}

func TestStore_LoadSnapshotMissing(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "metrics.db")
	store, err := OpenStore(ctx, dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.LoadSnapshot(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}
