package intervallog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/occupancy.report/internal/counter"
	"github.com/banshee-data/occupancy.report/internal/fsutil"
	"github.com/banshee-data/occupancy.report/internal/timeutil"
)

var testStart = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestLogger(t *testing.T, fps float64, intervalSeconds int) (*Logger, *fsutil.MemoryFileSystem) {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	clock := timeutil.NewMockClock(testStart)
	l, err := New(mfs, clock, "/counts.csv", fps, intervalSeconds)
	require.NoError(t, err)
	return l, mfs
}

func csvLines(t *testing.T, mfs *fsutil.MemoryFileSystem) []string {
	t.Helper()
	data, err := mfs.ReadFile("/counts.csv")
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestNewValidatesParameters(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	clock := timeutil.NewMockClock(testStart)

	_, err := New(mfs, clock, "/counts.csv", 0, 60)
	assert.Error(t, err)

	_, err = New(mfs, clock, "/counts.csv", -1, 60)
	assert.Error(t, err)

	_, err = New(mfs, clock, "/counts.csv", 30, 0)
	assert.Error(t, err)
}

func TestNewWritesHeaderOnce(t *testing.T) {
	_, mfs := newTestLogger(t, 30, 60)

	lines := csvLines(t, mfs)
	require.Len(t, lines, 1)
	assert.Equal(t, "timestamp,total_present_inside,incoming_last_interval,outgoing_last_interval", lines[0])
}

func TestTimestampFromFrameIndex(t *testing.T) {
	l, _ := newTestLogger(t, 30, 60)

	assert.Equal(t, testStart, l.Timestamp(0))
	assert.Equal(t, testStart, l.Timestamp(29))
	assert.Equal(t, testStart.Add(1*time.Second), l.Timestamp(30))
	assert.Equal(t, testStart.Add(60*time.Second), l.Timestamp(1800))
}

func TestMaybeEmitWithinIntervalIsSilent(t *testing.T) {
	l, mfs := newTestLogger(t, 30, 60)

	for frame := 0; frame < 1800; frame += 30 {
		rec, err := l.MaybeEmit(frame, counter.Counts{Total: 1, Incoming: 1}, false)
		require.NoError(t, err)
		assert.Nil(t, rec, "frame %d is inside the first interval", frame)
	}

	assert.Len(t, csvLines(t, mfs), 1)
}

func TestMaybeEmitOnIntervalBoundary(t *testing.T) {
	l, mfs := newTestLogger(t, 30, 60)

	// 1800 frames at 30 fps is exactly one 60s interval
	rec, err := l.MaybeEmit(1800, counter.Counts{Total: 3, Incoming: 5, Outgoing: 2}, false)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, testStart.Add(time.Minute), rec.Timestamp)
	assert.Equal(t, 3, rec.Total)
	assert.Equal(t, 5, rec.IncomingDelta)
	assert.Equal(t, 2, rec.OutgoingDelta)

	lines := csvLines(t, mfs)
	require.Len(t, lines, 2)
	assert.Equal(t, "2026-03-14 09:01:00,3,5,2", lines[1])
}

func TestMaybeEmitDeltasAgainstPreviousEmission(t *testing.T) {
	l, _ := newTestLogger(t, 30, 60)

	rec, err := l.MaybeEmit(1800, counter.Counts{Total: 3, Incoming: 5, Outgoing: 2}, false)
	require.NoError(t, err)
	require.NotNil(t, rec)

	// second interval: two more in, one more out
	rec, err = l.MaybeEmit(3600, counter.Counts{Total: 4, Incoming: 7, Outgoing: 3}, false)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, 4, rec.Total)
	assert.Equal(t, 2, rec.IncomingDelta)
	assert.Equal(t, 1, rec.OutgoingDelta)
}

func TestMaybeEmitOncePerInterval(t *testing.T) {
	l, mfs := newTestLogger(t, 30, 60)

	rec, err := l.MaybeEmit(1800, counter.Counts{Total: 1, Incoming: 1}, false)
	require.NoError(t, err)
	require.NotNil(t, rec)

	// later frames in the same interval stay silent
	for _, frame := range []int{1801, 2400, 3599} {
		rec, err := l.MaybeEmit(frame, counter.Counts{Total: 1, Incoming: 1}, false)
		require.NoError(t, err)
		assert.Nil(t, rec, "frame %d already covered by the last emission", frame)
	}

	assert.Len(t, csvLines(t, mfs), 2)
}

func TestMaybeEmitSkippedIntervalsCollapse(t *testing.T) {
	l, mfs := newTestLogger(t, 30, 60)

	// the stream jumps several intervals ahead: one row carries the whole gap
	rec, err := l.MaybeEmit(9000, counter.Counts{Total: 2, Incoming: 6, Outgoing: 4}, false)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 6, rec.IncomingDelta)
	assert.Equal(t, 4, rec.OutgoingDelta)
	assert.Len(t, csvLines(t, mfs), 2)
}

func TestMaybeEmitForce(t *testing.T) {
	l, mfs := newTestLogger(t, 30, 60)

	rec, err := l.MaybeEmit(900, counter.Counts{Total: 1, Incoming: 1}, true)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, testStart.Add(30*time.Second), rec.Timestamp)

	lines := csvLines(t, mfs)
	require.Len(t, lines, 2)
	assert.Equal(t, "2026-03-14 09:00:30,1,1,0", lines[1])
}

func TestFractionalFPS(t *testing.T) {
	l, _ := newTestLogger(t, 29.97, 60)

	// 1797 frames at 29.97 fps is 59.96s: still the first interval
	rec, err := l.MaybeEmit(1797, counter.Counts{}, false)
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = l.MaybeEmit(1799, counter.Counts{}, false)
	require.NoError(t, err)
	assert.NotNil(t, rec)
}
