package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/occupancy.report/internal/db"
	"github.com/banshee-data/occupancy.report/internal/testutil"
)

func createJobWithIntervals(t *testing.T, d *db.DB, buckets []db.IntervalCount) *db.Job {
	t.Helper()
	ctx := context.Background()

	job := newJob()
	require.NoError(t, d.CreateJob(ctx, job))
	for i := range buckets {
		buckets[i].JobID = job.ID
		require.NoError(t, d.InsertIntervalCount(ctx, buckets[i]))
	}
	return job
}

func TestIntervalCountsRoundTrip(t *testing.T) {
	d := testutil.NewTestDB(t)
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	job := createJobWithIntervals(t, d, []db.IntervalCount{
		{BucketTime: base, Total: 1, Incoming: 1, Outgoing: 0},
		{BucketTime: base.Add(time.Minute), Total: 0, Incoming: 1, Outgoing: 2},
	})

	counts, err := d.IntervalCounts(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, counts, 2)

	assert.Equal(t, base, counts[0].BucketTime)
	assert.Equal(t, 1, counts[0].Total)
	assert.Equal(t, 0, counts[1].Total)
	assert.Equal(t, 2, counts[1].Outgoing)
}

func TestIntervalCountsScopedByJob(t *testing.T) {
	d := testutil.NewTestDB(t)
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	job := createJobWithIntervals(t, d, []db.IntervalCount{
		{BucketTime: base, Total: 1, Incoming: 1},
	})
	createJobWithIntervals(t, d, []db.IntervalCount{
		{BucketTime: base, Total: 5, Incoming: 5},
		{BucketTime: base.Add(time.Minute), Total: 6, Incoming: 1},
	})

	counts, err := d.IntervalCounts(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Len(t, counts, 1)
}

func TestLatestIntervalCount(t *testing.T) {
	d := testutil.NewTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	job := createJobWithIntervals(t, d, nil)

	latest, err := d.LatestIntervalCount(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, latest, "job without emissions has no latest row")

	for i := 0; i < 3; i++ {
		require.NoError(t, d.InsertIntervalCount(ctx, db.IntervalCount{
			JobID:      job.ID,
			BucketTime: base.Add(time.Duration(i) * time.Minute),
			Total:      i,
		}))
	}

	latest, err = d.LatestIntervalCount(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, base.Add(2*time.Minute), latest.BucketTime)
	assert.Equal(t, 2, latest.Total)
}

func TestHourlyRollup(t *testing.T) {
	d := testutil.NewTestDB(t)
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	job := createJobWithIntervals(t, d, []db.IntervalCount{
		{BucketTime: base, Incoming: 1, Outgoing: 0},
		{BucketTime: base.Add(30 * time.Minute), Incoming: 2, Outgoing: 1},
		{BucketTime: base.Add(time.Hour), Incoming: 4, Outgoing: 3},
	})

	buckets, err := d.HourlyRollup(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	assert.Equal(t, base, buckets[0].Hour)
	assert.Equal(t, 3, buckets[0].Incoming)
	assert.Equal(t, 1, buckets[0].Outgoing)

	assert.Equal(t, base.Add(time.Hour), buckets[1].Hour)
	assert.Equal(t, 4, buckets[1].Incoming)
}

func TestIntervalCountRejectsUnknownJob(t *testing.T) {
	d := testutil.NewTestDB(t)

	err := d.InsertIntervalCount(context.Background(), db.IntervalCount{
		JobID:      "no-such-job",
		BucketTime: time.Now(),
	})
	assert.Error(t, err, "foreign key constraint should reject orphan rows")
}
