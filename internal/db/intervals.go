package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// IntervalCount mirrors one emitted interval-log row into sqlite so the API
// and the forecast tooling can query a job's series without re-parsing CSV.
type IntervalCount struct {
	JobID      string    `json:"job_id"`
	BucketTime time.Time `json:"timestamp"`
	Total      int       `json:"total_present_inside"`
	Incoming   int       `json:"incoming_last_interval"`
	Outgoing   int       `json:"outgoing_last_interval"`
}

// InsertIntervalCount appends one interval record for a job.
func (db *DB) InsertIntervalCount(ctx context.Context, ic IntervalCount) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO interval_counts (job_id, bucket_time, total, incoming, outgoing)
		VALUES (?, ?, ?, ?, ?)`,
		ic.JobID, ic.BucketTime.Unix(), ic.Total, ic.Incoming, ic.Outgoing)
	if err != nil {
		return fmt.Errorf("failed to insert interval count: %w", err)
	}
	return nil
}

// IntervalCounts returns a job's interval series in emission order.
func (db *DB) IntervalCounts(ctx context.Context, jobID string) ([]IntervalCount, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT job_id, bucket_time, total, incoming, outgoing
		FROM interval_counts WHERE job_id = ? ORDER BY bucket_time`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query interval counts: %w", err)
	}
	defer rows.Close()

	var counts []IntervalCount
	for rows.Next() {
		ic, err := scanIntervalCount(rows)
		if err != nil {
			return nil, err
		}
		counts = append(counts, ic)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// LatestIntervalCount returns the most recent interval record for a job, or
// nil when the job has not emitted yet.
func (db *DB) LatestIntervalCount(ctx context.Context, jobID string) (*IntervalCount, error) {
	row := db.QueryRowContext(ctx, `
		SELECT job_id, bucket_time, total, incoming, outgoing
		FROM interval_counts WHERE job_id = ?
		ORDER BY bucket_time DESC LIMIT 1`, jobID)

	ic, err := scanIntervalCount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest interval count: %w", err)
	}
	return &ic, nil
}

// HourlyBucket is one hour of summed directional deltas for a job.
type HourlyBucket struct {
	Hour     time.Time `json:"hour"`
	Incoming int       `json:"incoming"`
	Outgoing int       `json:"outgoing"`
}

// HourlyRollup sums a job's interval deltas per hour, oldest first.
func (db *DB) HourlyRollup(ctx context.Context, jobID string) ([]HourlyBucket, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT (bucket_time / 3600) * 3600 AS hour,
			SUM(incoming), SUM(outgoing)
		FROM interval_counts WHERE job_id = ?
		GROUP BY hour ORDER BY hour`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to roll up interval counts: %w", err)
	}
	defer rows.Close()

	var buckets []HourlyBucket
	for rows.Next() {
		var (
			hour int64
			b    HourlyBucket
		)
		if err := rows.Scan(&hour, &b.Incoming, &b.Outgoing); err != nil {
			return nil, err
		}
		b.Hour = time.Unix(hour, 0).UTC()
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buckets, nil
}

func scanIntervalCount(s scanner) (IntervalCount, error) {
	var (
		ic     IntervalCount
		bucket int64
	)
	if err := s.Scan(&ic.JobID, &bucket, &ic.Total, &ic.Incoming, &ic.Outgoing); err != nil {
		return IntervalCount{}, err
	}
	ic.BucketTime = time.Unix(bucket, 0).UTC()
	return ic, nil
}
