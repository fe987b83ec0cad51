package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Job statuses. A job moves queued → processing → completed|failed; there
// are no other transitions.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ErrJobNotFound is returned when a job id does not exist.
var ErrJobNotFound = errors.New("job not found")

// Job is one counting job: an uploaded detections file, its configuration
// and its output CSV.
type Job struct {
	ID              string     `json:"job_id"`
	DetectionsPath  string     `json:"detections_path"`
	CSVPath         string     `json:"csv_path"`
	Status          string     `json:"status"`
	DoorDirection   string     `json:"door_direction"`
	IntervalSeconds int        `json:"interval_seconds"`
	FPS             float64    `json:"fps"`
	FrameWidth      int        `json:"frame_width"`
	FrameHeight     int        `json:"frame_height"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
}

// CreateJob inserts a new job row in the queued state. CreatedAt is set to
// now if unset.
func (db *DB) CreateJob(ctx context.Context, job *Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = StatusQueued
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO jobs (
			job_id, detections_path, csv_path, status, door_direction,
			interval_seconds, fps, frame_width, frame_height, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.DetectionsPath, job.CSVPath, job.Status, job.DoorDirection,
		job.IntervalSeconds, job.FPS, job.FrameWidth, job.FrameHeight,
		job.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// Job returns a job by id, or ErrJobNotFound.
func (db *DB) Job(ctx context.Context, id string) (*Job, error) {
	row := db.QueryRowContext(ctx, `
		SELECT job_id, detections_path, csv_path, status, door_direction,
			interval_seconds, fps, frame_width, frame_height,
			created_at, completed_at, error_message
		FROM jobs WHERE job_id = ?`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	return job, nil
}

// ListJobs returns the most recent jobs, newest first.
func (db *DB) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT job_id, detections_path, csv_path, status, door_direction,
			interval_seconds, fps, frame_width, frame_height,
			created_at, completed_at, error_message
		FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// MarkProcessing flips a job to the processing state.
func (db *DB) MarkProcessing(ctx context.Context, id string) error {
	return db.setStatus(ctx, id, StatusProcessing, nil, nil)
}

// MarkCompleted flips a job to completed and stamps the completion time.
func (db *DB) MarkCompleted(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return db.setStatus(ctx, id, StatusCompleted, &now, nil)
}

// MarkFailed flips a job to failed with the given error message and stamps
// the completion time.
func (db *DB) MarkFailed(ctx context.Context, id string, message string) error {
	now := time.Now().UTC()
	return db.setStatus(ctx, id, StatusFailed, &now, &message)
}

func (db *DB) setStatus(ctx context.Context, id, status string, completedAt *time.Time, message *string) error {
	var completed interface{}
	if completedAt != nil {
		completed = completedAt.Unix()
	}
	result, err := db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, completed_at = COALESCE(?, completed_at),
			error_message = COALESCE(?, error_message)
		WHERE job_id = ?`,
		status, completed, message, id)
	if err != nil {
		return fmt.Errorf("failed to update job %s to %s: %w", id, status, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*Job, error) {
	var (
		job         Job
		createdAt   int64
		completedAt sql.NullInt64
		message     sql.NullString
	)
	if err := s.Scan(
		&job.ID, &job.DetectionsPath, &job.CSVPath, &job.Status,
		&job.DoorDirection, &job.IntervalSeconds, &job.FPS,
		&job.FrameWidth, &job.FrameHeight,
		&createdAt, &completedAt, &message,
	); err != nil {
		return nil, err
	}
	job.CreatedAt = time.Unix(createdAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		job.CompletedAt = &t
	}
	if message.Valid {
		job.ErrorMessage = &message.String
	}
	return &job, nil
}
