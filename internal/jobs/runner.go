// Package jobs runs queued counting jobs on a single background worker.
// Each job gets its own engine, track store and interval logger; nothing is
// shared between jobs, so the per-frame pipeline needs no locking.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/occupancy.report/internal/counter"
	"github.com/banshee-data/occupancy.report/internal/db"
	"github.com/banshee-data/occupancy.report/internal/detect"
	"github.com/banshee-data/occupancy.report/internal/fsutil"
	"github.com/banshee-data/occupancy.report/internal/intervallog"
	"github.com/banshee-data/occupancy.report/internal/monitoring"
	"github.com/banshee-data/occupancy.report/internal/timeutil"
)

// DefaultQueueDepth bounds how many jobs may wait behind the worker.
const DefaultQueueDepth = 64

// Runner consumes queued job ids and processes each detections file through
// the crossing-detection pipeline, mirroring emitted interval records into
// the database.
type Runner struct {
	db    *db.DB
	fs    fsutil.FileSystem
	clock timeutil.Clock
	queue chan string
}

// NewRunner builds a runner over the given stores.
func NewRunner(database *db.DB, filesystem fsutil.FileSystem, clock timeutil.Clock) *Runner {
	return &Runner{
		db:    database,
		fs:    filesystem,
		clock: clock,
		queue: make(chan string, DefaultQueueDepth),
	}
}

// Enqueue hands a job id to the worker. Fails rather than blocks when the
// queue is full so the upload handler can report back-pressure.
func (r *Runner) Enqueue(jobID string) error {
	select {
	case r.queue <- jobID:
		return nil
	default:
		return fmt.Errorf("job queue is full (%d pending)", cap(r.queue))
	}
}

// Run consumes jobs until ctx is cancelled. One worker, one job at a time:
// frame N+1 of a job is never processed before frame N's updates complete.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id := <-r.queue:
			r.runJob(ctx, id)
		}
	}
}

// runJob loads the job row, processes it and records the terminal status.
// Status writes use a fresh context so a cancelled job still lands in a
// terminal state.
func (r *Runner) runJob(ctx context.Context, id string) {
	job, err := r.db.Job(ctx, id)
	if err != nil {
		monitoring.Logf("job %s: failed to load: %v", id, err)
		return
	}

	if err := r.db.MarkProcessing(ctx, id); err != nil {
		monitoring.Logf("job %s: failed to mark processing: %v", id, err)
		return
	}

	counts, err := r.Process(ctx, job)
	if err != nil {
		monitoring.Logf("job %s: failed: %v", id, err)
		if dberr := r.db.MarkFailed(context.Background(), id, err.Error()); dberr != nil {
			monitoring.Logf("job %s: failed to mark failed: %v", id, dberr)
		}
		return
	}

	monitoring.Logf("job %s: completed, total=%d incoming=%d outgoing=%d",
		id, counts.Total, counts.Incoming, counts.Outgoing)
	if err := r.db.MarkCompleted(context.Background(), id); err != nil {
		monitoring.Logf("job %s: failed to mark completed: %v", id, err)
	}
}

// Process runs one job's detections stream through a fresh engine, writing
// the interval CSV and mirroring each emitted record into the database.
// Cancellation stops frame submission; everything already counted remains
// consistent.
func (r *Runner) Process(ctx context.Context, job *db.Job) (counter.Counts, error) {
	cfg, err := EngineConfig(job)
	if err != nil {
		return counter.Counts{}, err
	}
	engine, err := counter.NewEngine(cfg)
	if err != nil {
		return counter.Counts{}, err
	}

	src, err := detect.NewFileSource(r.fs, job.DetectionsPath)
	if err != nil {
		return counter.Counts{}, err
	}
	defer src.Close()

	logger, err := intervallog.New(r.fs, r.clock, job.CSVPath, job.FPS, job.IntervalSeconds)
	if err != nil {
		return counter.Counts{}, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return engine.Counts(), err
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return engine.Counts(), err
		}

		engine.ProcessFrame(frame)

		rec, err := logger.MaybeEmit(frame.Index, engine.Counts(), false)
		if err != nil {
			return engine.Counts(), err
		}
		if rec != nil {
			if err := r.db.InsertIntervalCount(ctx, db.IntervalCount{
				JobID:      job.ID,
				BucketTime: rec.Timestamp,
				Total:      rec.Total,
				Incoming:   rec.IncomingDelta,
				Outgoing:   rec.OutgoingDelta,
			}); err != nil {
				return engine.Counts(), err
			}
		}
	}

	return engine.Counts(), nil
}

// EngineConfig derives the engine tuning from a job row. The boundary sits
// at half the frame height (horizontal lines) or width (vertical lines).
func EngineConfig(job *db.Job) (counter.Config, error) {
	dir := counter.DoorDirection(job.DoorDirection)
	orientation, err := counter.OrientationForDoor(dir)
	if err != nil {
		return counter.Config{}, err
	}

	coord := job.FrameHeight / 2
	if orientation == counter.OrientationVertical {
		coord = job.FrameWidth / 2
	}

	return counter.DefaultConfig(counter.BoundaryConfig{
		Orientation:   orientation,
		DoorDirection: dir,
		BoundaryCoord: coord,
	}), nil
}
