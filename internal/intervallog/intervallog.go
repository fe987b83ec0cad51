// Package intervallog converts frame-indexed counting progress into
// wall-clock time buckets and appends one CSV row per elapsed interval.
package intervallog

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/banshee-data/occupancy.report/internal/counter"
	"github.com/banshee-data/occupancy.report/internal/fsutil"
	"github.com/banshee-data/occupancy.report/internal/timeutil"
)

// TimestampLayout is the wall-clock format of the CSV timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the CSV header row, written exactly once at construction.
var Header = []string{"timestamp", "total_present_inside", "incoming_last_interval", "outgoing_last_interval"}

// Record is one emitted interval row: the running total plus the directional
// deltas accumulated since the previous emission.
type Record struct {
	Timestamp     time.Time `json:"timestamp"`
	Total         int       `json:"total_present_inside"`
	IncomingDelta int       `json:"incoming_last_interval"`
	OutgoingDelta int       `json:"outgoing_last_interval"`
}

// Logger owns one job's interval CSV. The destination is created (or
// truncated) and given its header when the logger is built; rows are
// appended afterwards, so a crash between emissions leaves a valid file.
// Not safe for concurrent use; each job gets its own logger.
type Logger struct {
	fs              fsutil.FileSystem
	path            string
	fps             float64
	intervalSeconds int

	startTime    time.Time
	lastInterval int
	baseline     counter.Counts
}

// New creates the destination CSV, writes the header and anchors the
// logger's wall clock to clock.Now().
func New(filesystem fsutil.FileSystem, clock timeutil.Clock, path string, fps float64, intervalSeconds int) (*Logger, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %v", fps)
	}
	if intervalSeconds <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %d seconds", intervalSeconds)
	}

	f, err := filesystem.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create interval log %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write interval log header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write interval log header: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close interval log: %w", err)
	}

	return &Logger{
		fs:              filesystem,
		path:            path,
		fps:             fps,
		intervalSeconds: intervalSeconds,
		startTime:       clock.Now(),
	}, nil
}

// Path returns the destination CSV path.
func (l *Logger) Path() string {
	return l.path
}

// Timestamp maps a frame index to wall-clock time: the start time plus the
// whole seconds of video elapsed at that frame.
func (l *Logger) Timestamp(frameIndex int) time.Time {
	seconds := int(float64(frameIndex) / l.fps)
	return l.startTime.Add(time.Duration(seconds) * time.Second)
}

// intervalIndex is the zero-based interval bucket the frame falls into.
func (l *Logger) intervalIndex(frameIndex int) int {
	return int(float64(frameIndex) / l.fps / float64(l.intervalSeconds))
}

// MaybeEmit appends one row when the frame has crossed into a later interval
// than the last emission (or unconditionally when force is set, for final
// flushes). It returns the emitted record, or nil when no boundary was
// crossed. The emitted deltas are measured against the counts captured at
// the previous emission.
func (l *Logger) MaybeEmit(frameIndex int, counts counter.Counts, force bool) (*Record, error) {
	if l.intervalIndex(frameIndex) <= l.lastInterval && !force {
		return nil, nil
	}

	rec := Record{
		Timestamp:     l.Timestamp(frameIndex),
		Total:         counts.Total,
		IncomingDelta: counts.Incoming - l.baseline.Incoming,
		OutgoingDelta: counts.Outgoing - l.baseline.Outgoing,
	}

	if err := l.appendRow(rec); err != nil {
		return nil, err
	}

	l.lastInterval = l.intervalIndex(frameIndex)
	l.baseline = counts
	return &rec, nil
}

func (l *Logger) appendRow(rec Record) error {
	f, err := l.fs.Append(l.path)
	if err != nil {
		return fmt.Errorf("failed to open interval log for append: %w", err)
	}
	w := csv.NewWriter(f)
	row := []string{
		rec.Timestamp.Format(TimestampLayout),
		strconv.Itoa(rec.Total),
		strconv.Itoa(rec.IncomingDelta),
		strconv.Itoa(rec.OutgoingDelta),
	}
	if err := w.Write(row); err != nil {
		f.Close()
		return fmt.Errorf("failed to append interval row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to append interval row: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close interval log: %w", err)
	}
	return nil
}
