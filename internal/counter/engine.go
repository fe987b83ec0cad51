package counter

import (
	"fmt"

	"github.com/banshee-data/occupancy.report/internal/detect"
)

// Tuning defaults. MaxDisappeared doubles as the trajectory window length
// (see TrackStore); 90 frames is three seconds at 30 fps.
const (
	DefaultMinTrackLength = 3
	DefaultMaxDisappeared = 90
	DefaultMinSideHits    = 1
)

// Config holds the engine's boundary and track-quality parameters.
type Config struct {
	Boundary BoundaryConfig

	// MinTrackLength is the minimum history length before a side change
	// may count as a crossing.
	MinTrackLength int

	// MaxDisappeared is the number of consecutive absent frames before a
	// track is evicted. Also caps the history window used by crossing
	// verification.
	MaxDisappeared int

	// MinSideHits is the minimum number of historical points required on
	// each side of the line for a crossing to verify.
	MinSideHits int

	// UnifiedSideCounts routes crossing verification through
	// BoundaryConfig.Classify. When false (the default), verification
	// uses the historical side-counting rules this counter shipped with,
	// whose horizontal/down arm labels the sides inverted relative to
	// Classify. The straddle test is symmetric in the two labels, so
	// both modes accept the same transitions; the flag makes the side
	// counts read consistently with Classify.
	UnifiedSideCounts bool
}

// DefaultConfig returns the standard engine tuning for a boundary.
func DefaultConfig(boundary BoundaryConfig) Config {
	return Config{
		Boundary:       boundary,
		MinTrackLength: DefaultMinTrackLength,
		MaxDisappeared: DefaultMaxDisappeared,
		MinSideHits:    DefaultMinSideHits,
	}
}

// Counts are the running occupancy counters. Total moves in lockstep with
// Incoming/Outgoing (+1 per verified entry, -1 per verified exit) and is
// deliberately not clamped: a person first seen inside and verified leaving
// before any entry was counted drives Total negative. Total == Incoming -
// Outgoing at all times.
type Counts struct {
	Total    int `json:"total"`
	Incoming int `json:"incoming"`
	Outgoing int `json:"outgoing"`
}

// Engine is the per-job crossing-detection pipeline: it classifies each
// tracked person's side of the door line, verifies side transitions against
// the track's trajectory and maintains the directional counters. One engine
// per processing job; not safe for concurrent use.
type Engine struct {
	cfg    Config
	store  *TrackStore
	counts Counts
}

// NewEngine validates the boundary configuration and builds an engine.
// Invalid (orientation, doorDirection) pairs fail here, before any frame is
// processed.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Boundary.Validate(); err != nil {
		return nil, fmt.Errorf("invalid boundary configuration: %w", err)
	}
	if cfg.MinTrackLength <= 0 {
		cfg.MinTrackLength = DefaultMinTrackLength
	}
	if cfg.MaxDisappeared <= 0 {
		cfg.MaxDisappeared = DefaultMaxDisappeared
	}
	if cfg.MinSideHits <= 0 {
		cfg.MinSideHits = DefaultMinSideHits
	}
	return &Engine{
		cfg:   cfg,
		store: NewTrackStore(cfg.MaxDisappeared),
	}, nil
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Store exposes the track store for inspection.
func (e *Engine) Store() *TrackStore {
	return e.store
}

// Counts returns a copy of the running counters.
func (e *Engine) Counts() Counts {
	return e.counts
}

// ProcessFrame runs one frame of detections through the pipeline: observe
// each box's centroid, classify its side, evaluate the track for a verified
// crossing, then update disappearance counters and prune stale tracks.
func (e *Engine) ProcessFrame(frame detect.Frame) {
	active := make(map[int64]bool, len(frame.Boxes))
	for _, box := range frame.Boxes {
		active[box.TrackID] = true

		cx, cy := box.Centroid()
		p := Point{X: cx, Y: cy}
		e.store.Observe(box.TrackID, p)

		side := e.cfg.Boundary.Classify(p)
		e.evaluate(box.TrackID, side)
	}

	e.store.MarkActive(active)
	e.store.PruneDisappeared()
}

// evaluate updates a track's crossing record for its freshly classified side
// and bumps the counters when a side change verifies.
func (e *Engine) evaluate(id int64, currentSide Side) {
	rec, ok := e.store.record(id)
	if !ok {
		return
	}

	// The first observed side anchors the track for its whole lifetime. A
	// person first seen mid-transition anchors to whichever side they
	// happened to be on, which can mis-attribute the eventual direction;
	// accepted as tracker noise.
	if rec.firstSide == SideUnknown {
		rec.firstSide = currentSide
	}
	rec.lastSide = currentSide

	if rec.counted || currentSide == rec.firstSide {
		return
	}
	if len(e.store.History(id)) < e.cfg.MinTrackLength {
		return
	}
	if !e.verifyCrossing(id) {
		return
	}

	switch {
	case rec.firstSide == SideOutside && currentSide == SideInside:
		e.counts.Incoming++
		e.counts.Total++
	case rec.firstSide == SideInside && currentSide == SideOutside:
		e.counts.Outgoing++
		e.counts.Total--
	}
	// Permanent for the lifetime of this track id: a still-live id is
	// never counted twice. Only a fresh id after eviction can count again.
	rec.counted = true
}
