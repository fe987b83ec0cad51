// Package detect defines the handoff contract with the external
// detector/tracker: per-frame sets of bounding boxes with persistent track
// ids, plus sources that replay recorded detection streams.
package detect

// Box is a tracked-person bounding box for one frame. TrackID is assigned by
// the upstream tracker and should be stable across consecutive frames for
// the same person, though the tracker may reuse ids after long gaps.
type Box struct {
	TrackID int64 `json:"track_id"`
	X1      int   `json:"x1"`
	Y1      int   `json:"y1"`
	X2      int   `json:"x2"`
	Y2      int   `json:"y2"`
}

// Centroid returns the integer centre of the box. Integer division matches
// the pixel grid the tracker reports in.
func (b Box) Centroid() (x, y int) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Frame is one frame's worth of detections. Index is the video frame number
// as counted by the producer; frames may be sparse when the producer skips
// frames.
type Frame struct {
	Index int   `json:"frame"`
	Boxes []Box `json:"boxes"`
}

// Source yields successive frames of detections. Next returns io.EOF when
// the stream is exhausted.
type Source interface {
	Next() (Frame, error)
	Close() error
}
