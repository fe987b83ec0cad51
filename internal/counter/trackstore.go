package counter

// crossingRecord holds the per-track crossing state. One record per live
// track id, created on first observation and destroyed on eviction.
type crossingRecord struct {
	firstSide Side
	lastSide  Side
	counted   bool
}

// TrackStore owns all per-track state: position history, crossing record and
// disappearance counter. The three maps are created together on first
// sighting of a track id and destroyed together on eviction, so they can
// never drift apart.
type TrackStore struct {
	// maxDisappeared doubles as the history cap and the eviction
	// threshold: a track's trail is truncated to this many points, and a
	// track absent for more than this many consecutive frames is evicted.
	maxDisappeared int

	history     map[int64][]Point
	records     map[int64]*crossingRecord
	disappeared map[int64]int
}

// NewTrackStore creates an empty store. maxDisappeared is the number of
// consecutive absent frames after which a track is evicted, and also caps
// the per-track history length.
func NewTrackStore(maxDisappeared int) *TrackStore {
	return &TrackStore{
		maxDisappeared: maxDisappeared,
		history:        make(map[int64][]Point),
		records:        make(map[int64]*crossingRecord),
		disappeared:    make(map[int64]int),
	}
}

// Observe appends p to the track's history, creating the track state if this
// is the first sighting of the id. History is truncated to the most recent
// maxDisappeared points.
func (s *TrackStore) Observe(id int64, p Point) {
	if _, ok := s.records[id]; !ok {
		s.records[id] = &crossingRecord{}
		s.disappeared[id] = 0
	}
	trail := append(s.history[id], p)
	if len(trail) > s.maxDisappeared {
		trail = trail[len(trail)-s.maxDisappeared:]
	}
	s.history[id] = trail
}

// History returns the stored trail for a track, or nil if unknown.
func (s *TrackStore) History(id int64) []Point {
	return s.history[id]
}

// record returns the crossing record for a known track.
func (s *TrackStore) record(id int64) (*crossingRecord, bool) {
	r, ok := s.records[id]
	return r, ok
}

// Counted reports whether the track has already contributed a verified
// crossing. Unknown ids report false.
func (s *TrackStore) Counted(id int64) bool {
	r, ok := s.records[id]
	return ok && r.counted
}

// DisappearedFrames returns the current disappearance counter for a track.
// The second result is false when the id is unknown (never seen or already
// evicted).
func (s *TrackStore) DisappearedFrames(id int64) (int, bool) {
	n, ok := s.disappeared[id]
	return n, ok
}

// Len returns the number of live tracks.
func (s *TrackStore) Len() int {
	return len(s.history)
}

// Ids returns the ids of all live tracks, in no particular order.
func (s *TrackStore) Ids() []int64 {
	ids := make([]int64, 0, len(s.history))
	for id := range s.history {
		ids = append(ids, id)
	}
	return ids
}

// MarkActive updates disappearance counters against the current frame's
// active set: counters reset to zero for present ids and increment for every
// known id that is absent.
func (s *TrackStore) MarkActive(active map[int64]bool) {
	for id := range s.history {
		if active[id] {
			s.disappeared[id] = 0
		} else {
			s.disappeared[id]++
		}
	}
}

// PruneDisappeared evicts every track whose disappearance counter has
// exceeded the threshold and returns the evicted ids. Run once per frame
// after MarkActive, so a track that reappears in the frame it would
// otherwise expire is spared.
func (s *TrackStore) PruneDisappeared() []int64 {
	var evicted []int64
	for id, n := range s.disappeared {
		if n > s.maxDisappeared {
			s.Evict(id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Evict removes all state for a track. No-op for unknown ids. A later
// observation of the same numeric id starts a fresh, uncounted track.
func (s *TrackStore) Evict(id int64) {
	delete(s.history, id)
	delete(s.records, id)
	delete(s.disappeared, id)
}
