package counter

// verifyCrossing checks that a side transition reflects a real walk through
// the door line rather than a single noisy frame: the track's recent
// trajectory must hold at least MinSideHits points on each side of the line.
func (e *Engine) verifyCrossing(id int64) bool {
	trail := e.store.History(id)
	if len(trail) < e.cfg.MinTrackLength {
		return false
	}

	var outside int
	if e.cfg.UnifiedSideCounts {
		for _, p := range trail {
			if e.cfg.Boundary.Classify(p) == SideOutside {
				outside++
			}
		}
	} else {
		outside = legacyOutsideHits(trail, e.cfg.Boundary)
	}
	inside := len(trail) - outside

	return outside >= e.cfg.MinSideHits && inside >= e.cfg.MinSideHits
}

// legacyOutsideHits counts trajectory points on the "outside" of the line
// using the rules the first shipped version of this counter verified with.
// The horizontal arms share one comparison (y > boundary), so for door
// direction down the label is inverted relative to Classify. The straddle
// test in verifyCrossing is symmetric in the two labels, which is why this
// never changed an accept decision; it is kept so recorded jobs re-verify
// identically. UnifiedSideCounts opts out.
func legacyOutsideHits(trail []Point, b BoundaryConfig) int {
	var outside int
	for _, p := range trail {
		switch b.Orientation {
		case OrientationHorizontal:
			if p.Y > b.BoundaryCoord {
				outside++
			}
		case OrientationVertical:
			if b.DoorDirection == DoorRight {
				if p.X < b.BoundaryCoord {
					outside++
				}
			} else {
				if p.X > b.BoundaryCoord {
					outside++
				}
			}
		}
	}
	return outside
}
