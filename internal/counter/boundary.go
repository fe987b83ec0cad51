package counter

import "fmt"

// Side is which side of the door line a point sits on.
type Side string

const (
	SideUnknown Side = ""
	SideOutside Side = "outside"
	SideInside  Side = "inside"
)

// Orientation of the door line across the frame.
type Orientation string

const (
	OrientationHorizontal Orientation = "horizontal"
	OrientationVertical   Orientation = "vertical"
)

// DoorDirection is the side of the line the door opens onto, as seen in the
// frame. Horizontal lines pair with up/down, vertical lines with left/right.
type DoorDirection string

const (
	DoorUp    DoorDirection = "up"
	DoorDown  DoorDirection = "down"
	DoorLeft  DoorDirection = "left"
	DoorRight DoorDirection = "right"
)

// Point is a pixel position in the frame.
type Point struct {
	X int
	Y int
}

// BoundaryConfig describes the virtual door line dividing the frame into
// inside and outside.
type BoundaryConfig struct {
	Orientation   Orientation
	DoorDirection DoorDirection
	// BoundaryCoord is the pixel row (horizontal) or column (vertical) of
	// the line. Callers typically derive it as half the frame height or
	// width.
	BoundaryCoord int
}

// OrientationForDoor returns the line orientation implied by a door
// direction: up/down doors sit on a horizontal line, left/right doors on a
// vertical one.
func OrientationForDoor(dir DoorDirection) (Orientation, error) {
	switch dir {
	case DoorUp, DoorDown:
		return OrientationHorizontal, nil
	case DoorLeft, DoorRight:
		return OrientationVertical, nil
	default:
		return "", fmt.Errorf("unknown door direction %q", dir)
	}
}

// Validate checks the (orientation, doorDirection) pair. Only four
// combinations are meaningful; anything else is a configuration error and is
// rejected before any frame is processed.
func (c BoundaryConfig) Validate() error {
	switch c.Orientation {
	case OrientationHorizontal:
		if c.DoorDirection != DoorUp && c.DoorDirection != DoorDown {
			return fmt.Errorf("horizontal boundary requires door direction up or down, got %q", c.DoorDirection)
		}
	case OrientationVertical:
		if c.DoorDirection != DoorLeft && c.DoorDirection != DoorRight {
			return fmt.Errorf("vertical boundary requires door direction left or right, got %q", c.DoorDirection)
		}
	default:
		return fmt.Errorf("unknown boundary orientation %q", c.Orientation)
	}
	return nil
}

// Classify maps a point to the side of the boundary it falls on. The
// boundary coordinate itself counts as inside. Config must have passed
// Validate; unknown pairs report SideUnknown.
func (c BoundaryConfig) Classify(p Point) Side {
	switch {
	case c.Orientation == OrientationHorizontal && c.DoorDirection == DoorDown:
		if p.Y < c.BoundaryCoord {
			return SideOutside
		}
		return SideInside
	case c.Orientation == OrientationHorizontal && c.DoorDirection == DoorUp:
		if p.Y > c.BoundaryCoord {
			return SideOutside
		}
		return SideInside
	case c.Orientation == OrientationVertical && c.DoorDirection == DoorRight:
		if p.X < c.BoundaryCoord {
			return SideOutside
		}
		return SideInside
	case c.Orientation == OrientationVertical && c.DoorDirection == DoorLeft:
		if p.X > c.BoundaryCoord {
			return SideOutside
		}
		return SideInside
	}
	return SideUnknown
}
