package counter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrientationForDoor(t *testing.T) {
	tests := []struct {
		dir     DoorDirection
		want    Orientation
		wantErr bool
	}{
		{DoorUp, OrientationHorizontal, false},
		{DoorDown, OrientationHorizontal, false},
		{DoorLeft, OrientationVertical, false},
		{DoorRight, OrientationVertical, false},
		{DoorDirection("sideways"), "", true},
		{DoorDirection(""), "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			got, err := OrientationForDoor(tt.dir)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBoundaryConfigValidate(t *testing.T) {
	valid := []BoundaryConfig{
		{OrientationHorizontal, DoorUp, 200},
		{OrientationHorizontal, DoorDown, 200},
		{OrientationVertical, DoorLeft, 320},
		{OrientationVertical, DoorRight, 320},
	}
	for _, cfg := range valid {
		assert.NoError(t, cfg.Validate(), "%s/%s should validate", cfg.Orientation, cfg.DoorDirection)
	}

	invalid := []BoundaryConfig{
		{OrientationHorizontal, DoorLeft, 200},
		{OrientationHorizontal, DoorRight, 200},
		{OrientationVertical, DoorUp, 320},
		{OrientationVertical, DoorDown, 320},
		{Orientation("diagonal"), DoorUp, 200},
		{Orientation(""), DoorDown, 200},
	}
	for _, cfg := range invalid {
		assert.Error(t, cfg.Validate(), "%s/%s should be rejected", cfg.Orientation, cfg.DoorDirection)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		cfg  BoundaryConfig
		p    Point
		want Side
	}{
		{"down door, above line", BoundaryConfig{OrientationHorizontal, DoorDown, 200}, Point{100, 150}, SideOutside},
		{"down door, below line", BoundaryConfig{OrientationHorizontal, DoorDown, 200}, Point{100, 250}, SideInside},
		{"down door, on line", BoundaryConfig{OrientationHorizontal, DoorDown, 200}, Point{100, 200}, SideInside},
		{"up door, below line", BoundaryConfig{OrientationHorizontal, DoorUp, 200}, Point{100, 250}, SideOutside},
		{"up door, above line", BoundaryConfig{OrientationHorizontal, DoorUp, 200}, Point{100, 150}, SideInside},
		{"up door, on line", BoundaryConfig{OrientationHorizontal, DoorUp, 200}, Point{100, 200}, SideInside},
		{"right door, left of line", BoundaryConfig{OrientationVertical, DoorRight, 320}, Point{300, 100}, SideOutside},
		{"right door, right of line", BoundaryConfig{OrientationVertical, DoorRight, 320}, Point{340, 100}, SideInside},
		{"left door, right of line", BoundaryConfig{OrientationVertical, DoorLeft, 320}, Point{340, 100}, SideOutside},
		{"left door, left of line", BoundaryConfig{OrientationVertical, DoorLeft, 320}, Point{300, 100}, SideInside},
		{"left door, on line", BoundaryConfig{OrientationVertical, DoorLeft, 320}, Point{320, 100}, SideInside},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Classify(tt.p))
		})
	}
}

func TestClassifyIgnoresIrrelevantAxis(t *testing.T) {
	cfg := BoundaryConfig{OrientationHorizontal, DoorDown, 200}
	for _, x := range []int{-50, 0, 320, 9999} {
		assert.Equal(t, SideOutside, cfg.Classify(Point{x, 10}))
		assert.Equal(t, SideInside, cfg.Classify(Point{x, 400}))
	}
}
