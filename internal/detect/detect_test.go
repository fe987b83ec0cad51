package detect

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/occupancy.report/internal/fsutil"
)

func TestBoxCentroid(t *testing.T) {
	tests := []struct {
		name   string
		box    Box
		cx, cy int
	}{
		{"square", Box{X1: 100, Y1: 200, X2: 120, Y2: 240}, 110, 220},
		{"origin", Box{}, 0, 0},
		{"odd span truncates", Box{X1: 0, Y1: 0, X2: 3, Y2: 5}, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cx, cy := tt.box.Centroid()
			assert.Equal(t, tt.cx, cx)
			assert.Equal(t, tt.cy, cy)
		})
	}
}

func TestFileSourceReadsFrames(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	content := `{"frame":0,"boxes":[{"track_id":1,"x1":10,"y1":20,"x2":30,"y2":40}]}

{"frame":1,"boxes":[]}
{"frame":2,"boxes":[{"track_id":1,"x1":12,"y1":22,"x2":32,"y2":42},{"track_id":2,"x1":0,"y1":0,"x2":4,"y2":4}]}
`
	require.NoError(t, mfs.WriteFile("/detections.jsonl", []byte(content), 0o644))

	src, err := NewFileSource(mfs, "/detections.jsonl")
	require.NoError(t, err)
	defer src.Close()

	frame, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 0, frame.Index)
	require.Len(t, frame.Boxes, 1)
	assert.Equal(t, int64(1), frame.Boxes[0].TrackID)

	// blank line is skipped
	frame, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, frame.Index)
	assert.Empty(t, frame.Boxes)

	frame, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Index)
	assert.Len(t, frame.Boxes, 2)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFileSourceBadRecord(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	content := `{"frame":0,"boxes":[]}
not json
`
	require.NoError(t, mfs.WriteFile("/bad.jsonl", []byte(content), 0o644))

	src, err := NewFileSource(mfs, "/bad.jsonl")
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Next()
	require.NoError(t, err)

	_, err = src.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestFileSourceMissingFile(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()

	_, err := NewFileSource(mfs, "/nope.jsonl")
	require.Error(t, err)
}

func TestScriptedSource(t *testing.T) {
	frames := []Frame{
		{Index: 0, Boxes: []Box{{TrackID: 1, X1: 0, Y1: 0, X2: 10, Y2: 10}}},
		{Index: 1},
	}
	src := NewScriptedSource(frames)
	defer src.Close()

	for i := range frames {
		frame, err := src.Next()
		require.NoError(t, err)
		assert.Equal(t, frames[i], frame)
	}

	_, err := src.Next()
	assert.ErrorIs(t, err, io.EOF)
}
