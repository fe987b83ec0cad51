package detect

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"

	"github.com/banshee-data/occupancy.report/internal/fsutil"
)

// FileSource reads a JSON-lines detections file, one Frame object per line.
// This is the format the external tracker writes when a video is processed
// out of band.
type FileSource struct {
	f       fs.File
	scanner *bufio.Scanner
	line    int
}

// NewFileSource opens a detections file through the given filesystem.
func NewFileSource(filesystem fsutil.FileSystem, path string) (*FileSource, error) {
	f, err := filesystem.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open detections file: %w", err)
	}
	scanner := bufio.NewScanner(f)
	// Generous line budget: a crowded frame can carry hundreds of boxes.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &FileSource{f: f, scanner: scanner}, nil
}

// Next returns the next frame in the file, skipping blank lines. Returns
// io.EOF once the file is exhausted.
func (s *FileSource) Next() (Frame, error) {
	for s.scanner.Scan() {
		s.line++
		raw := s.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			return Frame{}, fmt.Errorf("bad detections record at line %d: %w", s.line, err)
		}
		return frame, nil
	}
	if err := s.scanner.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

// Close releases the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}

// ScriptedSource replays a fixed slice of frames. Used in tests and dev mode
// in place of a live tracker.
type ScriptedSource struct {
	frames []Frame
	next   int
}

// NewScriptedSource creates a source that yields the given frames in order.
func NewScriptedSource(frames []Frame) *ScriptedSource {
	return &ScriptedSource{frames: frames}
}

// Next returns the next scripted frame, or io.EOF when none remain.
func (s *ScriptedSource) Next() (Frame, error) {
	if s.next >= len(s.frames) {
		return Frame{}, io.EOF
	}
	frame := s.frames[s.next]
	s.next++
	return frame, nil
}

// Close is a no-op.
func (s *ScriptedSource) Close() error { return nil }
