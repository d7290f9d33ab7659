package inference

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/blackwell-systems/smilecoach/internal/smile"
)

// replayLine is one JSON line of a recorded session. A line with no_face set
// stands for a frame in which no face was detected.
type replayLine struct {
	Happy     float64       `json:"happy"`
	Sad       float64       `json:"sad"`
	Angry     float64       `json:"angry"`
	Fearful   float64       `json:"fearful"`
	Surprised float64       `json:"surprised"`
	Neutral   float64       `json:"neutral"`
	Landmarks []smile.Point `json:"landmarks,omitempty"`
	Box       *Box          `json:"box,omitempty"`
	Frame     []byte        `json:"frame,omitempty"`
	NoFace    bool          `json:"no_face,omitempty"`
}

// ReplaySource plays back a recorded JSON-lines session. It acts as both
// the camera and the detector: Frame advances to the next line and Detect
// returns that line's face.
type ReplaySource struct {
	mu     sync.Mutex
	lines  []replayLine
	cursor int
	open   bool
}

// LoadReplay parses a JSON-lines recording. Blank lines and lines starting
// with # are skipped.
func LoadReplay(r io.Reader) (*ReplaySource, error) {
	src := &ReplaySource{cursor: -1}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var l replayLine
		if err := json.Unmarshal([]byte(text), &l); err != nil {
			return nil, fmt.Errorf("replay line %d: %w", n, err)
		}
		src.lines = append(src.lines, l)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return src, nil
}

// OpenReplayFile loads a recording from disk.
func OpenReplayFile(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadReplay(f)
}

// Len returns the number of recorded frames.
func (s *ReplaySource) Len() int {
	return len(s.lines)
}

// Open rewinds the recording.
func (s *ReplaySource) Open(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = -1
	s.open = true
	return nil
}

// Frame advances to the next recorded frame. It returns io.EOF once the
// recording is exhausted.
func (s *ReplaySource) Frame(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, fmt.Errorf("replay source is closed")
	}
	if s.cursor+1 >= len(s.lines) {
		return nil, io.EOF
	}
	s.cursor++
	return s.lines[s.cursor].Frame, nil
}

// Close stops playback. Closing twice is a no-op.
func (s *ReplaySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// Ready always succeeds.
func (s *ReplaySource) Ready(_ context.Context) error {
	return nil
}

// Detect returns the face of the current frame.
func (s *ReplaySource) Detect(_ context.Context, _ []byte) (*Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor < 0 || s.cursor >= len(s.lines) {
		return nil, fmt.Errorf("no current replay frame")
	}
	l := s.lines[s.cursor]
	if l.NoFace {
		return nil, nil
	}
	det := &Detection{
		Sample: smile.Sample{
			Happy:     l.Happy,
			Sad:       l.Sad,
			Angry:     l.Angry,
			Fearful:   l.Fearful,
			Surprised: l.Surprised,
			Neutral:   l.Neutral,
			Landmarks: l.Landmarks,
		},
	}
	if l.Box != nil {
		det.Box = *l.Box
	}
	return det, nil
}
