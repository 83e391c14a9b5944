// Package capture is the acquisition boundary: it produces synchronized
// color+depth pairs from a source and feeds them to the pipeline.
package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/depthlens/internal/frame"
)

var (
	// ErrSourceNotOpen is returned when reading from a source that is not open.
	ErrSourceNotOpen = errors.New("source is not open")
	// ErrExhausted is returned when a finite source has no more pairs.
	ErrExhausted = errors.New("source exhausted")
)

// Source produces synchronized color+depth pairs.
type Source interface {
	Open() error
	Close() error
	// ReadFrame fills dst with the next pair. It returns an error wrapping
	// frame.ErrFrameUnavailable when one stream had no data this cycle,
	// ErrExhausted at the end of a finite source, and anything else when the
	// source can no longer produce frames.
	ReadFrame(dst *frame.Pair) error
	Geometry() frame.Geometry
	IsOpen() bool
}

// replayEntry is one recorded pair on disk.
type replayEntry struct {
	color string
	depth string
}

// ReplaySource plays back a directory of recorded pairs. Color frames are
// color_<n>.{png,jpg} and depth frames are 16-bit depth_<n>.png, matched by <n>.
type ReplaySource struct {
	dir  string
	geom frame.Geometry
	loop bool

	mu      sync.Mutex
	entries []replayEntry
	index   int
	running bool
}

// NewReplaySource creates a source over dir for pairs of geometry g.
func NewReplaySource(dir string, g frame.Geometry, loop bool) *ReplaySource {
	return &ReplaySource{dir: dir, geom: g, loop: loop}
}

// Open scans the directory for recorded pairs.
func (s *ReplaySource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	entries, err := scanReplayDir(s.dir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no recorded frames in %s", s.dir)
	}

	s.entries = entries
	s.index = 0
	s.running = true
	return nil
}

// Close stops playback.
func (s *ReplaySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	s.entries = nil
	return nil
}

// ReadFrame decodes the next recorded pair into dst.
func (s *ReplaySource) ReadFrame(dst *frame.Pair) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSourceNotOpen
	}
	if s.index >= len(s.entries) {
		if !s.loop {
			s.mu.Unlock()
			return ErrExhausted
		}
		s.index = 0
	}
	entry := s.entries[s.index]
	s.index++
	s.mu.Unlock()

	if entry.depth == "" {
		return fmt.Errorf("%w: no depth frame for %s", frame.ErrFrameUnavailable, filepath.Base(entry.color))
	}

	color := gocv.IMRead(entry.color, gocv.IMReadColor)
	defer color.Close()
	if color.Empty() {
		return fmt.Errorf("%w: cannot decode %s", frame.ErrFrameUnavailable, entry.color)
	}

	depth := gocv.IMRead(entry.depth, gocv.IMReadUnchanged)
	defer depth.Close()
	if depth.Empty() {
		return fmt.Errorf("%w: cannot decode %s", frame.ErrFrameUnavailable, entry.depth)
	}

	if err := frame.FillColor(dst, color); err != nil {
		return err
	}
	return frame.FillDepth(dst, depth)
}

// Geometry returns the stream geometry.
func (s *ReplaySource) Geometry() frame.Geometry {
	return s.geom
}

// IsOpen returns true if playback is running.
func (s *ReplaySource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// Len returns the number of recorded pairs found by Open.
func (s *ReplaySource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

func scanReplayDir(dir string) ([]replayEntry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read replay dir: %w", err)
	}

	colors := make(map[string]string)
	depths := make(map[string]string)
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		name := f.Name()
		ext := strings.ToLower(filepath.Ext(name))
		stem := strings.TrimSuffix(name, filepath.Ext(name))

		switch {
		case strings.HasPrefix(stem, "color_") && (ext == ".png" || ext == ".jpg" || ext == ".jpeg"):
			colors[strings.TrimPrefix(stem, "color_")] = filepath.Join(dir, name)
		case strings.HasPrefix(stem, "depth_") && ext == ".png":
			depths[strings.TrimPrefix(stem, "depth_")] = filepath.Join(dir, name)
		}
	}

	keys := make([]string, 0, len(colors))
	for k := range colors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]replayEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, replayEntry{color: colors[k], depth: depths[k]})
	}
	return entries, nil
}
