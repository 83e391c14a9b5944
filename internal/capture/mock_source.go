package capture

import (
	"sync"

	"github.com/ayusman/depthlens/internal/frame"
)

// MockSource plays back in-memory pairs for testing. Errs scripts a failure
// for the read at a given index instead of a pair.
type MockSource struct {
	geom   frame.Geometry
	frames []*frame.Pair
	errs   map[int]error
	loop   bool

	mu      sync.Mutex
	index   int
	reads   int
	running bool
}

func NewMockSource(g frame.Geometry, frames []*frame.Pair, loop bool) *MockSource {
	return &MockSource{
		geom:   g,
		frames: frames,
		errs:   make(map[int]error),
		loop:   loop,
	}
}

// FailAt makes the read with the given zero-based index return err.
func (s *MockSource) FailAt(read int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[read] = err
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.index = 0
	s.reads = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *MockSource) ReadFrame(dst *frame.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrSourceNotOpen
	}

	read := s.reads
	s.reads++
	if err, ok := s.errs[read]; ok {
		return err
	}

	if s.index >= len(s.frames) {
		if !s.loop || len(s.frames) == 0 {
			return ErrExhausted
		}
		s.index = 0
	}

	src := s.frames[s.index]
	s.index++

	copy(dst.Color, src.Color)
	copy(dst.Depth, src.Depth)
	if src.HasRegistration() {
		copy(dst.EnsureRegistration(), src.Registration)
	}
	return nil
}

func (s *MockSource) Geometry() frame.Geometry {
	return s.geom
}

func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Reads returns how many times ReadFrame was called since Open.
func (s *MockSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}
