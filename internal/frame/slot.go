package frame

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/atomic"
)

// ErrSlotClosed is returned by Take once the slot is closed and drained.
var ErrSlotClosed = errors.New("frame slot closed")

// Slot is a depth-1 mailbox between the acquisition side and the single
// pipeline consumer. A Put while a pair is still pending overwrites it, so
// the consumer always sees the freshest pair and memory stays bounded.
type Slot struct {
	mu      sync.Mutex
	pending *Pair
	closed  bool
	ready   chan struct{}
	done    chan struct{}
	release func(*Pair)

	dropped atomic.Uint64
}

// NewSlot creates an empty Slot. release, if non-nil, receives every pair
// that was overwritten before the consumer took it.
func NewSlot(release func(*Pair)) *Slot {
	return &Slot{
		ready:   make(chan struct{}, 1),
		done:    make(chan struct{}),
		release: release,
	}
}

// Put offers p to the consumer. It reports whether an older pending pair was
// dropped to make room. Puts after Close release p immediately.
func (s *Slot) Put(p *Pair) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.drop(p)
		return true
	}
	old := s.pending
	s.pending = p
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}

	if old != nil {
		s.drop(old)
		return true
	}
	return false
}

// Take blocks until a pair is available, the context is done, or the slot
// is closed with nothing pending.
func (s *Slot) Take(ctx context.Context) (*Pair, error) {
	for {
		s.mu.Lock()
		if p := s.pending; p != nil {
			s.pending = nil
			s.mu.Unlock()
			return p, nil
		}
		if s.closed {
			s.mu.Unlock()
			return nil, ErrSlotClosed
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.ready:
		case <-s.done:
		}
	}
}

// Close stops accepting pairs. A pending pair can still be taken.
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

// Dropped returns how many pairs were overwritten or rejected.
func (s *Slot) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Slot) drop(p *Pair) {
	s.dropped.Inc()
	if s.release != nil && p != nil {
		s.release(p)
	}
}
