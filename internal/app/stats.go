package app

import (
	"errors"

	"go.uber.org/atomic"

	"github.com/ayusman/depthlens/internal/detector"
	"github.com/ayusman/depthlens/internal/frame"
	"github.com/ayusman/depthlens/internal/spatial"
)

// StatsSnapshot is a point-in-time copy of the run counters.
type StatsSnapshot struct {
	Received    uint64 `json:"received"`
	Processed   uint64 `json:"processed"`
	Dropped     uint64 `json:"dropped"`
	Unavailable uint64 `json:"unavailable"`

	SkippedTimeout     uint64 `json:"skipped_timeout"`
	SkippedUnreachable uint64 `json:"skipped_unreachable"`
	SkippedMalformed   uint64 `json:"skipped_malformed"`
	SkippedOther       uint64 `json:"skipped_other"`
	Failed             uint64 `json:"failed"`

	Detections  uint64 `json:"detections"`
	Located     uint64 `json:"located"`
	OutOfBounds uint64 `json:"out_of_bounds"`
	NoDepth     uint64 `json:"no_depth"`
}

// Stats counts what happened to frames and detections during a run.
type Stats struct {
	processed atomic.Uint64

	skippedTimeout     atomic.Uint64
	skippedUnreachable atomic.Uint64
	skippedMalformed   atomic.Uint64
	skippedOther       atomic.Uint64
	failed             atomic.Uint64

	detections  atomic.Uint64
	located     atomic.Uint64
	outOfBounds atomic.Uint64
	noDepth     atomic.Uint64
}

func (s *Stats) recordResult(res *Result) {
	s.processed.Inc()
	s.detections.Add(uint64(len(res.Objects)))
	for _, o := range res.Objects {
		switch {
		case o.Err == nil:
			s.located.Inc()
		case errors.Is(o.Err, spatial.ErrDepthOutOfBounds):
			s.outOfBounds.Inc()
		case errors.Is(o.Err, spatial.ErrDepthInvalid):
			s.noDepth.Inc()
		}
	}
}

func (s *Stats) recordSkip(err error) {
	switch {
	case errors.Is(err, detector.ErrTimeout):
		s.skippedTimeout.Inc()
	case errors.Is(err, detector.ErrServiceUnavailable):
		s.skippedUnreachable.Inc()
	case errors.Is(err, detector.ErrMalformedResponse):
		s.skippedMalformed.Inc()
	case frameSkip(err):
		s.skippedOther.Inc()
	default:
		s.failed.Inc()
	}
}

// frameSkip reports whether err is an expected per-frame condition outside
// the detection round trip.
func frameSkip(err error) bool {
	return errors.Is(err, frame.ErrFrameUnavailable) ||
		errors.Is(err, frame.ErrGeometryMismatch) ||
		errors.Is(err, spatial.ErrNoRegistration)
}

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Processed:          s.processed.Load(),
		SkippedTimeout:     s.skippedTimeout.Load(),
		SkippedUnreachable: s.skippedUnreachable.Load(),
		SkippedMalformed:   s.skippedMalformed.Load(),
		SkippedOther:       s.skippedOther.Load(),
		Failed:             s.failed.Load(),
		Detections:         s.detections.Load(),
		Located:            s.located.Load(),
		OutOfBounds:        s.outOfBounds.Load(),
		NoDepth:            s.noDepth.Load(),
	}
}
