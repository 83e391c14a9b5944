package spatial

import (
	"errors"
	"image"
)

// DefaultShiftBits is the width of the player-index field in the low bits
// of every raw depth sample.
const DefaultShiftBits = 3

var (
	// ErrDepthOutOfBounds is returned when a mapped coordinate falls outside the depth buffer.
	ErrDepthOutOfBounds = errors.New("depth coordinate out of bounds")
	// ErrDepthInvalid is returned when the sample carries no usable distance.
	ErrDepthInvalid = errors.New("no depth at coordinate")
)

// Sampler reads millimeter depth out of raw sensor samples.
type Sampler struct {
	ShiftBits uint
}

// Millimeters strips the auxiliary low bits from a raw sample.
func (s Sampler) Millimeters(raw uint16) uint16 {
	return raw >> s.ShiftBits
}

// Sample returns the millimeter depth at c in a width x height buffer.
func (s Sampler) Sample(depth []uint16, c image.Point, width, height int) (uint16, error) {
	if c.X < 0 || c.Y < 0 || c.X >= width || c.Y >= height {
		return 0, ErrDepthOutOfBounds
	}
	i := c.Y*width + c.X
	if i >= len(depth) {
		return 0, ErrDepthOutOfBounds
	}

	mm := s.Millimeters(depth[i])
	if mm == 0 {
		return 0, ErrDepthInvalid
	}
	return mm, nil
}
