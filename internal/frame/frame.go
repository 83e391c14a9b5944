// Package frame holds the synchronized color+depth frame pair and the
// buffers that carry it through the pipeline.
package frame

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// BytesPerColorPixel is the stride of one color pixel: blue, green, red and a pad byte.
const BytesPerColorPixel = 4

var (
	// ErrFrameUnavailable is returned when no synchronized pair could be opened this cycle.
	ErrFrameUnavailable = errors.New("frame unavailable")
	// ErrSensorDisconnected is returned when the sensing hardware is gone for good.
	ErrSensorDisconnected = errors.New("sensor disconnected")
	// ErrGeometryMismatch is returned when buffer lengths disagree with the stream geometry.
	ErrGeometryMismatch = errors.New("frame geometry mismatch")
)

// Geometry describes the resolutions of the color and depth streams.
type Geometry struct {
	ColorWidth  int `json:"color_width" toml:"color_width"`
	ColorHeight int `json:"color_height" toml:"color_height"`
	DepthWidth  int `json:"depth_width" toml:"depth_width"`
	DepthHeight int `json:"depth_height" toml:"depth_height"`
}

// Validate checks that every dimension is positive.
func (g Geometry) Validate() error {
	if g.ColorWidth <= 0 || g.ColorHeight <= 0 {
		return fmt.Errorf("invalid color size %dx%d", g.ColorWidth, g.ColorHeight)
	}
	if g.DepthWidth <= 0 || g.DepthHeight <= 0 {
		return fmt.Errorf("invalid depth size %dx%d", g.DepthWidth, g.DepthHeight)
	}
	return nil
}

// ColorLen is the number of bytes in one color frame.
func (g Geometry) ColorLen() int {
	return g.ColorWidth * g.ColorHeight * BytesPerColorPixel
}

// DepthLen is the number of samples in one depth frame.
func (g Geometry) DepthLen() int {
	return g.DepthWidth * g.DepthHeight
}

func (g Geometry) String() string {
	return fmt.Sprintf("color %dx%d, depth %dx%d", g.ColorWidth, g.ColorHeight, g.DepthWidth, g.DepthHeight)
}

// Pair is one synchronized color+depth acquisition.
//
// A Pair is owned by exactly one stage at a time. Once it has been handed
// back to its Pool nothing may keep a reference to Color, Depth or
// Registration.
type Pair struct {
	Seq       uint64
	Timestamp time.Time
	Geometry

	// Color is ColorWidth*ColorHeight pixels of BytesPerColorPixel bytes, row major.
	Color []byte
	// Depth is DepthWidth*DepthHeight raw sensor samples, row major.
	Depth []uint16
	// Registration, when the sensor supplies it, holds the depth pixel that
	// corresponds to every color pixel (row major, ColorWidth*ColorHeight).
	Registration []image.Point
}

// NewPair allocates a Pair sized for g.
func NewPair(g Geometry) *Pair {
	return &Pair{
		Geometry: g,
		Color:    make([]byte, g.ColorLen()),
		Depth:    make([]uint16, g.DepthLen()),
	}
}

// Validate checks the buffer lengths against the pair's geometry.
func (p *Pair) Validate() error {
	if p == nil {
		return ErrFrameUnavailable
	}
	if err := p.Geometry.Validate(); err != nil {
		return err
	}
	if len(p.Color) != p.ColorLen() {
		return fmt.Errorf("%w: color has %d bytes, want %d", ErrGeometryMismatch, len(p.Color), p.ColorLen())
	}
	if len(p.Depth) != p.DepthLen() {
		return fmt.Errorf("%w: depth has %d samples, want %d", ErrGeometryMismatch, len(p.Depth), p.DepthLen())
	}
	if p.Registration != nil && len(p.Registration) != p.ColorWidth*p.ColorHeight {
		return fmt.Errorf("%w: registration has %d entries, want %d",
			ErrGeometryMismatch, len(p.Registration), p.ColorWidth*p.ColorHeight)
	}
	return nil
}

// HasRegistration reports whether the sensor supplied a native color-to-depth table.
func (p *Pair) HasRegistration() bool {
	return len(p.Registration) > 0
}

// EnsureRegistration sizes the registration table for the color stream,
// reusing earlier capacity.
func (p *Pair) EnsureRegistration() []image.Point {
	n := p.ColorWidth * p.ColorHeight
	if cap(p.Registration) < n {
		p.Registration = make([]image.Point, n)
	}
	p.Registration = p.Registration[:n]
	return p.Registration
}

func (p *Pair) reset() {
	p.Seq = 0
	p.Timestamp = time.Time{}
	p.Registration = p.Registration[:0]
}
