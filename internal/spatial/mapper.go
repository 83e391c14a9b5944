// Package spatial carries a detection from color-image space into depth-image
// space and out into the world: coordinate mapping, depth sampling and
// pinhole back-projection.
package spatial

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/ayusman/depthlens/internal/frame"
)

// ErrNoRegistration is returned when the native strategy is forced but the
// sensor did not supply a registration table for the frame.
var ErrNoRegistration = errors.New("sensor registration table not available")

// Strategy selects how color pixels are mapped into the depth image.
type Strategy string

const (
	// StrategyAuto uses the sensor's registration table when the frame has
	// one and falls back to scaling otherwise.
	StrategyAuto Strategy = "auto"
	// StrategyScaling rescales between resolutions and applies the calibration offset.
	StrategyScaling Strategy = "scaling"
	// StrategyNative always uses the sensor's registration table.
	StrategyNative Strategy = "native"
)

// ParseStrategy parses a strategy name. The empty string means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyScaling:
		return StrategyScaling, nil
	case StrategyNative:
		return StrategyNative, nil
	default:
		return "", fmt.Errorf("unknown mapping strategy %q", s)
	}
}

// Mapper converts a color pixel to the depth pixel observing the same point.
// The result is not bounds-checked.
type Mapper interface {
	ColorToDepth(p image.Point, g frame.Geometry) image.Point
}

// MapColorToDepth rescales p from the color grid to the depth grid with
// integer truncation.
func MapColorToDepth(p image.Point, colorWidth, colorHeight, depthWidth, depthHeight int) image.Point {
	return image.Point{
		X: p.X * depthWidth / colorWidth,
		Y: p.Y * depthHeight / colorHeight,
	}
}

// ScalingMapper rescales between stream resolutions and then shifts by a
// registration offset expressed in depth pixels.
type ScalingMapper struct {
	Offset image.Point
}

// ColorToDepth implements Mapper.
func (m ScalingMapper) ColorToDepth(p image.Point, g frame.Geometry) image.Point {
	return MapColorToDepth(p, g.ColorWidth, g.ColorHeight, g.DepthWidth, g.DepthHeight).Add(m.Offset)
}

// RegisteredMapper looks color pixels up in a per-frame table produced by
// the sensor, which accounts for lens distortion and stream registration.
// Pixels outside the color image go to Fallback.
type RegisteredMapper struct {
	Table    []image.Point
	Fallback Mapper
}

// ColorToDepth implements Mapper.
func (m RegisteredMapper) ColorToDepth(p image.Point, g frame.Geometry) image.Point {
	inColor := p.X >= 0 && p.Y >= 0 && p.X < g.ColorWidth && p.Y < g.ColorHeight
	if inColor && len(m.Table) == g.ColorWidth*g.ColorHeight {
		return m.Table[p.Y*g.ColorWidth+p.X]
	}
	if m.Fallback != nil {
		return m.Fallback.ColorToDepth(p, g)
	}
	return MapColorToDepth(p, g.ColorWidth, g.ColorHeight, g.DepthWidth, g.DepthHeight)
}

// Selector picks the mapper for a frame according to the configured
// strategy and what the frame carries.
type Selector struct {
	Strategy Strategy
	Scaling  ScalingMapper
}

// For returns the mapper to use for p.
func (s Selector) For(p *frame.Pair) (Mapper, error) {
	switch s.Strategy {
	case StrategyScaling:
		return s.Scaling, nil
	case StrategyNative:
		if !p.HasRegistration() {
			return nil, ErrNoRegistration
		}
		return RegisteredMapper{Table: p.Registration, Fallback: s.Scaling}, nil
	default:
		if p.HasRegistration() {
			return RegisteredMapper{Table: p.Registration, Fallback: s.Scaling}, nil
		}
		return s.Scaling, nil
	}
}
