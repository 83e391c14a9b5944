package spatial

import (
	"image"

	"github.com/golang/geo/r3"

	"github.com/ayusman/depthlens/internal/frame"
)

// Location is where one color pixel ended up along the way to the world.
type Location struct {
	Color   image.Point
	Depth   image.Point
	DepthMm uint16
	World   r3.Vector
}

// Locator chains sampling and projection for a single color pixel.
type Locator struct {
	Sampler    Sampler
	Intrinsics Intrinsics
}

// Locate maps c through m, samples the pair's depth buffer and projects.
// Depth is always filled in; DepthMm and World only when err is nil.
func (l Locator) Locate(p *frame.Pair, m Mapper, c image.Point) (Location, error) {
	loc := Location{Color: c, Depth: m.ColorToDepth(c, p.Geometry)}

	mm, err := l.Sampler.Sample(p.Depth, loc.Depth, p.DepthWidth, p.DepthHeight)
	if err != nil {
		return loc, err
	}

	loc.DepthMm = mm
	loc.World = l.Intrinsics.Project(c, mm)
	return loc, nil
}
