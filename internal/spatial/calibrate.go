package spatial

import (
	"errors"
	"image"
	"math"

	"github.com/ayusman/depthlens/internal/frame"
)

// ErrNoCorrespondences is returned when there is nothing to estimate from.
var ErrNoCorrespondences = errors.New("no correspondences")

// Correspondence pairs a color pixel with the depth pixel that really
// observes the same point, picked by hand on a calibration target.
type Correspondence struct {
	Color image.Point
	Depth image.Point
}

// EstimateOffset returns the registration offset that best corrects pure
// scaling for g: the rounded mean of depth minus scaled color.
func EstimateOffset(pairs []Correspondence, g frame.Geometry) (image.Point, error) {
	if len(pairs) == 0 {
		return image.Point{}, ErrNoCorrespondences
	}
	if err := g.Validate(); err != nil {
		return image.Point{}, err
	}

	var sumX, sumY float64
	for _, c := range pairs {
		scaled := MapColorToDepth(c.Color, g.ColorWidth, g.ColorHeight, g.DepthWidth, g.DepthHeight)
		sumX += float64(c.Depth.X - scaled.X)
		sumY += float64(c.Depth.Y - scaled.Y)
	}

	n := float64(len(pairs))
	return image.Point{
		X: int(math.Round(sumX / n)),
		Y: int(math.Round(sumY / n)),
	}, nil
}
