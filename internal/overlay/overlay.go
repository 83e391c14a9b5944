// Package overlay describes what to draw over the color and depth views
// for a frame's detections, and draws it.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/ayusman/depthlens/internal/detector"
	"github.com/ayusman/depthlens/internal/spatial"
)

// Layer is the image an annotation is positioned in.
type Layer int

const (
	LayerColor Layer = iota
	LayerDepth
)

// Kind is the shape of an annotation.
type Kind int

const (
	KindBox Kind = iota
	KindMarker
	KindText
	KindCrosshair
)

// Drawing parameters.
const (
	BoxThickness    = 2
	MarkerRadius    = 5
	CrosshairSize   = 6
	TextScale       = 0.6
	LabelLift       = 10
	WorldLineOffset = 18
	minTextY        = 12
)

var (
	Red   = color.RGBA{R: 255, A: 255}
	Blue  = color.RGBA{B: 255, A: 255}
	Green = color.RGBA{G: 255, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Annotation is one drawing instruction.
type Annotation struct {
	Layer     Layer
	Kind      Kind
	Rect      image.Rectangle
	Point     image.Point
	Text      string
	Color     color.RGBA
	Thickness int
}

// ForDetection builds the annotations for one detection given where
// locating it got to. locErr is the error returned by spatial.Locator.Locate.
func ForDetection(d detector.Detection, loc spatial.Location, locErr error) []Annotation {
	anns := []Annotation{
		{Layer: LayerColor, Kind: KindBox, Rect: d.Box, Color: Red, Thickness: BoxThickness},
		{Layer: LayerColor, Kind: KindMarker, Point: d.Centroid(), Color: Blue, Thickness: -1},
		{Layer: LayerColor, Kind: KindText, Point: labelAnchor(d.Box), Text: d.Caption(), Color: Green, Thickness: 1},
	}

	if locErr == nil {
		anns = append(anns, Annotation{
			Layer:     LayerColor,
			Kind:      KindText,
			Point:     image.Pt(d.Box.Min.X, d.Box.Max.Y+WorldLineOffset),
			Text:      fmt.Sprintf("%.2f, %.2f, %.2f m", loc.World.X, loc.World.Y, loc.World.Z),
			Color:     Green,
			Thickness: 1,
		})
	}

	if !errors.Is(locErr, spatial.ErrDepthOutOfBounds) {
		anns = append(anns, Annotation{
			Layer: LayerDepth, Kind: KindCrosshair, Point: loc.Depth, Color: White, Thickness: 1,
		})
	}

	return anns
}

func labelAnchor(box image.Rectangle) image.Point {
	y := box.Min.Y - LabelLift
	if y < minTextY {
		y = minTextY
	}
	return image.Pt(box.Min.X, y)
}
