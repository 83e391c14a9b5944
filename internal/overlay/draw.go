package overlay

import (
	"image"

	"gocv.io/x/gocv"
)

// Draw renders the annotations of the given layer onto img.
func Draw(img *gocv.Mat, anns []Annotation, layer Layer) {
	for _, a := range anns {
		if a.Layer != layer {
			continue
		}

		switch a.Kind {
		case KindBox:
			gocv.Rectangle(img, a.Rect, a.Color, a.Thickness)
		case KindMarker:
			gocv.Circle(img, a.Point, MarkerRadius, a.Color, a.Thickness)
		case KindText:
			gocv.PutText(img, a.Text, a.Point, gocv.FontHersheySimplex, TextScale, a.Color, a.Thickness)
		case KindCrosshair:
			h := image.Pt(CrosshairSize, 0)
			v := image.Pt(0, CrosshairSize)
			gocv.Line(img, a.Point.Sub(h), a.Point.Add(h), a.Color, a.Thickness)
			gocv.Line(img, a.Point.Sub(v), a.Point.Add(v), a.Color, a.Thickness)
		}
	}
}
