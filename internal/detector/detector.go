// Package detector talks to the external object-detection service.
package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
)

var (
	// ErrServiceUnavailable is returned when the round trip could not be made.
	ErrServiceUnavailable = errors.New("detection service unavailable")
	// ErrTimeout is returned when no reply arrived within the configured bound.
	ErrTimeout = errors.New("detection service timeout")
	// ErrMalformedResponse is returned when a reply does not decode into detections.
	ErrMalformedResponse = errors.New("malformed detection response")
)

// Detector defines the interface for object detection implementations.
type Detector interface {
	// Detect sends one encoded still image and returns the detections found
	// in it. An empty slice means nothing was detected.
	Detect(ctx context.Context, encoded []byte) ([]Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Detection is one object found in a color frame.
type Detection struct {
	Label      string
	Confidence float64
	// Box spans (x1,y1)-(x2,y2) in color pixels with x1<=x2 and y1<=y2.
	Box image.Rectangle
}

// Centroid is the integer midpoint of the box.
func (d Detection) Centroid() image.Point {
	return image.Point{
		X: (d.Box.Min.X + d.Box.Max.X) / 2,
		Y: (d.Box.Min.Y + d.Box.Max.Y) / 2,
	}
}

// Caption is the overlay label, e.g. "person (87%)".
func (d Detection) Caption() string {
	return fmt.Sprintf("%s (%.0f%%)", d.Label, d.Confidence*100)
}

// Recoverable reports whether err should only cost the current frame.
func Recoverable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrMalformedResponse)
}
