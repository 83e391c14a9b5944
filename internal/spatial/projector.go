package spatial

import (
	"fmt"
	"image"

	"github.com/golang/geo/r3"
)

// MillimetersPerMeter converts sensor depth to world units.
const MillimetersPerMeter = 1000.0

// Intrinsics are the pinhole parameters of the color camera.
type Intrinsics struct {
	Fx float64 `json:"fx" toml:"fx"`
	Fy float64 `json:"fy" toml:"fy"`
	Cx float64 `json:"cx" toml:"cx"`
	Cy float64 `json:"cy" toml:"cy"`
}

// Validate rejects intrinsics that cannot back-project.
func (in Intrinsics) Validate() error {
	if in.Fx <= 0 {
		return fmt.Errorf("invalid focal length fx = %v", in.Fx)
	}
	if in.Fy <= 0 {
		return fmt.Errorf("invalid focal length fy = %v", in.Fy)
	}
	if in.Cx < 0 {
		return fmt.Errorf("invalid principal point cx = %v", in.Cx)
	}
	if in.Cy < 0 {
		return fmt.Errorf("invalid principal point cy = %v", in.Cy)
	}
	return nil
}

// Project back-projects color pixel p observed at depthMm into camera
// space, in meters. depthMm must be non-zero; the result is not range checked.
func (in Intrinsics) Project(p image.Point, depthMm uint16) r3.Vector {
	z := float64(depthMm) / MillimetersPerMeter
	return r3.Vector{
		X: (float64(p.X) - in.Cx) * z / in.Fx,
		Y: (float64(p.Y) - in.Cy) * z / in.Fy,
		Z: z,
	}
}
