// Package depthviz turns raw depth buffers into displayable images.
package depthviz

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// DefaultMaxDepthMm is the far end of the visualization range.
const DefaultMaxDepthMm = 4000

// Renderer maps millimeter depth linearly onto 8-bit intensity.
type Renderer struct {
	// MaxDepthMm is clamped to the far extreme of the output range.
	MaxDepthMm uint16
	// ShiftBits is the number of auxiliary low bits stripped from each sample.
	ShiftBits uint
	// NearBright renders 0 mm as 255 and MaxDepthMm as 0; otherwise the reverse.
	NearBright bool
}

// Render converts a width x height buffer of raw samples into a grayscale image.
// Out-of-range samples are clamped, never rejected.
func (r Renderer) Render(depth []uint16, width, height int) (*image.Gray, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid depth size %dx%d", width, height)
	}
	if len(depth) < width*height {
		return nil, fmt.Errorf("depth buffer has %d samples, want %d", len(depth), width*height)
	}

	img := image.NewGray(image.Rect(0, 0, width, height))
	r.RenderInto(img, depth)
	return img, nil
}

// RenderInto fills dst, reusing its pixel buffer. dst bounds select how many
// samples are read.
func (r Renderer) RenderInto(dst *image.Gray, depth []uint16) {
	maxMm := uint32(r.MaxDepthMm)
	if maxMm == 0 {
		maxMm = DefaultMaxDepthMm
	}

	b := dst.Bounds()
	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := range row {
			mm := uint32(depth[y*w+x] >> r.ShiftBits)
			if mm > maxMm {
				mm = maxMm
			}
			v := uint8(mm * 255 / maxMm)
			if r.NearBright {
				v = 255 - v
			}
			row[x] = v
		}
	}
}

// Colorize applies a false-color map to a grayscale depth view. The caller
// closes the returned Mat.
func Colorize(gray *image.Gray) (gocv.Mat, error) {
	src, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("convert depth view: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	gocv.ApplyColorMap(src, &dst, gocv.ColormapJet)
	return dst, nil
}

// Mat converts a grayscale depth view to a 3-channel Mat, colorized or not,
// ready for overlay drawing. The caller closes the returned Mat.
func Mat(gray *image.Gray, colorize bool) (gocv.Mat, error) {
	if colorize {
		return Colorize(gray)
	}

	src, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("convert depth view: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	gocv.CvtColor(src, &dst, gocv.ColorGrayToBGR)
	return dst, nil
}
