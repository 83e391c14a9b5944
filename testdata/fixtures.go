// Package testdata writes synthetic recorded sessions for replay tests.
package testdata

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/ayusman/depthlens/internal/frame"
)

// WriteReplaySession writes n color/depth pairs of geometry g into dir in
// the layout read by capture.ReplaySource. Every depth sample holds rawDepth.
func WriteReplaySession(dir string, g frame.Geometry, n int, rawDepth uint16) error {
	colorMat := gocv.NewMatWithSize(g.ColorHeight, g.ColorWidth, gocv.MatTypeCV8UC3)
	defer colorMat.Close()

	// A gray object in the middle third gives the encoder something to compress.
	object := image.Rect(g.ColorWidth/3, g.ColorHeight/3, 2*g.ColorWidth/3, 2*g.ColorHeight/3)
	gocv.Rectangle(&colorMat, object, color.RGBA{R: 128, G: 128, B: 128, A: 255}, -1)

	depthMat := gocv.NewMatWithSize(g.DepthHeight, g.DepthWidth, gocv.MatTypeCV16UC1)
	defer depthMat.Close()
	for y := 0; y < g.DepthHeight; y++ {
		for x := 0; x < g.DepthWidth; x++ {
			depthMat.SetShortAt(y, x, int16(rawDepth))
		}
	}

	for i := 1; i <= n; i++ {
		key := fmt.Sprintf("%04d", i)
		if ok := gocv.IMWrite(filepath.Join(dir, "color_"+key+".png"), colorMat); !ok {
			return fmt.Errorf("write color frame %s", key)
		}
		if ok := gocv.IMWrite(filepath.Join(dir, "depth_"+key+".png"), depthMat); !ok {
			return fmt.Errorf("write depth frame %s", key)
		}
	}
	return nil
}
