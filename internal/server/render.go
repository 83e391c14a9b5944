package server

import (
	"fmt"

	"github.com/ayusman/depthlens/internal/app"
	"github.com/ayusman/depthlens/internal/depthviz"
	"github.com/ayusman/depthlens/internal/frame"
	"github.com/ayusman/depthlens/internal/overlay"
)

// renderViews draws the overlay onto the color frame and the depth view and
// encodes both as JPEG.
func renderViews(pair *frame.Pair, res *app.Result, colorize bool, quality int) (colorJPEG, depthJPEG []byte, err error) {
	color, err := frame.ColorMat(pair)
	if err != nil {
		return nil, nil, err
	}
	defer color.Close()

	overlay.Draw(&color, res.Overlay, overlay.LayerColor)
	if colorJPEG, err = frame.EncodeMatJPEG(color, quality); err != nil {
		return nil, nil, fmt.Errorf("encode color view: %w", err)
	}

	if res.DepthView == nil {
		return colorJPEG, nil, nil
	}

	depth, err := depthviz.Mat(res.DepthView, colorize)
	if err != nil {
		return nil, nil, err
	}
	defer depth.Close()

	overlay.Draw(&depth, res.Overlay, overlay.LayerDepth)
	if depthJPEG, err = frame.EncodeMatJPEG(depth, quality); err != nil {
		return nil, nil, fmt.Errorf("encode depth view: %w", err)
	}
	return colorJPEG, depthJPEG, nil
}
