package frame

import (
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is the quality used when a caller passes 0.
const DefaultJPEGQuality = 90

// ColorMat converts the pair's color buffer to a 3-channel BGR Mat.
// The caller is responsible for closing the returned Mat.
func ColorMat(p *Pair) (gocv.Mat, error) {
	if len(p.Color) != p.ColorLen() {
		return gocv.NewMat(), fmt.Errorf("%w: color has %d bytes, want %d", ErrGeometryMismatch, len(p.Color), p.ColorLen())
	}

	bgra, err := gocv.NewMatFromBytes(p.ColorHeight, p.ColorWidth, gocv.MatTypeCV8UC4, p.Color)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("wrap color buffer: %w", err)
	}
	defer bgra.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(bgra, &bgr, gocv.ColorBGRAToBGR)
	return bgr, nil
}

// EncodeJPEG compresses the pair's color frame for the detection service.
func EncodeJPEG(p *Pair, quality int) ([]byte, error) {
	mat, err := ColorMat(p)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	return EncodeMatJPEG(mat, quality)
}

// EncodeMatJPEG compresses m. The returned bytes are owned by the caller.
func EncodeMatJPEG(m gocv.Mat, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, m, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory released by Close.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// FillColor copies a BGR or BGRA Mat into the pair's color buffer.
func FillColor(p *Pair, m gocv.Mat) error {
	if m.Cols() != p.ColorWidth || m.Rows() != p.ColorHeight {
		return fmt.Errorf("%w: color image is %dx%d, want %dx%d",
			ErrGeometryMismatch, m.Cols(), m.Rows(), p.ColorWidth, p.ColorHeight)
	}

	bgra := gocv.NewMat()
	defer bgra.Close()

	switch m.Channels() {
	case 4:
		m.CopyTo(&bgra)
	case 3:
		gocv.CvtColor(m, &bgra, gocv.ColorBGRToBGRA)
	case 1:
		gocv.CvtColor(m, &bgra, gocv.ColorGrayToBGRA)
	default:
		return fmt.Errorf("unsupported color channel count %d", m.Channels())
	}

	data := bgra.ToBytes()
	if len(data) != len(p.Color) {
		return fmt.Errorf("%w: converted color has %d bytes, want %d", ErrGeometryMismatch, len(data), len(p.Color))
	}
	copy(p.Color, data)
	return nil
}

// FillDepth copies a single-channel 16-bit Mat into the pair's depth buffer.
func FillDepth(p *Pair, m gocv.Mat) error {
	if m.Type() != gocv.MatTypeCV16UC1 {
		return fmt.Errorf("depth image must be 16-bit single channel, got type %v", m.Type())
	}
	if m.Cols() != p.DepthWidth || m.Rows() != p.DepthHeight {
		return fmt.Errorf("%w: depth image is %dx%d, want %dx%d",
			ErrGeometryMismatch, m.Cols(), m.Rows(), p.DepthWidth, p.DepthHeight)
	}

	samples, err := m.DataPtrUint16()
	if err != nil {
		return fmt.Errorf("read depth samples: %w", err)
	}
	copy(p.Depth, samples)
	return nil
}
