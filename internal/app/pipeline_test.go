package app

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/depthlens/internal/depthviz"
	"github.com/ayusman/depthlens/internal/detector"
	"github.com/ayusman/depthlens/internal/frame"
	"github.com/ayusman/depthlens/internal/overlay"
	"github.com/ayusman/depthlens/internal/spatial"
)

var (
	refGeom       = frame.Geometry{ColorWidth: 640, ColorHeight: 480, DepthWidth: 320, DepthHeight: 240}
	refIntrinsics = spatial.Intrinsics{Fx: 594.21, Fy: 591.04, Cx: 339.5, Cy: 242.7}
)

// fakeEncoder stands in for JPEG so the pipeline can be tested without OpenCV.
func fakeEncoder(p *frame.Pair) ([]byte, error) {
	return []byte{0xFF, 0xD8, byte(p.Seq)}, nil
}

// uniformPair returns a pair whose every depth sample reads depthMm.
func uniformPair(g frame.Geometry, depthMm uint16) *frame.Pair {
	p := frame.NewPair(g)
	p.Seq = 1
	for i := range p.Depth {
		p.Depth[i] = depthMm << spatial.DefaultShiftBits
	}
	return p
}

func newTestPipeline(det detector.Detector, offset image.Point) *Pipeline {
	return NewPipeline(PipelineConfig{
		Encoder:  fakeEncoder,
		Detector: det,
		Selector: spatial.Selector{
			Strategy: spatial.StrategyScaling,
			Scaling:  spatial.ScalingMapper{Offset: offset},
		},
		Locator: spatial.Locator{
			Sampler:    spatial.Sampler{ShiftBits: spatial.DefaultShiftBits},
			Intrinsics: refIntrinsics,
		},
		Renderer: depthviz.Renderer{MaxDepthMm: 4000, ShiftBits: spatial.DefaultShiftBits, NearBright: true},
	})
}

func TestPipeline_ReferenceScenario(t *testing.T) {
	det := detector.NewMockDetector()
	det.SetDetections([]detector.Detection{detector.PersonDetection()})

	p := newTestPipeline(det, image.Point{})
	res, err := p.Process(context.Background(), uniformPair(refGeom, 2000))
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)

	obj := res.Objects[0]
	require.True(t, obj.Located())
	assert.Equal(t, image.Pt(150, 150), obj.Location.Color)
	assert.Equal(t, image.Pt(75, 75), obj.Location.Depth)
	assert.Equal(t, uint16(2000), obj.Location.DepthMm)
	assert.InDelta(t, 2.0, obj.Location.World.Z, 1e-9)
	assert.InDelta(t, -0.638, obj.Location.World.X, 1e-3)
	assert.InDelta(t, -0.314, obj.Location.World.Y, 1e-3)

	assert.Equal(t, 1, res.Located())
	assert.Equal(t, uint64(1), res.Seq)
	assert.Equal(t, refGeom, res.Geometry)
	assert.Equal(t, []byte{0xFF, 0xD8, 1}, det.LastRequest())
}

func TestPipeline_ZeroDetections(t *testing.T) {
	det := detector.NewMockDetector()

	p := newTestPipeline(det, image.Point{})
	res, err := p.Process(context.Background(), uniformPair(refGeom, 2000))
	require.NoError(t, err)

	assert.Empty(t, res.Objects)
	assert.Empty(t, res.Overlay)
	require.NotNil(t, res.DepthView)
	assert.Equal(t, image.Rect(0, 0, 320, 240), res.DepthView.Bounds())
}

func TestPipeline_OutOfBoundsSibling(t *testing.T) {
	corner := detector.Detection{Label: "cup", Confidence: 0.6, Box: image.Rect(0, 0, 10, 10)}
	det := detector.NewMockDetector()
	det.SetDetections([]detector.Detection{corner, detector.PersonDetection()})

	p := newTestPipeline(det, image.Pt(-13, -10))
	res, err := p.Process(context.Background(), uniformPair(refGeom, 2000))
	require.NoError(t, err)
	require.Len(t, res.Objects, 2)

	assert.Equal(t, "cup", res.Objects[0].Detection.Label)
	assert.ErrorIs(t, res.Objects[0].Err, spatial.ErrDepthOutOfBounds)
	assert.Equal(t, image.Pt(-11, -8), res.Objects[0].Location.Depth)

	assert.True(t, res.Objects[1].Located())
	assert.Equal(t, image.Pt(62, 65), res.Objects[1].Location.Depth)
	assert.InDelta(t, 2.0, res.Objects[1].Location.World.Z, 1e-9)

	crosshairs := 0
	for _, a := range res.Overlay {
		if a.Kind == overlay.KindCrosshair {
			crosshairs++
			assert.Equal(t, image.Pt(62, 65), a.Point)
		}
	}
	assert.Equal(t, 1, crosshairs)
}

func TestPipeline_InvalidDepth(t *testing.T) {
	det := detector.NewMockDetector()
	det.SetDetections([]detector.Detection{detector.PersonDetection()})

	pair := uniformPair(refGeom, 2000)
	// Only the player-index bits are set at the mapped pixel.
	pair.Depth[75*refGeom.DepthWidth+75] = 0x7

	p := newTestPipeline(det, image.Point{})
	res, err := p.Process(context.Background(), pair)
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	assert.ErrorIs(t, res.Objects[0].Err, spatial.ErrDepthInvalid)
	assert.Zero(t, res.Located())
}

func TestPipeline_Idempotent(t *testing.T) {
	det := detector.NewMockDetector()
	det.SetDetections([]detector.Detection{
		detector.PersonDetection(),
		{Label: "cup", Confidence: 0.55, Box: image.Rect(600, 400, 640, 480)},
	})

	p := newTestPipeline(det, image.Pt(-13, -10))
	pair := uniformPair(refGeom, 1500)

	first, err := p.Process(context.Background(), pair)
	require.NoError(t, err)
	firstView := append([]uint8(nil), first.DepthView.Pix...)

	second, err := p.Process(context.Background(), pair)
	require.NoError(t, err)

	assert.Equal(t, first.Overlay, second.Overlay)
	assert.Equal(t, first.Objects, second.Objects)
	assert.Equal(t, firstView, second.DepthView.Pix)
}

func TestPipeline_DepthView(t *testing.T) {
	p := newTestPipeline(detector.NewMockDetector(), image.Point{})
	res, err := p.Process(context.Background(), uniformPair(refGeom, 2000))
	require.NoError(t, err)

	// 2000 of 4000 mm, near bright.
	assert.Equal(t, uint8(128), res.DepthView.GrayAt(10, 10).Y)
}

func TestPipeline_FrameSkips(t *testing.T) {
	t.Run("detector errors propagate", func(t *testing.T) {
		for _, want := range []error{detector.ErrTimeout, detector.ErrServiceUnavailable, detector.ErrMalformedResponse} {
			det := detector.NewMockDetector()
			det.SetError(want)

			_, err := newTestPipeline(det, image.Point{}).Process(context.Background(), uniformPair(refGeom, 2000))
			assert.ErrorIs(t, err, want)
		}
	})

	t.Run("encoder failure", func(t *testing.T) {
		det := detector.NewMockDetector()
		p := newTestPipeline(det, image.Point{})
		p.cfg.Encoder = func(*frame.Pair) ([]byte, error) { return nil, errors.New("no codec") }

		_, err := p.Process(context.Background(), uniformPair(refGeom, 2000))
		assert.ErrorContains(t, err, "encode color frame")
		assert.Zero(t, det.Calls())
	})

	t.Run("native mapping without registration", func(t *testing.T) {
		det := detector.NewMockDetector()
		p := newTestPipeline(det, image.Point{})
		p.cfg.Selector.Strategy = spatial.StrategyNative

		_, err := p.Process(context.Background(), uniformPair(refGeom, 2000))
		assert.ErrorIs(t, err, spatial.ErrNoRegistration)
		assert.Zero(t, det.Calls())
	})

	t.Run("geometry mismatch", func(t *testing.T) {
		pair := uniformPair(refGeom, 2000)
		pair.Depth = pair.Depth[:10]

		_, err := newTestPipeline(detector.NewMockDetector(), image.Point{}).Process(context.Background(), pair)
		assert.ErrorIs(t, err, frame.ErrGeometryMismatch)
	})
}

func TestPipeline_NativeRegistration(t *testing.T) {
	det := detector.NewMockDetector()
	det.SetDetections([]detector.Detection{detector.PersonDetection()})

	pair := uniformPair(refGeom, 2000)
	table := pair.EnsureRegistration()
	for i := range table {
		table[i] = image.Pt(10, 20)
	}

	p := newTestPipeline(det, image.Pt(-13, -10))
	p.cfg.Selector.Strategy = spatial.StrategyAuto

	res, err := p.Process(context.Background(), pair)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(10, 20), res.Objects[0].Location.Depth)
}

func TestPipeline_Postprocess(t *testing.T) {
	det := detector.NewMockDetector()
	det.SetDetections([]detector.Detection{
		detector.PersonDetection(),
		{Label: "cup", Confidence: 0.2, Box: image.Rect(0, 0, 4, 4)},
	})

	p := newTestPipeline(det, image.Point{})
	p.cfg.Postprocess = detector.NewConfidenceFilter(0.5)

	res, err := p.Process(context.Background(), uniformPair(refGeom, 2000))
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, "person", res.Objects[0].Detection.Label)
}
