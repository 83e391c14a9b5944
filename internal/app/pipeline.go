package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/depthlens/internal/depthviz"
	"github.com/ayusman/depthlens/internal/detector"
	"github.com/ayusman/depthlens/internal/frame"
	"github.com/ayusman/depthlens/internal/overlay"
	"github.com/ayusman/depthlens/internal/spatial"
)

// Encoder turns a pair's color frame into the still image sent for detection.
type Encoder func(p *frame.Pair) ([]byte, error)

// JPEGEncoder encodes the color frame as JPEG at the given quality.
func JPEGEncoder(quality int) Encoder {
	return func(p *frame.Pair) ([]byte, error) {
		return frame.EncodeJPEG(p, quality)
	}
}

// Object is one detection and how far it got towards a world point.
type Object struct {
	Detection detector.Detection
	Location  spatial.Location
	// Err is nil when Location.World is valid, otherwise
	// spatial.ErrDepthOutOfBounds or spatial.ErrDepthInvalid.
	Err error
}

// Located reports whether the object has a world point.
func (o Object) Located() bool {
	return o.Err == nil
}

// Result is the output of processing one pair.
type Result struct {
	Seq       uint64
	Timestamp time.Time
	Geometry  frame.Geometry
	Objects   []Object
	Overlay   []overlay.Annotation
	// DepthView is owned by the Pipeline and overwritten by the next Process.
	DepthView *image.Gray
}

// Located returns how many objects have a world point.
func (r *Result) Located() int {
	n := 0
	for _, o := range r.Objects {
		if o.Located() {
			n++
		}
	}
	return n
}

// PipelineConfig holds the per-frame processing stages.
type PipelineConfig struct {
	Encoder     Encoder
	Detector    detector.Detector
	Postprocess detector.Postprocessor
	Selector    spatial.Selector
	Locator     spatial.Locator
	Renderer    depthviz.Renderer
	Logger      *zap.SugaredLogger
}

// Pipeline runs detection, mapping, sampling, projection and depth rendering
// for one pair at a time. It is not safe for concurrent use.
type Pipeline struct {
	cfg       PipelineConfig
	depthView *image.Gray
}

// NewPipeline creates a Pipeline. A nil Encoder uses JPEG at the default quality.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Encoder == nil {
		cfg.Encoder = JPEGEncoder(frame.DefaultJPEGQuality)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Pipeline{cfg: cfg}
}

// Detector returns the detection client in use.
func (p *Pipeline) Detector() detector.Detector {
	return p.cfg.Detector
}

// Process runs the full per-frame pass over pair. Errors mean the frame is
// skipped; per-detection depth failures are recorded on the Object instead.
// Nothing in the Result references pair's buffers.
func (p *Pipeline) Process(ctx context.Context, pair *frame.Pair) (*Result, error) {
	if err := pair.Validate(); err != nil {
		return nil, err
	}

	mapper, err := p.cfg.Selector.For(pair)
	if err != nil {
		return nil, err
	}

	encoded, err := p.cfg.Encoder(pair)
	if err != nil {
		return nil, fmt.Errorf("encode color frame: %w", err)
	}

	dets, err := p.cfg.Detector.Detect(ctx, encoded)
	if err != nil {
		return nil, err
	}
	if p.cfg.Postprocess != nil {
		dets = p.cfg.Postprocess(dets)
	}

	res := &Result{
		Seq:       pair.Seq,
		Timestamp: pair.Timestamp,
		Geometry:  pair.Geometry,
		Objects:   make([]Object, 0, len(dets)),
	}

	for _, d := range dets {
		loc, err := p.cfg.Locator.Locate(pair, mapper, d.Centroid())
		if err != nil && !errors.Is(err, spatial.ErrDepthOutOfBounds) && !errors.Is(err, spatial.ErrDepthInvalid) {
			return nil, err
		}
		if err != nil {
			p.cfg.Logger.Debugw("no world point", "seq", pair.Seq, "label", d.Label, "depth_px", loc.Depth, "reason", err)
		}

		res.Objects = append(res.Objects, Object{Detection: d, Location: loc, Err: err})
		res.Overlay = append(res.Overlay, overlay.ForDetection(d, loc, err)...)
	}

	res.DepthView = p.renderDepth(pair)
	return res, nil
}

func (p *Pipeline) renderDepth(pair *frame.Pair) *image.Gray {
	bounds := image.Rect(0, 0, pair.DepthWidth, pair.DepthHeight)
	if p.depthView == nil || p.depthView.Bounds() != bounds {
		p.depthView = image.NewGray(bounds)
	}
	p.cfg.Renderer.RenderInto(p.depthView, pair.Depth)
	return p.depthView
}
