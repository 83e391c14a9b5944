package app

import (
	"go.uber.org/zap"

	"github.com/ayusman/depthlens/internal/frame"
)

// Sink receives every processed frame. Publish is called synchronously on
// the pipeline goroutine before pair is released, so a Sink must copy
// anything it keeps and should return quickly.
type Sink interface {
	Publish(pair *frame.Pair, res *Result)
}

// LogSink writes each located object to the logger.
type LogSink struct {
	Logger *zap.SugaredLogger
}

func (s LogSink) Publish(_ *frame.Pair, res *Result) {
	for _, o := range res.Objects {
		if !o.Located() {
			s.Logger.Debugw("object",
				"seq", res.Seq,
				"label", o.Detection.Label,
				"confidence", o.Detection.Confidence,
				"skipped", o.Err)
			continue
		}
		s.Logger.Infow("object",
			"seq", res.Seq,
			"label", o.Detection.Label,
			"confidence", o.Detection.Confidence,
			"x", o.Location.World.X,
			"y", o.Location.World.Y,
			"z", o.Location.World.Z)
	}
}
