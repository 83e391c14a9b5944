package server

import (
	"encoding/json"

	"github.com/ayusman/depthlens/internal/app"
)

type worldPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type objectMessage struct {
	Label      string      `json:"label"`
	Confidence float64     `json:"confidence"`
	BBox       [4]int      `json:"bbox"`
	Centroid   [2]int      `json:"centroid"`
	DepthPixel [2]int      `json:"depth_px"`
	DepthMm    uint16      `json:"depth_mm,omitempty"`
	World      *worldPoint `json:"world,omitempty"`
	Skipped    string      `json:"skipped,omitempty"`
}

type resultMessage struct {
	Seq       uint64          `json:"seq"`
	Timestamp int64           `json:"timestamp"`
	Objects   []objectMessage `json:"objects"`
}

// encodeResult renders res as the JSON message sent to results clients.
func encodeResult(res *app.Result) ([]byte, error) {
	msg := resultMessage{
		Seq:       res.Seq,
		Timestamp: res.Timestamp.UnixMilli(),
		Objects:   make([]objectMessage, 0, len(res.Objects)),
	}

	for _, o := range res.Objects {
		box := o.Detection.Box
		om := objectMessage{
			Label:      o.Detection.Label,
			Confidence: o.Detection.Confidence,
			BBox:       [4]int{box.Min.X, box.Min.Y, box.Max.X, box.Max.Y},
			Centroid:   [2]int{o.Location.Color.X, o.Location.Color.Y},
			DepthPixel: [2]int{o.Location.Depth.X, o.Location.Depth.Y},
		}
		if o.Located() {
			om.DepthMm = o.Location.DepthMm
			om.World = &worldPoint{X: o.Location.World.X, Y: o.Location.World.Y, Z: o.Location.World.Z}
		} else {
			om.Skipped = o.Err.Error()
		}
		msg.Objects = append(msg.Objects, om)
	}

	return json.Marshal(msg)
}
