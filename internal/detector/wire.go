package detector

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
)

// wireDetection is the JSON shape sent back by the detection service.
type wireDetection struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
	BBox       []int    `json:"bbox"`
}

// DecodeResponse parses a service reply: a JSON array of
// {"label", "confidence", "bbox": [x1, y1, x2, y2]}.
func DecodeResponse(data []byte) ([]Detection, error) {
	var raw []wireDetection
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: reply is not a list", ErrMalformedResponse)
	}

	out := make([]Detection, 0, len(raw))
	for i, w := range raw {
		if len(w.BBox) != 4 {
			return nil, fmt.Errorf("%w: detection %d has %d bbox values", ErrMalformedResponse, i, len(w.BBox))
		}
		if w.Confidence == nil {
			return nil, fmt.Errorf("%w: detection %d has no confidence", ErrMalformedResponse, i)
		}
		conf := *w.Confidence
		if math.IsNaN(conf) || conf < 0 || conf > 1 {
			return nil, fmt.Errorf("%w: detection %d confidence %v outside [0,1]", ErrMalformedResponse, i, conf)
		}

		out = append(out, Detection{
			Label:      w.Label,
			Confidence: conf,
			// image.Rect swaps inverted corners.
			Box: image.Rect(w.BBox[0], w.BBox[1], w.BBox[2], w.BBox[3]),
		})
	}

	return out, nil
}

// EncodeResponse is the inverse of DecodeResponse, used by fakes of the service.
func EncodeResponse(dets []Detection) ([]byte, error) {
	raw := make([]wireDetection, len(dets))
	for i, d := range dets {
		conf := d.Confidence
		raw[i] = wireDetection{
			Label:      d.Label,
			Confidence: &conf,
			BBox:       []int{d.Box.Min.X, d.Box.Min.Y, d.Box.Max.X, d.Box.Max.Y},
		}
	}
	return json.Marshal(raw)
}
