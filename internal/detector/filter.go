package detector

import "strings"

// Postprocessor filters or rewrites a frame's detections.
type Postprocessor func([]Detection) []Detection

// NewConfidenceFilter drops detections below min.
func NewConfidenceFilter(min float64) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Confidence >= min {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewLabelFilter keeps only the listed labels (case-insensitive). An empty
// list keeps everything.
func NewLabelFilter(labels []string) Postprocessor {
	if len(labels) == 0 {
		return func(in []Detection) []Detection { return in }
	}

	allowed := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		allowed[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}

	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if _, ok := allowed[strings.ToLower(d.Label)]; ok {
				out = append(out, d)
			}
		}
		return out
	}
}

// Chain applies ps in order. Nil entries are skipped.
func Chain(ps ...Postprocessor) Postprocessor {
	return func(in []Detection) []Detection {
		for _, p := range ps {
			if p != nil {
				in = p(in)
			}
		}
		return in
	}
}
