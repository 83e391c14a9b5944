// Package hook runs external executables when the pipeline locates objects
// they are interested in.
package hook

import (
	"encoding/json"
	"time"
)

// ManifestFile is the manifest every hook directory must contain.
const ManifestFile = "hook.json"

// Manifest describes a hook and the objects that trigger it.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`
	// Labels trigger the hook; empty means any label.
	Labels        []string        `json:"labels"`
	MinConfidence float64         `json:"minConfidence,omitempty"`
	Config        json.RawMessage `json:"config,omitempty"`
}

// Accepts reports whether a located object with label and confidence
// triggers the hook.
func (m Manifest) Accepts(label string, confidence float64) bool {
	if confidence < m.MinConfidence {
		return false
	}
	if len(m.Labels) == 0 {
		return true
	}
	for _, l := range m.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Event is written to the hook's stdin as JSON.
type Event struct {
	Hook      string          `json:"hook"`
	Seq       uint64          `json:"seq"`
	Timestamp time.Time       `json:"timestamp"`
	Objects   []Object        `json:"objects"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Object is one located detection, world coordinates in meters.
type Object struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	Centroid   [2]int     `json:"centroid"`
	DepthMm    uint16     `json:"depth_mm"`
	World      [3]float64 `json:"world"`
}

// Response is what a hook prints on stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}
