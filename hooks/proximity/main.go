// Package main is an example hook. It reports located objects nearer than a
// configured distance and optionally appends them to a JSON lines file.
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Event is the input from the hook dispatcher.
type Event struct {
	Hook    string          `json:"hook"`
	Seq     uint64          `json:"seq"`
	Objects []Object        `json:"objects"`
	Config  json.RawMessage `json:"config"`
}

// Object is one located detection, world coordinates in meters.
type Object struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	Centroid   [2]int     `json:"centroid"`
	DepthMm    uint16     `json:"depth_mm"`
	World      [3]float64 `json:"world"`
}

// Response is the output to the hook dispatcher.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Settings come from the "config" object of hook.json.
type Settings struct {
	MaxDistance float64 `json:"max_distance_m"`
	Log         string  `json:"log"`
}

type nearObject struct {
	Seq      uint64  `json:"seq"`
	Label    string  `json:"label"`
	Distance float64 `json:"distance_m"`
}

func main() {
	var ev Event
	if err := json.NewDecoder(os.Stdin).Decode(&ev); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode event: %v", err))
		return
	}

	settings := Settings{MaxDistance: 1.5}
	if len(ev.Config) > 0 {
		if err := json.Unmarshal(ev.Config, &settings); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	near := nearObjects(ev, settings.MaxDistance)
	if settings.Log != "" && len(near) > 0 {
		if err := appendLog(settings.Log, near); err != nil {
			writeErrorResponse(fmt.Sprintf("log failed: %v", err))
			return
		}
	}

	data, _ := json.Marshal(map[string]int{"near": len(near)})
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

// nearObjects returns the objects within maxDistance meters of the camera.
func nearObjects(ev Event, maxDistance float64) []nearObject {
	var out []nearObject
	for _, o := range ev.Objects {
		d := math.Sqrt(o.World[0]*o.World[0] + o.World[1]*o.World[1] + o.World[2]*o.World[2])
		if d <= maxDistance {
			out = append(out, nearObject{Seq: ev.Seq, Label: o.Label, Distance: d})
		}
	}
	return out
}

func appendLog(path string, near []nearObject) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, n := range near {
		if err := enc.Encode(n); err != nil {
			return err
		}
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: false,
		Error:   errMsg,
	})
}
