package detector

import (
	"context"
	"image"
	"sync"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu         sync.Mutex
	detections []Detection
	err        error
	calls      int
	last       []byte
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetDetections sets the detections that will be returned by Detect.
func (m *MockDetector) SetDetections(dets []Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections = dets
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured detections or error. Each call gets its
// own copy of the slice.
func (m *MockDetector) Detect(ctx context.Context, encoded []byte) ([]Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.last = encoded
	if m.err != nil {
		return nil, m.err
	}
	if m.detections == nil {
		return nil, nil
	}
	out := make([]Detection, len(m.detections))
	copy(out, m.detections)
	return out, nil
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the image bytes of the latest Detect call.
func (m *MockDetector) LastRequest() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// PersonDetection returns a preset detection of a person whose box spans
// (100,100)-(200,200), centroid (150,150).
func PersonDetection() Detection {
	return Detection{
		Label:      "person",
		Confidence: 0.87,
		Box:        image.Rect(100, 100, 200, 200),
	}
}
