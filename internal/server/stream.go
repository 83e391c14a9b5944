package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/atomic"
)

// FrameBuffer holds the latest encoded JPEG of one view and wakes MJPEG
// streams when it changes.
type FrameBuffer struct {
	mu      sync.Mutex
	data    []byte
	seq     uint64
	changed chan struct{}

	viewers atomic.Int64
}

// NewFrameBuffer creates an empty FrameBuffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{changed: make(chan struct{})}
}

// Set replaces the latest frame. data must not be modified afterwards.
func (b *FrameBuffer) Set(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = data
	b.seq++
	close(b.changed)
	b.changed = make(chan struct{})
}

// Next blocks until a frame newer than after is available.
func (b *FrameBuffer) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		b.mu.Lock()
		if b.seq > after && b.data != nil {
			data, seq := b.data, b.seq
			b.mu.Unlock()
			return data, seq, nil
		}
		ch := b.changed
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-ch:
		}
	}
}

// Viewers returns the number of connected streams.
func (b *FrameBuffer) Viewers() int64 {
	return b.viewers.Load()
}

// StreamHandler serves a FrameBuffer as MJPEG.
type StreamHandler struct {
	frames *FrameBuffer
}

// NewStreamHandler creates a new StreamHandler over frames.
func NewStreamHandler(frames *FrameBuffer) *StreamHandler {
	return &StreamHandler{frames: frames}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.frames.viewers.Inc()
	defer h.frames.viewers.Dec()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	var seq uint64
	for {
		data, next, err := h.frames.Next(r.Context(), seq)
		if err != nil {
			return
		}
		seq = next

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
		if _, err := w.Write(data); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
