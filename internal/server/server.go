// Package server provides the HTTP preview server for depthlens: annotated
// MJPEG views, a WebSocket result stream, run stats and calibration profiles.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ayusman/depthlens/internal/app"
	"github.com/ayusman/depthlens/internal/frame"
	"github.com/ayusman/depthlens/internal/server/api"
	"github.com/ayusman/depthlens/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	Store *store.Store
	// StaticDir, if set, is served at /.
	StaticDir string
	// Stats, if set, backs /api/stats.
	Stats       func() app.StatsSnapshot
	Colorize    bool
	JPEGQuality int
	Logger      *zap.SugaredLogger
}

// Server represents the HTTP server. It is also an app.Sink: every published
// frame updates the streams and the result feed.
type Server struct {
	config  Config
	logger  *zap.SugaredLogger
	mux     *http.ServeMux
	start   time.Time
	color   *FrameBuffer
	depth   *FrameBuffer
	results *ResultsHub
}

var _ app.Sink = (*Server)(nil)

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	s := &Server{
		config:  config,
		logger:  logger,
		mux:     http.NewServeMux(),
		start:   time.Now(),
		color:   NewFrameBuffer(),
		depth:   NewFrameBuffer(),
		results: NewResultsHub(logger),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/stream", NewStreamHandler(s.color))
	s.mux.Handle("/api/depth", NewStreamHandler(s.depth))
	s.mux.Handle("/api/results", s.results)

	if s.config.Stats != nil {
		s.mux.HandleFunc("/api/stats", s.handleStats)
	}

	if s.config.Store != nil {
		calibrations := api.NewCalibrationHandler(s.config.Store)
		s.mux.Handle("/api/calibrations", calibrations)
		s.mux.Handle("/api/calibrations/", calibrations)
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Publish implements app.Sink. Views are only rendered while someone watches.
func (s *Server) Publish(pair *frame.Pair, res *app.Result) {
	if s.results.Clients() > 0 {
		msg, err := encodeResult(res)
		if err != nil {
			s.logger.Warnw("encode result", "seq", res.Seq, "error", err)
		} else {
			s.results.Broadcast(msg)
		}
	}

	if s.color.Viewers() == 0 && s.depth.Viewers() == 0 {
		return
	}

	colorJPEG, depthJPEG, err := renderViews(pair, res, s.config.Colorize, s.config.JPEGQuality)
	if err != nil {
		s.logger.Warnw("render views", "seq", res.Seq, "error", err)
		return
	}
	s.color.Set(colorJPEG)
	if depthJPEG != nil {
		s.depth.Set(depthJPEG)
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(s.start).String(),
		"clients": s.results.Clients(),
	})
}

// handleStats handles GET requests to /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	api.WriteJSON(w, http.StatusOK, s.config.Stats())
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Infow("preview server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := multierr.Combine(srv.Shutdown(shutdownCtx), s.results.Close())
	if serveErr := <-errc; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		err = multierr.Append(err, serveErr)
	}
	return err
}
