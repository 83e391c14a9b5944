// Package app wires acquisition, the per-frame pipeline and the output sinks
// into the depthlens run loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/depthlens/internal/capture"
	"github.com/ayusman/depthlens/internal/detector"
	"github.com/ayusman/depthlens/internal/frame"
)

// Config holds configuration options for the application.
type Config struct {
	Source   capture.Source
	Pipeline *Pipeline
	// FPS is the acquisition rate; <= 0 reads as fast as the source allows.
	FPS    int
	Sinks  []Sink
	Logger *zap.SugaredLogger
	// Service, if set, is the locally launched detection service stopped on Close.
	Service *detector.Service
}

// App runs the pipeline over a source: one acquisition goroutine feeding a
// latest-frame-wins slot and one consumer processing pairs in order.
type App struct {
	config Config
	logger *zap.SugaredLogger
	stats  Stats

	mu      sync.RWMutex
	sinks   []Sink
	pump    *capture.Pump
	slot    *frame.Slot
	running bool
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &App{
		config: config,
		logger: logger,
		sinks:  append([]Sink(nil), config.Sinks...),
	}
}

// AddSink registers another output. Sinks added while running take effect
// from the next frame.
func (a *App) AddSink(s Sink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sinks = append(a.sinks, s)
}

func (a *App) isRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// Stats returns the current counters.
func (a *App) Stats() StatsSnapshot {
	snap := a.stats.snapshot()

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.pump != nil {
		snap.Received = a.pump.Received()
		snap.Unavailable = a.pump.Unavailable()
	}
	if a.slot != nil {
		snap.Dropped = a.slot.Dropped()
	}
	return snap
}

// Run processes frames until ctx is done, the source is exhausted, or
// acquisition fails. Only acquisition failures are returned.
func (a *App) Run(ctx context.Context) error {
	if a.config.Source == nil || a.config.Pipeline == nil {
		return errors.New("app needs a source and a pipeline")
	}

	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New("app already running")
	}
	if !a.config.Source.IsOpen() {
		if err := a.config.Source.Open(); err != nil {
			a.mu.Unlock()
			return fmt.Errorf("open source: %w", err)
		}
	}
	pool := frame.NewPool(a.config.Source.Geometry())
	a.slot = frame.NewSlot(pool.Put)
	a.pump = capture.NewPump(a.config.Source, pool, a.slot, a.config.FPS, a.logger)
	a.running = true
	slot, pump := a.slot, a.pump
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	a.logger.Infow("pipeline started", "geometry", pool.Geometry().String(), "fps", a.config.FPS)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pump.Run(gctx)
	})
	g.Go(func() error {
		a.consume(gctx, slot, pool)
		return nil
	})

	err := g.Wait()
	a.logger.Infow("pipeline stopped", "stats", a.Stats())
	return err
}

func (a *App) consume(ctx context.Context, slot *frame.Slot, pool *frame.Pool) {
	for {
		pair, err := slot.Take(ctx)
		if err != nil {
			return
		}
		a.processOne(ctx, pair)
		pool.Put(pair)
	}
}

func (a *App) processOne(ctx context.Context, pair *frame.Pair) {
	res, err := a.config.Pipeline.Process(ctx, pair)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.stats.recordSkip(err)
		if detector.Recoverable(err) || frameSkip(err) {
			a.logger.Warnw("frame skipped", "seq", pair.Seq, "error", err)
		} else {
			a.logger.Errorw("frame failed", "seq", pair.Seq, "error", err)
		}
		return
	}

	a.stats.recordResult(res)

	a.mu.RLock()
	sinks := a.sinks
	a.mu.RUnlock()
	for _, s := range sinks {
		s.Publish(pair, res)
	}
}

// Close releases the source, the detection client and any launched service.
func (a *App) Close() error {
	var err error
	if a.config.Source != nil {
		err = multierr.Append(err, a.config.Source.Close())
	}
	if a.config.Pipeline != nil && a.config.Pipeline.Detector() != nil {
		err = multierr.Append(err, a.config.Pipeline.Detector().Close())
	}
	if a.config.Service != nil {
		err = multierr.Append(err, a.config.Service.Stop())
	}
	return err
}
