package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/depthlens/internal/app"
	"github.com/ayusman/depthlens/internal/capture"
	"github.com/ayusman/depthlens/internal/config"
	"github.com/ayusman/depthlens/internal/depthviz"
	"github.com/ayusman/depthlens/internal/detector"
	"github.com/ayusman/depthlens/internal/hook"
	"github.com/ayusman/depthlens/internal/server"
	"github.com/ayusman/depthlens/internal/spatial"
	"github.com/ayusman/depthlens/internal/store"
)

var (
	runSourceDir string
	runLoop      bool
	runServe     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the detection pipeline over the configured source",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("source") {
			cfg.Source.Dir = runSourceDir
		}
		if cmd.Flags().Changed("loop") {
			cfg.Source.Loop = runLoop
		}
		if cmd.Flags().Changed("serve") {
			cfg.Server.Enabled = runServe
		}
		return runPipeline(cmd.Context(), cfg)
	},
}

func init() {
	runCmd.Flags().StringVar(&runSourceDir, "source", "", "directory of recorded color_<n>/depth_<n> pairs")
	runCmd.Flags().BoolVar(&runLoop, "loop", false, "replay the source forever")
	runCmd.Flags().BoolVar(&runServe, "serve", false, "start the preview server")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(ctx context.Context, cfg config.Config) error {
	if cfg.Source.Dir == "" {
		return errors.New("no source directory: set [source] dir or --source")
	}

	var st *store.Store
	if cfg.Mapping.Profile != "" || cfg.Server.Enabled {
		var err error
		if st, err = openStore(); err != nil {
			return err
		}
		defer st.Close()
	}

	offset, err := resolveOffset(cfg, st)
	if err != nil {
		return err
	}
	strategy, err := spatial.ParseStrategy(cfg.Mapping.Strategy)
	if err != nil {
		return err
	}

	var svc *detector.Service
	if len(cfg.Detector.Launch) > 0 {
		svc = detector.NewService(cfg.Detector.Launch, logger)
		if err := svc.Start(); err != nil {
			return fmt.Errorf("launch detection service: %w", err)
		}
	}

	client, err := detector.NewZMQClient(ctx, cfg.ClientConfig(), logger)
	if err != nil {
		if svc != nil {
			svc.Stop()
		}
		return err
	}
	logger.Infow("detection client ready", "endpoint", client.Endpoint())

	pipeline := app.NewPipeline(app.PipelineConfig{
		Encoder:     app.JPEGEncoder(cfg.Detector.JPEGQuality),
		Detector:    client,
		Postprocess: cfg.Postprocessor(),
		Selector: spatial.Selector{
			Strategy: strategy,
			Scaling:  spatial.ScalingMapper{Offset: offset},
		},
		Locator: spatial.Locator{
			Sampler:    spatial.Sampler{ShiftBits: cfg.Depth.ShiftBits},
			Intrinsics: cfg.Camera,
		},
		Renderer: depthviz.Renderer{
			MaxDepthMm: cfg.Depth.MaxDepthMm,
			ShiftBits:  cfg.Depth.ShiftBits,
			NearBright: cfg.Depth.NearBright,
		},
		Logger: logger,
	})

	a := app.New(app.Config{
		Source:   capture.NewReplaySource(cfg.Source.Dir, cfg.Geometry(), cfg.Source.Loop),
		Pipeline: pipeline,
		FPS:      cfg.Source.FPS,
		Sinks:    []app.Sink{app.LogSink{Logger: logger}},
		Logger:   logger,
		Service:  svc,
	})
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warnw("shutdown", "error", err)
		}
	}()

	dispatcher, err := startHooks(cfg)
	if err != nil {
		return err
	}
	if dispatcher != nil {
		a.AddSink(dispatcher)
	}

	g, gctx := errgroup.WithContext(ctx)
	if dispatcher != nil {
		g.Go(func() error {
			dispatcher.Run(gctx)
			return nil
		})
	}

	if !cfg.Server.Enabled {
		g.Go(func() error {
			defer closeHooks(dispatcher)
			return a.Run(gctx)
		})
		return g.Wait()
	}

	srv := server.New(server.Config{
		Store:       st,
		StaticDir:   cfg.Server.StaticDir,
		Stats:       a.Stats,
		Colorize:    cfg.Depth.Colorize,
		JPEGQuality: cfg.Detector.JPEGQuality,
		Logger:      logger,
	})
	a.AddSink(srv)

	// The server outlives a finished replay until interrupted.
	g.Go(func() error {
		defer closeHooks(dispatcher)
		return a.Run(gctx)
	})
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.Server.Addr)
	})
	return g.Wait()
}

// startHooks discovers the configured hooks. It returns nil when hooks are
// disabled or none were found.
func startHooks(cfg config.Config) (*hook.Dispatcher, error) {
	if cfg.Hooks.Dir == "" {
		return nil, nil
	}

	m := hook.NewManager(cfg.Hooks.Dir)
	if err := m.Discover(); err != nil {
		return nil, fmt.Errorf("discover hooks: %w", err)
	}
	hooks := m.List()
	if len(hooks) == 0 {
		logger.Warnw("no hooks found", "dir", m.Dir())
		return nil, nil
	}
	for _, h := range hooks {
		logger.Infow("hook loaded", "name", h.Manifest.Name, "labels", h.Manifest.Labels)
	}

	return hook.NewDispatcher(m,
		hook.NewExecutor(time.Duration(cfg.Hooks.Timeout)),
		time.Duration(cfg.Hooks.Cooldown),
		logger), nil
}

func closeHooks(d *hook.Dispatcher) {
	if d != nil {
		d.Close()
	}
}

// resolveOffset returns the configured offset, or the stored profile's when
// one is named. A profile must match the source geometry.
func resolveOffset(cfg config.Config, st *store.Store) (image.Point, error) {
	offset := image.Pt(cfg.Mapping.OffsetX, cfg.Mapping.OffsetY)
	if cfg.Mapping.Profile == "" {
		return offset, nil
	}

	p, err := st.Profiles().GetByName(cfg.Mapping.Profile)
	if err != nil {
		return image.Point{}, fmt.Errorf("calibration profile %q: %w", cfg.Mapping.Profile, err)
	}
	if p.Geometry != cfg.Geometry() {
		return image.Point{}, fmt.Errorf("calibration profile %q is for %s, source is %s",
			p.Name, p.Geometry, cfg.Geometry())
	}

	logger.Infow("using calibration profile", "name", p.Name, "offset_x", p.Offset.X, "offset_y", p.Offset.Y)
	return p.Offset, nil
}
