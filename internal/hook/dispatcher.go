package hook

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/ayusman/depthlens/internal/app"
	"github.com/ayusman/depthlens/internal/frame"
)

// DefaultQueueSize bounds the events waiting for a hook run.
const DefaultQueueSize = 16

type job struct {
	hook  *Hook
	event *Event
}

// Dispatcher is an app.Sink that turns located objects into hook runs.
// Runs happen on the Run goroutine; when the queue is full events are
// dropped rather than stalling the pipeline.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	cooldown time.Duration
	logger   *zap.SugaredLogger
	now      func() time.Time

	mu      sync.Mutex
	lastRun map[string]time.Time
	queue   chan job
	closed  bool

	dispatched atomic.Uint64
	dropped    atomic.Uint64
	failed     atomic.Uint64
}

// NewDispatcher creates a Dispatcher over the hooks known to m. A hook
// fires at most once per cooldown.
func NewDispatcher(m *Manager, e *Executor, cooldown time.Duration, logger *zap.SugaredLogger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dispatcher{
		manager:  m,
		executor: e,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
		lastRun:  make(map[string]time.Time),
		queue:    make(chan job, DefaultQueueSize),
	}
}

// Publish implements app.Sink.
func (d *Dispatcher) Publish(_ *frame.Pair, res *app.Result) {
	hooks := d.manager.List()
	if len(hooks) == 0 || res.Located() == 0 {
		return
	}

	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	for _, h := range hooks {
		objects := matching(h.Manifest, res.Objects)
		if len(objects) == 0 {
			continue
		}
		if last, ok := d.lastRun[h.Manifest.Name]; ok && now.Sub(last) < d.cooldown {
			continue
		}

		ev := &Event{
			Hook:      h.Manifest.Name,
			Seq:       res.Seq,
			Timestamp: res.Timestamp,
			Objects:   objects,
			Config:    h.Manifest.Config,
		}
		select {
		case d.queue <- job{hook: h, event: ev}:
			d.lastRun[h.Manifest.Name] = now
		default:
			d.dropped.Inc()
			d.logger.Debugw("hook queue full", "hook", h.Manifest.Name, "seq", res.Seq)
		}
	}
}

func matching(m Manifest, objects []app.Object) []Object {
	var out []Object
	for _, o := range objects {
		if !o.Located() || !m.Accepts(o.Detection.Label, o.Detection.Confidence) {
			continue
		}
		c := o.Detection.Centroid()
		out = append(out, Object{
			Label:      o.Detection.Label,
			Confidence: o.Detection.Confidence,
			Centroid:   [2]int{c.X, c.Y},
			DepthMm:    o.Location.DepthMm,
			World:      [3]float64{o.Location.World.X, o.Location.World.Y, o.Location.World.Z},
		})
	}
	return out
}

// Run executes queued events until Close has been called and the queue is
// drained, or ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-d.queue:
			if !ok {
				return
			}
			d.run(ctx, j)
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, j job) {
	resp, err := d.executor.Execute(ctx, j.hook, j.event)
	if err != nil {
		d.failed.Inc()
		d.logger.Warnw("hook failed", "hook", j.hook.Manifest.Name, "seq", j.event.Seq, "error", err)
		return
	}
	d.dispatched.Inc()
	d.logger.Debugw("hook ran", "hook", j.hook.Manifest.Name, "seq", j.event.Seq, "data", string(resp.Data))
}

// Close stops accepting events. Run finishes what is already queued.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

// Dispatched returns how many hook runs succeeded.
func (d *Dispatcher) Dispatched() uint64 { return d.dispatched.Load() }

// Dropped returns how many events were discarded on a full queue.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Failed returns how many hook runs returned an error.
func (d *Dispatcher) Failed() uint64 { return d.failed.Load() }
