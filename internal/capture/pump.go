package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/ayusman/depthlens/internal/frame"
)

// Pump reads pairs from a Source at a fixed rate and offers them to a Slot.
// It owns the acquisition side of the pipeline: pairs come from Pool and are
// handed to Slot, which releases any it overwrites.
type Pump struct {
	source Source
	pool   *frame.Pool
	slot   *frame.Slot
	fps    int
	logger *zap.SugaredLogger

	seq         uint64
	received    atomic.Uint64
	unavailable atomic.Uint64
}

// NewPump creates a Pump. fps <= 0 reads as fast as the source allows.
func NewPump(source Source, pool *frame.Pool, slot *frame.Slot, fps int, logger *zap.SugaredLogger) *Pump {
	return &Pump{
		source: source,
		pool:   pool,
		slot:   slot,
		fps:    fps,
		logger: logger,
	}
}

// Run pumps until ctx is done, the source is exhausted, or the source fails.
// It closes the slot on return. Exhaustion and cancellation return nil.
func (p *Pump) Run(ctx context.Context) error {
	defer p.slot.Close()

	var tick <-chan time.Time
	if p.fps > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(p.fps))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		pair := p.pool.Get()
		err := p.source.ReadFrame(pair)
		switch {
		case err == nil:
		case errors.Is(err, frame.ErrFrameUnavailable):
			p.pool.Put(pair)
			p.unavailable.Inc()
			p.logger.Debugw("frame unavailable", "error", err)
			continue
		case errors.Is(err, ErrExhausted):
			p.pool.Put(pair)
			p.logger.Infow("source exhausted", "frames", p.received.Load())
			return nil
		default:
			p.pool.Put(pair)
			return fmt.Errorf("read frame: %w", err)
		}

		p.seq++
		pair.Seq = p.seq
		if pair.Timestamp.IsZero() {
			pair.Timestamp = time.Now()
		}
		p.received.Inc()
		p.slot.Put(pair)
	}
}

// Received returns how many pairs were offered to the slot.
func (p *Pump) Received() uint64 {
	return p.received.Load()
}

// Unavailable returns how many acquisition cycles had no complete pair.
func (p *Pump) Unavailable() uint64 {
	return p.unavailable.Load()
}
