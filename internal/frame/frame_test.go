package frame

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testGeometry = Geometry{ColorWidth: 8, ColorHeight: 6, DepthWidth: 4, DepthHeight: 3}

func TestGeometry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		geom    Geometry
		wantErr bool
	}{
		{"valid", testGeometry, false},
		{"zero color width", Geometry{ColorHeight: 6, DepthWidth: 4, DepthHeight: 3}, true},
		{"negative depth height", Geometry{ColorWidth: 8, ColorHeight: 6, DepthWidth: 4, DepthHeight: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.geom.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPair_Validate(t *testing.T) {
	t.Run("fresh pair is valid", func(t *testing.T) {
		assert.NoError(t, NewPair(testGeometry).Validate())
	})

	t.Run("nil pair is unavailable", func(t *testing.T) {
		var p *Pair
		assert.ErrorIs(t, p.Validate(), ErrFrameUnavailable)
	})

	t.Run("short depth buffer", func(t *testing.T) {
		p := NewPair(testGeometry)
		p.Depth = p.Depth[:5]
		assert.ErrorIs(t, p.Validate(), ErrGeometryMismatch)
	})

	t.Run("registration sized for color stream", func(t *testing.T) {
		p := NewPair(testGeometry)
		reg := p.EnsureRegistration()
		assert.Len(t, reg, testGeometry.ColorWidth*testGeometry.ColorHeight)
		assert.True(t, p.HasRegistration())
		assert.NoError(t, p.Validate())

		p.Registration = p.Registration[:3]
		assert.ErrorIs(t, p.Validate(), ErrGeometryMismatch)
	})
}

func TestPool(t *testing.T) {
	pool := NewPool(testGeometry)

	t.Run("get returns sized pair", func(t *testing.T) {
		p := pool.Get()
		require.NotNil(t, p)
		assert.Equal(t, testGeometry, p.Geometry)
		assert.NoError(t, p.Validate())
	})

	t.Run("get clears per-frame metadata", func(t *testing.T) {
		p := pool.Get()
		p.Seq = 42
		p.Timestamp = time.Now()
		p.EnsureRegistration()
		pool.Put(p)

		q := pool.Get()
		assert.Zero(t, q.Seq)
		assert.True(t, q.Timestamp.IsZero())
		assert.False(t, q.HasRegistration())
	})

	t.Run("foreign geometry is not pooled", func(t *testing.T) {
		other := NewPair(Geometry{ColorWidth: 2, ColorHeight: 2, DepthWidth: 2, DepthHeight: 2})
		pool.Put(other)
		assert.Equal(t, testGeometry, pool.Get().Geometry)
	})
}

func TestSlot_LatestWins(t *testing.T) {
	var released []uint64
	slot := NewSlot(func(p *Pair) { released = append(released, p.Seq) })

	assert.False(t, slot.Put(&Pair{Seq: 1}))
	assert.True(t, slot.Put(&Pair{Seq: 2}))
	assert.True(t, slot.Put(&Pair{Seq: 3}))

	p, err := slot.Take(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), p.Seq)
	assert.Equal(t, []uint64{1, 2}, released)
	assert.Equal(t, uint64(2), slot.Dropped())
}

func TestSlot_TakeBlocksUntilPut(t *testing.T) {
	slot := NewSlot(nil)

	got := make(chan uint64, 1)
	go func() {
		p, err := slot.Take(context.Background())
		if err == nil {
			got <- p.Seq
		}
	}()

	time.Sleep(20 * time.Millisecond)
	slot.Put(&Pair{Seq: 9})

	select {
	case seq := <-got:
		assert.Equal(t, uint64(9), seq)
	case <-time.After(time.Second):
		t.Fatal("Take did not return after Put")
	}
}

func TestSlot_Close(t *testing.T) {
	t.Run("pending pair survives close", func(t *testing.T) {
		slot := NewSlot(nil)
		slot.Put(&Pair{Seq: 5})
		slot.Close()

		p, err := slot.Take(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(5), p.Seq)

		_, err = slot.Take(context.Background())
		assert.ErrorIs(t, err, ErrSlotClosed)
	})

	t.Run("close wakes a blocked consumer", func(t *testing.T) {
		slot := NewSlot(nil)
		errCh := make(chan error, 1)
		go func() {
			_, err := slot.Take(context.Background())
			errCh <- err
		}()

		time.Sleep(20 * time.Millisecond)
		slot.Close()

		select {
		case err := <-errCh:
			assert.True(t, errors.Is(err, ErrSlotClosed))
		case <-time.After(time.Second):
			t.Fatal("Take did not return after Close")
		}
	})

	t.Run("put after close releases immediately", func(t *testing.T) {
		var released int
		slot := NewSlot(func(*Pair) { released++ })
		slot.Close()
		slot.Close()

		assert.True(t, slot.Put(&Pair{}))
		assert.Equal(t, 1, released)
	})

	t.Run("context cancellation", func(t *testing.T) {
		slot := NewSlot(nil)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := slot.Take(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
