package depthviz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	r := Renderer{MaxDepthMm: 4000, ShiftBits: 3, NearBright: true}

	t.Run("zero is the near extreme", func(t *testing.T) {
		img, err := r.Render([]uint16{0}, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, uint8(255), img.GrayAt(0, 0).Y)
	})

	t.Run("max and beyond clamp to the far extreme", func(t *testing.T) {
		raw := []uint16{4000 << 3, 4001 << 3, 8000 << 3, 0xFFFF}
		img, err := r.Render(raw, 4, 1)
		require.NoError(t, err)
		for x := 0; x < 4; x++ {
			assert.Equal(t, uint8(0), img.GrayAt(x, 0).Y, "x=%d", x)
		}
	})

	t.Run("linear in between", func(t *testing.T) {
		img, err := r.Render([]uint16{2000 << 3}, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, uint8(255-127), img.GrayAt(0, 0).Y)
	})

	t.Run("player index bits are ignored", func(t *testing.T) {
		img, err := r.Render([]uint16{0x7}, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, uint8(255), img.GrayAt(0, 0).Y)
	})

	t.Run("far bright flips the ramp", func(t *testing.T) {
		far := Renderer{MaxDepthMm: 4000, ShiftBits: 3}
		img, err := far.Render([]uint16{0, 4000 << 3}, 2, 1)
		require.NoError(t, err)
		assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y)
		assert.Equal(t, uint8(255), img.GrayAt(1, 0).Y)
	})

	t.Run("zero max falls back to default", func(t *testing.T) {
		def := Renderer{ShiftBits: 3}
		img, err := def.Render([]uint16{DefaultMaxDepthMm << 3}, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, uint8(255), img.GrayAt(0, 0).Y)
	})
}

func TestRenderer_RenderErrors(t *testing.T) {
	r := Renderer{MaxDepthMm: 4000, ShiftBits: 3}

	_, err := r.Render(nil, 0, 10)
	assert.Error(t, err)

	_, err = r.Render(make([]uint16, 5), 3, 2)
	assert.Error(t, err)
}

func TestMat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test")
	}

	r := Renderer{MaxDepthMm: 4000, ShiftBits: 3, NearBright: true}
	gray, err := r.Render(make([]uint16, 16*8), 16, 8)
	require.NoError(t, err)

	for _, colorize := range []bool{false, true} {
		m, err := Mat(gray, colorize)
		require.NoError(t, err)
		assert.Equal(t, 16, m.Cols())
		assert.Equal(t, 8, m.Rows())
		assert.Equal(t, 3, m.Channels())
		m.Close()
	}
}
