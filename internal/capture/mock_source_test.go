package capture

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/depthlens/internal/frame"
)

var testGeom = frame.Geometry{ColorWidth: 8, ColorHeight: 6, DepthWidth: 4, DepthHeight: 3}

func filledPair(g frame.Geometry, depth uint16) *frame.Pair {
	p := frame.NewPair(g)
	for i := range p.Depth {
		p.Depth[i] = depth
	}
	for i := range p.Color {
		p.Color[i] = byte(depth)
	}
	return p
}

func TestMockSource_Playback(t *testing.T) {
	src := NewMockSource(testGeom, []*frame.Pair{filledPair(testGeom, 1), filledPair(testGeom, 2)}, false)

	dst := frame.NewPair(testGeom)
	require.ErrorIs(t, src.ReadFrame(dst), ErrSourceNotOpen)

	require.NoError(t, src.Open())
	defer src.Close()

	require.NoError(t, src.ReadFrame(dst))
	assert.Equal(t, uint16(1), dst.Depth[0])

	require.NoError(t, src.ReadFrame(dst))
	assert.Equal(t, uint16(2), dst.Depth[0])
	assert.Equal(t, byte(2), dst.Color[0])

	assert.ErrorIs(t, src.ReadFrame(dst), ErrExhausted)
	assert.Equal(t, 3, src.Reads())
}

func TestMockSource_Loop(t *testing.T) {
	src := NewMockSource(testGeom, []*frame.Pair{filledPair(testGeom, 7)}, true)
	require.NoError(t, src.Open())
	defer src.Close()

	dst := frame.NewPair(testGeom)
	for i := 0; i < 5; i++ {
		require.NoError(t, src.ReadFrame(dst), "iteration %d", i)
	}
}

func TestMockSource_FailAt(t *testing.T) {
	src := NewMockSource(testGeom, []*frame.Pair{filledPair(testGeom, 1)}, true)
	boom := errors.New("boom")
	src.FailAt(1, boom)
	require.NoError(t, src.Open())

	dst := frame.NewPair(testGeom)
	require.NoError(t, src.ReadFrame(dst))
	assert.ErrorIs(t, src.ReadFrame(dst), boom)
	require.NoError(t, src.ReadFrame(dst))
}

func TestMockSource_CopiesRegistration(t *testing.T) {
	withTable := filledPair(testGeom, 3)
	table := withTable.EnsureRegistration()
	table[0] = image.Pt(2, 1)

	src := NewMockSource(testGeom, []*frame.Pair{withTable}, false)
	require.NoError(t, src.Open())

	dst := frame.NewPair(testGeom)
	require.NoError(t, src.ReadFrame(dst))
	require.True(t, dst.HasRegistration())
	assert.Equal(t, image.Pt(2, 1), dst.Registration[0])
}
