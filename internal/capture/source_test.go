package capture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/depthlens/internal/frame"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
}

func TestScanReplayDir(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "color_0002.jpg")
	touch(t, dir, "color_0001.png")
	touch(t, dir, "depth_0001.png")
	touch(t, dir, "depth_0002.png")
	touch(t, dir, "color_0003.png")
	touch(t, dir, "notes.txt")
	touch(t, dir, "depth_0004.jpg")

	entries, err := scanReplayDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, filepath.Join(dir, "color_0001.png"), entries[0].color)
	assert.Equal(t, filepath.Join(dir, "depth_0001.png"), entries[0].depth)
	assert.Equal(t, filepath.Join(dir, "color_0002.jpg"), entries[1].color)
	assert.Empty(t, entries[2].depth, "color without depth is kept and skipped at read time")
}

func TestReplaySource_OpenErrors(t *testing.T) {
	t.Run("missing dir", func(t *testing.T) {
		src := NewReplaySource(filepath.Join(t.TempDir(), "nope"), testGeom, false)
		assert.Error(t, src.Open())
		assert.False(t, src.IsOpen())
	})

	t.Run("empty dir", func(t *testing.T) {
		src := NewReplaySource(t.TempDir(), testGeom, false)
		assert.Error(t, src.Open())
	})

	t.Run("read before open", func(t *testing.T) {
		src := NewReplaySource(t.TempDir(), testGeom, false)
		assert.ErrorIs(t, src.ReadFrame(frame.NewPair(testGeom)), ErrSourceNotOpen)
	})
}

func writeRecordedPair(t *testing.T, dir, key string, depthMm int16, withDepth bool) {
	t.Helper()

	color := gocv.NewMatWithSize(testGeom.ColorHeight, testGeom.ColorWidth, gocv.MatTypeCV8UC3)
	defer color.Close()
	require.True(t, gocv.IMWrite(filepath.Join(dir, "color_"+key+".png"), color))

	if !withDepth {
		return
	}
	depth := gocv.NewMatWithSize(testGeom.DepthHeight, testGeom.DepthWidth, gocv.MatTypeCV16UC1)
	defer depth.Close()
	for y := 0; y < testGeom.DepthHeight; y++ {
		for x := 0; x < testGeom.DepthWidth; x++ {
			depth.SetShortAt(y, x, depthMm)
		}
	}
	require.True(t, gocv.IMWrite(filepath.Join(dir, "depth_"+key+".png"), depth))
}

func TestReplaySource_Playback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test")
	}

	dir := t.TempDir()
	writeRecordedPair(t, dir, "0001", 16000, true)
	writeRecordedPair(t, dir, "0002", 0, false)

	src := NewReplaySource(dir, testGeom, false)
	require.NoError(t, src.Open())
	defer src.Close()
	assert.Equal(t, 2, src.Len())

	dst := frame.NewPair(testGeom)
	require.NoError(t, src.ReadFrame(dst))
	assert.Equal(t, uint16(16000), dst.Depth[1*dst.DepthWidth+1])

	assert.ErrorIs(t, src.ReadFrame(dst), frame.ErrFrameUnavailable)
	assert.ErrorIs(t, src.ReadFrame(dst), ErrExhausted)
}

func TestReplaySource_GeometryMismatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test")
	}

	dir := t.TempDir()
	writeRecordedPair(t, dir, "0001", 100, true)

	other := frame.Geometry{ColorWidth: 16, ColorHeight: 12, DepthWidth: 4, DepthHeight: 3}
	src := NewReplaySource(dir, other, true)
	require.NoError(t, src.Open())

	err := src.ReadFrame(frame.NewPair(other))
	assert.ErrorIs(t, err, frame.ErrGeometryMismatch)
}
