package h264

import (
	"testing"

	"github.com/gwuhaolin/flvpull/av"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSPSHigh1080(t *testing.T) {
	sps, err := ParseSPS(highSPS1080())
	require.NoError(t, err)
	assert.Equal(t, byte(100), sps.ProfileIDC)
	assert.Equal(t, "High", sps.ProfileString)
	assert.Equal(t, "4.0", sps.LevelString)
	assert.Equal(t, 8, sps.BitDepth)
	assert.Equal(t, 420, sps.ChromaFormat)
	assert.Equal(t, av.Size{Width: 1920, Height: 1080}, sps.CodecSize)
	assert.Equal(t, av.Size{Width: 1920, Height: 1080}, sps.PresentSize)
	assert.Equal(t, av.Size{Width: 1, Height: 1}, sps.SarRatio)
	assert.True(t, sps.FrameRate.Fixed)
	assert.Equal(t, 60000, sps.FrameRate.FPSNum)
	assert.Equal(t, 2002, sps.FrameRate.FPSDen)
	assert.InDelta(t, 29.97, sps.FrameRate.FPS, 0.01)
}

func TestParseSPSBaselineAnamorphic(t *testing.T) {
	sps, err := ParseSPS(baselineSPS360())
	require.NoError(t, err)
	assert.Equal(t, "Baseline", sps.ProfileString)
	assert.Equal(t, "3.0", sps.LevelString)
	assert.Equal(t, byte(0xc0), sps.ConstraintFlags)
	assert.Equal(t, av.Size{Width: 640, Height: 360}, sps.CodecSize)
	assert.Equal(t, av.Size{Width: 4, Height: 3}, sps.SarRatio)
	assert.Equal(t, av.Size{Width: 854, Height: 360}, sps.PresentSize)
	assert.Equal(t, 0, sps.FrameRate.FPSNum)
}

func TestParseSPSTooShort(t *testing.T) {
	_, err := ParseSPS([]byte{0x67, 0x42})
	assert.Equal(t, ErrSpsData, err)

	_, err = ParseSPS(highSPS1080()[:6])
	assert.Error(t, err)
}

func TestRemoveEmulationPrevention(t *testing.T) {
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x00},
		removeEmulationPrevention([]byte{0x00, 0x00, 0x03, 0x01, 0x00, 0x00, 0x03, 0x00}))
}

func TestParseSPSTruncatedVUI(t *testing.T) {
	sps, err := ParseSPS(truncatedVUISPS())
	require.NoError(t, err)
	assert.Equal(t, av.Size{Width: 1920, Height: 1080}, sps.CodecSize)
	assert.Equal(t, av.Size{Width: 4, Height: 3}, sps.SarRatio)
	assert.Equal(t, av.Size{Width: 2560, Height: 1080}, sps.PresentSize)
	assert.Zero(t, sps.FrameRate.FPSNum)
}
