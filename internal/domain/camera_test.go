package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCameraEffect(t *testing.T) {
	for _, e := range CameraEffects {
		got, err := ParseCameraEffect(string(e))
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}

	got, err := ParseCameraEffect(" Sepia ")
	require.NoError(t, err)
	assert.Equal(t, EffectSepia, got)

	_, err = ParseCameraEffect("vivid")
	assert.Error(t, err)
}

func TestParseStreamQuality(t *testing.T) {
	q, err := ParseStreamQuality("SD")
	require.NoError(t, err)
	assert.Equal(t, QualitySD, q)

	_, err = ParseStreamQuality("4k")
	assert.Error(t, err)
}

func TestStreamQualityProfile(t *testing.T) {
	assert.Equal(t, QualityProfile{Width: 854, Height: 480, Bitrate: 1_000_000}, QualitySD.Profile())
	assert.Equal(t, QualityProfile{Width: 1280, Height: 720, Bitrate: 2_500_000}, QualityHD.Profile())
}
