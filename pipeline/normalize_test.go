package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senselab/avprep/video"
)

func volumeFromFrames(h, w int, frames ...[]float64) *video.Volume {
	vol := video.NewVolume(len(frames), h, w)
	for t, f := range frames {
		vol.SetFrame(t, video.Frame{Pix: f, H: h, W: w})
	}
	return vol
}

func TestFitVideoNormalizer(t *testing.T) {
	// Two 1x2 frames: pixel 0 sees {0, 2}, pixel 1 sees {2, 4}.
	vol := volumeFromFrames(1, 2, []float64{0, 2}, []float64{2, 4})

	norm, err := FitVideoNormalizer([]*video.Volume{vol})
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 3}, norm.Mean().Pix)
	assert.Equal(t, []float64{1, 1}, norm.Std().Pix)
}

func TestFitVideoNormalizer_AcrossVolumes(t *testing.T) {
	// The statistics pool frames over the whole corpus, not per volume.
	a := volumeFromFrames(1, 1, []float64{0})
	b := volumeFromFrames(1, 1, []float64{6}, []float64{6})

	norm, err := FitVideoNormalizer([]*video.Volume{a, b})
	require.NoError(t, err)

	// mean = 4, var = (0+36+36)/3 - 16 = 8
	assert.InDelta(t, 4, norm.Mean().Pix[0], 1e-12)
	assert.InDelta(t, 2.8284271247461903, norm.Std().Pix[0], 1e-12)
}

func TestVideoNormalizer_Normalize(t *testing.T) {
	vol := volumeFromFrames(1, 2, []float64{0, 2}, []float64{2, 4})
	norm, err := FitVideoNormalizer([]*video.Volume{vol})
	require.NoError(t, err)

	require.NoError(t, norm.Normalize([]*video.Volume{vol}))

	assert.Equal(t, []float64{-1, -1}, vol.Frame(0).Pix)
	assert.Equal(t, []float64{1, 1}, vol.Frame(1).Pix)
}

func TestVideoNormalizer_ConstantPixel(t *testing.T) {
	// A pixel that never changes has zero variance; the floored deviation
	// keeps the output finite and the centered value at zero.
	vol := volumeFromFrames(1, 1, []float64{5}, []float64{5}, []float64{5})
	norm, err := FitVideoNormalizer([]*video.Volume{vol})
	require.NoError(t, err)

	require.NoError(t, norm.Normalize([]*video.Volume{vol}))
	for tIdx := 0; tIdx < 3; tIdx++ {
		assert.Equal(t, 0.0, vol.Frame(tIdx).Pix[0])
	}
}

func TestVideoNormalizer_NoRefit(t *testing.T) {
	// Normalizing two fresh copies of one corpus must give identical
	// output: the statistics are fixed at fit time.
	orig := volumeFromFrames(1, 2, []float64{0, 2}, []float64{2, 4})
	norm, err := FitVideoNormalizer([]*video.Volume{orig})
	require.NoError(t, err)

	first := orig.Clone()
	second := orig.Clone()
	require.NoError(t, norm.Normalize([]*video.Volume{first}))
	require.NoError(t, norm.Normalize([]*video.Volume{second}))

	assert.Equal(t, first.Pix, second.Pix)
}

func TestVideoNormalizer_GeometryMismatch(t *testing.T) {
	fitted := volumeFromFrames(1, 2, []float64{0, 2})
	norm, err := FitVideoNormalizer([]*video.Volume{fitted})
	require.NoError(t, err)

	t.Run("fit rejects mixed corpus", func(t *testing.T) {
		other := volumeFromFrames(2, 1, []float64{0, 2})
		_, err := FitVideoNormalizer([]*video.Volume{fitted, other})
		assert.ErrorIs(t, err, ErrMismatchedInputs)
	})

	t.Run("normalize rejects wrong shape", func(t *testing.T) {
		other := volumeFromFrames(2, 1, []float64{0, 2})
		err := norm.Normalize([]*video.Volume{other})
		assert.ErrorIs(t, err, ErrMismatchedInputs)
	})
}

func TestFitVideoNormalizer_EmptyCorpus(t *testing.T) {
	_, err := FitVideoNormalizer(nil)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestVideoNormalizer_StatCopies(t *testing.T) {
	vol := volumeFromFrames(1, 2, []float64{0, 2}, []float64{2, 4})
	norm, err := FitVideoNormalizer([]*video.Volume{vol})
	require.NoError(t, err)

	mean := norm.Mean()
	mean.Pix[0] = 99

	require.NoError(t, norm.Normalize([]*video.Volume{vol}))
	assert.Equal(t, []float64{-1, -1}, vol.Frame(0).Pix)
}
