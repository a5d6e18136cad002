package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senselab/avprep/signal"
)

func TestAudioSlicer_Slice(t *testing.T) {
	w, err := signal.New(sineSamples(440, 16000, 16000, 0.5), 16000)
	require.NoError(t, err)

	slicer := NewAudioSlicer(testParams())
	slices, err := slicer.Slice(w, 5, 25)
	require.NoError(t, err)

	// 16kHz at 25 fps: n_fft 640, hop 160, 20 spectrogram frames per 200ms
	// slice; 321 linear bins trimmed to 320.
	require.Len(t, slices, 5)
	for _, s := range slices {
		rows, cols := s.Dims()
		assert.Equal(t, 320, rows)
		assert.Equal(t, 20, cols)
	}
}

func TestAudioSlicer_PadsShortAudio(t *testing.T) {
	w, err := signal.New(sineSamples(440, 16000, 8000, 0.5), 16000)
	require.NoError(t, err)

	slicer := NewAudioSlicer(testParams())
	slices, err := slicer.Slice(w, 5, 25)
	require.NoError(t, err)

	assert.Len(t, slices, 5)
	// The waveform is aligned in place to the video's span.
	assert.Equal(t, 16000, w.Len())
}

func TestAudioSlicer_TruncatesLongAudio(t *testing.T) {
	w, err := signal.New(sineSamples(440, 16000, 20000, 0.5), 16000)
	require.NoError(t, err)

	slicer := NewAudioSlicer(testParams())
	slices, err := slicer.Slice(w, 5, 25)
	require.NoError(t, err)

	assert.Len(t, slices, 5)
	assert.Equal(t, 16000, w.Len())
}

func TestAudioSlicer_MelMode(t *testing.T) {
	w, err := signal.New(sineSamples(440, 16000, 16000, 0.5), 16000)
	require.NoError(t, err)

	p := testParams()
	p.Mel = true
	slicer := NewAudioSlicer(p)

	slices, err := slicer.Slice(w, 5, 25)
	require.NoError(t, err)

	require.Len(t, slices, 5)
	rows, cols := slices[0].Dims()
	assert.Equal(t, 80, rows)
	assert.Equal(t, 20, cols)
}

func TestAudioSlicer_SliceCountsMatchVideoAcrossGeometries(t *testing.T) {
	tests := []struct {
		name      string
		rate      int
		frameRate float64
	}{
		{"16kHz 25fps", 16000, 25},
		{"16kHz 24fps", 16000, 24},
		{"22.05kHz 30fps", 22050, 30},
		{"44.1kHz ntsc", 44100, 30000.0 / 1001.0},
	}

	slicer := NewAudioSlicer(testParams())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, err := signal.New(sineSamples(440, tc.rate, tc.rate, 0.5), tc.rate)
			require.NoError(t, err)

			slices, err := slicer.Slice(w, 5, tc.frameRate)
			require.NoError(t, err)
			assert.Len(t, slices, 5)
		})
	}
}

func TestAudioSlicer_ZeroFrameRate(t *testing.T) {
	w, err := signal.New(sineSamples(440, 16000, 16000, 0.5), 16000)
	require.NoError(t, err)

	slicer := NewAudioSlicer(testParams())
	_, err = slicer.Slice(w, 5, 0)
	assert.ErrorIs(t, err, ErrTransform)
}
