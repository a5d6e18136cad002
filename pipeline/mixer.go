package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/senselab/avprep/signal"
)

// Mixer loads a speech and a noise recording, mixes them into a single
// peak-normalized signal and slices all three spectrograms with one shared
// geometry.
type Mixer struct {
	params Params
	slicer *AudioSlicer
}

// NewMixer creates a mixer.
func NewMixer(params Params) *Mixer {
	return &Mixer{params: params, slicer: NewAudioSlicer(params)}
}

// MixResult carries the three sliced spectrogram streams plus what
// reconstruction needs later: the unmodified mixed waveform and the peak
// divided out of it.
type MixResult struct {
	MixedSlices  []*mat.Dense
	SpeechSlices []*mat.Dense
	NoiseSlices  []*mat.Dense

	Mixed *signal.Waveform
	Peak  float64
}

// Mix prepares the audio side of one sample. Noise shorter than speech is
// extended by tiling itself, never by silence, so its spectral character
// is preserved over the whole span. The mixed signal is peak-normalized
// and speech is rescaled by the same factor, leaving the two on one
// reference scale; noise keeps its own level since only mixed and speech
// feed the model target.
func (m *Mixer) Mix(speechPath, noisePath string, nVideoSlices int, frameRate float64) (*MixResult, error) {
	speech, err := signal.Load(speechPath)
	if err != nil {
		return nil, fmt.Errorf("%w: speech %s: %w", ErrDecode, speechPath, err)
	}
	noise, err := signal.Load(noisePath)
	if err != nil {
		return nil, fmt.Errorf("%w: noise %s: %w", ErrDecode, noisePath, err)
	}

	noise, err = matchLength(noise, speech.Len())
	if err != nil {
		return nil, fmt.Errorf("%w: extend noise: %w", ErrTransform, err)
	}

	if err := noise.AmplifyRelativeTo(speech, m.params.NoiseSNRDB); err != nil {
		return nil, fmt.Errorf("%w: level match: %w", ErrTransform, err)
	}

	mixed, err := signal.Mix(speech, noise)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransform, err)
	}

	// Keep the pre-normalization mix; reconstruction recomputes its phase.
	original := mixed.Clone()

	peak, err := mixed.PeakNormalize()
	if err != nil {
		return nil, fmt.Errorf("%w: normalize mix: %w", ErrTransform, err)
	}
	speech.Scale(1 / peak)

	mixedSlices, err := m.slicer.Slice(mixed, nVideoSlices, frameRate)
	if err != nil {
		return nil, fmt.Errorf("mixed: %w", err)
	}
	speechSlices, err := m.slicer.Slice(speech, nVideoSlices, frameRate)
	if err != nil {
		return nil, fmt.Errorf("speech: %w", err)
	}
	noiseSlices, err := m.slicer.Slice(noise, nVideoSlices, frameRate)
	if err != nil {
		return nil, fmt.Errorf("noise: %w", err)
	}

	return &MixResult{
		MixedSlices:  mixedSlices,
		SpeechSlices: speechSlices,
		NoiseSlices:  noiseSlices,
		Mixed:        original,
		Peak:         peak,
	}, nil
}

// matchLength tiles w by concatenating it with itself until it reaches at
// least n samples, then truncates to exactly n.
func matchLength(w *signal.Waveform, n int) (*signal.Waveform, error) {
	if w.Len() == 0 {
		return nil, signal.ErrSilent
	}
	for w.Len() < n {
		doubled, err := signal.Concat(w, w)
		if err != nil {
			return nil, err
		}
		w = doubled
	}
	w.Truncate(n)
	return w, nil
}
