// Package pipeline prepares paired audio-visual training samples for a
// speech-separation model. For every (video, speech, noise) input triple it
// produces time-aligned slices of mouth-region video and of the mixed,
// speech and noise spectrograms, plus the bookkeeping needed to invert a
// predicted spectrogram back into an audible waveform.
//
// The slicing math couples three time bases: video frames, audio samples
// and spectrogram frames. All derived parameters (FFT size, hop length,
// samples per slice) come from one slice duration and the video frame rate,
// so a slice index always refers to the same window of real time in every
// stream of a sample.
package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/senselab/avprep/signal"
	"github.com/senselab/avprep/video"
)

// Params holds the slicing and transform parameters shared by every
// component of the pipeline.
type Params struct {
	// SliceDurationMS is the duration of one slice in milliseconds.
	SliceDurationMS int
	// MouthHeight and MouthWidth are the mouth crop dimensions in pixels.
	MouthHeight int
	MouthWidth  int
	// Mel selects the mel-scale spectrogram over the linear dB one.
	Mel bool
	// MelBands is the number of mel filters when Mel is set.
	MelBands int
	// FreqMinHz and FreqMaxHz bound the mel filter bank.
	FreqMinHz float64
	FreqMaxHz float64
	// NoiseSNRDB is how many decibels louder speech is than noise after
	// level matching. Zero mixes them at equal energy.
	NoiseSNRDB float64
	// Workers bounds batch concurrency.
	Workers int
}

// DefaultParams returns the standard training configuration: 200ms slices,
// 128x128 mouth crops, linear dB spectrograms, equal-energy mixing and
// eight workers.
func DefaultParams() Params {
	return Params{
		SliceDurationMS: 200,
		MouthHeight:     128,
		MouthWidth:      128,
		Mel:             false,
		MelBands:        80,
		FreqMinHz:       0,
		FreqMaxHz:       8000,
		NoiseSNRDB:      0,
		Workers:         8,
	}
}

// Validate checks the parameters a pipeline cannot run without.
func (p Params) Validate() error {
	if p.SliceDurationMS <= 0 {
		return fmt.Errorf("%w: slice duration %d ms", ErrInvalidParams, p.SliceDurationMS)
	}
	if p.MouthHeight <= 0 || p.MouthWidth <= 0 {
		return fmt.Errorf("%w: mouth crop %dx%d", ErrInvalidParams, p.MouthHeight, p.MouthWidth)
	}
	if p.Workers <= 0 {
		return fmt.Errorf("%w: %d workers", ErrInvalidParams, p.Workers)
	}
	if p.Mel {
		if p.MelBands <= 0 {
			return fmt.Errorf("%w: %d mel bands", ErrInvalidParams, p.MelBands)
		}
		if p.FreqMaxHz <= p.FreqMinHz {
			return fmt.Errorf("%w: frequency band %g..%g Hz", ErrInvalidParams, p.FreqMinHz, p.FreqMaxHz)
		}
	}
	return nil
}

// Triple names the three input files of one sample. Each field is a URI:
// a plain path, or s3://bucket/key when the processor has S3 storage.
type Triple struct {
	Video  string
	Speech string
	Noise  string
}

// MakeTriples zips parallel path lists into triples. The lists must have
// equal length; same index means same sample.
func MakeTriples(videos, speeches, noises []string) ([]Triple, error) {
	if len(videos) != len(speeches) || len(videos) != len(noises) {
		return nil, fmt.Errorf("%w: %d videos, %d speeches, %d noises",
			ErrMismatchedInputs, len(videos), len(speeches), len(noises))
	}
	triples := make([]Triple, len(videos))
	for i := 0; i < len(videos); i++ {
		triples[i] = Triple{Video: videos[i], Speech: speeches[i], Noise: noises[i]}
	}
	return triples, nil
}

// Sample is one aligned training unit. All four slice streams have equal
// length, and slice i covers the same window of time in each of them.
// Mixed, Peak and FrameRate carry what reconstruction needs later.
type Sample struct {
	VideoSlices  []*video.Volume
	MixedSlices  []*mat.Dense
	SpeechSlices []*mat.Dense
	NoiseSlices  []*mat.Dense

	// Mixed is the unmodified speech+noise sum, before peak normalization.
	Mixed *signal.Waveform
	// Peak is the scalar divided out of the mixed signal.
	Peak float64
	// FrameRate is the source video frame rate in fps.
	FrameRate float64
}

// Len returns the number of slices per stream.
func (s *Sample) Len() int { return len(s.VideoSlices) }

// Dataset is the flat concatenation of many samples' slice streams. The
// per-sample boundaries are gone; slice i of each stream still refers to
// one common window of time.
type Dataset struct {
	VideoSlices  []*video.Volume
	MixedSlices  []*mat.Dense
	SpeechSlices []*mat.Dense
	NoiseSlices  []*mat.Dense
}

// Len returns the number of slices per stream.
func (d *Dataset) Len() int { return len(d.VideoSlices) }

// append adds every slice of s to the dataset.
func (d *Dataset) append(s *Sample) {
	d.VideoSlices = append(d.VideoSlices, s.VideoSlices...)
	d.MixedSlices = append(d.MixedSlices, s.MixedSlices...)
	d.SpeechSlices = append(d.SpeechSlices, s.SpeechSlices...)
	d.NoiseSlices = append(d.NoiseSlices, s.NoiseSlices...)
}
