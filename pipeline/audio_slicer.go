package pipeline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/senselab/avprep/dsp"
	"github.com/senselab/avprep/signal"
)

// AudioSlicer aligns a waveform to an already-known video slice count and
// cuts its spectrogram into matching time slices.
type AudioSlicer struct {
	params Params
}

// NewAudioSlicer creates an audio slicer.
func NewAudioSlicer(params Params) *AudioSlicer {
	return &AudioSlicer{params: params}
}

// fftParams derives the spectral geometry from the audio sample rate and
// the video frame rate: one FFT window spans one video frame worth of
// audio, and analysis advances a quarter window per hop. Forward slicing
// and reconstruction must derive identically or slices stop lining up.
func fftParams(rate int, frameRate float64) (nfft, hop int, err error) {
	if frameRate <= 0 {
		return 0, 0, fmt.Errorf("%w: frame rate %.3g fps", ErrTransform, frameRate)
	}
	nfft = int(math.Round(float64(rate) / frameRate))
	hop = nfft / 4
	if nfft <= 0 || hop < 1 {
		return 0, 0, fmt.Errorf("%w: n_fft=%d hop=%d from %d Hz at %.3g fps",
			ErrTransform, nfft, hop, rate, frameRate)
	}
	return nfft, hop, nil
}

// newConverter builds the spectral converter the parameters select. The
// slicer and the reconstructor share it so both sides of the round trip
// use one geometry.
func (p Params) newConverter(nfft, hop, rate int) (dsp.Converter, error) {
	opts := dsp.MelOpts{
		Bands: p.MelBands,
		MinHz: p.FreqMinHz,
		MaxHz: p.FreqMaxHz,
	}
	return dsp.NewConverter(nfft, hop, rate, p.Mel, opts)
}

// Slice pads or truncates w in place so it spans exactly nVideoSlices
// slices, computes its spectrogram and cuts the magnitude into per-slice
// time windows. Remainder frames past the last full slice are discarded,
// mirroring the video slicer's truncation policy.
func (s *AudioSlicer) Slice(w *signal.Waveform, nVideoSlices int, frameRate float64) ([]*mat.Dense, error) {
	samplesPerSlice := int(math.Round(float64(s.params.SliceDurationMS) / 1000.0 * float64(w.Rate)))
	if samplesPerSlice <= 0 {
		return nil, fmt.Errorf("%w: %d Hz cannot fill a %d ms slice",
			ErrAlignmentUnderrun, w.Rate, s.params.SliceDurationMS)
	}

	// Force the audio to the span the video slices already cover.
	target := samplesPerSlice * nVideoSlices
	w.PadTo(target)
	w.Truncate(target)

	nfft, hop, err := fftParams(w.Rate, frameRate)
	if err != nil {
		return nil, err
	}

	conv, err := s.params.newConverter(nfft, hop, w.Rate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransform, err)
	}

	spec, err := conv.Forward(w)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransform, err)
	}

	perSlice := samplesPerSlice / hop
	if perSlice <= 0 {
		return nil, fmt.Errorf("%w: hop %d longer than a %d-sample slice",
			ErrAlignmentUnderrun, hop, samplesPerSlice)
	}

	nSlices := spec.Frames() / perSlice
	if nSlices == 0 {
		return nil, fmt.Errorf("%w: %d spectrogram frames, need %d per slice",
			ErrAlignmentUnderrun, spec.Frames(), perSlice)
	}

	bins := spec.Bins()
	slices := make([]*mat.Dense, nSlices)
	for i := 0; i < nSlices; i++ {
		slices[i] = spec.Mag.Slice(0, bins, i*perSlice, (i+1)*perSlice).(*mat.Dense)
	}
	return slices, nil
}
