package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/senselab/avprep/dsp"
	"github.com/senselab/avprep/signal"
)

// Reconstructor inverts predicted speech spectrogram slices back into an
// audible waveform. The model predicts magnitudes only, so the phase is
// borrowed from the stored mixed signal.
type Reconstructor struct {
	params Params
}

// NewReconstructor creates a reconstructor. Its parameters must match the
// ones the slices were produced with.
func NewReconstructor(params Params) *Reconstructor {
	return &Reconstructor{params: params}
}

// Reconstruct rebuilds a speech waveform from spectrogram slices. mixed is
// the sample's unmodified speech+noise sum, frameRate its video frame rate
// and peak the recorded normalization scalar; all three come straight from
// the Sample the slices belong to. The FFT geometry is re-derived from the
// same formula the forward path used, and the recombined slices are trimmed
// against the recomputed phase to the shorter of the two.
//
// Feeding a sample's own unpredicted speech slices back through here
// reproduces the original speech up to transform error.
func (r *Reconstructor) Reconstruct(mixed *signal.Waveform, slices []*mat.Dense, frameRate, peak float64) (*signal.Waveform, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("%w: no spectrogram slices", ErrTransform)
	}

	nfft, hop, err := fftParams(mixed.Rate, frameRate)
	if err != nil {
		return nil, err
	}

	conv, err := r.params.newConverter(nfft, hop, mixed.Rate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransform, err)
	}

	ref, err := conv.Forward(mixed)
	if err != nil {
		return nil, fmt.Errorf("%w: phase of mix: %w", ErrTransform, err)
	}

	magnitude, err := dsp.ConcatFrames(slices)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransform, err)
	}

	out, err := conv.Inverse(&dsp.Spectrogram{
		Mag:   magnitude,
		Phase: ref.Phase,
		NFFT:  nfft,
		Hop:   hop,
		Rate:  mixed.Rate,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransform, err)
	}

	// Undo the forward peak normalization.
	out.Scale(peak)
	return out, nil
}
