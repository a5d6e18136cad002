package dsp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/senselab/avprep/signal"
)

// Spectrogram is a magnitude (or mel) matrix with its phase companion and
// the parameters both were derived with. Mag may have fewer rows than Phase
// when the top frequency bin was trimmed for even alignment; Phase always
// keeps the full nfft/2+1 rows.
type Spectrogram struct {
	Mag   *mat.Dense
	Phase *mat.Dense
	NFFT  int
	Hop   int
	Rate  int
}

// Bins returns the number of magnitude rows.
func (s *Spectrogram) Bins() int {
	if s == nil || s.Mag == nil {
		return 0
	}
	bins, _ := s.Mag.Dims()
	return bins
}

// Frames returns the number of time frames in the magnitude.
func (s *Spectrogram) Frames() int {
	if s == nil || s.Mag == nil {
		return 0
	}
	_, frames := s.Mag.Dims()
	return frames
}

// Converter turns waveforms into spectrograms and back. The representation
// is fixed at construction: NewLinearConverter yields dB magnitudes over
// linear bins, NewMelConverter yields mel-band magnitudes. Both retain the
// phase needed for inversion.
type Converter interface {
	// Forward computes the spectrogram of w with its phase companion.
	Forward(w *signal.Waveform) (*Spectrogram, error)
	// Inverse rebuilds a waveform from s. Magnitude and phase are first
	// trimmed to their common time length; boundary drift is resolved by
	// truncation, never padding.
	Inverse(s *Spectrogram) (*signal.Waveform, error)
}

// Compile-time checks that both variants implement Converter.
var (
	_ Converter = (*LinearConverter)(nil)
	_ Converter = (*MelConverter)(nil)
)

// NewConverter selects the representation by the mel flag, keeping the
// branch out of call sites.
func NewConverter(nfft, hop, rate int, mel bool, opts MelOpts) (Converter, error) {
	if mel {
		return NewMelConverter(nfft, hop, rate, opts)
	}
	return NewLinearConverter(nfft, hop, rate)
}

// LinearConverter produces linear magnitude spectrograms expressed in
// decibels. An odd bin count is trimmed to even by dropping the last row;
// the trimmed bin re-enters as zeros on inversion.
type LinearConverter struct {
	nfft, hop, rate int
}

// NewLinearConverter creates a converter for waveforms at the given rate.
func NewLinearConverter(nfft, hop, rate int) (*LinearConverter, error) {
	if nfft <= 0 || hop <= 0 || rate <= 0 {
		return nil, fmt.Errorf("%w: n_fft=%d hop=%d rate=%d", ErrBadParams, nfft, hop, rate)
	}
	return &LinearConverter{nfft: nfft, hop: hop, rate: rate}, nil
}

// Forward computes the dB magnitude spectrogram of w.
func (c *LinearConverter) Forward(w *signal.Waveform) (*Spectrogram, error) {
	if w.Rate != c.rate {
		return nil, fmt.Errorf("%w: waveform %d Hz, converter %d Hz", ErrRateMismatch, w.Rate, c.rate)
	}
	magFull, phase, err := STFT(w.Samples, c.nfft, c.hop)
	if err != nil {
		return nil, err
	}
	mag := trimOddRows(magFull)
	mag.Apply(func(_, _ int, v float64) float64 { return AmplitudeToDB(v) }, mag)
	return &Spectrogram{Mag: mag, Phase: phase, NFFT: c.nfft, Hop: c.hop, Rate: c.rate}, nil
}

// Inverse maps the dB magnitude back to linear amplitude and overlap-adds
// it with the retained phase.
func (c *LinearConverter) Inverse(s *Spectrogram) (*signal.Waveform, error) {
	mag, phase, err := alignTime(s)
	if err != nil {
		return nil, err
	}
	lin := mat.DenseCopyOf(mag)
	lin.Apply(func(_, _ int, v float64) float64 { return DBToAmplitude(v) }, lin)
	samples, err := ISTFT(lin, phase, s.NFFT, s.Hop, -1)
	if err != nil {
		return nil, err
	}
	return signal.New(samples, s.Rate)
}

// MelConverter produces mel-scale magnitude spectrograms. Inversion maps mel
// bands back to linear bins through the normalized transpose of the
// filterbank, so this path is approximate by construction.
type MelConverter struct {
	nfft, hop, rate int
	bank            *mat.Dense
	unbank          *mat.Dense
}

// MelOpts configures the filterbank geometry.
type MelOpts struct {
	Bands int
	MinHz float64
	MaxHz float64
}

// DefaultMelOpts returns the 80-band 0-8000 Hz geometry.
func DefaultMelOpts() MelOpts {
	return MelOpts{Bands: 80, MinHz: 0, MaxHz: 8000}
}

// NewMelConverter creates a mel converter for waveforms at the given rate.
func NewMelConverter(nfft, hop, rate int, opts MelOpts) (*MelConverter, error) {
	if nfft <= 0 || hop <= 0 || rate <= 0 {
		return nil, fmt.Errorf("%w: n_fft=%d hop=%d rate=%d", ErrBadParams, nfft, hop, rate)
	}
	if opts.Bands <= 0 || opts.MaxHz <= opts.MinHz || opts.MinHz < 0 {
		return nil, fmt.Errorf("%w: %d mel bands over [%g, %g] Hz", ErrBadParams, opts.Bands, opts.MinHz, opts.MaxHz)
	}
	bank := melBank(rate, nfft, opts.Bands, opts.MinHz, opts.MaxHz)
	return &MelConverter{
		nfft:   nfft,
		hop:    hop,
		rate:   rate,
		bank:   bank,
		unbank: melBankInverse(bank),
	}, nil
}

// Forward pools the STFT magnitude into mel bands, retaining full phase.
func (c *MelConverter) Forward(w *signal.Waveform) (*Spectrogram, error) {
	if w.Rate != c.rate {
		return nil, fmt.Errorf("%w: waveform %d Hz, converter %d Hz", ErrRateMismatch, w.Rate, c.rate)
	}
	magFull, phase, err := STFT(w.Samples, c.nfft, c.hop)
	if err != nil {
		return nil, err
	}
	nMels, _ := c.bank.Dims()
	_, frames := magFull.Dims()
	melMag := mat.NewDense(nMels, frames, nil)
	melMag.Mul(c.bank, magFull)
	return &Spectrogram{Mag: melMag, Phase: phase, NFFT: c.nfft, Hop: c.hop, Rate: c.rate}, nil
}

// Inverse spreads mel bands back over linear bins and overlap-adds with the
// retained phase.
func (c *MelConverter) Inverse(s *Spectrogram) (*signal.Waveform, error) {
	mag, phase, err := alignTime(s)
	if err != nil {
		return nil, err
	}
	melRows, frames := mag.Dims()
	nMels, bins := c.bank.Dims()
	if melRows != nMels {
		return nil, fmt.Errorf("%w: %d mel rows, bank has %d", ErrBadParams, melRows, nMels)
	}
	lin := mat.NewDense(bins, frames, nil)
	lin.Mul(c.unbank, mag)
	samples, err := ISTFT(lin, phase, s.NFFT, s.Hop, -1)
	if err != nil {
		return nil, err
	}
	return signal.New(samples, s.Rate)
}

// trimOddRows drops the last row when the row count is odd, keeping the
// frequency dimension even for downstream reshaping.
func trimOddRows(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	if rows%2 == 0 {
		return m
	}
	return m.Slice(0, rows-1, 0, cols).(*mat.Dense)
}

// alignTime trims magnitude and phase views to their common frame count.
func alignTime(s *Spectrogram) (mag, phase *mat.Dense, err error) {
	if s == nil || s.Mag == nil || s.Phase == nil {
		return nil, nil, ErrEmptySpectrogram
	}
	magRows, magFrames := s.Mag.Dims()
	phaseRows, phaseFrames := s.Phase.Dims()
	frames := magFrames
	if phaseFrames < frames {
		frames = phaseFrames
	}
	if frames == 0 || magRows == 0 || phaseRows == 0 {
		return nil, nil, ErrEmptySpectrogram
	}
	mag = s.Mag.Slice(0, magRows, 0, frames).(*mat.Dense)
	phase = s.Phase.Slice(0, phaseRows, 0, frames).(*mat.Dense)
	return mag, phase, nil
}
