// Package signal provides the in-memory waveform representation used by the
// preparation pipeline, together with the sample-rate-aware operations the
// pipeline performs on it: padding, truncation, concatenation, level
// matching, peak normalization and additive mixing.
package signal

import (
	"errors"
	"fmt"
	"math"
)

// Static errors for waveform operations.
var (
	// ErrInvalidRate is returned when a waveform is created with a non-positive sample rate.
	ErrInvalidRate = errors.New("signal: sample rate must be positive")
	// ErrRateMismatch is returned when an operation combines waveforms with different sample rates.
	ErrRateMismatch = errors.New("signal: sample rate mismatch")
	// ErrLengthMismatch is returned when mixing waveforms of different lengths.
	ErrLengthMismatch = errors.New("signal: length mismatch")
	// ErrSilent is returned when an operation needs amplitude but the waveform has none.
	ErrSilent = errors.New("signal: waveform is silent")
)

// Waveform is an ordered sequence of samples at a fixed sample rate.
// Operations may change the sample count but never the rate.
type Waveform struct {
	Samples []float64
	Rate    int
}

// New creates a waveform from samples at the given rate in Hz.
func New(samples []float64, rate int) (*Waveform, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRate, rate)
	}
	return &Waveform{Samples: samples, Rate: rate}, nil
}

// Len returns the number of samples.
func (w *Waveform) Len() int { return len(w.Samples) }

// Duration returns the length of the waveform in seconds.
func (w *Waveform) Duration() float64 {
	return float64(len(w.Samples)) / float64(w.Rate)
}

// Clone returns a deep copy of the waveform.
func (w *Waveform) Clone() *Waveform {
	out := make([]float64, len(w.Samples))
	copy(out, w.Samples)
	return &Waveform{Samples: out, Rate: w.Rate}
}

// PadTo extends the waveform with trailing zeros to n samples.
// Waveforms already n samples or longer are left unchanged.
func (w *Waveform) PadTo(n int) {
	if len(w.Samples) >= n {
		return
	}
	padded := make([]float64, n)
	copy(padded, w.Samples)
	w.Samples = padded
}

// Truncate keeps only the first n samples.
// Waveforms already n samples or shorter are left unchanged.
func (w *Waveform) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if len(w.Samples) > n {
		w.Samples = w.Samples[:n]
	}
}

// Concat returns a new waveform holding the samples of a followed by the
// samples of b. Both inputs must share one sample rate.
func Concat(a, b *Waveform) (*Waveform, error) {
	if a.Rate != b.Rate {
		return nil, fmt.Errorf("%w: %d vs %d", ErrRateMismatch, a.Rate, b.Rate)
	}
	out := make([]float64, 0, len(a.Samples)+len(b.Samples))
	out = append(out, a.Samples...)
	out = append(out, b.Samples...)
	return &Waveform{Samples: out, Rate: a.Rate}, nil
}

// Scale multiplies every sample by g in place.
func (w *Waveform) Scale(g float64) {
	for i := range w.Samples {
		w.Samples[i] *= g
	}
}

// Peak returns the maximum absolute sample value.
func (w *Waveform) Peak() float64 {
	peak := 0.0
	for _, s := range w.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// PeakNormalize scales the waveform in place so its maximum absolute sample
// is exactly 1.0 and returns the peak that was divided out. Callers that
// need to undo the normalization later must retain the returned scalar.
func (w *Waveform) PeakNormalize() (float64, error) {
	peak := w.Peak()
	if peak == 0 {
		return 0, ErrSilent
	}
	w.Scale(1 / peak)
	return peak, nil
}

// RMS returns the root mean square of the samples.
func (w *Waveform) RMS() float64 {
	if len(w.Samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range w.Samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(w.Samples)))
}

// AmplifyRelativeTo scales the waveform in place so that ref ends up louder
// than it by snrDB decibels in RMS terms. At snrDB = 0 the two carry equal
// energy. The reference is never modified.
func (w *Waveform) AmplifyRelativeTo(ref *Waveform, snrDB float64) error {
	rms := w.RMS()
	if rms == 0 {
		return ErrSilent
	}
	refRMS := ref.RMS()
	if refRMS == 0 {
		return fmt.Errorf("reference: %w", ErrSilent)
	}
	w.Scale(refRMS / rms * math.Pow(10, -snrDB/20))
	return nil
}

// Mix returns the equal-weight sample-wise sum of a and b as a new waveform.
// Both inputs must share one sample rate and one length.
func Mix(a, b *Waveform) (*Waveform, error) {
	if a.Rate != b.Rate {
		return nil, fmt.Errorf("%w: %d vs %d", ErrRateMismatch, a.Rate, b.Rate)
	}
	if len(a.Samples) != len(b.Samples) {
		return nil, fmt.Errorf("%w: %d vs %d samples", ErrLengthMismatch, len(a.Samples), len(b.Samples))
	}
	out := make([]float64, len(a.Samples))
	for i := range out {
		out[i] = a.Samples[i] + b.Samples[i]
	}
	return &Waveform{Samples: out, Rate: a.Rate}, nil
}
