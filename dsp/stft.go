// Package dsp implements the spectral transforms behind the preparation
// pipeline: a centered short-time Fourier transform and its inverse, the
// decibel mapping, a mel filterbank, and the Converter variants that bundle
// them into matching forward/inverse pairs.
package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// Static errors for spectral transforms.
var (
	// ErrBadParams is returned when transform parameters are not usable.
	ErrBadParams = errors.New("dsp: invalid transform parameters")
	// ErrShortSignal is returned when a signal is too short to center-pad.
	ErrShortSignal = errors.New("dsp: signal shorter than half the FFT window")
	// ErrRateMismatch is returned when a waveform's rate differs from the converter's.
	ErrRateMismatch = errors.New("dsp: sample rate mismatch")
	// ErrEmptySpectrogram is returned when an inverse is asked of an empty spectrogram.
	ErrEmptySpectrogram = errors.New("dsp: empty spectrogram")
)

// winSumFloor is the smallest overlap-add envelope value divided through.
const winSumFloor = 1e-11

// hannWindow returns a symmetric Hann window of length n.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// reflectPad mirrors pad samples of x around each end. The sample next to
// the edge comes first and the edge itself is not repeated, so [a b c d]
// padded by 2 becomes [c b a b c d c b]. Requires len(x) > pad.
func reflectPad(x []float64, pad int) []float64 {
	out := make([]float64, len(x)+2*pad)
	copy(out[pad:], x)
	for i := 0; i < pad; i++ {
		out[pad-1-i] = x[i+1]
		out[pad+len(x)+i] = x[len(x)-2-i]
	}
	return out
}

// STFT computes a centered short-time Fourier transform of x: the signal is
// reflect-padded by nfft/2 at both ends, cut into Hann-windowed frames hop
// samples apart, and transformed with a real-input FFT. The returned
// magnitude and phase matrices have nfft/2+1 rows and 1+floor(len(x)/hop)
// columns.
func STFT(x []float64, nfft, hop int) (mag, phase *mat.Dense, err error) {
	if nfft <= 0 || hop <= 0 {
		return nil, nil, fmt.Errorf("%w: n_fft=%d hop=%d", ErrBadParams, nfft, hop)
	}
	pad := nfft / 2
	if len(x) <= pad {
		return nil, nil, fmt.Errorf("%w: %d samples for n_fft %d", ErrShortSignal, len(x), nfft)
	}

	padded := reflectPad(x, pad)
	nFrames := 1 + (len(padded)-nfft)/hop
	bins := nfft/2 + 1

	win := hannWindow(nfft)
	fft := fourier.NewFFT(nfft)
	buf := make([]float64, nfft)
	coeff := make([]complex128, bins)

	mag = mat.NewDense(bins, nFrames, nil)
	phase = mat.NewDense(bins, nFrames, nil)
	for t := 0; t < nFrames; t++ {
		start := t * hop
		for k := 0; k < nfft; k++ {
			buf[k] = padded[start+k] * win[k]
		}
		fft.Coefficients(coeff, buf)
		for b := 0; b < bins; b++ {
			mag.Set(b, t, cmplx.Abs(coeff[b]))
			phase.Set(b, t, cmplx.Phase(coeff[b]))
		}
	}
	return mag, phase, nil
}

// ISTFT inverts a magnitude/phase pair produced by STFT with the same nfft
// and hop, using windowed overlap-add with envelope correction, and returns
// at most length samples (all recoverable samples when length is negative).
// A magnitude with fewer than nfft/2+1 rows is treated as having zeros in
// the missing top rows, which is how a trimmed forward bin re-enters.
func ISTFT(mag, phase *mat.Dense, nfft, hop, length int) ([]float64, error) {
	if nfft <= 0 || hop <= 0 {
		return nil, fmt.Errorf("%w: n_fft=%d hop=%d", ErrBadParams, nfft, hop)
	}
	magRows, nFrames := mag.Dims()
	phaseRows, phaseFrames := phase.Dims()
	if nFrames == 0 || magRows == 0 || phaseFrames < nFrames {
		return nil, ErrEmptySpectrogram
	}

	bins := nfft/2 + 1
	win := hannWindow(nfft)
	fft := fourier.NewFFT(nfft)

	acc := make([]float64, nfft+hop*(nFrames-1))
	winSum := make([]float64, len(acc))
	coeff := make([]complex128, bins)
	frame := make([]float64, nfft)

	for t := 0; t < nFrames; t++ {
		for b := 0; b < bins; b++ {
			m, p := 0.0, 0.0
			if b < magRows {
				m = mag.At(b, t)
			}
			if b < phaseRows {
				p = phase.At(b, t)
			}
			coeff[b] = cmplx.Rect(m, p)
		}
		fft.Sequence(frame, coeff)
		start := t * hop
		for k := 0; k < nfft; k++ {
			// Sequence is unnormalized: divide by nfft to undo Coefficients.
			acc[start+k] += frame[k] / float64(nfft) * win[k]
			winSum[start+k] += win[k] * win[k]
		}
	}

	for i := range acc {
		if winSum[i] > winSumFloor {
			acc[i] /= winSum[i]
		}
	}

	// Undo the forward centering pad.
	pad := nfft / 2
	if pad > len(acc) {
		pad = len(acc)
	}
	acc = acc[pad:]
	if length < 0 {
		length = hop * (nFrames - 1)
	}
	if length > len(acc) {
		length = len(acc)
	}
	return acc[:length], nil
}

// ConcatFrames joins spectrogram windows along the time axis. All windows
// must share one row count.
func ConcatFrames(windows []*mat.Dense) (*mat.Dense, error) {
	if len(windows) == 0 {
		return nil, ErrEmptySpectrogram
	}
	rows, _ := windows[0].Dims()
	total := 0
	for _, w := range windows {
		r, c := w.Dims()
		if r != rows {
			return nil, fmt.Errorf("%w: window has %d rows, want %d", ErrBadParams, r, rows)
		}
		total += c
	}

	out := mat.NewDense(rows, total, nil)
	at := 0
	for _, w := range windows {
		_, c := w.Dims()
		out.Slice(0, rows, at, at+c).(*mat.Dense).Copy(w)
		at += c
	}
	return out, nil
}
