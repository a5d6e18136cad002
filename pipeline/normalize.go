package pipeline

import (
	"fmt"
	"math"

	"github.com/senselab/avprep/video"
)

// stdFloor replaces zero per-pixel deviations so normalization never
// divides by zero or emits NaN.
const stdFloor = 1e-10

// VideoNormalizer standardizes mouth-crop volumes with per-pixel statistics
// fitted once over a training corpus.
type VideoNormalizer struct {
	mean []float64
	std  []float64
	h, w int
}

// FitVideoNormalizer computes a per-pixel mean and standard deviation
// image, averaging across every frame of every volume in the corpus.
// All volumes must share one frame geometry.
func FitVideoNormalizer(volumes []*video.Volume) (*VideoNormalizer, error) {
	if len(volumes) == 0 {
		return nil, fmt.Errorf("%w: empty corpus", ErrNoSamples)
	}

	h, w := volumes[0].H, volumes[0].W
	size := h * w
	sum := make([]float64, size)
	sumSq := make([]float64, size)
	frames := 0

	for i, vol := range volumes {
		if vol.H != h || vol.W != w {
			return nil, fmt.Errorf("%w: volume %d is %dx%d, corpus is %dx%d",
				ErrMismatchedInputs, i, vol.H, vol.W, h, w)
		}
		for t := 0; t < vol.Frames; t++ {
			base := t * size
			for j := 0; j < size; j++ {
				v := vol.Pix[base+j]
				sum[j] += v
				sumSq[j] += v * v
			}
		}
		frames += vol.Frames
	}
	if frames == 0 {
		return nil, fmt.Errorf("%w: corpus holds no frames", ErrNoSamples)
	}

	mean := make([]float64, size)
	std := make([]float64, size)
	n := float64(frames)
	for j := 0; j < size; j++ {
		mean[j] = sum[j] / n
		variance := sumSq[j]/n - mean[j]*mean[j]
		if variance < 0 {
			// Cancellation can push a constant pixel slightly negative.
			variance = 0
		}
		std[j] = math.Sqrt(variance)
		if std[j] < stdFloor {
			std[j] = stdFloor
		}
	}

	return &VideoNormalizer{mean: mean, std: std, h: h, w: w}, nil
}

// Normalize standardizes every frame of every volume in place using the
// fitted statistics. The statistics are never re-fitted here, so
// normalizing two fresh copies of one corpus gives identical results.
func (n *VideoNormalizer) Normalize(volumes []*video.Volume) error {
	size := n.h * n.w
	for i, vol := range volumes {
		if vol.H != n.h || vol.W != n.w {
			return fmt.Errorf("%w: volume %d is %dx%d, normalizer fitted on %dx%d",
				ErrMismatchedInputs, i, vol.H, vol.W, n.h, n.w)
		}
		for t := 0; t < vol.Frames; t++ {
			base := t * size
			for j := 0; j < size; j++ {
				vol.Pix[base+j] = (vol.Pix[base+j] - n.mean[j]) / n.std[j]
			}
		}
	}
	return nil
}

// Mean returns a copy of the fitted per-pixel mean image.
func (n *VideoNormalizer) Mean() video.Frame {
	out := make([]float64, len(n.mean))
	copy(out, n.mean)
	return video.Frame{Pix: out, H: n.h, W: n.w}
}

// Std returns a copy of the fitted per-pixel standard deviation image.
func (n *VideoNormalizer) Std() video.Frame {
	out := make([]float64, len(n.std))
	copy(out, n.std)
	return video.Frame{Pix: out, H: n.h, W: n.w}
}
