// Package face locates the mouth region inside video frames. The pipeline
// only depends on the Detector contract, so learned detectors can replace
// the built-in geometric one without touching callers.
package face

import (
	"fmt"

	"github.com/senselab/avprep/video"
)

// DetectionError reports a frame in which no usable mouth region was found.
// Detection failures are propagated, never masked: one bad frame fails the
// whole sample.
type DetectionError struct {
	Reason string
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("mouth detection failed: %s", e.Reason)
}

// Detector maps a grayscale frame to a fixed-size mouth crop.
type Detector interface {
	// Detect returns the cropH x cropW mouth region of f, or a
	// *DetectionError when no usable region exists.
	Detect(f video.Frame, cropH, cropW int) (video.Frame, error)
}

// DefaultAnchor places the crop center at 70% of the frame height, where
// framed talking-head footage keeps the mouth.
const DefaultAnchor = 0.7

// Compile-time check that GeometricDetector implements Detector.
var _ Detector = (*GeometricDetector)(nil)

// GeometricDetector cuts a fixed region: centered horizontally, anchored at
// a vertical fraction of the frame height. Suited to framed talking-head
// corpora where the mouth position is stable.
type GeometricDetector struct {
	// anchor is the vertical center of the crop as a fraction of frame height.
	anchor float64
}

// NewGeometricDetector creates a detector with the given vertical anchor.
// Anchors outside (0, 1) fall back to DefaultAnchor.
func NewGeometricDetector(anchor float64) *GeometricDetector {
	if anchor <= 0 || anchor >= 1 {
		anchor = DefaultAnchor
	}
	return &GeometricDetector{anchor: anchor}
}

// Detect cuts the cropH x cropW mouth region out of f. The crop is clamped
// to stay inside the frame; frames smaller than the crop fail.
func (d *GeometricDetector) Detect(f video.Frame, cropH, cropW int) (video.Frame, error) {
	if cropH <= 0 || cropW <= 0 {
		return video.Frame{}, &DetectionError{
			Reason: fmt.Sprintf("invalid crop size %dx%d", cropH, cropW),
		}
	}
	if cropH > f.H || cropW > f.W {
		return video.Frame{}, &DetectionError{
			Reason: fmt.Sprintf("frame %dx%d smaller than crop %dx%d", f.H, f.W, cropH, cropW),
		}
	}

	top := int(float64(f.H)*d.anchor) - cropH/2
	if top < 0 {
		top = 0
	}
	if top+cropH > f.H {
		top = f.H - cropH
	}
	left := (f.W - cropW) / 2

	out := video.Frame{Pix: make([]float64, cropH*cropW), H: cropH, W: cropW}
	for y := 0; y < cropH; y++ {
		src := (top+y)*f.W + left
		copy(out.Pix[y*cropW:(y+1)*cropW], f.Pix[src:src+cropW])
	}
	return out, nil
}
