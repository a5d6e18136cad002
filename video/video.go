// Package video provides decoded grayscale clip representations and the
// reader contract the pipeline decodes video files through.
package video

import "context"

// Volume is a stack of equally sized grayscale frames stored frame-major:
// frame t occupies Pix[t*H*W : (t+1)*H*W] in row-major order. Keeping the
// frame axis leading makes every contiguous run of frames a view.
type Volume struct {
	Pix    []float64
	Frames int
	H, W   int
}

// NewVolume allocates a zeroed volume of the given geometry.
func NewVolume(frames, h, w int) *Volume {
	return &Volume{Pix: make([]float64, frames*h*w), Frames: frames, H: h, W: w}
}

// FrameSize returns the number of pixels in one frame.
func (v *Volume) FrameSize() int { return v.H * v.W }

// Frame returns a view of frame t. Mutating the view mutates the volume.
func (v *Volume) Frame(t int) Frame {
	size := v.FrameSize()
	return Frame{Pix: v.Pix[t*size : (t+1)*size], H: v.H, W: v.W}
}

// SetFrame copies f into frame slot t. The frame must match the volume's
// height and width.
func (v *Volume) SetFrame(t int, f Frame) {
	size := v.FrameSize()
	copy(v.Pix[t*size:(t+1)*size], f.Pix)
}

// Window returns the n-frame sub-stack starting at frame t0. The window
// shares backing memory with the volume.
func (v *Volume) Window(t0, n int) *Volume {
	size := v.FrameSize()
	return &Volume{Pix: v.Pix[t0*size : (t0+n)*size], Frames: n, H: v.H, W: v.W}
}

// Clone returns a deep copy of the volume.
func (v *Volume) Clone() *Volume {
	out := make([]float64, len(v.Pix))
	copy(out, v.Pix)
	return &Volume{Pix: out, Frames: v.Frames, H: v.H, W: v.W}
}

// Frame is a single grayscale image in row-major order.
type Frame struct {
	Pix  []float64
	H, W int
}

// At returns the pixel at row y, column x.
func (f Frame) At(y, x int) float64 { return f.Pix[y*f.W+x] }

// Clip is a decoded video: a full-size grayscale frame stack plus its frame
// rate in frames per second. The stack's Frames count always equals the
// number of decoded frames.
type Clip struct {
	Volume *Volume
	Rate   float64
}

// Reader decodes a video file into ordered grayscale frames. Implementations
// must release decoder resources on every exit path, including failures.
type Reader interface {
	Read(ctx context.Context, path string) (*Clip, error)
}
