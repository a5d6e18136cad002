package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/senselab/avprep/face"
	"github.com/senselab/avprep/video"
)

// VideoSlicer decodes a video, crops the mouth region out of every frame
// and cuts the cropped stack into fixed-duration slices.
type VideoSlicer struct {
	reader   video.Reader
	detector face.Detector
	params   Params
}

// NewVideoSlicer creates a video slicer using the given reader and detector.
func NewVideoSlicer(reader video.Reader, detector face.Detector, params Params) *VideoSlicer {
	return &VideoSlicer{reader: reader, detector: detector, params: params}
}

// Slice decodes the video at path and returns its mouth-cropped slices
// together with the source frame rate. Every slice holds the same number
// of frames; remainder frames past the last full slice are discarded.
func (s *VideoSlicer) Slice(ctx context.Context, path string) ([]*video.Volume, float64, error) {
	clip, err := s.reader.Read(ctx, path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}

	cropH, cropW := s.params.MouthHeight, s.params.MouthWidth
	cropped := video.NewVolume(clip.Volume.Frames, cropH, cropW)
	for t := 0; t < cropped.Frames; t++ {
		crop, err := s.detector.Detect(clip.Volume.Frame(t), cropH, cropW)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s frame %d: %w", ErrDetection, path, t, err)
		}
		cropped.SetFrame(t, crop)
	}

	framesPerSlice := int(math.Round(float64(s.params.SliceDurationMS) / 1000.0 * clip.Rate))
	if framesPerSlice <= 0 {
		return nil, 0, fmt.Errorf("%w: %.3g fps cannot fill a %d ms slice",
			ErrAlignmentUnderrun, clip.Rate, s.params.SliceDurationMS)
	}

	nSlices := cropped.Frames / framesPerSlice
	if nSlices == 0 {
		return nil, 0, fmt.Errorf("%w: %d frames at %.3g fps, need %d per slice",
			ErrAlignmentUnderrun, cropped.Frames, clip.Rate, framesPerSlice)
	}

	slices := make([]*video.Volume, nSlices)
	for i := 0; i < nSlices; i++ {
		slices[i] = cropped.Window(i*framesPerSlice, framesPerSlice)
	}
	return slices, clip.Rate, nil
}
