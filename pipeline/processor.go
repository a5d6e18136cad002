package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/senselab/avprep/face"
	"github.com/senselab/avprep/store"
	"github.com/senselab/avprep/video"
)

// Processor runs the full pipeline for one sample triple: video slicing,
// audio mixing and slicing, and slice-count reconciliation.
type Processor struct {
	videos  *VideoSlicer
	mixer   *Mixer
	storage store.Storage
	logger  *slog.Logger
}

// NewProcessor creates a processor. A nil storage restricts inputs to plain
// local paths; with storage set, triples may also name s3:// objects, which
// are fetched before processing and cleaned up after.
func NewProcessor(reader video.Reader, detector face.Detector, storage store.Storage, params Params, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		videos:  NewVideoSlicer(reader, detector, params),
		mixer:   NewMixer(params),
		storage: storage,
		logger:  logger,
	}
}

// Process builds one aligned sample from a triple. The video and audio
// slice counts are computed independently; the sample is truncated to
// their minimum so every stream ends up the same length. Any failure
// aborts this sample; no partial sample is ever returned.
func (p *Processor) Process(ctx context.Context, t Triple) (*Sample, error) {
	local, fetched, err := p.resolve(ctx, t)
	defer p.cleanup(ctx, fetched)
	if err != nil {
		return nil, err
	}

	videoSlices, frameRate, err := p.videos.Slice(ctx, local.Video)
	if err != nil {
		return nil, err
	}

	mix, err := p.mixer.Mix(local.Speech, local.Noise, len(videoSlices), frameRate)
	if err != nil {
		return nil, err
	}

	// Rounding drift can leave the streams one slice apart. No stream is
	// authoritative; all four are cut to the shortest.
	n := min(len(videoSlices), len(mix.MixedSlices), len(mix.SpeechSlices), len(mix.NoiseSlices))
	if n == 0 {
		return nil, fmt.Errorf("%w: reconciliation left zero slices", ErrAlignmentUnderrun)
	}

	p.logger.Debug("sample aligned",
		slog.String("video", t.Video),
		slog.Int("video_slices", len(videoSlices)),
		slog.Int("audio_slices", len(mix.MixedSlices)),
		slog.Int("reconciled", n),
	)

	return &Sample{
		VideoSlices:  videoSlices[:n],
		MixedSlices:  mix.MixedSlices[:n],
		SpeechSlices: mix.SpeechSlices[:n],
		NoiseSlices:  mix.NoiseSlices[:n],
		Mixed:        mix.Mixed,
		Peak:         mix.Peak,
		FrameRate:    frameRate,
	}, nil
}

// resolve fetches the triple's URIs into local paths. It returns whatever
// was fetched so far even on failure, so the caller can always clean up.
func (p *Processor) resolve(ctx context.Context, t Triple) (local Triple, fetched []string, err error) {
	if p.storage == nil {
		return t, nil, nil
	}

	uris := [3]string{t.Video, t.Speech, t.Noise}
	var paths [3]string
	for i := 0; i < len(uris); i++ {
		path, err := p.storage.Fetch(ctx, uris[i])
		if err != nil {
			return Triple{}, fetched, fmt.Errorf("%w: %s: %w", ErrDecode, uris[i], err)
		}
		fetched = append(fetched, path)
		paths[i] = path
	}
	return Triple{Video: paths[0], Speech: paths[1], Noise: paths[2]}, fetched, nil
}

// cleanup removes fetched temp files. Failures are logged, never raised:
// a stale temp file must not fail an otherwise good sample.
func (p *Processor) cleanup(ctx context.Context, fetched []string) {
	if p.storage == nil || len(fetched) == 0 {
		return
	}
	if err := p.storage.Cleanup(ctx, fetched); err != nil {
		p.logger.Warn("temp file cleanup failed", slog.String("error", err.Error()))
	}
}
