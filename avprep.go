// Package avprep turns raw talking-head videos and noise recordings into
// aligned audio-visual training data for speech separation models, and
// inverts predicted spectrograms back into audible waveforms.
//
// The package wires the pipeline from configuration: an ffmpeg-backed video
// reader, a mouth-region detector, local or S3 storage and the batch
// orchestrator. Callers needing finer control can assemble the pieces from
// the subpackages directly.
package avprep

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/senselab/avprep/config"
	"github.com/senselab/avprep/face"
	"github.com/senselab/avprep/pipeline"
	"github.com/senselab/avprep/signal"
	"github.com/senselab/avprep/store"
	"github.com/senselab/avprep/video"
)

// Preparer is the assembled preparation pipeline.
type Preparer struct {
	cfg     *config.Config
	logger  *slog.Logger
	storage store.Storage

	processor     *pipeline.Processor
	batch         *pipeline.Batch
	reconstructor *pipeline.Reconstructor
}

// New assembles a preparer from configuration. A nil logger falls back to
// the one the configuration describes.
func New(cfg *config.Config, logger *slog.Logger) (*Preparer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = cfg.NewLogger()
	}

	storage, err := newStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	params := paramsFrom(cfg)
	reader := video.NewFFmpegReader(cfg.FFmpegPath, cfg.FFprobePath)
	detector := face.NewGeometricDetector(cfg.VerticalAnchor)

	processor := pipeline.NewProcessor(reader, detector, storage, params, logger)

	logger.Info("preparation pipeline configured",
		slog.Int("slice_duration_ms", cfg.SliceDurationMS),
		slog.Int("mouth_height", cfg.MouthHeight),
		slog.Int("mouth_width", cfg.MouthWidth),
		slog.Bool("mel", cfg.Mel),
		slog.Int("workers", cfg.Workers),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	return &Preparer{
		cfg:           cfg,
		logger:        logger,
		storage:       storage,
		processor:     processor,
		batch:         pipeline.NewBatch(processor, params, logger),
		reconstructor: pipeline.NewReconstructor(params),
	}, nil
}

// newStorage selects the storage backend from the configuration.
func newStorage(cfg *config.Config, logger *slog.Logger) (store.Storage, error) {
	if cfg.S3Enabled() {
		s3Store, err := store.NewS3Storage(cfg.TempDir, store.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := store.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}

// paramsFrom maps configuration onto pipeline parameters.
func paramsFrom(cfg *config.Config) pipeline.Params {
	return pipeline.Params{
		SliceDurationMS: cfg.SliceDurationMS,
		MouthHeight:     cfg.MouthHeight,
		MouthWidth:      cfg.MouthWidth,
		Mel:             cfg.Mel,
		MelBands:        cfg.MelBands,
		FreqMinHz:       cfg.FreqMinHz,
		FreqMaxHz:       cfg.FreqMaxHz,
		NoiseSNRDB:      cfg.NoiseSNRDB,
		Workers:         cfg.Workers,
	}
}

// Prepare processes parallel lists of video, speech and noise URIs into one
// flat dataset. The lists must have equal length; same index means same
// sample. Failing samples are logged and dropped, and an error is returned
// only when the lists mismatch or nothing survives.
func (p *Preparer) Prepare(ctx context.Context, videos, speeches, noises []string) (*pipeline.Dataset, error) {
	return p.batch.ProcessPaths(ctx, videos, speeches, noises)
}

// PrepareTriples is Prepare for callers that already hold triples.
func (p *Preparer) PrepareTriples(ctx context.Context, triples []pipeline.Triple) (*pipeline.Dataset, error) {
	return p.batch.Process(ctx, triples)
}

// ProcessSample runs the pipeline for a single triple, keeping the
// per-sample metadata a later reconstruction needs.
func (p *Preparer) ProcessSample(ctx context.Context, t pipeline.Triple) (*pipeline.Sample, error) {
	return p.processor.Process(ctx, t)
}

// Reconstruct inverts predicted speech spectrogram slices into a waveform,
// borrowing phase and scale from the sample the slices belong to.
func (p *Preparer) Reconstruct(sample *pipeline.Sample, predicted []*mat.Dense) (*signal.Waveform, error) {
	return p.reconstructor.Reconstruct(sample.Mixed, predicted, sample.FrameRate, sample.Peak)
}

// SaveWaveform writes w as a 16-bit WAV to uri through the configured
// storage backend and returns the final location. uri may be a plain path
// or an s3:// reference.
func (p *Preparer) SaveWaveform(ctx context.Context, w *signal.Waveform, uri string) (string, error) {
	tmp := filepath.Join(p.storage.TempDir(), fmt.Sprintf("waveform-%d.wav", time.Now().UnixNano()))
	if err := signal.Save(tmp, w); err != nil {
		return "", fmt.Errorf("write waveform: %w", err)
	}
	defer func() {
		if err := p.storage.Cleanup(ctx, []string{tmp}); err != nil {
			p.logger.Warn("temp file cleanup failed", slog.String("error", err.Error()))
		}
	}()

	return p.storage.Store(ctx, tmp, uri)
}

// FitNormalizer fits per-pixel statistics over the dataset's video slices.
// The returned normalizer is what training and inference share so both see
// identically scaled input.
func (p *Preparer) FitNormalizer(dataset *pipeline.Dataset) (*pipeline.VideoNormalizer, error) {
	return pipeline.FitVideoNormalizer(dataset.VideoSlices)
}
