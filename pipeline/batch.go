package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Batch fans the per-sample processor out over many triples with a bounded
// worker pool and concatenates the survivors into one flat dataset.
type Batch struct {
	processor *Processor
	workers   int64
	logger    *slog.Logger
}

// NewBatch creates a batch orchestrator around processor. The pool size
// comes from params.Workers.
func NewBatch(processor *Processor, params Params, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	workers := params.Workers
	if workers <= 0 {
		workers = DefaultParams().Workers
	}
	return &Batch{processor: processor, workers: int64(workers), logger: logger}
}

// Process runs every triple through the pipeline, at most Workers at a
// time. Samples are independent: a failing one is logged with its input
// paths and dropped while its siblings keep running, so the batch only
// fails when nothing survives. The returned dataset may be smaller than
// the input; callers must not rely on any particular sample order.
func (b *Batch) Process(ctx context.Context, triples []Triple) (*Dataset, error) {
	if len(triples) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrNoSamples)
	}

	sem := semaphore.NewWeighted(b.workers)
	results := make([]*Sample, len(triples))

	var wg sync.WaitGroup
	for i := 0; i < len(triples); i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			b.logger.Error("batch interrupted",
				slog.Int("pending", len(triples)-i),
				slog.String("error", err.Error()),
			)
			break
		}

		wg.Add(1)
		go func(slot int, t Triple) {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("sample worker panicked",
						slog.String("video", t.Video),
						slog.String("speech", t.Speech),
						slog.String("noise", t.Noise),
						slog.Any("panic", r),
					)
				}
			}()

			sample, err := b.processor.Process(ctx, t)
			if err != nil {
				b.logger.Error("sample failed",
					slog.String("video", t.Video),
					slog.String("speech", t.Speech),
					slog.String("noise", t.Noise),
					slog.String("error", err.Error()),
				)
				return
			}
			results[slot] = sample
		}(i, triples[i])
	}
	wg.Wait()

	dataset := &Dataset{}
	survivors := 0
	for _, s := range results {
		if s == nil {
			continue
		}
		dataset.append(s)
		survivors++
	}
	if survivors == 0 {
		return nil, fmt.Errorf("%w: all %d samples failed", ErrNoSamples, len(triples))
	}

	b.logger.Info("batch complete",
		slog.Int("requested", len(triples)),
		slog.Int("survived", survivors),
		slog.Int("slices", dataset.Len()),
	)

	return dataset, nil
}

// ProcessPaths zips parallel path lists into triples and processes them.
// The lists must have equal length; same index means same sample.
func (b *Batch) ProcessPaths(ctx context.Context, videos, speeches, noises []string) (*Dataset, error) {
	triples, err := MakeTriples(videos, speeches, noises)
	if err != nil {
		return nil, err
	}
	return b.Process(ctx, triples)
}
