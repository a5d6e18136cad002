package signal

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Static errors for WAV file I/O.
var (
	// ErrInvalidFile is returned when a file is not a decodable WAV.
	ErrInvalidFile = errors.New("signal: not a valid wav file")
	// ErrEmptyData is returned when a decoded file carries no samples.
	ErrEmptyData = errors.New("signal: no audio data")
)

// Load reads a WAV file into a Waveform. Multi-channel audio is downmixed to
// mono by averaging, and integer PCM values are scaled into [-1, 1].
func Load(path string) (*Waveform, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFile, path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyData, path)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	bits := buf.SourceBitDepth
	if bits <= 0 {
		bits = 16
	}
	scale := float64(int(1) << (bits - 1))

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		samples[i] = sum / float64(channels) / scale
	}

	return New(samples, buf.Format.SampleRate)
}

// Save writes the waveform to path as 16-bit mono PCM WAV.
// Samples outside [-1, 1] are clamped.
func Save(path string, w *Waveform) error {
	if w == nil || len(w.Samples) == 0 {
		return ErrEmptyData
	}

	f, err := os.Create(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	enc := wav.NewEncoder(f, w.Rate, 16, 1, 1)
	data := make([]int, len(w.Samples))
	for i, s := range w.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767.0)
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: w.Rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("close encoder: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}
