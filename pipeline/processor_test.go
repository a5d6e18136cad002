package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senselab/avprep/face"
	"github.com/senselab/avprep/store"
	"github.com/senselab/avprep/video"
)

func newTestProcessor(reader video.Reader, storage store.Storage) *Processor {
	return NewProcessor(reader, face.NewGeometricDetector(0.7), storage, testParams(), testLogger())
}

func TestProcessor_Process(t *testing.T) {
	dir := t.TempDir()
	speechPath := writeWAV(t, dir, "speech.wav", sineSamples(440, 16000, 16000, 0.5), 16000)
	noisePath := writeWAV(t, dir, "noise.wav", sineSamples(880, 16000, 8000, 0.25), 16000)

	reader := &fakeReader{clips: map[string]*video.Clip{
		"clip.mp4": syntheticClip(25, 16, 16, 25),
	}}
	proc := newTestProcessor(reader, nil)

	sample, err := proc.Process(context.Background(), Triple{Video: "clip.mp4", Speech: speechPath, Noise: noisePath})
	require.NoError(t, err)

	// One second at 25fps and 16kHz yields five 200ms slices on every stream.
	assert.Equal(t, 5, sample.Len())
	assert.Len(t, sample.VideoSlices, 5)
	assert.Len(t, sample.MixedSlices, 5)
	assert.Len(t, sample.SpeechSlices, 5)
	assert.Len(t, sample.NoiseSlices, 5)

	assert.Equal(t, 5, sample.VideoSlices[0].Frames)
	assert.Equal(t, 16, sample.VideoSlices[0].H)
	assert.Equal(t, 16, sample.VideoSlices[0].W)

	rows, cols := sample.MixedSlices[0].Dims()
	assert.Equal(t, 320, rows)
	assert.Equal(t, 20, cols)

	assert.Equal(t, 16000, sample.Mixed.Len())
	assert.Equal(t, 16000, sample.Mixed.Rate)
	assert.Equal(t, 25.0, sample.FrameRate)
	assert.Greater(t, sample.Peak, 0.0)
}

func TestProcessor_Process_NonIntegerRatio(t *testing.T) {
	// 24fps puts 4.8 frames in a 200ms window, rounded to 5, so 24 frames
	// make 4 video slices. The audio side lands on 4 as well without the
	// reconciliation cut kicking in.
	dir := t.TempDir()
	speechPath := writeWAV(t, dir, "speech.wav", sineSamples(440, 16000, 16000, 0.5), 16000)
	noisePath := writeWAV(t, dir, "noise.wav", sineSamples(880, 16000, 16000, 0.25), 16000)

	reader := &fakeReader{clips: map[string]*video.Clip{
		"clip.mp4": syntheticClip(24, 16, 16, 24),
	}}
	proc := newTestProcessor(reader, nil)

	sample, err := proc.Process(context.Background(), Triple{Video: "clip.mp4", Speech: speechPath, Noise: noisePath})
	require.NoError(t, err)

	assert.Equal(t, 4, sample.Len())
	assert.Equal(t, 5, sample.VideoSlices[0].Frames)
	assert.Equal(t, 24.0, sample.FrameRate)
}

func TestProcessor_Process_VideoDecodeError(t *testing.T) {
	dir := t.TempDir()
	speechPath := writeWAV(t, dir, "speech.wav", sineSamples(440, 16000, 16000, 0.5), 16000)

	proc := newTestProcessor(&fakeReader{}, nil)

	_, err := proc.Process(context.Background(), Triple{Video: "absent.mp4", Speech: speechPath, Noise: speechPath})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestProcessor_Process_AudioDecodeError(t *testing.T) {
	dir := t.TempDir()
	reader := &fakeReader{clips: map[string]*video.Clip{
		"clip.mp4": syntheticClip(25, 16, 16, 25),
	}}
	proc := newTestProcessor(reader, nil)

	_, err := proc.Process(context.Background(), Triple{Video: "clip.mp4", Speech: dir + "/absent.wav", Noise: dir + "/absent.wav"})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestProcessor_Storage_LocalPassthrough(t *testing.T) {
	// Local inputs resolved through storage must survive the post-sample
	// cleanup: only files fetched into the temp dir are ever removed.
	inputs := t.TempDir()
	speechPath := writeWAV(t, inputs, "speech.wav", sineSamples(440, 16000, 16000, 0.5), 16000)
	noisePath := writeWAV(t, inputs, "noise.wav", sineSamples(880, 16000, 16000, 0.25), 16000)

	// Local storage stats the path before handing it through, so the video
	// must exist on disk even though the fake reader never opens it.
	videoPath := filepath.Join(inputs, "clip.mp4")
	require.NoError(t, os.WriteFile(videoPath, []byte("placeholder"), 0o600))

	storage, err := store.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	reader := &fakeReader{clips: map[string]*video.Clip{
		videoPath: syntheticClip(25, 16, 16, 25),
	}}
	proc := newTestProcessor(reader, storage)

	sample, err := proc.Process(context.Background(), Triple{Video: videoPath, Speech: speechPath, Noise: noisePath})
	require.NoError(t, err)
	assert.Equal(t, 5, sample.Len())

	for _, path := range []string{videoPath, speechPath, noisePath} {
		_, err := os.Stat(path)
		assert.NoError(t, err, "input %s was removed by cleanup", path)
	}
}

func TestProcessor_Storage_FetchError(t *testing.T) {
	storage, err := store.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	proc := newTestProcessor(&fakeReader{}, storage)

	_, err = proc.Process(context.Background(), Triple{Video: "/nonexistent/clip.mp4", Speech: "/nonexistent/s.wav", Noise: "/nonexistent/n.wav"})
	require.ErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
