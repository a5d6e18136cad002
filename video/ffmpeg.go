package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Static errors for video decoding.
var (
	// ErrNoVideoStream is returned when ffprobe reports no usable video stream.
	ErrNoVideoStream = errors.New("no video stream found")
	// ErrTruncatedStream is returned when the decoded byte count is not a
	// whole number of frames.
	ErrTruncatedStream = errors.New("truncated frame stream")
)

// DecodeError represents a failure to decode a video file, including the
// stderr output of the tool that failed.
type DecodeError struct {
	Path   string
	Stderr string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v\nstderr: %s", e.Path, e.Err, e.Stderr)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Compile-time check that FFmpegReader implements Reader.
var _ Reader = (*FFmpegReader)(nil)

// FFmpegReader decodes video files through the ffmpeg and ffprobe CLIs.
// Frames are pulled over a pipe as raw 8-bit grayscale, so no intermediate
// files are written.
type FFmpegReader struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// NewFFmpegReader creates a new FFmpegReader.
// Empty paths default to "ffmpeg" and "ffprobe" (found via PATH).
func NewFFmpegReader(ffmpegPath, ffprobePath string) *FFmpegReader {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegReader{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Read probes the stream geometry, decodes every frame as grayscale and
// returns the assembled clip.
func (r *FFmpegReader) Read(ctx context.Context, path string) (*Clip, error) {
	w, h, rate, err := r.probe(ctx, path)
	if err != nil {
		return nil, err
	}

	data, err := r.decodeGray(ctx, path)
	if err != nil {
		return nil, err
	}

	size := w * h
	if len(data) == 0 || len(data)%size != 0 {
		return nil, &DecodeError{
			Path: path,
			Err:  fmt.Errorf("%w: %d bytes for %dx%d frames", ErrTruncatedStream, len(data), w, h),
		}
	}

	vol := NewVolume(len(data)/size, h, w)
	for i := 0; i < len(data); i++ {
		vol.Pix[i] = float64(data[i])
	}

	return &Clip{Volume: vol, Rate: rate}, nil
}

// probe extracts width, height and average frame rate of the first video
// stream using ffprobe.
func (r *FFmpegReader) probe(ctx context.Context, path string) (w, h int, rate float64, err error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, r.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate",
		"-of", "default=noprint_wrappers=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if runErr := cmd.Run(); runErr != nil {
		if ctx.Err() != nil {
			return 0, 0, 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, 0, 0, &DecodeError{Path: path, Stderr: stderr.String(), Err: runErr}
	}

	w, h, rate, err = parseProbeOutput(stdout.String())
	if err != nil {
		return 0, 0, 0, &DecodeError{Path: path, Stderr: stderr.String(), Err: err}
	}
	return w, h, rate, nil
}

// decodeGray streams every frame of the file as raw 8-bit grayscale bytes
// on stdout.
func (r *FFmpegReader) decodeGray(ctx context.Context, path string) ([]byte, error) {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, r.ffmpegPath,
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"pipe:1",
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return nil, &DecodeError{Path: path, Stderr: stderr.String(), Err: err}
	}

	return stdout.Bytes(), nil
}

// parseProbeOutput reads the key=value lines ffprobe prints for width,
// height and avg_frame_rate. The frame rate arrives as a rational such as
// "25/1" or "30000/1001".
func parseProbeOutput(out string) (w, h int, rate float64, err error) {
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "width":
			w, err = strconv.Atoi(value)
		case "height":
			h, err = strconv.Atoi(value)
		case "avg_frame_rate":
			rate, err = parseFrameRate(value)
		}
		if err != nil {
			return 0, 0, 0, fmt.Errorf("parse %s=%q: %w", key, value, err)
		}
	}
	if w <= 0 || h <= 0 || rate <= 0 {
		return 0, 0, 0, ErrNoVideoStream
	}
	return w, h, rate, nil
}

// parseFrameRate parses an ffprobe rational ("25/1") or a plain number.
func parseFrameRate(s string) (float64, error) {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return strconv.ParseFloat(s, 64)
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, errors.New("zero denominator")
	}
	return n / d, nil
}
