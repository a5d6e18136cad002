package video

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// skipIfNoFFmpeg skips the test if ffmpeg or ffprobe is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH, skipping test")
	}
}

// createTestClip creates a short solid-gray test video using ffmpeg.
func createTestClip(t *testing.T, path string, w, h int, fps int, duration float64) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=gray:s=%dx%d:d=%.1f:r=%d", w, h, duration, fps),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test clip: %v\noutput: %s", err, output)
	}
}

func TestNewFFmpegReader(t *testing.T) {
	t.Run("default paths", func(t *testing.T) {
		r := NewFFmpegReader("", "")
		if r.ffmpegPath != "ffmpeg" {
			t.Errorf("expected default path 'ffmpeg', got %q", r.ffmpegPath)
		}
		if r.ffprobePath != "ffprobe" {
			t.Errorf("expected default path 'ffprobe', got %q", r.ffprobePath)
		}
	})

	t.Run("custom paths", func(t *testing.T) {
		r := NewFFmpegReader("/opt/ffmpeg", "/opt/ffprobe")
		if r.ffmpegPath != "/opt/ffmpeg" {
			t.Errorf("expected custom ffmpeg path, got %q", r.ffmpegPath)
		}
		if r.ffprobePath != "/opt/ffprobe" {
			t.Errorf("expected custom ffprobe path, got %q", r.ffprobePath)
		}
	})
}

func TestFFmpegReaderRead(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	r := NewFFmpegReader("", "")
	ctx := context.Background()

	t.Run("decodes geometry and frames", func(t *testing.T) {
		path := filepath.Join(tmpDir, "clip.mp4")
		createTestClip(t, path, 64, 48, 25, 1.0)

		clip, err := r.Read(ctx, path)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}

		if clip.Volume.W != 64 || clip.Volume.H != 48 {
			t.Errorf("expected 64x48 frames, got %dx%d", clip.Volume.W, clip.Volume.H)
		}
		if clip.Rate < 24.9 || clip.Rate > 25.1 {
			t.Errorf("Rate = %v, want ~25", clip.Rate)
		}
		// Exact frame counts depend on encoder padding, allow a small band.
		if clip.Volume.Frames < 20 || clip.Volume.Frames > 30 {
			t.Errorf("Frames = %d, want ~25", clip.Volume.Frames)
		}
		if len(clip.Volume.Pix) != clip.Volume.Frames*64*48 {
			t.Errorf("pixel buffer size %d does not match %d frames of 64x48",
				len(clip.Volume.Pix), clip.Volume.Frames)
		}

		// A solid mid-gray source should decode to mid-gray pixels.
		var sum float64
		for i := 0; i < len(clip.Volume.Pix); i++ {
			sum += clip.Volume.Pix[i]
		}
		mean := sum / float64(len(clip.Volume.Pix))
		if mean < 100 || mean > 160 {
			t.Errorf("mean pixel value = %.1f, want mid-gray", mean)
		}
	})

	t.Run("non-existent file", func(t *testing.T) {
		_, err := r.Read(ctx, "/nonexistent/clip.mp4")
		if err == nil {
			t.Fatal("expected error for non-existent file, got nil")
		}
		if _, ok := err.(*DecodeError); !ok {
			t.Errorf("expected DecodeError, got %T", err)
		}
	})

	t.Run("file without video stream", func(t *testing.T) {
		path := filepath.Join(tmpDir, "audio_only.wav")
		cmd := exec.Command("ffmpeg",
			"-y",
			"-f", "lavfi",
			"-i", "anullsrc=r=16000:cl=mono:d=0.3",
			path,
		)
		if output, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("failed to create audio-only file: %v\noutput: %s", err, output)
		}

		_, err := r.Read(ctx, path)
		if err == nil {
			t.Fatal("expected error for audio-only file, got nil")
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		path := filepath.Join(tmpDir, "cancel.mp4")
		createTestClip(t, path, 64, 48, 25, 0.5)

		cancelCtx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		_, err := r.Read(cancelCtx, path)
		if err == nil {
			t.Error("expected error for cancelled context, got nil")
		}
	})
}

func TestDecodeError(t *testing.T) {
	err := &DecodeError{
		Path:   "clip.mp4",
		Stderr: "moov atom not found",
		Err:    fmt.Errorf("exit status 1"),
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "clip.mp4") {
		t.Error("Error() should contain the path")
	}
	if !strings.Contains(errStr, "exit status 1") {
		t.Error("Error() should contain underlying error")
	}
	if !strings.Contains(errStr, "moov atom not found") {
		t.Error("Error() should contain stderr")
	}

	unwrapped := err.Unwrap()
	if unwrapped == nil {
		t.Fatal("Unwrap() returned nil")
	}
	if unwrapped.Error() != "exit status 1" {
		t.Errorf("Unwrap() returned wrong error: %v", unwrapped)
	}
}
