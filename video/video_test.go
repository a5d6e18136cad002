package video

import "testing"

func TestVolumeFrameViews(t *testing.T) {
	vol := NewVolume(3, 2, 4)
	for i := 0; i < len(vol.Pix); i++ {
		vol.Pix[i] = float64(i)
	}

	t.Run("frame is a view", func(t *testing.T) {
		f := vol.Frame(1)
		if f.H != 2 || f.W != 4 {
			t.Fatalf("expected 2x4 frame, got %dx%d", f.H, f.W)
		}
		if got, want := f.At(0, 0), 8.0; got != want {
			t.Errorf("At(0,0) = %v, want %v", got, want)
		}
		if got, want := f.At(1, 3), 15.0; got != want {
			t.Errorf("At(1,3) = %v, want %v", got, want)
		}

		f.Pix[0] = -1
		if vol.Pix[8] != -1 {
			t.Error("mutating a frame view should mutate the volume")
		}
	})

	t.Run("window shares backing memory", func(t *testing.T) {
		w := vol.Window(1, 2)
		if w.Frames != 2 || w.H != 2 || w.W != 4 {
			t.Fatalf("unexpected window geometry: %d frames %dx%d", w.Frames, w.H, w.W)
		}
		w.Pix[1] = -2
		if vol.Pix[9] != -2 {
			t.Error("mutating a window should mutate the volume")
		}
	})

	t.Run("clone is independent", func(t *testing.T) {
		c := vol.Clone()
		c.Pix[0] = 99
		if vol.Pix[0] == 99 {
			t.Error("mutating a clone should not mutate the original")
		}
	})
}

func TestVolumeSetFrame(t *testing.T) {
	vol := NewVolume(2, 2, 2)
	f := Frame{Pix: []float64{1, 2, 3, 4}, H: 2, W: 2}

	vol.SetFrame(1, f)

	want := []float64{0, 0, 0, 0, 1, 2, 3, 4}
	for i := 0; i < len(want); i++ {
		if vol.Pix[i] != want[i] {
			t.Fatalf("Pix[%d] = %v, want %v", i, vol.Pix[i], want[i])
		}
	}
}

func TestParseProbeOutput(t *testing.T) {
	t.Run("integer frame rate", func(t *testing.T) {
		out := "width=1280\nheight=720\navg_frame_rate=25/1\n"
		w, h, rate, err := parseProbeOutput(out)
		if err != nil {
			t.Fatalf("parseProbeOutput failed: %v", err)
		}
		if w != 1280 || h != 720 {
			t.Errorf("expected 1280x720, got %dx%d", w, h)
		}
		if rate != 25 {
			t.Errorf("rate = %v, want 25", rate)
		}
	})

	t.Run("ntsc fractional frame rate", func(t *testing.T) {
		out := "width=640\nheight=480\navg_frame_rate=30000/1001\n"
		_, _, rate, err := parseProbeOutput(out)
		if err != nil {
			t.Fatalf("parseProbeOutput failed: %v", err)
		}
		if rate < 29.96 || rate > 29.98 {
			t.Errorf("rate = %v, want ~29.97", rate)
		}
	})

	t.Run("missing stream", func(t *testing.T) {
		_, _, _, err := parseProbeOutput("")
		if err != ErrNoVideoStream {
			t.Errorf("expected ErrNoVideoStream, got %v", err)
		}
	})

	t.Run("zero frame rate", func(t *testing.T) {
		out := "width=640\nheight=480\navg_frame_rate=0/0\n"
		_, _, _, err := parseProbeOutput(out)
		if err == nil {
			t.Error("expected error for 0/0 frame rate, got nil")
		}
	})

	t.Run("garbage width", func(t *testing.T) {
		out := "width=abc\nheight=480\navg_frame_rate=25/1\n"
		_, _, _, err := parseProbeOutput(out)
		if err == nil {
			t.Error("expected error for non-numeric width, got nil")
		}
	})
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"25/1", 25, false},
		{"24", 24, false},
		{"30000/1001", 29.97002997002997, false},
		{"25/0", 0, true},
		{"x/1", 0, true},
		{"1/x", 0, true},
	}

	for _, tc := range tests {
		got, err := parseFrameRate(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseFrameRate(%q): expected error, got nil", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseFrameRate(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseFrameRate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
