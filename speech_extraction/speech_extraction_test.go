package speech_extraction

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"

	"voice-referee/metrics"
	"voice-referee/recognition"
)

func newEvent(label string, window []int16) recognition.CommandEvent {
	return recognition.CommandEvent{
		ID:        uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Label:     label,
		Score:     0.9,
		Timestamp: time.UnixMilli(1700000000123),
		Window:    window,
	}
}

func TestSaveWritesReadableClip(t *testing.T) {
	fs := afero.NewMemMapFs()

	recorder, err := New(&Config{FileSys: fs, Dir: "clips", SampleRate: 16000})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	window := []int16{0, 1000, -1000, 32767, -32768, 42}

	path, err := recorder.Save(context.Background(), newEvent("yes", window))
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	want := filepath.Join("clips", "1700000000123-yes-6ba7b810-9dad-11d1-80b4-00c04fd430c8.wav")
	if path != want {
		t.Errorf("path = %s, want %s", path, want)
	}

	f, err := fs.Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		t.Fatal("clip is not a valid wav file")
	}
	if decoder.SampleRate != 16000 || decoder.NumChans != 1 || decoder.BitDepth != 16 {
		t.Errorf("format = %d Hz, %d channels, %d bits", decoder.SampleRate, decoder.NumChans, decoder.BitDepth)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer() error: %v", err)
	}

	if len(buf.Data) != len(window) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(window))
	}
	for i, s := range window {
		if buf.Data[i] != int(s) {
			t.Errorf("sample %d = %d, want %d", i, buf.Data[i], s)
		}
	}
}

func TestOnCommandCountsClips(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := metrics.New(nil)

	recorder, err := New(&Config{FileSys: fs, Dir: "clips", SampleRate: 16000, Metrics: m})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx := context.Background()
	recorder.OnCommand(ctx, newEvent("go", []int16{1, 2, 3}))
	recorder.OnCommand(ctx, newEvent("stop", nil))

	if got := testutil.ToFloat64(m.ClipsWritten); got != 1 {
		t.Errorf("clips written = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.ClipErrors); got != 1 {
		t.Errorf("clip errors = %f, want 1", got)
	}

	files, err := afero.ReadDir(fs, "clips")
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	if len(files) != 1 || !strings.Contains(files[0].Name(), "-go-") {
		t.Errorf("clips on disk = %v", files)
	}
}

func TestClipNameIsPathSafe(t *testing.T) {
	name := clipName(newEvent("on/off", nil))

	if strings.ContainsRune(name, '/') {
		t.Errorf("clip name %q contains a separator", name)
	}
}

func TestSaveHonoursCancelledContext(t *testing.T) {
	recorder, err := New(&Config{FileSys: afero.NewMemMapFs(), Dir: "clips", SampleRate: 16000})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := recorder.Save(ctx, newEvent("yes", []int16{1})); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestNewValidation(t *testing.T) {
	fs := afero.NewMemMapFs()

	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"nil fileSys", &Config{Dir: "clips", SampleRate: 16000}},
		{"empty dir", &Config{FileSys: fs, SampleRate: 16000}},
		{"zero sample rate", &Config{FileSys: fs, Dir: "clips"}},
		{"read only fs", &Config{FileSys: afero.NewReadOnlyFs(fs), Dir: "clips", SampleRate: 16000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}
