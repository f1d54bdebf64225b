package speech_extraction

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/zenwerk/go-wave"

	"voice-referee/metrics"
	"voice-referee/recognition"
)

const (
	bitsPerSample = 16
	channels      = 1
)

type Config struct {
	FileSys    afero.Fs
	Dir        string
	SampleRate int
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

type recorderImpl struct {
	fileSys    afero.Fs
	dir        string
	sampleRate int
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("fileSys is nil")
	}

	if cfg.Dir == "" {
		return nil, fmt.Errorf("dir is empty")
	}

	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}

	if err := cfg.FileSys.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating clip directory: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.New(nil)
	}

	return &recorderImpl{
		fileSys:    cfg.FileSys,
		dir:        cfg.Dir,
		sampleRate: cfg.SampleRate,
		logger:     logger.With(slog.String("component", "clip_recorder")),
		metrics:    m,
	}, nil
}

func (r *recorderImpl) OnCommand(ctx context.Context, event recognition.CommandEvent) {
	path, err := r.Save(ctx, event)
	if err != nil {
		r.logger.Error("Failed to save command clip",
			slog.String("label", event.Label),
			slog.String("error", err.Error()),
		)
		r.metrics.ClipErrors.Inc()
		return
	}

	r.metrics.ClipsWritten.Inc()
	r.logger.Debug("Saved command clip", slog.String("path", path))
}

func (r *recorderImpl) Save(ctx context.Context, event recognition.CommandEvent) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if len(event.Window) == 0 {
		return "", fmt.Errorf("event %s has no audio", event.ID)
	}

	path := filepath.Join(r.dir, clipName(event))

	waveFile, err := r.fileSys.Create(path)
	if err != nil {
		return "", err
	}

	param := wave.WriterParam{
		Out:           waveFile,
		Channel:       channels,
		SampleRate:    r.sampleRate,
		BitsPerSample: bitsPerSample,
	}

	waveWriter, err := wave.NewWriter(param)
	if err != nil {
		waveFile.Close()
		return "", err
	}

	_, err = waveWriter.WriteSample16(event.Window)
	if err != nil {
		waveWriter.Close()
		return "", err
	}

	// closes waveFile too
	if err := waveWriter.Close(); err != nil {
		return "", err
	}

	return path, nil
}

// clipName is <unix-ms>-<label>-<id>.wav with the label made path safe.
func clipName(event recognition.CommandEvent) string {
	label := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == filepath.Separator {
			return '_'
		}
		return r
	}, event.Label)

	return fmt.Sprintf("%d-%s-%s.wav", event.Timestamp.UnixMilli(), label, event.ID)
}
