package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/spf13/afero"

	"voice-referee/clients/webhook"
	"voice-referee/command_smoother"
	"voice-referee/config"
	"voice-referee/labels"
	"voice-referee/listener"
	"voice-referee/metrics"
	"voice-referee/microphone"
	"voice-referee/pipeline"
	"voice-referee/recognition"
	"voice-referee/referee"
	"voice-referee/ring_buffer"
	"voice-referee/speech_extraction"
	"voice-referee/speech_to_text"
	"voice-referee/vad"
)

// The loops and the smoother are concrete types; the pipeline only sees
// them through its own small interfaces.
var (
	_ pipeline.Worker     = (*listener.Capture)(nil)
	_ pipeline.Worker     = (*recognition.Loop)(nil)
	_ pipeline.Resettable = (*command_smoother.Smoother)(nil)
)

type appDeps struct {
	Config  *config.Config
	FileSys afero.Fs
	Source  microphone.Source
	Model   speech_to_text.Interface
	Labels  []string
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// app is one assembled recognizer: buffer, both loops, the pipeline over
// them and the command listeners.
type app struct {
	capture  *listener.Capture
	loop     *recognition.Loop
	pipeline *pipeline.Pipeline
	referee  *referee.Referee
	logger   *slog.Logger
}

func newApp(deps *appDeps) (*app, error) {
	cfg := deps.Config

	buffer := ring_buffer.New(cfg.Audio.WindowSamples())

	capture, err := listener.New(&listener.Config{
		Source:     deps.Source,
		Buffer:     buffer,
		SampleRate: cfg.Audio.SampleRate,
		Logger:     deps.Logger,
		Metrics:    deps.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("listener.New: %w", err)
	}

	smoother, err := command_smoother.New(&command_smoother.Config{
		Labels:                    deps.Labels,
		AverageWindowDuration:     cfg.Recognition.GetAverageWindowDuration(),
		DetectionThreshold:        cfg.Recognition.DetectionThreshold,
		SuppressionDuration:       cfg.Recognition.GetSuppressionDuration(),
		MinimumCount:              cfg.Recognition.MinimumCount,
		MinimumTimeBetweenSamples: cfg.Recognition.GetMinimumTimeBetweenSamples(),
	})
	if err != nil {
		return nil, fmt.Errorf("command_smoother.New: %w", err)
	}

	a := &app{
		capture: capture,
		logger:  deps.Logger,
	}

	listeners, err := a.newListeners(deps)
	if err != nil {
		return nil, err
	}

	a.loop, err = recognition.New(&recognition.Config{
		Buffer:    buffer,
		Model:     deps.Model,
		Smoother:  smoother,
		Listeners: listeners,
		Interval:  smoother.MinimumTimeBetweenSamples(),
		QueueSize: cfg.Recognition.QueueSize,
		Logger:    deps.Logger,
		Metrics:   deps.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("recognition.New: %w", err)
	}

	a.pipeline, err = pipeline.New(&pipeline.Config{
		Capture:     capture,
		Recognition: a.loop,
		Buffer:      buffer,
		Smoother:    smoother,
		Logger:      deps.Logger,
		Metrics:     deps.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline.New: %w", err)
	}

	return a, nil
}

func (a *app) newListeners(deps *appDeps) ([]recognition.CommandListener, error) {
	cfg := deps.Config

	var listeners []recognition.CommandListener

	if cfg.Referee.Enabled {
		actions := referee.DefaultActions()
		if len(cfg.Referee.Actions) > 0 {
			actions = make(map[string]referee.Action, len(cfg.Referee.Actions))
			for label, name := range cfg.Referee.Actions {
				action, err := referee.ParseAction(name)
				if err != nil {
					return nil, fmt.Errorf("referee action for %q: %w", label, err)
				}
				actions[label] = action
			}
		}

		ref, err := referee.New(&referee.Config{
			Actions:              actions,
			MinTimeBetweenPoints: cfg.Referee.GetMinTimeBetweenPoints(),
			Announce:             cfg.Referee.Announce,
			Logger:               deps.Logger,
			Metrics:              deps.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("referee.New: %w", err)
		}

		a.referee = ref
		listeners = append(listeners, ref)
	}

	if cfg.Recorder.Enabled {
		recorder, err := speech_extraction.New(&speech_extraction.Config{
			FileSys:    deps.FileSys,
			Dir:        cfg.Recorder.Dir,
			SampleRate: cfg.Audio.SampleRate,
			Logger:     deps.Logger,
			Metrics:    deps.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("speech_extraction.New: %w", err)
		}

		listeners = append(listeners, recorder)
	}

	if cfg.Webhook.URL != "" {
		hook, err := webhook.NewClient(&webhook.Config{
			URL:     cfg.Webhook.URL,
			Timeout: cfg.Webhook.GetTimeout(),
			Logger:  deps.Logger,
			Metrics: deps.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("webhook.NewClient: %w", err)
		}

		listeners = append(listeners, hook)
	}

	return listeners, nil
}

// run starts the pipeline and blocks until ctx is cancelled or a loop
// exits on its own. When capture runs out of audio the recognizer gets
// tail more time on the last window before it is stopped.
func (a *app) run(ctx context.Context, tail time.Duration) error {
	a.pipeline.Start()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down")
	case <-a.loop.Done():
	case <-a.capture.Done():
		if a.capture.Err() == nil {
			select {
			case <-ctx.Done():
			case <-a.loop.Done():
			case <-time.After(tail):
			}
		}
	}

	a.pipeline.Stop()
	a.pipeline.Wait()

	if a.referee != nil {
		score := a.referee.Snapshot()
		a.logger.Info("Final score",
			slog.Int("host", score.Host),
			slog.Int("guest", score.Guest),
			slog.Bool("game_over", score.GameOver),
		)
	}

	return a.pipeline.Err()
}

// loadModel opens the whisper model and wraps it in the keyword adapter.
// The returned function releases the model.
func loadModel(cfg *config.Config, fs afero.Fs, logger *slog.Logger) (speech_to_text.Interface, []string, func(), error) {
	labelList, err := labels.Load(fs, cfg.Model.LabelsPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger.Info("Labels loaded",
		slog.Int("count", len(labelList)),
		slog.Any("commands", labels.Displayed(labelList)),
	)

	model, err := whisper.New(cfg.Model.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error loading model: %w", err)
	}

	stt, err := speech_to_text.New(&speech_to_text.Config{
		Model:    model,
		Labels:   labelList,
		Language: cfg.Model.Language,
		Detector: vad.New(cfg.Audio.SampleRate, cfg.Model.VoiceThresholdDB),
		Logger:   logger,
	})
	if err != nil {
		model.Close()
		return nil, nil, nil, fmt.Errorf("speech_to_text.New: %w", err)
	}

	release := func() {
		if err := model.Close(); err != nil {
			logger.Warn("Error while closing model", slog.String("error", err.Error()))
		}
	}

	return stt, labelList, release, nil
}
