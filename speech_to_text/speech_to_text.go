// Package speech_to_text adapts a whisper model into a keyword classifier:
// each window is transcribed and the transcript is scored against the label
// list.
package speech_to_text

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"voice-referee/vad"
)

const unknownLabel = "_unknown_"

type sttImpl struct {
	transcriber transcriber
	labels      []string
	detector    *vad.Detector
	logger      *slog.Logger
}

type Config struct {
	Model    whisper.Model
	Labels   []string
	Language string

	// Detector skips the model for windows without speech-band energy.
	// Optional.
	Detector *vad.Detector
	Logger   *slog.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Model == nil {
		return nil, fmt.Errorf("model is nil")
	}

	stt, err := newWithTranscriber(cfg, &whisperTranscriber{
		model:    cfg.Model,
		language: cfg.Language,
	})
	if err != nil {
		return nil, err
	}

	return stt, nil
}

func newWithTranscriber(cfg *Config, t transcriber) (*sttImpl, error) {
	if len(cfg.Labels) == 0 {
		return nil, fmt.Errorf("labels are empty")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &sttImpl{
		transcriber: t,
		labels:      cfg.Labels,
		detector:    cfg.Detector,
		logger:      logger.With(slog.String("component", "speech_to_text")),
	}, nil
}

func (stt *sttImpl) Infer(samples []float32) ([]float32, error) {
	if stt.detector != nil && !stt.detector.IsVoiced(samples) {
		return ScoreTranscript(stt.labels, ""), nil
	}

	text, err := stt.transcriber.Transcribe(samples)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	if text != "" {
		stt.logger.Debug("Transcribed window", slog.String("text", text))
	}

	return ScoreTranscript(stt.labels, text), nil
}

// ScoreTranscript turns a transcript into a score vector. Every command label
// (one not starting with an underscore) spoken in the transcript shares the
// score equally. Speech that matches no label scores as _unknown_ when the
// model has that label, otherwise as silence; an empty transcript is silence.
func ScoreTranscript(labels []string, text string) []float32 {
	scores := make([]float32, len(labels))

	words := normalize(text)
	if words == "" {
		scores[0] = 1
		return scores
	}

	padded := " " + words + " "

	var matched []int
	for i, label := range labels {
		if i == 0 || strings.HasPrefix(label, "_") {
			continue
		}

		if strings.Contains(padded, " "+strings.ToLower(label)+" ") {
			matched = append(matched, i)
		}
	}

	if len(matched) == 0 {
		for i, label := range labels {
			if label == unknownLabel {
				scores[i] = 1
				return scores
			}
		}

		scores[0] = 1
		return scores
	}

	share := 1 / float32(len(matched))
	for _, i := range matched {
		scores[i] = share
	}

	return scores
}

// normalize keeps lowercase letters, digits and single spaces.
func normalize(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' {
			return r
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		if r == '\n' || r == '\t' || r == '-' {
			return ' '
		}

		return -1
	}, text)

	return strings.Join(strings.Fields(cleaned), " ")
}

type whisperTranscriber struct {
	model    whisper.Model
	language string
}

func (w *whisperTranscriber) Transcribe(samples []float32) (string, error) {
	// Create processing context
	context, err := w.model.NewContext()
	if err != nil {
		return "", err
	}

	if w.language != "" {
		if err := context.SetLanguage(w.language); err != nil {
			return "", err
		}
	}

	var cb whisper.SegmentCallback

	err = context.Process(samples, cb)
	if err != nil {
		return "", err
	}

	segments, err := outputSegments(context)
	if err != nil {
		return "", err
	}

	texts := make([]string, 0, len(segments))
	for _, segment := range segments {
		texts = append(texts, segment.Text)
	}

	return strings.Join(texts, " "), nil
}

func outputSegments(context whisper.Context) ([]whisper.Segment, error) {
	seenText := make(map[string]bool)

	segments := make([]whisper.Segment, 0)

	for {
		segment, err := context.NextSegment()
		if err == io.EOF {
			return segments, nil
		} else if err != nil {
			return nil, err
		}

		text := strings.TrimSpace(segment.Text)

		// non-speech annotations such as [BLANK_AUDIO] or (wind blowing)
		if len(text) > 0 && (text[0] == '(' || text[0] == '[' ||
			text[len(text)-1] == ')' || text[len(text)-1] == ']') {
			continue
		}

		if seenText[text] {
			continue
		}
		seenText[text] = true

		segment.Text = text
		segments = append(segments, segment)
	}
}
