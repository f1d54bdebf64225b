package speech_to_text

import (
	"errors"
	"math"
	"testing"

	"voice-referee/vad"
)

var labels = []string{"_silence_", "_unknown_", "yes", "no", "up", "down", "left", "right", "on", "off", "stop", "go"}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(samples []float32) (string, error) {
	f.calls++
	return f.text, f.err
}

func index(label string) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return -1
}

func TestScoreTranscript(t *testing.T) {
	tests := []struct {
		name     string
		labels   []string
		text     string
		expected map[string]float32
	}{
		{"empty transcript is silence", labels, "", map[string]float32{"_silence_": 1}},
		{"punctuation only is silence", labels, " ... ", map[string]float32{"_silence_": 1}},
		{"single command", labels, " Yes!", map[string]float32{"yes": 1}},
		{"two commands share the score", labels, "Stop, go.", map[string]float32{"stop": 0.5, "go": 0.5}},
		{"unmatched speech is unknown", labels, "hello there", map[string]float32{"_unknown_": 1}},
		{"substring does not match", labels, "yesterday", map[string]float32{"_unknown_": 1}},
		{"unmatched speech without unknown label", []string{"_silence_", "yes"}, "maybe", map[string]float32{"_silence_": 1}},
		{"underscore labels are never matched", labels, "unknown silence", map[string]float32{"_unknown_": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := ScoreTranscript(tt.labels, tt.text)
			if len(scores) != len(tt.labels) {
				t.Fatalf("got %d scores for %d labels", len(scores), len(tt.labels))
			}

			for i, label := range tt.labels {
				want := tt.expected[label]
				if math.Abs(float64(scores[i]-want)) > 1e-6 {
					t.Errorf("score[%s] = %f, want %f", label, scores[i], want)
				}
			}
		})
	}
}

func TestInferTranscribesVoicedWindows(t *testing.T) {
	fake := &fakeTranscriber{text: "go"}
	stt, err := newWithTranscriber(&Config{Labels: labels}, fake)
	if err != nil {
		t.Fatalf("newWithTranscriber() error: %v", err)
	}

	scores, err := stt.Infer(make([]float32, 160))
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}

	if scores[index("go")] != 1 {
		t.Errorf("expected go to score 1, got %v", scores)
	}
	if fake.calls != 1 {
		t.Errorf("transcriber called %d times, want 1", fake.calls)
	}
}

func TestInferSkipsQuietWindows(t *testing.T) {
	fake := &fakeTranscriber{text: "yes"}
	stt, _ := newWithTranscriber(&Config{
		Labels:   labels,
		Detector: vad.New(16000, -50),
	}, fake)

	scores, err := stt.Infer(make([]float32, 16000))
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}

	if fake.calls != 0 {
		t.Errorf("transcriber called for a silent window")
	}
	if scores[0] != 1 {
		t.Errorf("expected silence, got %v", scores)
	}
}

func TestInferPropagatesErrors(t *testing.T) {
	failure := errors.New("model crashed")
	stt, _ := newWithTranscriber(&Config{Labels: labels}, &fakeTranscriber{err: failure})

	if _, err := stt.Infer(make([]float32, 10)); !errors.Is(err, failure) {
		t.Errorf("Infer() error = %v, want %v", err, failure)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := New(&Config{Labels: labels}); err == nil {
		t.Error("expected error for nil model")
	}
	if _, err := newWithTranscriber(&Config{}, &fakeTranscriber{}); err == nil {
		t.Error("expected error for empty labels")
	}
}
