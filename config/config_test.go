package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func validConfig() *Config {
	c := Default()
	c.Model.Path = "models/ggml-tiny.en.bin"
	c.Model.LabelsPath = "models/labels.txt"
	return c
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:   "valid configuration",
			mutate: func(c *Config) {},
		},
		{
			name:     "sample rate too low",
			mutate:   func(c *Config) { c.Audio.SampleRate = 4000 },
			errorMsg: "sample_rate must be between",
		},
		{
			name:     "short window",
			mutate:   func(c *Config) { c.Audio.WindowDuration = 10 },
			errorMsg: "window_duration_ms",
		},
		{
			name:     "threshold above one",
			mutate:   func(c *Config) { c.Recognition.DetectionThreshold = 1.5 },
			errorMsg: "detection_threshold must be between 0 and 1",
		},
		{
			name:     "zero average window",
			mutate:   func(c *Config) { c.Recognition.AverageWindowDuration = 0 },
			errorMsg: "average_window_duration_ms",
		},
		{
			name:     "zero minimum count",
			mutate:   func(c *Config) { c.Recognition.MinimumCount = 0 },
			errorMsg: "minimum_count",
		},
		{
			name:     "missing model",
			mutate:   func(c *Config) { c.Model.Path = "" },
			errorMsg: "model config: path cannot be empty",
		},
		{
			name:     "missing labels",
			mutate:   func(c *Config) { c.Model.LabelsPath = "" },
			errorMsg: "labels_path",
		},
		{
			name:     "positive voice threshold",
			mutate:   func(c *Config) { c.Model.VoiceThresholdDB = 3 },
			errorMsg: "voice_threshold_db",
		},
		{
			name:     "empty action",
			mutate:   func(c *Config) { c.Referee.Actions = map[string]string{"yes": ""} },
			errorMsg: "actions entries",
		},
		{
			name: "recorder without dir",
			mutate: func(c *Config) {
				c.Recorder.Enabled = true
				c.Recorder.Dir = ""
			},
			errorMsg: "recorder config",
		},
		{
			name: "webhook without timeout",
			mutate: func(c *Config) {
				c.Webhook.URL = "http://localhost:8080/commands"
				c.Webhook.Timeout = 0
			},
			errorMsg: "timeout_ms",
		},
		{
			name:     "unknown log level",
			mutate:   func(c *Config) { c.Logging.Level = "verbose" },
			errorMsg: "level must be one of",
		},
		{
			name:     "unknown log format",
			mutate:   func(c *Config) { c.Logging.Format = "xml" },
			errorMsg: "format must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
				return
			}

			if err == nil {
				t.Errorf("Expected error but got none")
			} else if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	fs := afero.NewMemMapFs()

	content := `
audio:
  device: "USB Microphone"
recognition:
  detection_threshold: 0.4
model:
  path: models/ggml-base.en.bin
  labels_path: models/labels.txt
referee:
  actions:
    yes: host_point
    go: guest_point
    stop: undo
webhook:
  url: http://localhost:9000/hook
logging:
  level: debug
  format: json
`
	if err := afero.WriteFile(fs, "config.yaml", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(fs, "config.yaml")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if c.Audio.Device != "USB Microphone" {
		t.Errorf("device = %q", c.Audio.Device)
	}
	if c.Recognition.DetectionThreshold != 0.4 {
		t.Errorf("detection threshold = %f, want 0.4", c.Recognition.DetectionThreshold)
	}
	if c.Referee.Actions["go"] != "guest_point" {
		t.Errorf("actions = %v", c.Referee.Actions)
	}
	if c.Logging.Level != "debug" || c.Logging.Format != "json" {
		t.Errorf("logging = %+v", c.Logging)
	}

	// omitted keys keep their defaults
	if c.Audio.SampleRate != 16000 || c.Audio.WindowSamples() != 16000 {
		t.Errorf("audio = %+v", c.Audio)
	}
	if c.Recognition.GetSuppressionDuration() != 1500*time.Millisecond {
		t.Errorf("suppression = %s", c.Recognition.GetSuppressionDuration())
	}
	if c.Recognition.MinimumCount != 3 {
		t.Errorf("minimum count = %d, want 3", c.Recognition.MinimumCount)
	}
	if c.Recognition.GetMinimumTimeBetweenSamples() != 30*time.Millisecond {
		t.Errorf("interval = %s", c.Recognition.GetMinimumTimeBetweenSamples())
	}
	if c.Referee.GetMinTimeBetweenPoints() != 6*time.Second {
		t.Errorf("min time between points = %s", c.Referee.GetMinTimeBetweenPoints())
	}
	if c.Webhook.GetTimeout() != 2*time.Second {
		t.Errorf("webhook timeout = %s", c.Webhook.GetTimeout())
	}
}

func TestConfigLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	files := map[string]string{
		"broken.yaml":  "audio: [unterminated",
		"invalid.yaml": "model:\n  path: m.bin\n  labels_path: l.txt\naudio:\n  sample_rate: 1\n",
	}
	for name, content := range files {
		if err := afero.WriteFile(fs, name, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		path     string
		errorMsg string
	}{
		{"missing.yaml", "failed to read"},
		{"broken.yaml", "failed to parse"},
		{"invalid.yaml", "validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := Load(fs, tt.path)
			if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Load(%s) error = %v, want %q", tt.path, err, tt.errorMsg)
			}
		})
	}
}

func TestMinTimeBetweenPointsZeroDisables(t *testing.T) {
	r := RefereeConfig{MinTimeBetweenPoints: 0}

	if got := r.GetMinTimeBetweenPoints(); got >= 0 {
		t.Errorf("GetMinTimeBetweenPoints() = %s, want negative", got)
	}
}
