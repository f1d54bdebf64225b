// Package config loads the YAML configuration of the referee.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Audio       AudioConfig       `yaml:"audio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Model       ModelConfig       `yaml:"model"`
	Referee     RefereeConfig     `yaml:"referee"`
	Recorder    RecorderConfig    `yaml:"recorder"`
	Webhook     WebhookConfig     `yaml:"webhook"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// AudioConfig contains capture parameters
type AudioConfig struct {
	SampleRate     int    `yaml:"sample_rate"`
	WindowDuration int    `yaml:"window_duration_ms"`
	Device         string `yaml:"device"` // empty for the default input
}

// RecognitionConfig contains the command smoother and loop parameters
type RecognitionConfig struct {
	AverageWindowDuration     int     `yaml:"average_window_duration_ms"`
	DetectionThreshold        float32 `yaml:"detection_threshold"`
	SuppressionDuration       int     `yaml:"suppression_ms"`
	MinimumCount              int     `yaml:"minimum_count"`
	MinimumTimeBetweenSamples int     `yaml:"minimum_time_between_samples_ms"`
	QueueSize                 int     `yaml:"queue_size"`
}

// ModelConfig points at the whisper model and its label list
type ModelConfig struct {
	Path             string  `yaml:"path"`
	LabelsPath       string  `yaml:"labels_path"`
	Language         string  `yaml:"language"`
	VoiceThresholdDB float64 `yaml:"voice_threshold_db"`
}

// RefereeConfig contains scorekeeping parameters
type RefereeConfig struct {
	Enabled              bool              `yaml:"enabled"`
	MinTimeBetweenPoints int               `yaml:"min_time_between_points_ms"`
	Announce             bool              `yaml:"announce"`
	Actions              map[string]string `yaml:"actions"` // label -> action
}

// RecorderConfig controls saving command windows as wav clips
type RecorderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// WebhookConfig contains the command webhook target
type WebhookConfig struct {
	URL     string `yaml:"url"` // empty disables the webhook
	Timeout int    `yaml:"timeout_ms"`
}

// MetricsConfig contains the Prometheus endpoint
type MetricsConfig struct {
	Address string `yaml:"address"` // empty disables the endpoint
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used for every key the file omits.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:     16000,
			WindowDuration: 1000,
		},
		Recognition: RecognitionConfig{
			AverageWindowDuration:     1000,
			DetectionThreshold:        0.5,
			SuppressionDuration:       1500,
			MinimumCount:              3,
			MinimumTimeBetweenSamples: 30,
			QueueSize:                 16,
		},
		Model: ModelConfig{
			Language:         "en",
			VoiceThresholdDB: -45,
		},
		Referee: RefereeConfig{
			Enabled:              true,
			MinTimeBetweenPoints: 6000,
		},
		Recorder: RecorderConfig{
			Dir: "clips",
		},
		Webhook: WebhookConfig{
			Timeout: 2000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads and parses the configuration file on top of Default().
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Recognition.Validate(); err != nil {
		return fmt.Errorf("recognition config: %w", err)
	}

	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model config: %w", err)
	}

	if err := c.Referee.Validate(); err != nil {
		return fmt.Errorf("referee config: %w", err)
	}

	if err := c.Recorder.Validate(); err != nil {
		return fmt.Errorf("recorder config: %w", err)
	}

	if err := c.Webhook.Validate(); err != nil {
		return fmt.Errorf("webhook config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", a.SampleRate)
	}

	if a.WindowDuration < 100 {
		return fmt.Errorf("window_duration_ms must be at least 100, got %d", a.WindowDuration)
	}

	return nil
}

func (r *RecognitionConfig) Validate() error {
	if r.AverageWindowDuration <= 0 {
		return fmt.Errorf("average_window_duration_ms must be positive, got %d", r.AverageWindowDuration)
	}

	if r.DetectionThreshold < 0 || r.DetectionThreshold > 1 {
		return fmt.Errorf("detection_threshold must be between 0 and 1, got %f", r.DetectionThreshold)
	}

	if r.SuppressionDuration < 0 {
		return fmt.Errorf("suppression_ms cannot be negative, got %d", r.SuppressionDuration)
	}

	if r.MinimumCount < 1 {
		return fmt.Errorf("minimum_count must be at least 1, got %d", r.MinimumCount)
	}

	if r.MinimumTimeBetweenSamples <= 0 {
		return fmt.Errorf("minimum_time_between_samples_ms must be positive, got %d", r.MinimumTimeBetweenSamples)
	}

	if r.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", r.QueueSize)
	}

	return nil
}

func (m *ModelConfig) Validate() error {
	if m.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if m.LabelsPath == "" {
		return fmt.Errorf("labels_path cannot be empty")
	}

	if m.VoiceThresholdDB > 0 {
		return fmt.Errorf("voice_threshold_db is in dBFS and cannot be positive, got %f", m.VoiceThresholdDB)
	}

	return nil
}

func (r *RefereeConfig) Validate() error {
	if r.MinTimeBetweenPoints < 0 {
		return fmt.Errorf("min_time_between_points_ms cannot be negative, got %d", r.MinTimeBetweenPoints)
	}

	for label, action := range r.Actions {
		if label == "" || action == "" {
			return fmt.Errorf("actions entries need a label and an action, got %q: %q", label, action)
		}
	}

	return nil
}

func (r *RecorderConfig) Validate() error {
	if r.Enabled && r.Dir == "" {
		return fmt.Errorf("dir cannot be empty when the recorder is enabled")
	}

	return nil
}

func (w *WebhookConfig) Validate() error {
	if w.URL != "" && w.Timeout < 1 {
		return fmt.Errorf("timeout_ms must be at least 1, got %d", w.Timeout)
	}

	return nil
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// WindowSamples is the ring buffer capacity: one window at the sample rate.
func (a *AudioConfig) WindowSamples() int {
	return a.SampleRate * a.WindowDuration / 1000
}

func (r *RecognitionConfig) GetAverageWindowDuration() time.Duration {
	return time.Duration(r.AverageWindowDuration) * time.Millisecond
}

func (r *RecognitionConfig) GetSuppressionDuration() time.Duration {
	return time.Duration(r.SuppressionDuration) * time.Millisecond
}

func (r *RecognitionConfig) GetMinimumTimeBetweenSamples() time.Duration {
	return time.Duration(r.MinimumTimeBetweenSamples) * time.Millisecond
}

// GetMinTimeBetweenPoints maps an explicit zero to "no limit".
func (r *RefereeConfig) GetMinTimeBetweenPoints() time.Duration {
	if r.MinTimeBetweenPoints == 0 {
		return -1
	}

	return time.Duration(r.MinTimeBetweenPoints) * time.Millisecond
}

func (w *WebhookConfig) GetTimeout() time.Duration {
	return time.Duration(w.Timeout) * time.Millisecond
}
