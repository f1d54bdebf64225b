// Package commands implements the voice-referee command line.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"voice-referee/config"
)

var (
	cfgFile string
	fileSys = afero.NewOsFs()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "voice-referee",
	Short: "Keep table tennis score by voice",
	Long: `voice-referee listens to a microphone, recognises short spoken
commands and keeps the score of a table tennis game.

By default "yes" scores for the host, "go" for the guest and "stop" takes
the last point back. The mapping, thresholds and outputs are set in the
YAML configuration file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file")

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(devicesCmd)
}

// loadConfig reads the config file and installs the configured logger as
// the slog default.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(fileSys, cfgFile)
	if err != nil {
		return nil, nil, err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("config_path", cfgFile),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("window_duration_ms", cfg.Audio.WindowDuration),
		slog.String("model_path", cfg.Model.Path),
		slog.Float64("detection_threshold", float64(cfg.Recognition.DetectionThreshold)),
		slog.String("log_level", cfg.Logging.Level),
	)

	return cfg, logger, nil
}

func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output io.Writer
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	default:
		file, err := fileSys.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", cfg.Output, err)
		}
		output = file
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(output, opts)), nil
	}

	return slog.New(slog.NewTextHandler(output, opts)), nil
}
