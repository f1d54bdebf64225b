package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voice-referee/microphone"
)

var replayFast bool

var replayCmd = &cobra.Command{
	Use:   "replay <file.wav>",
	Short: "Keep score from a recorded wav file",
	Long: `Feed a mono 16-bit wav file through the recognizer as if it were a
live microphone, then print the final score.

The file's sample rate must match audio.sample_rate.

Examples:
  voice-referee replay match.wav
  voice-referee replay --fast clips/1700000000123-yes-6ba7b810.wav`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		source, err := microphone.NewWavFile(&microphone.WavFileConfig{
			FileSys:  fileSys,
			Path:     args[0],
			Realtime: !replayFast,
		})
		if err != nil {
			return err
		}

		model, labelList, release, err := loadModel(cfg, fileSys, logger)
		if err != nil {
			return err
		}
		defer release()

		m, server := newMetrics(cfg.Metrics.Address, logger)
		defer server.Stop()

		a, err := newApp(&appDeps{
			Config:  cfg,
			FileSys: fileSys,
			Source:  source,
			Model:   model,
			Labels:  labelList,
			Logger:  logger,
			Metrics: m,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// give the last window a full averaging period
		return a.run(ctx, cfg.Recognition.GetAverageWindowDuration())
	},
}

func init() {
	replayCmd.Flags().BoolVar(&replayFast, "fast", false, "read the file as fast as possible instead of in real time")
}
