package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voice-referee/microphone"
)

var deviceName string

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Keep score from the microphone",
	Long: `Capture audio from an input device and keep score until interrupted.

Examples:
  voice-referee listen
  voice-referee listen -c referee.yaml --device "USB Audio"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		if deviceName != "" {
			cfg.Audio.Device = deviceName
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
			Source:  microphone.NewPortAudio(cfg.Audio.Device, logger),
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

		return a.run(ctx, 0)
	},
}

func init() {
	listenCmd.Flags().StringVar(&deviceName, "device", "", "input device name (overrides audio.device)")
}
