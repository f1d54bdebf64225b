package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"voice-referee/microphone"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := microphone.Devices()
		if err != nil {
			return fmt.Errorf("listing devices: %w", err)
		}

		printDevices(cmd.OutOrStdout(), devices)

		return nil
	},
}

func printDevices(out io.Writer, devices []microphone.Device) {
	if len(devices) == 0 {
		fmt.Fprintln(out, "No input devices found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEFAULT\tNAME\tHOST API\tCHANNELS\tRATE")

	for _, d := range devices {
		current := ""
		if d.IsDefault {
			current = "*"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.0f\n", current, d.Name, d.HostAPI, d.MaxInputChannels, d.DefaultSampleRate)
	}
	w.Flush()
}
