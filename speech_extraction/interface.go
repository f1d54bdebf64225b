// Package speech_extraction saves the audio window each command was
// recognised in, so misfires can be listened to and used as training data.
package speech_extraction

import (
	"context"

	"voice-referee/recognition"
)

type Interface interface {
	recognition.CommandListener

	// Save writes the event's window to a wav file and returns its path.
	Save(ctx context.Context, event recognition.CommandEvent) (string, error)
}
