package webhook

import (
	"context"

	"voice-referee/recognition"
)

type WebhookAPI interface {
	recognition.CommandListener

	Send(ctx context.Context, event recognition.CommandEvent) error
}
