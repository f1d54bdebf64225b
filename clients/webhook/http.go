package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"voice-referee/metrics"
	"voice-referee/recognition"
)

const defaultTimeout = 2 * time.Second

// Payload is the JSON body posted for every command.
type Payload struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Score     float32   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
	OffsetMs  int64     `json:"offset_ms"`
}

type clientImpl struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Config struct {
	URL string

	// Timeout bounds a single delivery. Defaults to two seconds.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

func NewClient(cfg *Config) (WebhookAPI, error) {
	if cfg == nil {
		return nil, errors.New("missing parameter: cfg")
	}

	if cfg.URL == "" {
		return nil, errors.New("missing parameter: cfg.URL")
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout cannot be negative, got %s", cfg.Timeout)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.New(nil)
	}

	return &clientImpl{
		url:        cfg.URL,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "webhook")),
		metrics:    m,
	}, nil
}

// OnCommand delivers the event once; failures are logged and not retried.
func (client *clientImpl) OnCommand(ctx context.Context, event recognition.CommandEvent) {
	if err := client.Send(ctx, event); err != nil {
		client.logger.Warn("Webhook delivery failed",
			slog.String("label", event.Label),
			slog.String("error", err.Error()),
		)
		client.metrics.WebhookRequests.WithLabelValues("error").Inc()
		return
	}

	client.metrics.WebhookRequests.WithLabelValues("ok").Inc()
}

func (client *clientImpl) Send(ctx context.Context, event recognition.CommandEvent) error {
	body, err := json.Marshal(Payload{
		ID:        event.ID.String(),
		Label:     event.Label,
		Score:     event.Score,
		Timestamp: event.Timestamp,
		OffsetMs:  event.Offset,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, client.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}

	return nil
}
