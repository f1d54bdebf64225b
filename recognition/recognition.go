// Package recognition runs the recognition loop: snapshot the ring buffer,
// score the window, smooth the scores into command decisions and hand new
// commands to listeners off the loop goroutine.
package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"voice-referee/metrics"
	"voice-referee/ring_buffer"
	"voice-referee/speech_to_text"
)

const (
	defaultInterval  = 30 * time.Millisecond
	defaultQueueSize = 16

	// int16 full scale used to map samples into [-1, 1]
	sampleScale = 32767.0
)

type Config struct {
	Buffer    *ring_buffer.RingBuffer
	Model     speech_to_text.Interface
	Smoother  Smoother
	Listeners []CommandListener

	// Interval is the pause after each iteration.
	Interval  time.Duration
	QueueSize int

	// Now defaults to time.Now. It must carry a monotonic reading.
	Now     func() time.Time
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

type run struct {
	stop   atomic.Bool
	stopCh chan struct{}
	queue  chan CommandEvent
	done   chan struct{}
	err    error
}

type Loop struct {
	buffer    *ring_buffer.RingBuffer
	model     speech_to_text.Interface
	smoother  Smoother
	listeners []CommandListener
	interval  time.Duration
	queueSize int
	now       func() time.Time
	epoch     time.Time
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu  sync.Mutex
	run *run
}

func New(cfg *Config) (*Loop, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Buffer == nil {
		return nil, fmt.Errorf("buffer is nil")
	}

	if cfg.Model == nil {
		return nil, fmt.Errorf("model is nil")
	}

	if cfg.Smoother == nil {
		return nil, fmt.Errorf("smoother is nil")
	}

	if cfg.Interval < 0 {
		return nil, fmt.Errorf("interval cannot be negative, got %s", cfg.Interval)
	}

	for i, l := range cfg.Listeners {
		if l == nil {
			return nil, fmt.Errorf("listener %d is nil", i)
		}
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = defaultInterval
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.New(nil)
	}

	return &Loop{
		buffer:    cfg.Buffer,
		model:     cfg.Model,
		smoother:  cfg.Smoother,
		listeners: cfg.Listeners,
		interval:  interval,
		queueSize: queueSize,
		now:       now,
		epoch:     now(),
		logger:    logger.With(slog.String("component", "recognition")),
		metrics:   m,
	}, nil
}

// Start launches the recognition and dispatch goroutines. It is a no-op
// while the loop is running; after a Stop it waits for the previous run to
// finish before starting again.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.run != nil {
		if !l.run.stop.Load() {
			return
		}
		<-l.run.done
	}

	r := &run{
		stopCh: make(chan struct{}),
		queue:  make(chan CommandEvent, l.queueSize),
		done:   make(chan struct{}),
	}
	l.run = r

	l.logger.Debug("Starting recognition")

	go l.dispatchLoop(r)
	go l.recognizeLoop(r)
}

// Stop asks the loop to exit after the current iteration. An inference call
// in progress is not interrupted.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.run == nil || l.run.stop.Load() {
		return
	}

	l.run.stop.Store(true)
	close(l.run.stopCh)

	l.logger.Debug("Stopping recognition")
}

func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.run != nil && !l.run.stop.Load()
}

// Done is closed once the current run has exited and every queued event
// has been delivered.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.run == nil {
		done := make(chan struct{})
		close(done)
		return done
	}

	return l.run.done
}

// Err reports why the last run exited, or nil if it is still running or was
// stopped.
func (l *Loop) Err() error {
	l.mu.Lock()
	r := l.run
	l.mu.Unlock()

	if r == nil {
		return nil
	}

	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// timestamp is milliseconds since the loop was created, on the monotonic
// clock, so it never goes backwards across restarts.
func (l *Loop) timestamp() int64 {
	return l.now().Sub(l.epoch).Milliseconds()
}

func (l *Loop) recognizeLoop(r *run) {
	defer close(r.queue)
	defer r.stop.Store(true)

	l.logger.Info("Recognition started", slog.Duration("interval", l.interval))

	snapshot := make([]int16, l.buffer.Capacity())
	samples := make([]float32, len(snapshot))
	silence := l.smoother.SilenceLabel()

	for !r.stop.Load() {
		snapshot = l.buffer.Snapshot(snapshot)

		for i, s := range snapshot {
			samples[i] = float32(s) / sampleScale
		}

		started := time.Now()
		scores, err := l.model.Infer(samples)
		l.metrics.InferenceDuration.Observe(time.Since(started).Seconds())
		if err != nil {
			l.logger.Error("Inference failed, stopping recognition", slog.String("error", err.Error()))
			l.metrics.InferenceErrors.Inc()
			r.err = fmt.Errorf("inference: %w", err)
			return
		}

		ts := l.timestamp()

		result, err := l.smoother.Process(scores, ts)
		if err != nil {
			l.logger.Error("Command smoother rejected result, stopping recognition",
				slog.String("error", err.Error()),
				slog.Int64("timestamp_ms", ts),
			)
			l.metrics.ContractViolations.Inc()
			r.err = err
			return
		}

		l.metrics.RecognitionTicks.Inc()
		l.metrics.TopScore.Observe(float64(result.Score))

		// "_silence_", "_unknown_" and any other underscore label is model
		// bookkeeping, never a command
		if result.IsNewCommand && !isReserved(result.Label, silence) {
			window := make([]int16, len(snapshot))
			copy(window, snapshot)

			l.dispatch(r, CommandEvent{
				ID:        uuid.New(),
				Label:     result.Label,
				Score:     result.Score,
				Timestamp: time.Now(),
				Offset:    ts,
				Window:    window,
			})
		}

		select {
		case <-r.stopCh:
		case <-time.After(l.interval):
		}
	}

	l.logger.Info("Recognition stopped")
}

func isReserved(label, silence string) bool {
	return label == silence || strings.HasPrefix(label, "_")
}

func (l *Loop) dispatch(r *run, event CommandEvent) {
	l.metrics.CommandsDetected.WithLabelValues(event.Label).Inc()

	l.logger.Info("Command detected",
		slog.String("label", event.Label),
		slog.Float64("score", float64(event.Score)),
		slog.String("id", event.ID.String()),
	)

	select {
	case r.queue <- event:
	default:
		l.logger.Warn("Listener queue full, dropping command", slog.String("label", event.Label))
		l.metrics.DispatchDropped.Inc()
	}
}

func (l *Loop) dispatchLoop(r *run) {
	defer close(r.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for event := range r.queue {
		for _, listener := range l.listeners {
			listener.OnCommand(ctx, event)
		}
	}
}
