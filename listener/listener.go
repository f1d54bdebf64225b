// Package listener runs the capture loop: it reads fixed-size chunks from a
// microphone source and writes them into the shared ring buffer until it is
// told to stop.
package listener

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"voice-referee/metrics"
	"voice-referee/microphone"
	"voice-referee/ring_buffer"
)

type Config struct {
	Source     microphone.Source
	Buffer     *ring_buffer.RingBuffer
	SampleRate int
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// run is one start/stop cycle of the capture goroutine.
type run struct {
	stop atomic.Bool
	done chan struct{}
	err  error
}

type Capture struct {
	source     microphone.Source
	buffer     *ring_buffer.RingBuffer
	sampleRate int
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu  sync.Mutex
	run *run
}

func New(cfg *Config) (*Capture, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Source == nil {
		return nil, fmt.Errorf("source is nil")
	}

	if cfg.Buffer == nil {
		return nil, fmt.Errorf("buffer is nil")
	}

	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.New(nil)
	}

	return &Capture{
		source:     cfg.Source,
		buffer:     cfg.Buffer,
		sampleRate: cfg.SampleRate,
		logger:     logger.With(slog.String("component", "capture")),
		metrics:    m,
	}, nil
}

// Start launches the capture goroutine. It is a no-op while capture is
// running; after a Stop it waits for the previous goroutine to finish its
// in-flight read before starting again.
func (c *Capture) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != nil {
		if !c.run.stop.Load() {
			return
		}
		<-c.run.done
	}

	r := &run{done: make(chan struct{})}
	c.run = r

	c.logger.Debug("Starting capture")

	go c.listenLoop(r)
}

// Stop asks the capture goroutine to exit after its current read. It does
// not wait; use Done for that.
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run == nil || c.run.stop.Load() {
		return
	}

	c.run.stop.Store(true)

	c.logger.Debug("Stopping capture")
}

func (c *Capture) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.run != nil && !c.run.stop.Load()
}

// Done is closed when the current capture goroutine has exited.
func (c *Capture) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run == nil {
		done := make(chan struct{})
		close(done)
		return done
	}

	return c.run.done
}

// Err reports why the last capture goroutine exited, or nil if it is still
// running or stopped cleanly.
func (c *Capture) Err() error {
	c.mu.Lock()
	r := c.run
	c.mu.Unlock()

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

func (c *Capture) chunkSize() int {
	size, err := c.source.MinBufferSize(c.sampleRate)
	if err != nil || size <= 0 {
		c.logger.Warn("Microphone reported no usable buffer size, using one second",
			slog.Int("reported", size),
			slog.Any("error", err),
		)

		return c.sampleRate
	}

	return size
}

func (c *Capture) listenLoop(r *run) {
	defer close(r.done)
	defer r.stop.Store(true)

	// keep the blocking device reads on one OS thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	chunkSize := c.chunkSize()
	c.metrics.CaptureChunkSize.Set(float64(chunkSize))

	err := c.source.Open(c.sampleRate, chunkSize)
	if err != nil {
		c.logger.Error("Audio source can't initialize", slog.String("error", err.Error()))
		c.metrics.CaptureFailures.Inc()
		r.err = err

		return
	}

	defer func() {
		if err := c.source.Close(); err != nil {
			c.logger.Warn("Error while closing audio source", slog.String("error", err.Error()))
		}
	}()

	c.logger.Info("Capture started",
		slog.Int("sample_rate", c.sampleRate),
		slog.Int("chunk_samples", chunkSize),
	)

	in := make([]int16, chunkSize)

	for !r.stop.Load() {
		n, err := c.source.Read(in)

		switch {
		case errors.Is(err, io.EOF):
			c.logger.Info("Audio source exhausted")
			return
		case errors.Is(err, microphone.ErrTransient):
			c.logger.Debug("Transient read anomaly", slog.String("error", err.Error()))
			c.metrics.ReadAnomalies.Inc()
			continue
		case err != nil:
			c.logger.Error("Capture read failed", slog.String("error", err.Error()))
			c.metrics.CaptureFailures.Inc()
			r.err = err
			return
		case n == 0:
			c.metrics.ReadAnomalies.Inc()
			continue
		}

		c.buffer.Write(in[:n])
		c.metrics.SamplesCaptured.Add(float64(n))
	}

	c.logger.Info("Capture stopped")
}
