// Package pipeline is the control surface over the capture and recognition
// loops: start, stop, pause around speech output, and a status indicator that
// follows those calls.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"voice-referee/metrics"
)

type Status int

const (
	StatusStopped Status = iota
	StatusPaused
	StatusWorking
)

func (s Status) String() string {
	switch s {
	case StatusWorking:
		return "working"
	case StatusPaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Worker is a background loop with cooperative start/stop, implemented by
// listener.Capture and recognition.Loop.
type Worker interface {
	Start()
	Stop()
	Running() bool
	Done() <-chan struct{}
	Err() error
}

// Clearable is the part of the ring buffer the pipeline resets on resume.
type Clearable interface {
	Clear()
}

// Resettable is the part of the command smoother the pipeline resets on
// resume. Reset is only called while recognition is stopped.
type Resettable interface {
	Reset()
}

type Config struct {
	Capture     Worker
	Recognition Worker
	Buffer      Clearable
	Smoother    Resettable

	// OnStatus is called with the new status after every change, on the
	// caller's goroutine.
	OnStatus func(Status)
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

type Pipeline struct {
	capture     Worker
	recognition Worker
	buffer      Clearable
	smoother    Resettable
	onStatus    func(Status)
	logger      *slog.Logger
	metrics     *metrics.Metrics

	mu     sync.Mutex
	status Status
}

func New(cfg *Config) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Capture == nil {
		return nil, fmt.Errorf("capture is nil")
	}

	if cfg.Recognition == nil {
		return nil, fmt.Errorf("recognition is nil")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.New(nil)
	}

	return &Pipeline{
		capture:     cfg.Capture,
		recognition: cfg.Recognition,
		buffer:      cfg.Buffer,
		smoother:    cfg.Smoother,
		onStatus:    cfg.OnStatus,
		logger:      logger.With(slog.String("component", "pipeline")),
		metrics:     m,
	}, nil
}

// Start starts capture, then recognition. Calling it while working is a
// no-op; calling it while paused resumes.
//
// Start waits for the previous runs to exit, and recognition only exits
// once its listeners have returned, so it must not be called from a
// recognition.CommandListener.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status == StatusWorking {
		return
	}

	p.startLocked()
	p.setStatusLocked(StatusWorking)
}

// Stop stops recognition, then capture. Both exit after their current
// iteration; use Wait to block until they have. It does not wait, so it is
// safe to call from a recognition.CommandListener.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status == StatusStopped {
		return
	}

	p.stopLocked()
	p.setStatusLocked(StatusStopped)
}

// Pause halts both loops without leaving voice-command mode, for example
// while the application is speaking. Like Stop it does not wait.
func (p *Pipeline) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != StatusWorking {
		return
	}

	p.stopLocked()
	p.setStatusLocked(StatusPaused)
}

// Resume restarts a paused pipeline with a cleared buffer and smoother so
// audio from before the pause is not recognised again. It waits like Start
// and must not be called from a recognition.CommandListener either.
func (p *Pipeline) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != StatusPaused {
		return
	}

	p.startLocked()
	p.setStatusLocked(StatusWorking)
}

func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.status
}

// Wait blocks until both loops have exited.
func (p *Pipeline) Wait() {
	<-p.recognition.Done()
	<-p.capture.Done()
}

// Err joins the failures the loops stopped on, if any.
func (p *Pipeline) Err() error {
	return errors.Join(p.capture.Err(), p.recognition.Err())
}

func (p *Pipeline) startLocked() {
	// let the previous runs finish so the buffer is not cleared under a
	// writer that is still exiting
	<-p.recognition.Done()
	<-p.capture.Done()

	if p.buffer != nil {
		p.buffer.Clear()
	}

	if p.smoother != nil {
		p.smoother.Reset()
	}

	p.capture.Start()
	p.recognition.Start()
}

func (p *Pipeline) stopLocked() {
	p.recognition.Stop()
	p.capture.Stop()
}

func (p *Pipeline) setStatusLocked(status Status) {
	p.status = status
	p.metrics.PipelineStatus.Set(float64(status))

	p.logger.Info("Recognizer status changed", slog.String("status", status.String()))

	if p.onStatus != nil {
		p.onStatus(status)
	}
}
