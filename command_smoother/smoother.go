// Package command_smoother turns a stream of per-window classifier scores
// into debounced command decisions.
//
// Scores are averaged over a trailing time window. A label is reported as a
// new command once its average clears the detection threshold, enough
// results have been seen, and the suppression interval since the previous
// confirmation has passed. Label index 0 is the silence/background label and
// is never confirmed.
package command_smoother

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrScoreCountMismatch is returned when a score vector does not have one
	// entry per label.
	ErrScoreCountMismatch = errors.New("score vector length does not match label count")

	// ErrNonMonotonicTimestamp is returned when a timestamp is older than the
	// newest one already in the window.
	ErrNonMonotonicTimestamp = errors.New("timestamp is earlier than the previous result")
)

type Config struct {
	// Labels in model output order. Index 0 is the silence label.
	Labels []string

	AverageWindowDuration time.Duration
	DetectionThreshold    float32
	SuppressionDuration   time.Duration
	MinimumCount          int

	// MinimumTimeBetweenSamples is the cadence the caller should keep between
	// calls. The smoother does not enforce it.
	MinimumTimeBetweenSamples time.Duration
}

// Result is the decision for one Process call.
type Result struct {
	Label        string
	Score        float32
	IsNewCommand bool
}

type timestampedScores struct {
	timestamp int64
	scores    []float32
}

// Smoother keeps the sliding window history. It must only be used from one
// goroutine.
type Smoother struct {
	labels          []string
	windowMs        int64
	threshold       float32
	suppressionMs   int64
	minimumCount    int
	minimumInterval time.Duration

	history []timestampedScores
	sums    []float64

	lastLabel     string
	lastTimestamp int64
	confirmed     bool
}

func New(cfg *Config) (*Smoother, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if len(cfg.Labels) == 0 {
		return nil, fmt.Errorf("labels are empty")
	}

	if cfg.AverageWindowDuration <= 0 {
		return nil, fmt.Errorf("average window duration must be positive, got %s", cfg.AverageWindowDuration)
	}

	if cfg.DetectionThreshold < 0 || cfg.DetectionThreshold > 1 {
		return nil, fmt.Errorf("detection threshold must be between 0.0 and 1.0, got %f", cfg.DetectionThreshold)
	}

	if cfg.SuppressionDuration < 0 {
		return nil, fmt.Errorf("suppression duration cannot be negative, got %s", cfg.SuppressionDuration)
	}

	if cfg.MinimumCount < 1 {
		return nil, fmt.Errorf("minimum count must be at least 1, got %d", cfg.MinimumCount)
	}

	if cfg.MinimumTimeBetweenSamples < 0 {
		return nil, fmt.Errorf("minimum time between samples cannot be negative, got %s", cfg.MinimumTimeBetweenSamples)
	}

	labels := make([]string, len(cfg.Labels))
	copy(labels, cfg.Labels)

	return &Smoother{
		labels:          labels,
		windowMs:        cfg.AverageWindowDuration.Milliseconds(),
		threshold:       cfg.DetectionThreshold,
		suppressionMs:   cfg.SuppressionDuration.Milliseconds(),
		minimumCount:    cfg.MinimumCount,
		minimumInterval: cfg.MinimumTimeBetweenSamples,
		sums:            make([]float64, len(labels)),
		lastLabel:       labels[0],
	}, nil
}

// Process adds the scores observed at timestampMs to the window and returns
// the current decision. Timestamps are milliseconds on a monotonic clock and
// must not go backwards.
func (s *Smoother) Process(scores []float32, timestampMs int64) (Result, error) {
	if len(scores) != len(s.labels) {
		return Result{}, fmt.Errorf("%w: got %d scores for %d labels", ErrScoreCountMismatch, len(scores), len(s.labels))
	}

	if n := len(s.history); n > 0 && timestampMs < s.history[n-1].timestamp {
		return Result{}, fmt.Errorf("%w: %d after %d", ErrNonMonotonicTimestamp, timestampMs, s.history[n-1].timestamp)
	}

	limit := timestampMs - s.windowMs
	evict := 0
	for evict < len(s.history) && s.history[evict].timestamp < limit {
		evict++
	}
	if evict > 0 {
		s.history = append(s.history[:0], s.history[evict:]...)
	}

	entry := timestampedScores{timestamp: timestampMs, scores: make([]float32, len(scores))}
	copy(entry.scores, scores)
	s.history = append(s.history, entry)

	// too little of the window is covered to trust an average
	if 2*(timestampMs-s.history[0].timestamp) < s.windowMs {
		return Result{Label: s.labels[0]}, nil
	}

	for i := range s.sums {
		s.sums[i] = 0
	}
	for _, h := range s.history {
		for i, score := range h.scores {
			s.sums[i] += float64(score)
		}
	}

	// ties go to the lowest label index
	best := 0
	for i := 1; i < len(s.sums); i++ {
		if s.sums[i] > s.sums[best] {
			best = i
		}
	}

	label := s.labels[best]
	score := float32(s.sums[best] / float64(len(s.history)))

	if best != 0 &&
		score >= s.threshold &&
		len(s.history) >= s.minimumCount &&
		(!s.confirmed || timestampMs-s.lastTimestamp >= s.suppressionMs) {
		s.lastLabel = label
		s.lastTimestamp = timestampMs
		s.confirmed = true

		return Result{Label: label, Score: score, IsNewCommand: true}, nil
	}

	return Result{Label: label, Score: score}, nil
}

// Reset forgets the window and the last confirmation.
func (s *Smoother) Reset() {
	s.history = s.history[:0]
	s.lastLabel = s.labels[0]
	s.lastTimestamp = 0
	s.confirmed = false
}

func (s *Smoother) Labels() []string {
	return s.labels
}

// SilenceLabel returns the reserved label at index 0.
func (s *Smoother) SilenceLabel() string {
	return s.labels[0]
}

// LastCommand returns the most recently confirmed label, or the silence label
// when nothing has been confirmed yet.
func (s *Smoother) LastCommand() string {
	return s.lastLabel
}

func (s *Smoother) MinimumTimeBetweenSamples() time.Duration {
	return s.minimumInterval
}
