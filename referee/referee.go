// Package referee turns recognised voice commands into table tennis
// scorekeeping.
package referee

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"voice-referee/metrics"
	"voice-referee/recognition"
)

type Action string

const (
	ActionHostPoint  Action = "host_point"
	ActionGuestPoint Action = "guest_point"
	ActionUndo       Action = "undo"
	ActionRestart    Action = "restart"
)

const DefaultMinTimeBetweenPoints = 6 * time.Second

// DefaultActions is the command set of the original app: "yes" for the
// host, "go" for the guest and "stop" to take a point back.
func DefaultActions() map[string]Action {
	return map[string]Action{
		"yes":  ActionHostPoint,
		"go":   ActionGuestPoint,
		"stop": ActionUndo,
	}
}

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionHostPoint, ActionGuestPoint, ActionUndo, ActionRestart:
		return a, nil
	default:
		return "", fmt.Errorf("unknown referee action %q", s)
	}
}

// Score is a point-in-time view of the game.
type Score struct {
	Host     int
	Guest    int
	Server   Player
	GameOver bool
}

type Config struct {
	// Actions maps command labels to what they do. Labels not in the map
	// are ignored. Defaults to DefaultActions().
	Actions map[string]Action

	// MinTimeBetweenPoints rejects a point confirmed too soon after the
	// previous one. Zero uses the default; negative disables the check.
	MinTimeBetweenPoints time.Duration

	// Announce enables spoken-style summaries after every change. They are
	// logged and passed to OnAnnounce.
	Announce   bool
	OnAnnounce func(text string)

	// OnUpdate is called with the new score after every change, on the
	// dispatch goroutine.
	OnUpdate func(Score)

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

type Referee struct {
	actions    map[string]Action
	minGap     time.Duration
	announce   bool
	onAnnounce func(string)
	onUpdate   func(Score)
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu        sync.Mutex
	game      *Game
	lastPoint time.Time
}

var _ recognition.CommandListener = (*Referee)(nil)

func New(cfg *Config) (*Referee, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	actions := cfg.Actions
	if actions == nil {
		actions = DefaultActions()
	}

	for label, action := range actions {
		if _, err := ParseAction(string(action)); err != nil {
			return nil, fmt.Errorf("label %q: %w", label, err)
		}
	}

	minGap := cfg.MinTimeBetweenPoints
	if minGap == 0 {
		minGap = DefaultMinTimeBetweenPoints
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.New(nil)
	}

	return &Referee{
		actions:    actions,
		minGap:     minGap,
		announce:   cfg.Announce,
		onAnnounce: cfg.OnAnnounce,
		onUpdate:   cfg.OnUpdate,
		logger:     logger.With(slog.String("component", "referee")),
		metrics:    m,
		game:       NewGame(),
	}, nil
}

// OnCommand applies the action bound to the event's label.
func (r *Referee) OnCommand(ctx context.Context, event recognition.CommandEvent) {
	action, ok := r.actions[event.Label]
	if !ok {
		r.logger.Debug("Ignoring command", slog.String("label", event.Label))
		return
	}

	r.Apply(action, event.Timestamp)
}

// Apply performs action as if it had been heard at 'at'.
func (r *Referee) Apply(action Action, at time.Time) {
	r.mu.Lock()

	var (
		changed bool
		reason  string
		message string
	)

	switch action {
	case ActionHostPoint, ActionGuestPoint:
		if r.tooSoonLocked(at) {
			reason = "too soon after the previous point"
			break
		}

		if action == ActionHostPoint {
			changed = r.game.HostScores()
		} else {
			changed = r.game.GuestScores()
		}

		if !changed {
			reason = "game is over"
			break
		}

		r.lastPoint = at
		message = r.statusLocked()

	case ActionUndo:
		changed = r.game.CancelLastPoint()
		if !changed {
			reason = "no point to cancel"
			break
		}

		message = "Revert last point. " + r.statusLocked()

	case ActionRestart:
		r.game.Reset()
		r.lastPoint = time.Time{}
		changed = true
		message = "Game restarted."

	default:
		reason = "unknown action"
	}

	score := r.snapshotLocked()
	r.mu.Unlock()

	if !changed {
		r.logger.Info("Referee action ignored",
			slog.String("action", string(action)),
			slog.String("reason", reason),
		)
		r.metrics.RefereeActions.WithLabelValues(string(action), "ignored").Inc()
		return
	}

	r.metrics.RefereeActions.WithLabelValues(string(action), "applied").Inc()

	r.logger.Info("Score updated",
		slog.String("action", string(action)),
		slog.Int("host", score.Host),
		slog.Int("guest", score.Guest),
		slog.String("server", score.Server.String()),
	)

	if r.onUpdate != nil {
		r.onUpdate(score)
	}

	if r.announce {
		r.logger.Info("Announcement", slog.String("text", message))

		if r.onAnnounce != nil {
			r.onAnnounce(message)
		}
	}
}

func (r *Referee) Snapshot() Score {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshotLocked()
}

func (r *Referee) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.game.String()
}

func (r *Referee) tooSoonLocked(at time.Time) bool {
	if r.minGap < 0 || r.lastPoint.IsZero() {
		return false
	}

	return at.Sub(r.lastPoint) < r.minGap
}

func (r *Referee) snapshotLocked() Score {
	host, guest := r.game.Score()

	return Score{
		Host:     host,
		Guest:    guest,
		Server:   r.game.WhoShouldServeNext(),
		GameOver: r.game.IsGameOver(),
	}
}

func (r *Referee) statusLocked() string {
	if winner, over := r.game.Winner(); over {
		return fmt.Sprintf("%s Game is over, %s wins.", r.game, winner)
	}

	return fmt.Sprintf("%s %s serves.", r.game, r.game.WhoShouldServeNext())
}
