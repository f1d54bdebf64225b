package referee

import "fmt"

const (
	winningScore = 11
	winningLead  = 2

	// from 10-10 the serve changes after every point
	deuceScore = winningScore - 1
)

type Player int

const (
	Host Player = iota
	Guest
)

func (p Player) String() string {
	if p == Guest {
		return "Guest"
	}

	return "Host"
}

// Game keeps the score of a single table tennis game. The host serves
// first. It is not safe for concurrent use; Referee serialises access.
type Game struct {
	host    int
	guest   int
	history []Player
}

func NewGame() *Game {
	return &Game{}
}

// HostScores awards a point to the host. Points after the game is over are
// not recorded.
func (g *Game) HostScores() bool {
	return g.score(Host)
}

func (g *Game) GuestScores() bool {
	return g.score(Guest)
}

func (g *Game) score(p Player) bool {
	if g.IsGameOver() {
		return false
	}

	if p == Host {
		g.host++
	} else {
		g.guest++
	}

	g.history = append(g.history, p)

	return true
}

// CancelLastPoint takes back the most recent point. It reports false when
// there is nothing to take back.
func (g *Game) CancelLastPoint() bool {
	if len(g.history) == 0 {
		return false
	}

	last := g.history[len(g.history)-1]
	g.history = g.history[:len(g.history)-1]

	if last == Host {
		g.host--
	} else {
		g.guest--
	}

	return true
}

func (g *Game) Reset() {
	g.host = 0
	g.guest = 0
	g.history = g.history[:0]
}

func (g *Game) Score() (host, guest int) {
	return g.host, g.guest
}

func (g *Game) IsGameOver() bool {
	if g.host < winningScore && g.guest < winningScore {
		return false
	}

	lead := g.host - g.guest
	if lead < 0 {
		lead = -lead
	}

	return lead >= winningLead
}

func (g *Game) Winner() (Player, bool) {
	if !g.IsGameOver() {
		return Host, false
	}

	if g.host > g.guest {
		return Host, true
	}

	return Guest, true
}

// WhoShouldServeNext alternates the serve every two points, and every point
// once both players reach ten.
func (g *Game) WhoShouldServeNext() Player {
	played := g.host + g.guest

	if g.host >= deuceScore && g.guest >= deuceScore {
		if played%2 == 0 {
			return Host
		}

		return Guest
	}

	if (played/2)%2 == 0 {
		return Host
	}

	return Guest
}

func (g *Game) String() string {
	return fmt.Sprintf("Host %d, Guest %d.", g.host, g.guest)
}
