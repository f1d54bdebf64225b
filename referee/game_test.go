package referee

import "testing"

// play alternates points so a close game never ends early.
func play(g *Game, host, guest int) {
	for i := 0; i < max(host, guest); i++ {
		if i < host {
			g.HostScores()
		}
		if i < guest {
			g.GuestScores()
		}
	}
}

func TestGameOver(t *testing.T) {
	tests := []struct {
		host, guest int
		over        bool
		winner      Player
	}{
		{0, 0, false, Host},
		{10, 9, false, Host},
		{11, 9, true, Host},
		{9, 11, true, Guest},
		{11, 10, false, Host},
		{12, 10, true, Host},
		{13, 14, false, Host},
	}

	for _, tt := range tests {
		g := NewGame()
		play(g, tt.host, tt.guest)

		if got := g.IsGameOver(); got != tt.over {
			t.Errorf("%d-%d: IsGameOver() = %v, want %v", tt.host, tt.guest, got, tt.over)
		}

		winner, over := g.Winner()
		if over != tt.over || (over && winner != tt.winner) {
			t.Errorf("%d-%d: Winner() = %s, %v", tt.host, tt.guest, winner, over)
		}
	}
}

func TestNoPointsAfterGameOver(t *testing.T) {
	g := NewGame()
	play(g, 11, 0)

	if g.GuestScores() {
		t.Error("GuestScores() recorded a point after the game ended")
	}
	if host, guest := g.Score(); host != 11 || guest != 0 {
		t.Errorf("score = %d-%d, want 11-0", host, guest)
	}
}

func TestWhoShouldServeNext(t *testing.T) {
	tests := []struct {
		host, guest int
		want        Player
	}{
		{0, 0, Host},
		{1, 0, Host},
		{1, 1, Guest},
		{2, 1, Guest},
		{2, 2, Host},
		{5, 4, Host},
		{10, 9, Guest},
		{10, 10, Host},
		{11, 10, Guest},
		{11, 11, Host},
		{11, 12, Guest},
	}

	for _, tt := range tests {
		g := NewGame()
		play(g, tt.host, tt.guest)

		if got := g.WhoShouldServeNext(); got != tt.want {
			t.Errorf("%d-%d: WhoShouldServeNext() = %s, want %s", tt.host, tt.guest, got, tt.want)
		}
	}
}

func TestCancelLastPoint(t *testing.T) {
	g := NewGame()

	if g.CancelLastPoint() {
		t.Error("CancelLastPoint() on a new game reported a change")
	}

	g.HostScores()
	g.GuestScores()
	g.GuestScores()

	if !g.CancelLastPoint() {
		t.Fatal("CancelLastPoint() reported no change")
	}
	if host, guest := g.Score(); host != 1 || guest != 1 {
		t.Errorf("score = %d-%d, want 1-1", host, guest)
	}

	g.CancelLastPoint()
	g.CancelLastPoint()
	if host, guest := g.Score(); host != 0 || guest != 0 {
		t.Errorf("score = %d-%d, want 0-0", host, guest)
	}
}

func TestReset(t *testing.T) {
	g := NewGame()
	play(g, 4, 7)
	g.Reset()

	if host, guest := g.Score(); host != 0 || guest != 0 {
		t.Errorf("score = %d-%d, want 0-0", host, guest)
	}
	if g.CancelLastPoint() {
		t.Error("history survived Reset()")
	}
	if got := g.String(); got != "Host 0, Guest 0." {
		t.Errorf("String() = %q", got)
	}
}
