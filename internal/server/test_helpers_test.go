package server

import (
	"math/rand/v2"
	"testing"
	"time"

	"darkville/internal/config"
	"darkville/internal/roles"
)

// clock returns an instant on a fixed test day; days offset shifts the date.
func clock(days, hour, min int) time.Time {
	return time.Date(2026, time.March, 10+days, hour, min, 0, 0, time.UTC)
}

func newTestServer(seed uint64) *Server {
	s := New(nil, config.Default())
	s.rng = rand.New(rand.NewPCG(seed, seed))
	return s
}

// newStartedGame creates a lobby with the named players and restarts it at
// the given instant with the given quotas.
func newStartedGame(t *testing.T, s *Server, names []string, quotas map[roles.Role]int, at time.Time) *Game {
	t.Helper()
	game := s.store.CreateGame()
	for _, name := range names {
		if _, _, _, err := s.store.AddPlayer(game.ID, name); err != nil {
			t.Fatalf("add player %s: %v", name, err)
		}
	}
	s.now = func() time.Time { return at }
	game, _, err := s.restartGame(game.ID, quotas)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	t.Cleanup(func() { s.cancelWakeTimer(game.ID) })
	return game
}

// setRoles overrides the randomized assignment so scenarios are exact.
func setRoles(t *testing.T, s *Server, game *Game, byName map[string]roles.Role) {
	t.Helper()
	_, err := s.store.UpdateGame(game.ID, func(game *Game) error {
		for i := range game.Players {
			if role, ok := byName[game.Players[i].Name]; ok {
				game.Players[i].Role = role
			} else {
				game.Players[i].Role = roles.Citizen
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("set roles: %v", err)
	}
}

func playerByName(t *testing.T, game *Game, name string) *Player {
	t.Helper()
	for i := range game.Players {
		if game.Players[i].Name == name {
			return &game.Players[i]
		}
	}
	t.Fatalf("player %s not found", name)
	return nil
}

// advanceTo moves the test clock and fires the wake-up for the game.
func advanceTo(t *testing.T, s *Server, game *Game, at time.Time) {
	t.Helper()
	s.now = func() time.Time { return at }
	s.advanceClock(game.ID, game.Start)
}
