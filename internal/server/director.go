package server

import (
	"errors"
	"log"
	"time"

	"darkville/internal/gameclock"
	"darkville/internal/roles"
)

// errStaleWake marks a wake-up that belongs to a superseded game generation.
var errStaleWake = errors.New("stale wake-up")

// transitionResult carries what a phase transition did out of the store lock
// for persistence and notification.
type transitionResult struct {
	slot    gameclock.Slot
	changed bool
	newGame bool
	deaths  []deathRecord
}

// advanceClock is the scheduled wake-up handler. start is the game
// generation the timer was armed for; a restart in the meantime makes the
// wake-up a no-op. Duplicate deliveries for the same slot fall through the
// timeId comparison and only reschedule.
func (s *Server) advanceClock(gameID string, start time.Time) {
	var res transitionResult
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if !game.Started || !game.Start.Equal(start) {
			return errStaleWake
		}
		res = s.transition(game)
		return nil
	})
	if err != nil {
		if errors.Is(err, errStaleWake) {
			log.Printf("ignoring stale wake-up game_id=%s start=%s", gameID, start)
		}
		return
	}

	s.scheduleWake(game.ID, start, res.slot.NextChange)
	if !res.changed {
		return
	}
	if err := s.persistTransition(game, res); err != nil {
		log.Printf("persist transition failed game_id=%s error=%v", game.ID, err)
	}
	log.Printf("phase changed game_id=%s time_id=%s deaths=%d", game.ID, res.slot.TimeID(), len(res.deaths))
	s.notifyPhaseChange(game, res)
	s.broadcastGameUpdate(game)
}

// transition derives the current slot and, when the slot actually changed
// since the last wake-up, resolves the phase that just ended and opens the
// next one. Caller holds the store lock.
func (s *Server) transition(game *Game) transitionResult {
	slot := gameclock.At(game.Start, s.now())
	game.Clock = slot
	res := transitionResult{slot: slot}
	if game.LastTimeID == slot.TimeID() {
		return res
	}

	if slot.IsDay {
		res.deaths = s.startDay(game, slot)
	} else {
		res.deaths = s.startNight(game, slot)
	}
	game.LastTimeID = slot.TimeID()
	res.changed = true
	return res
}

// startDay resolves the night that just ended and opens the day's lynch
// vote. Day 0 has nothing to resolve and never holds a lynch vote.
func (s *Server) startDay(game *Game, slot gameclock.Slot) []deathRecord {
	if slot.Number == 0 {
		return nil
	}

	var deaths []deathRecord
	prev := gameclock.Previous(slot)
	target := tallyVotes(game, prev.TimeID(), s.rng)
	if target != noChoice && !isProtected(game, prev.TimeID(), target) {
		if death, ok := kill(game, target, causeWerewolves, prev.TimeID()); ok {
			deaths = append(deaths, death)
		}
	}
	openVoting(game, slot.TimeID(), alivePlayerIDs(game))
	return deaths
}

// startNight resolves the day's lynch (no protection applies) and opens the
// werewolves' kill vote.
func (s *Server) startNight(game *Game, slot gameclock.Slot) []deathRecord {
	var deaths []deathRecord
	if slot.Number > 0 {
		prev := gameclock.Previous(slot)
		if target := tallyVotes(game, prev.TimeID(), s.rng); target != noChoice {
			if death, ok := kill(game, target, causeLynching, prev.TimeID()); ok {
				deaths = append(deaths, death)
			}
		}
	}
	openVoting(game, slot.TimeID(), aliveWerewolfIDs(game))
	return deaths
}

// kill marks the player dead and appends the death event under the timeId of
// the phase that killed them. A player already dead, or unknown, cannot die
// again; the tally result is simply dropped.
func kill(game *Game, playerID int, cause, timeID string) (deathRecord, bool) {
	player, ok := findPlayer(game, playerID)
	if !ok || !player.Alive {
		return deathRecord{}, false
	}
	player.Alive = false
	appendEvent(game, timeID, Event{Type: eventDeath, UserID: playerID, Cause: cause})
	return deathRecord{PlayerID: playerID, Name: player.Name, Cause: cause, TimeID: timeID}, true
}

// restartGame wipes all per-game state and starts a fresh generation: the
// roster is rebuilt alive, roles are assigned from the quotas, the clock is
// anchored at now and the first phase opens synchronously.
func (s *Server) restartGame(gameID string, quotas map[roles.Role]int) (*Game, transitionResult, error) {
	s.cancelWakeTimer(gameID)

	var res transitionResult
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		now := s.now()

		game.Votings = make(map[string]map[int]int)
		game.Investigations = make(map[string]map[int]Investigation)
		game.Protections = make(map[string]map[int]int)
		game.Events = make(map[string][]Event)

		roster := make([]int, 0, len(game.Players))
		for i := range game.Players {
			game.Players[i].Alive = true
			roster = append(roster, game.Players[i].ID)
		}
		assigned := roles.Assign(quotas, roster, s.rng)
		for i := range game.Players {
			game.Players[i].Role = assigned[game.Players[i].ID]
		}

		game.Start = now
		game.Started = true
		game.LastTimeID = ""

		slot := gameclock.At(now, now)
		appendEvent(game, slot.TimeID(), Event{Type: eventNewGame})
		res = s.transition(game)
		res.newGame = true
		return nil
	})
	if err != nil {
		return nil, transitionResult{}, err
	}

	s.scheduleWake(game.ID, game.Start, res.slot.NextChange)
	return game, res, nil
}

func aliveWerewolfIDs(game *Game) []int {
	ids := make([]int, 0, len(game.Players))
	for _, player := range game.Players {
		if player.Alive && player.Role == roles.Werewolf {
			ids = append(ids, player.ID)
		}
	}
	return ids
}
