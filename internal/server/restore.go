package server

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"darkville/internal/db"
	"darkville/internal/gameclock"
	"darkville/internal/roles"
)

// RestoreGames reloads every persisted game into the in-memory store and
// rearms the wake-up timers of the started ones. Missed phase boundaries are
// caught up through the normal transition path, so a game that slept through
// a night still resolves that night's vote on the way back in.
func (s *Server) RestoreGames() error {
	if s.db == nil {
		return nil
	}
	var records []db.Game
	if err := s.db.
		Preload("Players").
		Preload("Votes").
		Preload("Abilities").
		Preload("Events").
		Find(&records).Error; err != nil {
		return err
	}

	restored := 0
	for i := range records {
		game, err := rebuildGame(&records[i])
		if err != nil {
			log.Printf("restore skipped game db_id=%d error=%v", records[i].ID, err)
			continue
		}
		if err := s.store.RestoreGame(game); err != nil {
			log.Printf("restore skipped game game_id=%s error=%v", game.ID, err)
			continue
		}
		restored++
		if game.Started {
			s.advanceClock(game.ID, game.Start)
		}
	}
	if restored > 0 {
		log.Printf("restored %d game(s) from database", restored)
	}
	return nil
}

// rebuildGame reconstructs the in-memory aggregate from its rows. In-memory
// player ids are reassigned; database ids carried in vote, ability and event
// rows are mapped back through the roster.
func rebuildGame(record *db.Game) (*Game, error) {
	game := &Game{
		ID:               fmt.Sprintf("game-%d", record.ID),
		DBID:             record.ID,
		JoinCode:         record.JoinCode,
		Started:          record.Started,
		LastTimeID:       record.TimeID,
		PlayerAuthTokens: make(map[int]string),
		Votings:          make(map[string]map[int]int),
		Investigations:   make(map[string]map[int]Investigation),
		Protections:      make(map[string]map[int]int),
		Events:           make(map[string][]Event),
	}
	if record.Started {
		if record.StartAt == nil {
			return nil, fmt.Errorf("started game without start instant")
		}
		game.Start = *record.StartAt
	}

	players := append([]db.Player{}, record.Players...)
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	byDBID := make(map[uint]int, len(players))
	for i, row := range players {
		role := roles.Role(row.Role)
		if role != "" && !roles.Known(role) {
			return nil, fmt.Errorf("player %q has unknown role %q", row.Name, row.Role)
		}
		player := Player{
			ID:       i + 1,
			DBID:     row.ID,
			Name:     row.Name,
			Role:     role,
			Alive:    row.Alive,
			IsHost:   row.IsHost,
			JoinedAt: row.JoinedAt,
		}
		game.Players = append(game.Players, player)
		byDBID[row.ID] = player.ID
		if row.IsHost {
			game.HostID = player.ID
		}
	}

	for _, row := range record.Votes {
		voter, ok := byDBID[row.VoterID]
		if !ok {
			continue
		}
		if game.Votings[row.TimeID] == nil {
			game.Votings[row.TimeID] = make(map[int]int)
		}
		game.Votings[row.TimeID][voter] = byDBID[row.TargetID]
	}

	for _, row := range record.Abilities {
		actor, ok := byDBID[row.ActorID]
		if !ok {
			continue
		}
		target := byDBID[row.TargetID]
		switch row.Kind {
		case abilityInvestigate:
			if game.Investigations[row.TimeID] == nil {
				game.Investigations[row.TimeID] = make(map[int]Investigation)
			}
			game.Investigations[row.TimeID][actor] = Investigation{
				TargetID: target,
				Role:     roles.Role(row.RevealedRole),
			}
		case abilityProtect:
			if game.Protections[row.TimeID] == nil {
				game.Protections[row.TimeID] = make(map[int]int)
			}
			game.Protections[row.TimeID][actor] = target
		}
	}

	events := append([]db.Event{}, record.Events...)
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	for _, row := range events {
		var payload EventPayload
		if err := json.Unmarshal(row.Payload, &payload); err != nil {
			continue
		}
		event := Event{Type: row.Type, Cause: payload.Cause}
		if payload.User != 0 {
			event.UserID = byDBID[payload.User]
		}
		appendEvent(game, row.TimeID, event)
	}

	if game.Started {
		// The clock is rederived at wake-up; keep a placeholder so reads
		// before the first advance see a sane slot.
		game.Clock = gameclock.At(game.Start, game.Start)
	}
	return game, nil
}
