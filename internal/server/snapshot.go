package server

import "time"

// snapshot is the public view of a game sent over the websocket and the GET
// endpoint. Roles stay hidden except for dead players, whose role is
// revealed on death.
func (s *Server) snapshot(game *Game) map[string]any {
	players := make([]map[string]any, 0, len(game.Players))
	for _, player := range game.Players {
		entry := map[string]any{
			"id":      player.ID,
			"name":    player.Name,
			"alive":   player.Alive,
			"is_host": player.IsHost,
		}
		if !player.Alive && player.Role != "" {
			entry["role"] = string(player.Role)
		}
		players = append(players, entry)
	}

	snap := map[string]any{
		"type":      "game",
		"game_id":   game.ID,
		"join_code": game.JoinCode,
		"started":   game.Started,
		"players":   players,
	}
	if game.Started {
		snap["time"] = map[string]any{
			"time_id":     game.Clock.TimeID(),
			"is_day":      game.Clock.IsDay,
			"number":      game.Clock.Number,
			"next_change": game.Clock.NextChange.UTC().Format(time.RFC3339),
		}
	}
	return snap
}

// eventEntries renders events for the narrative endpoint.
func eventEntries(game *Game, events []Event) []map[string]any {
	entries := make([]map[string]any, 0, len(events))
	for _, event := range events {
		entry := map[string]any{"type": event.Type}
		if event.Type == eventDeath {
			entry["user_id"] = event.UserID
			entry["user"] = playerName(game, event.UserID)
			entry["cause"] = event.Cause
		}
		entries = append(entries, entry)
	}
	return entries
}
