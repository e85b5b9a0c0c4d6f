package server

import "darkville/internal/gameclock"

// appendEvent adds an event to the slot's append-only record.
func appendEvent(game *Game, timeID string, event Event) {
	game.Events[timeID] = append(game.Events[timeID], event)
}

// eventsAt returns the events recorded for a slot in insertion order,
// empty when nothing happened.
func eventsAt(game *Game, timeID string) []Event {
	return game.Events[timeID]
}

// recentEvents returns the previous slot's events followed by the current
// slot's, newest first. This is the window the narrative view shows: the
// deaths of the phase that just ended live under the previous timeId.
func recentEvents(game *Game, slot gameclock.Slot) []Event {
	prev := gameclock.Previous(slot)
	combined := append([]Event{}, eventsAt(game, prev.TimeID())...)
	combined = append(combined, eventsAt(game, slot.TimeID())...)
	for i, j := 0, len(combined)-1; i < j; i, j = i+1, j-1 {
		combined[i], combined[j] = combined[j], combined[i]
	}
	return combined
}
