package server

import (
	"darkville/internal/gameclock"
	"darkville/internal/roles"
)

// investigate records a seer's night action and returns the target's role.
// It is refused, without a trace, unless it is night, the actor is a living
// seer, the actor has not investigated during this slot yet, and the target
// is a known player.
func investigate(game *Game, slot gameclock.Slot, actorID, targetID int) (roles.Role, actionOutcome) {
	if slot.IsDay {
		return "", rejectedNotNight
	}
	actor, ok := findPlayer(game, actorID)
	if !ok || !actor.Alive || actor.Role != roles.Seer {
		return "", rejectedWrongRole
	}
	timeID := slot.TimeID()
	if _, ok := game.Investigations[timeID][actorID]; ok {
		return "", rejectedAlreadyUsed
	}
	target, ok := findPlayer(game, targetID)
	if !ok {
		return "", rejectedUnknownTarget
	}

	if game.Investigations[timeID] == nil {
		game.Investigations[timeID] = make(map[int]Investigation)
	}
	game.Investigations[timeID][actorID] = Investigation{TargetID: targetID, Role: target.Role}
	return target.Role, actionAccepted
}

// protect records a guardian's night action. The one cross-night rule is
// that the guardian cannot protect the same player on two nights in a row;
// re-protecting within the current night just moves the shield.
func protect(game *Game, slot gameclock.Slot, actorID, targetID int) actionOutcome {
	if slot.IsDay {
		return rejectedNotNight
	}
	actor, ok := findPlayer(game, actorID)
	if !ok || !actor.Alive || actor.Role != roles.Guardian {
		return rejectedWrongRole
	}
	if _, ok := findPlayer(game, targetID); !ok {
		return rejectedUnknownTarget
	}

	// Two phases back from a night slot is the previous night.
	prevNight := gameclock.Previous(gameclock.Previous(slot))
	if game.Protections[prevNight.TimeID()][actorID] == targetID {
		return rejectedRepeatTarget
	}

	timeID := slot.TimeID()
	if game.Protections[timeID] == nil {
		game.Protections[timeID] = make(map[int]int)
	}
	game.Protections[timeID][actorID] = targetID
	return actionAccepted
}

// isProtected reports whether any guardian's protect record for the slot
// names the target.
func isProtected(game *Game, timeID string, targetID int) bool {
	for _, target := range game.Protections[timeID] {
		if target == targetID {
			return true
		}
	}
	return false
}

func findPlayer(game *Game, playerID int) (*Player, bool) {
	for i := range game.Players {
		if game.Players[i].ID == playerID {
			return &game.Players[i], true
		}
	}
	return nil, false
}
