package server

import (
	"fmt"
	"strings"
)

// phaseNotice composes the phase-change notification text.
// "Day 3 has started!" when the ended phase had no deaths,
// "Day 3: Ada has died" for one, "Night 2: Ada, Ben and Cas have died"
// for several.
func phaseNotice(label string, deadNames []string) string {
	switch len(deadNames) {
	case 0:
		return fmt.Sprintf("%s has started!", label)
	case 1:
		return fmt.Sprintf("%s: %s has died", label, deadNames[0])
	default:
		head := strings.Join(deadNames[:len(deadNames)-1], ", ")
		return fmt.Sprintf("%s: %s and %s have died", label, head, deadNames[len(deadNames)-1])
	}
}

// notifyPhaseChange delivers the transition notification to everyone alive
// in the new phase plus the players who just died, so the newly dead still
// see their own death announced.
func (s *Server) notifyPhaseChange(game *Game, res transitionResult) {
	names := make([]string, 0, len(res.deaths))
	recipients := make([]int, 0, len(game.Players))
	for _, death := range res.deaths {
		names = append(names, death.Name)
		recipients = append(recipients, death.PlayerID)
	}
	for _, player := range game.Players {
		if player.Alive {
			recipients = append(recipients, player.ID)
		}
	}

	s.ws.Notify(game.ID, recipients, map[string]any{
		"type":    "notification",
		"time_id": res.slot.TimeID(),
		"text":    phaseNotice(res.slot.Label(), names),
	})
}
