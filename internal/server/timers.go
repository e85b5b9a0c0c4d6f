package server

import (
	"time"
)

// scheduleWake arms the single wake-up timer for a game at the next phase
// boundary. The armed callback carries the game generation (its start
// instant) so a restart in the meantime turns the delivery into a no-op.
func (s *Server) scheduleWake(gameID string, start, at time.Time) {
	duration := at.Sub(s.now())
	if duration < 0 {
		duration = 0
	}
	s.timersMu.Lock()
	if existing, ok := s.timers[gameID]; ok {
		existing.Stop()
	}
	s.timers[gameID] = time.AfterFunc(duration, func() {
		s.advanceClock(gameID, start)
	})
	s.timersMu.Unlock()
}

func (s *Server) cancelWakeTimer(gameID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[gameID]; ok {
		timer.Stop()
		delete(s.timers, gameID)
	}
}
