// Package gameclock maps real-world instants onto the day/night slots of a
// running game. A game starts in day 0 or night 0 depending on the start
// instant; slots then alternate day0, night0, day1, night1 and so on.
// Days run 08:00-20:00 local time, nights 20:00-08:00 (hard-coded).
package gameclock

import (
	"fmt"
	"time"
)

const (
	dayStartHour   = 8
	nightStartHour = 20

	// phaseLength is the fixed length of one day or one night phase.
	phaseLength = 12 * time.Hour
)

// Slot is one day or night period of a game.
type Slot struct {
	IsDay  bool
	Number int
	// NextChange is the instant at which this slot ends.
	NextChange time.Time
}

// TimeID returns the unique key for this slot, e.g. "day0" or "night3".
// It keys votings, ability records and events.
func (s Slot) TimeID() string {
	if s.IsDay {
		return fmt.Sprintf("day%d", s.Number)
	}
	return fmt.Sprintf("night%d", s.Number)
}

// Label returns the human-readable name of the slot, e.g. "Day 0".
func (s Slot) Label() string {
	if s.IsDay {
		return fmt.Sprintf("Day %d", s.Number)
	}
	return fmt.Sprintf("Night %d", s.Number)
}

// At derives the slot covering now for a game started at start. Both
// instants are interpreted in start's location; day 0 is anchored at 08:00
// on the calendar day containing start minus eight hours, so a game started
// during the night before 08:00 still opens as night 0.
func At(start, now time.Time) Slot {
	loc := start.Location()
	now = now.In(loc)
	anchor := day0Start(start)

	number := floorDays(now.Sub(anchor))
	hour := now.Hour()
	isDay := dayStartHour <= hour && hour < nightStartHour

	var next time.Time
	if isDay {
		next = nightStart(anchor, number)
	} else {
		next = dayStart(anchor, number+1)
	}
	return Slot{IsDay: isDay, Number: number, NextChange: next}
}

// Previous returns the slot immediately before s in the day/night sequence:
// night n-1 precedes day n, day n precedes night n. Its end instant is s's
// end minus the fixed phase length, the exact inverse of forward derivation.
func Previous(s Slot) Slot {
	if s.IsDay {
		return Slot{IsDay: false, Number: s.Number - 1, NextChange: s.NextChange.Add(-phaseLength)}
	}
	return Slot{IsDay: true, Number: s.Number, NextChange: s.NextChange.Add(-phaseLength)}
}

// day0Start finds 08:00 on the calendar day such that start falls inside
// day 0 or night 0.
func day0Start(start time.Time) time.Time {
	shifted := start.Add(-time.Duration(dayStartHour) * time.Hour)
	return time.Date(shifted.Year(), shifted.Month(), shifted.Day(), dayStartHour, 0, 0, 0, start.Location())
}

// dayStart is the instant day n begins. AddDate keeps the 08:00 wall-clock
// boundary stable across DST shifts.
func dayStart(anchor time.Time, n int) time.Time {
	return anchor.AddDate(0, 0, n)
}

// nightStart is the instant night n begins.
func nightStart(anchor time.Time, n int) time.Time {
	d := anchor.AddDate(0, 0, n)
	return time.Date(d.Year(), d.Month(), d.Day(), nightStartHour, 0, 0, 0, d.Location())
}

func floorDays(elapsed time.Duration) int {
	days := int(elapsed / (24 * time.Hour))
	if elapsed < 0 && elapsed%(24*time.Hour) != 0 {
		days--
	}
	return days
}
