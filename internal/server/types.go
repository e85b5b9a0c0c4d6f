package server

import (
	"time"

	"darkville/internal/gameclock"
	"darkville/internal/roles"
)

const (
	eventNewGame = "new_game"
	eventDeath   = "death"
)

const (
	causeLynching   = "lynching"
	causeWerewolves = "werewolves"
)

const (
	abilityInvestigate = "investigate"
	abilityProtect     = "protect"
)

// noChoice marks an eligible voter who has not voted yet.
const noChoice = 0

type GameSummary struct {
	ID       string
	JoinCode string
	Started  bool
	TimeID   string
	Players  int
}

// Game is the full aggregate for one running game. All fields are guarded by
// the Store mutex; nothing outside an UpdateGame closure may mutate them.
type Game struct {
	ID       string
	DBID     uint
	JoinCode string

	// Started is false while the lobby gathers players. Start is the game
	// generation marker: a scheduled wake-up carrying a different Start
	// belongs to a superseded game and is ignored.
	Started bool
	Start   time.Time

	Clock      gameclock.Slot
	LastTimeID string

	HostID           int
	PlayerAuthTokens map[int]string
	Players          []Player

	// Votings maps a timeId to its ledger: eligible voter -> chosen target
	// (noChoice until the voter picks someone).
	Votings map[string]map[int]int

	// Investigations and Protections map timeId -> actor -> record.
	Investigations map[string]map[int]Investigation
	Protections    map[string]map[int]int

	// Events holds the append-only per-timeId happenings.
	Events map[string][]Event
}

type Player struct {
	ID       int
	DBID     uint
	Name     string
	Role     roles.Role
	Alive    bool
	IsHost   bool
	JoinedAt time.Time
}

// Investigation is a seer's recorded night action and what it discovered.
type Investigation struct {
	TargetID int
	Role     roles.Role
}

type Event struct {
	Type   string
	UserID int
	Cause  string
}

// deathRecord carries a kill out of a phase transition for persistence and
// notification composition.
type deathRecord struct {
	PlayerID int
	Name     string
	Cause    string
	TimeID   string
}
