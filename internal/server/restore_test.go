package server

import (
	"testing"

	"darkville/internal/db"
	"darkville/internal/roles"

	"gorm.io/datatypes"
)

func TestRebuildGame(t *testing.T) {
	start := clock(0, 10, 0)
	record := &db.Game{
		ID:       7,
		JoinCode: "abcdef",
		Started:  true,
		StartAt:  &start,
		TimeID:   "night0",
		Players: []db.Player{
			{ID: 12, GameID: 7, Name: "bob", Role: "werewolf", Alive: true},
			{ID: 11, GameID: 7, Name: "ada", Role: "seer", Alive: true, IsHost: true},
			{ID: 13, GameID: 7, Name: "cyn", Role: "citizen", Alive: false},
		},
		Votes: []db.Vote{
			{GameID: 7, TimeID: "night0", VoterID: 12, TargetID: 13},
			{GameID: 7, TimeID: "night0", VoterID: 99, TargetID: 13}, // orphan row
		},
		Abilities: []db.Ability{
			{GameID: 7, TimeID: "night0", Kind: abilityInvestigate, ActorID: 11, TargetID: 12, RevealedRole: "werewolf"},
		},
		Events: []db.Event{
			{ID: 2, GameID: 7, TimeID: "night0", Type: eventDeath, Payload: datatypes.JSON(`{"user":13,"name":"cyn","cause":"werewolves"}`)},
			{ID: 1, GameID: 7, TimeID: "day0", Type: eventNewGame, Payload: datatypes.JSON(`{"time_id":"day0"}`)},
		},
	}

	game, err := rebuildGame(record)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if game.ID != "game-7" || game.DBID != 7 || game.JoinCode != "abcdef" {
		t.Fatalf("unexpected identity %s/%d/%s", game.ID, game.DBID, game.JoinCode)
	}
	if !game.Started || !game.Start.Equal(start) || game.LastTimeID != "night0" {
		t.Fatalf("unexpected clock state %+v", game)
	}

	// Players come back sorted by database id with fresh in-memory ids.
	if len(game.Players) != 3 {
		t.Fatalf("expected 3 players, got %d", len(game.Players))
	}
	ada, bob, cyn := game.Players[0], game.Players[1], game.Players[2]
	if ada.Name != "ada" || ada.ID != 1 || ada.Role != roles.Seer || !ada.IsHost {
		t.Fatalf("unexpected first player %+v", ada)
	}
	if bob.Name != "bob" || bob.ID != 2 || bob.Role != roles.Werewolf {
		t.Fatalf("unexpected second player %+v", bob)
	}
	if cyn.Name != "cyn" || cyn.ID != 3 || cyn.Alive {
		t.Fatalf("unexpected third player %+v", cyn)
	}
	if game.HostID != ada.ID {
		t.Fatalf("expected ada hosting, got %d", game.HostID)
	}

	ledger := game.Votings["night0"]
	if len(ledger) != 1 || ledger[bob.ID] != cyn.ID {
		t.Fatalf("expected only bob's vote restored, got %v", ledger)
	}

	investigation := game.Investigations["night0"][ada.ID]
	if investigation.TargetID != bob.ID || investigation.Role != roles.Werewolf {
		t.Fatalf("unexpected investigation %+v", investigation)
	}

	deaths := game.Events["night0"]
	if len(deaths) != 1 || deaths[0].UserID != cyn.ID || deaths[0].Cause != causeWerewolves {
		t.Fatalf("unexpected night0 events %+v", deaths)
	}
	if events := game.Events["day0"]; len(events) != 1 || events[0].Type != eventNewGame {
		t.Fatalf("unexpected day0 events %+v", events)
	}
}

func TestRebuildGameUnknownRole(t *testing.T) {
	record := &db.Game{
		ID:       5,
		JoinCode: "xyz",
		Players:  []db.Player{{ID: 31, GameID: 5, Name: "ada", Role: "vampire", Alive: true}},
	}
	if _, err := rebuildGame(record); err == nil {
		t.Fatal("expected an error for an unknown stored role")
	}
}

func TestRebuildGameMissingStart(t *testing.T) {
	record := &db.Game{ID: 3, JoinCode: "zzz", Started: true}
	if _, err := rebuildGame(record); err == nil {
		t.Fatal("expected an error for a started game without a start instant")
	}
}

func TestRebuildGameUnstartedLobby(t *testing.T) {
	record := &db.Game{
		ID:       4,
		JoinCode: "qqq",
		Players:  []db.Player{{ID: 21, GameID: 4, Name: "ada", Alive: true, IsHost: true}},
	}
	game, err := rebuildGame(record)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if game.Started || !game.Start.IsZero() {
		t.Fatalf("expected an unstarted lobby, got %+v", game)
	}
	if len(game.Players) != 1 || game.HostID != 1 {
		t.Fatalf("unexpected roster %+v", game.Players)
	}
}
