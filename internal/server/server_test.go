package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"darkville/internal/roles"
)

func postJSON(t *testing.T, url string, body any) (int, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode, decoded
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode, decoded
}

type testPlayer struct {
	id    int
	token string
}

func joinPlayer(t *testing.T, base, gameID, name string) testPlayer {
	t.Helper()
	status, body := postJSON(t, base+"/api/games/"+gameID+"/join", map[string]any{"name": name})
	if status != http.StatusOK {
		t.Fatalf("join %s: expected 200, got %d", name, status)
	}
	return testPlayer{id: int(body["player_id"].(float64)), token: body["auth_token"].(string)}
}

func TestCreateAndListGames(t *testing.T) {
	s := newTestServer(1)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	status, body := postJSON(t, srv.URL+"/api/games", nil)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	gameID := body["game_id"].(string)
	joinCode := body["join_code"].(string)
	if gameID == "" || joinCode == "" {
		t.Fatalf("expected game_id and join_code, got %v", body)
	}

	status, body = getJSON(t, srv.URL+"/api/games")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	games := body["games"].([]any)
	if len(games) != 1 {
		t.Fatalf("expected 1 game, got %d", len(games))
	}
	entry := games[0].(map[string]any)
	if entry["game_id"] != gameID || entry["started"] != false || entry["time_id"] != "" {
		t.Fatalf("unexpected summary %v", entry)
	}
}

func TestJoinAndSnapshot(t *testing.T) {
	s := newTestServer(1)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	_, created := postJSON(t, srv.URL+"/api/games", nil)
	gameID := created["game_id"].(string)
	joinCode := created["join_code"].(string)

	host := joinPlayer(t, srv.URL, gameID, "ada")
	guest := joinPlayer(t, srv.URL, joinCode, "bob")
	if host.id == guest.id {
		t.Fatal("expected distinct player ids")
	}

	status, body := postJSON(t, srv.URL+"/api/games/"+gameID+"/join", map[string]any{"name": "zz!!"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad name, got %d body=%v", status, body)
	}

	// Rejoining by name re-claims the seat with a fresh token.
	again := joinPlayer(t, srv.URL, gameID, "ADA")
	if again.id != host.id {
		t.Fatalf("expected rejoin to keep player id %d, got %d", host.id, again.id)
	}
	if again.token == host.token {
		t.Fatal("expected a fresh auth token on rejoin")
	}

	status, snap := getJSON(t, srv.URL+"/api/games/"+joinCode)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if snap["started"] != false {
		t.Fatalf("expected an unstarted snapshot, got %v", snap)
	}
	if _, ok := snap["time"]; ok {
		t.Fatal("expected no time block before the game starts")
	}
	players := snap["players"].([]any)
	if len(players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(players))
	}
	for _, raw := range players {
		player := raw.(map[string]any)
		if _, ok := player["role"]; ok {
			t.Fatalf("expected roles hidden for living players, got %v", player)
		}
	}
}

func TestRestartEndpoint(t *testing.T) {
	s := newTestServer(1)
	s.now = func() time.Time { return clock(0, 10, 0) }
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	_, created := postJSON(t, srv.URL+"/api/games", nil)
	gameID := created["game_id"].(string)
	t.Cleanup(func() { s.cancelWakeTimer(gameID) })

	host := joinPlayer(t, srv.URL, gameID, "ada")
	guest := joinPlayer(t, srv.URL, gameID, "bob")
	joinPlayer(t, srv.URL, gameID, "cyn")
	joinPlayer(t, srv.URL, gameID, "dee")

	restartURL := srv.URL + "/api/games/" + gameID + "/restart"
	status, _ := postJSON(t, restartURL, map[string]any{"player_id": guest.id, "auth_token": guest.token})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-host restart, got %d", status)
	}
	status, _ = postJSON(t, restartURL, map[string]any{"player_id": host.id, "auth_token": "wrong"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", status)
	}

	status, body := postJSON(t, restartURL, map[string]any{
		"player_id": host.id, "auth_token": host.token, "n_werewolf": 1,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%v", status, body)
	}
	if body["time_id"] != "day0" {
		t.Fatalf("expected day0, got %v", body["time_id"])
	}

	// New names cannot join a running game.
	status, _ = postJSON(t, srv.URL+"/api/games/"+gameID+"/join", map[string]any{"name": "eve"})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 joining a started game, got %d", status)
	}

	status, snap := getJSON(t, srv.URL+"/api/games/"+gameID)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	timeBlock, ok := snap["time"].(map[string]any)
	if !ok || timeBlock["time_id"] != "day0" || timeBlock["is_day"] != true {
		t.Fatalf("unexpected time block %v", snap["time"])
	}
}

func TestVoteEndpointNeverLeaks(t *testing.T) {
	s := newTestServer(1)
	s.now = func() time.Time { return clock(0, 22, 0) }
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	_, created := postJSON(t, srv.URL+"/api/games", nil)
	gameID := created["game_id"].(string)
	t.Cleanup(func() { s.cancelWakeTimer(gameID) })

	host := joinPlayer(t, srv.URL, gameID, "ada")
	joinPlayer(t, srv.URL, gameID, "bob")
	joinPlayer(t, srv.URL, gameID, "cyn")
	joinPlayer(t, srv.URL, gameID, "dee")

	voteURL := srv.URL + "/api/games/" + gameID + "/vote"

	// Before the game starts every vote is dropped, still with 204.
	status, _ := postJSON(t, voteURL, map[string]any{
		"player_id": host.id, "auth_token": host.token, "target_id": 2,
	})
	if status != http.StatusNoContent {
		t.Fatalf("expected 204 before start, got %d", status)
	}

	postJSON(t, srv.URL+"/api/games/"+gameID+"/restart", map[string]any{
		"player_id": host.id, "auth_token": host.token, "n_werewolf": 1,
	})

	game, _ := s.store.GetGame(gameID)
	if game.LastTimeID != "night0" {
		t.Fatalf("expected night0, got %s", game.LastTimeID)
	}
	var wolf, villager *Player
	for i := range game.Players {
		if game.Players[i].Role == roles.Werewolf {
			wolf = &game.Players[i]
		} else if villager == nil {
			villager = &game.Players[i]
		}
	}
	wolfToken := joinPlayer(t, srv.URL, gameID, wolf.Name).token
	villagerToken := joinPlayer(t, srv.URL, gameID, villager.Name).token

	// A villager cannot vote at night, but the response is identical.
	status, _ = postJSON(t, voteURL, map[string]any{
		"player_id": villager.ID, "auth_token": villagerToken, "target_id": wolf.ID,
	})
	if status != http.StatusNoContent {
		t.Fatalf("expected 204 for an ineligible vote, got %d", status)
	}
	status, _ = postJSON(t, voteURL, map[string]any{
		"player_id": wolf.ID, "auth_token": wolfToken, "target_id": villager.ID,
	})
	if status != http.StatusNoContent {
		t.Fatalf("expected 204 for the werewolf vote, got %d", status)
	}

	ledger := game.Votings["night0"]
	if got := ledger[wolf.ID]; got != villager.ID {
		t.Fatalf("expected the werewolf vote recorded, got %d", got)
	}
	if _, ok := ledger[villager.ID]; ok {
		t.Fatal("expected the villager to be absent from the night ledger")
	}
}

func TestRoleAndInvestigateEndpoints(t *testing.T) {
	s := newTestServer(1)
	s.now = func() time.Time { return clock(0, 22, 0) }
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	_, created := postJSON(t, srv.URL+"/api/games", nil)
	gameID := created["game_id"].(string)
	t.Cleanup(func() { s.cancelWakeTimer(gameID) })

	host := joinPlayer(t, srv.URL, gameID, "ada")
	joinPlayer(t, srv.URL, gameID, "bob")
	joinPlayer(t, srv.URL, gameID, "cyn")
	joinPlayer(t, srv.URL, gameID, "dee")
	postJSON(t, srv.URL+"/api/games/"+gameID+"/restart", map[string]any{
		"player_id": host.id, "auth_token": host.token, "n_werewolf": 1, "n_seer": 1,
	})

	game, _ := s.store.GetGame(gameID)
	var seer, wolf *Player
	for i := range game.Players {
		switch game.Players[i].Role {
		case roles.Seer:
			seer = &game.Players[i]
		case roles.Werewolf:
			wolf = &game.Players[i]
		}
	}
	seerToken := joinPlayer(t, srv.URL, gameID, seer.Name).token

	roleURL := fmt.Sprintf("%s/api/games/%s/role?player_id=%d&auth=%s", srv.URL, gameID, seer.ID, seerToken)
	resp, err := http.Get(fmt.Sprintf("%s/api/games/%s/role?player_id=%d&auth=bogus", srv.URL, gameID, seer.ID))
	if err != nil {
		t.Fatalf("GET role: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with a bad token, got %d", resp.StatusCode)
	}

	status, body := getJSON(t, roleURL)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["role"] != string(roles.Seer) {
		t.Fatalf("expected seer, got %v", body["role"])
	}
	if got := body["investigations"].([]any); len(got) != 0 {
		t.Fatalf("expected no investigations yet, got %v", got)
	}

	status, _ = postJSON(t, srv.URL+"/api/games/"+gameID+"/investigate", map[string]any{
		"player_id": seer.ID, "auth_token": seerToken, "target_id": wolf.ID,
	})
	if status != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", status)
	}

	// The reveal only ever surfaces on the seer's own role endpoint.
	status, body = getJSON(t, roleURL)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	investigations := body["investigations"].([]any)
	if len(investigations) != 1 {
		t.Fatalf("expected 1 investigation, got %v", investigations)
	}
	record := investigations[0].(map[string]any)
	if record["time_id"] != "night0" || int(record["target_id"].(float64)) != wolf.ID || record["role"] != string(roles.Werewolf) {
		t.Fatalf("unexpected investigation %v", record)
	}
}

func TestEventsEndpoint(t *testing.T) {
	s := newTestServer(1)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	_, created := postJSON(t, srv.URL+"/api/games", nil)
	gameID := created["game_id"].(string)
	t.Cleanup(func() { s.cancelWakeTimer(gameID) })

	host := joinPlayer(t, srv.URL, gameID, "ada")
	joinPlayer(t, srv.URL, gameID, "bob")
	joinPlayer(t, srv.URL, gameID, "cyn")
	joinPlayer(t, srv.URL, gameID, "dee")

	s.now = func() time.Time { return clock(0, 10, 0) }
	postJSON(t, srv.URL+"/api/games/"+gameID+"/restart", map[string]any{
		"player_id": host.id, "auth_token": host.token, "n_werewolf": 1,
	})

	game, _ := s.store.GetGame(gameID)
	setRoles(t, s, game, map[string]roles.Role{"cyn": roles.Werewolf})
	wolf := playerByName(t, game, "cyn")
	victim := playerByName(t, game, "dee")

	advanceTo(t, s, game, clock(0, 20, 30))
	if _, err := s.store.UpdateGame(gameID, func(game *Game) error {
		castVote(game, "night0", wolf.ID, victim.ID)
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	advanceTo(t, s, game, clock(1, 8, 30))

	status, body := getJSON(t, srv.URL+"/api/games/"+gameID+"/events")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	events := body["events"].([]any)
	if len(events) != 1 {
		t.Fatalf("expected the night death in the recent window, got %v", events)
	}
	entry := events[0].(map[string]any)
	if entry["type"] != eventDeath || entry["user"] != "dee" || entry["cause"] != causeWerewolves {
		t.Fatalf("unexpected event entry %v", entry)
	}
}
