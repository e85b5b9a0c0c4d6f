package server

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds every in-memory game aggregate behind a single mutex. All
// reads and writes of game state, including phase transitions driven by
// timers, serialize on it.
type Store struct {
	mu           sync.Mutex
	nextID       int
	nextPlayerID int
	games        map[string]*Game
}

func NewStore() *Store {
	return &Store{
		nextID:       1,
		nextPlayerID: 1,
		games:        make(map[string]*Game),
	}
}

func (s *Store) CreateGame() *Game {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("game-%d", s.nextID)
	s.nextID++
	game := &Game{
		ID:               id,
		JoinCode:         newJoinCode(),
		PlayerAuthTokens: make(map[int]string),
		Votings:          make(map[string]map[int]int),
		Investigations:   make(map[string]map[int]Investigation),
		Protections:      make(map[string]map[int]int),
		Events:           make(map[string][]Event),
	}
	s.games[id] = game
	return game
}

func (s *Store) GetGame(id string) (*Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	return game, ok
}

// UpdateGame runs update with the store lock held. Every state mutation goes
// through here so RPCs and wake-ups never observe a half-applied transition.
func (s *Store) UpdateGame(id string, update func(game *Game) error) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return nil, errors.New("game not found")
	}
	if err := update(game); err != nil {
		return nil, err
	}
	return game, nil
}

func (s *Store) FindGameByJoinCode(code string) (*Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, game := range s.games {
		if game.JoinCode == code {
			return game, true
		}
	}
	return nil, false
}

func (s *Store) UpdateGameID(game *Game, newID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if game.ID == newID {
		return
	}
	delete(s.games, game.ID)
	game.ID = newID
	s.games[newID] = game
	if id := gameSortKey(newID); id >= s.nextID {
		s.nextID = id + 1
	}
}

// AddPlayer joins a player to the lobby, or re-claims an existing seat by
// name (returning a fresh auth token, which is how a player reconnects after
// a server restart). New joins are refused once the game has started.
func (s *Store) AddPlayer(gameIDOrCode, name string) (*Game, *Player, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[gameIDOrCode]
	if !ok {
		for _, candidate := range s.games {
			if candidate.JoinCode == gameIDOrCode {
				game = candidate
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, nil, "", errors.New("game not found")
	}

	for i := range game.Players {
		if strings.EqualFold(game.Players[i].Name, name) {
			player := &game.Players[i]
			token := uuid.NewString()
			game.PlayerAuthTokens[player.ID] = token
			return game, player, token, nil
		}
	}
	if game.Started {
		return nil, nil, "", errors.New("game already started")
	}
	if len(game.Players) >= maxLobbySize {
		return nil, nil, "", errors.New("lobby full")
	}

	player := Player{
		ID:       s.nextPlayerID,
		Name:     name,
		Alive:    true,
		IsHost:   len(game.Players) == 0,
		JoinedAt: time.Now().UTC(),
	}
	s.nextPlayerID++
	game.Players = append(game.Players, player)
	if player.IsHost {
		game.HostID = player.ID
	}
	token := uuid.NewString()
	game.PlayerAuthTokens[player.ID] = token
	return game, &game.Players[len(game.Players)-1], token, nil
}

// AuthenticatePlayer resolves the caller's identity for an inbound action.
func (s *Store) AuthenticatePlayer(gameID string, playerID int, token string) (*Game, *Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[gameID]
	if !ok {
		return nil, nil, errors.New("game not found")
	}
	if playerID <= 0 {
		return nil, nil, errors.New("player_id is required")
	}
	expected, ok := game.PlayerAuthTokens[playerID]
	if !ok || expected == "" {
		return nil, nil, errors.New("authentication required")
	}
	provided := strings.TrimSpace(token)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		return nil, nil, errors.New("invalid player authentication")
	}
	for i := range game.Players {
		if game.Players[i].ID == playerID {
			return game, &game.Players[i], nil
		}
	}
	return nil, nil, errors.New("player not found")
}

// RestoreGame registers a game reloaded from the database. Fails if a game
// with the same id or join code is already running.
func (s *Store) RestoreGame(game *Game) error {
	if game == nil {
		return errors.New("game is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[game.ID]; ok {
		return errors.New("game already running")
	}
	for _, existing := range s.games {
		if existing.JoinCode == game.JoinCode {
			return errors.New("game already running")
		}
	}
	s.games[game.ID] = game
	if id := gameSortKey(game.ID); id >= s.nextID {
		s.nextID = id + 1
	}
	maxPlayerID := 0
	for _, player := range game.Players {
		if player.ID > maxPlayerID {
			maxPlayerID = player.ID
		}
	}
	if maxPlayerID >= s.nextPlayerID {
		s.nextPlayerID = maxPlayerID + 1
	}
	return nil
}

func (s *Store) ListGameSummaries() []GameSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]GameSummary, 0, len(s.games))
	for _, game := range s.games {
		timeID := ""
		if game.Started {
			timeID = game.Clock.TimeID()
		}
		list = append(list, GameSummary{
			ID:       game.ID,
			JoinCode: game.JoinCode,
			Started:  game.Started,
			TimeID:   timeID,
			Players:  len(game.Players),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return gameSortKey(list[i].ID) < gameSortKey(list[j].ID)
	})
	return list
}

func gameSortKey(id string) int {
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return 0
	}
	value, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return value
}

func playerName(game *Game, playerID int) string {
	for i := range game.Players {
		if game.Players[i].ID == playerID {
			return game.Players[i].Name
		}
	}
	return "someone"
}

func alivePlayerIDs(game *Game) []int {
	ids := make([]int, 0, len(game.Players))
	for _, player := range game.Players {
		if player.Alive {
			ids = append(ids, player.ID)
		}
	}
	return ids
}
