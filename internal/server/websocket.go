package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
)

// wsHub tracks the open connections per game, each tagged with the player it
// authenticated as, so notifications can target a recipient set.
type wsHub struct {
	mu    sync.Mutex
	games map[string]map[*websocket.Conn]int
}

func newWSHub() *wsHub {
	return &wsHub{
		games: make(map[string]map[*websocket.Conn]int),
	}
}

func (h *wsHub) Add(gameID string, conn *websocket.Conn, playerID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.games[gameID]
	if group == nil {
		group = make(map[*websocket.Conn]int)
		h.games[gameID] = group
	}
	group[conn] = playerID
}

func (h *wsHub) Remove(gameID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.games[gameID]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.games, gameID)
	}
}

func (h *wsHub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

// Broadcast sends the payload to every connection of the game.
func (h *wsHub) Broadcast(gameID string, payload any) {
	h.sendTo(gameID, nil, payload)
}

// Notify sends the payload only to connections of the given players.
// Fire-and-forget: write failures just drop the connection.
func (h *wsHub) Notify(gameID string, recipients []int, payload any) {
	allowed := make(map[int]bool, len(recipients))
	for _, id := range recipients {
		allowed[id] = true
	}
	h.sendTo(gameID, allowed, payload)
}

func (h *wsHub) sendTo(gameID string, allowed map[int]bool, payload any) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.games[gameID]))
	for conn, playerID := range h.games[gameID] {
		if allowed == nil || allowed[playerID] {
			conns = append(conns, conn)
		}
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(gameID, conn)
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	gameID, ok := parseWebsocketPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	playerID, _ := strconv.Atoi(r.URL.Query().Get("player_id"))
	_, _, err := s.store.AuthenticatePlayer(gameID, playerID, r.URL.Query().Get("auth"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected game_id=%s player_id=%d remote=%s", gameID, playerID, r.RemoteAddr)
	s.ws.Add(gameID, conn, playerID)
	if game, ok := s.store.GetGame(gameID); ok {
		s.ws.Send(conn, s.snapshot(game))
	}
	go s.readWS(gameID, conn)
}

func (s *Server) readWS(gameID string, conn *websocket.Conn) {
	defer s.ws.Remove(gameID, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("ws disconnected game_id=%s error=%v", gameID, err)
			return
		}
	}
}

func (s *Server) broadcastGameUpdate(game *Game) {
	s.ws.Broadcast(game.ID, s.snapshot(game))
}
