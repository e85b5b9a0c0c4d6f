package server

import (
	"log"
	"net/http"
	"strconv"

	"darkville/internal/roles"
)

type joinRequest struct {
	Name string `json:"name"`
}

type restartRequest struct {
	PlayerID  int    `json:"player_id"`
	AuthToken string `json:"auth_token"`
	NWerewolf int    `json:"n_werewolf"`
	NSeer     int    `json:"n_seer"`
	NGuardian int    `json:"n_guardian"`
}

type voteRequest struct {
	PlayerID  int    `json:"player_id"`
	AuthToken string `json:"auth_token"`
	TimeID    string `json:"time_id"`
	TargetID  int    `json:"target_id"`
}

type abilityRequest struct {
	PlayerID  int    `json:"player_id"`
	AuthToken string `json:"auth_token"`
	TargetID  int    `json:"target_id"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "create") {
		return
	}
	game := s.store.CreateGame()
	if err := s.persistGame(game); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create game")
		return
	}
	log.Printf("game created game_id=%s join_code=%s", game.ID, game.JoinCode)
	writeJSON(w, http.StatusCreated, map[string]string{
		"game_id":   game.ID,
		"join_code": game.JoinCode,
	})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	summaries := s.store.ListGameSummaries()
	games := make([]map[string]any, 0, len(summaries))
	for _, summary := range summaries {
		games = append(games, map[string]any{
			"game_id":   summary.ID,
			"join_code": summary.JoinCode,
			"started":   summary.Started,
			"time_id":   summary.TimeID,
			"players":   summary.Players,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

func (s *Server) handleGameSubroutes(w http.ResponseWriter, r *http.Request) {
	gameID, action, ok := parseGamePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		switch action {
		case "":
			s.handleGetGame(w, r, gameID)
		case "events":
			s.handleEvents(w, r, gameID)
		case "role":
			s.handleRole(w, r, gameID)
		default:
			http.NotFound(w, r)
		}
	case http.MethodPost:
		switch action {
		case "join":
			s.handleJoin(w, r, gameID)
		case "restart":
			s.handleRestart(w, r, gameID)
		case "vote":
			s.handleVote(w, r, gameID)
		case "investigate":
			s.handleInvestigate(w, r, gameID)
		case "protect":
			s.handleProtect(w, r, gameID)
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request, gameID string) {
	game, ok := s.store.GetGame(gameID)
	if !ok {
		game, ok = s.store.FindGameByJoinCode(gameID)
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot(game))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, gameID string) {
	var entries []map[string]any
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		entries = eventEntries(game, recentEvents(game, game.Clock))
		return nil
	})
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game_id": game.ID,
		"events":  entries,
	})
}

// handleRole returns the caller's own hidden role and investigation results.
// This is the polling channel for the seer: investigate itself replies with
// nothing.
func (s *Server) handleRole(w http.ResponseWriter, r *http.Request, gameID string) {
	playerID, _ := strconv.Atoi(r.URL.Query().Get("player_id"))
	_, _, err := s.store.AuthenticatePlayer(gameID, playerID, r.URL.Query().Get("auth"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var role roles.Role
	investigations := make([]map[string]any, 0)
	_, err = s.store.UpdateGame(gameID, func(game *Game) error {
		if player, ok := findPlayer(game, playerID); ok {
			role = player.Role
		}
		for timeID, bySeer := range game.Investigations {
			if record, ok := bySeer[playerID]; ok {
				investigations = append(investigations, map[string]any{
					"time_id":   timeID,
					"target_id": record.TargetID,
					"role":      string(record.Role),
				})
			}
		}
		return nil
	})
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"player_id":      playerID,
		"role":           string(role),
		"investigations": investigations,
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request, gameID string) {
	if !s.enforceRateLimit(w, r, "join") {
		return
	}
	var req joinRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name, err := validateName(req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	game, player, token, err := s.store.AddPlayer(gameID, name)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err := s.persistPlayer(game, player); err != nil {
		log.Printf("persist player failed game_id=%s player=%s error=%v", game.ID, player.Name, err)
	}
	log.Printf("player joined game_id=%s player_id=%d name=%s", game.ID, player.ID, player.Name)
	writeJSON(w, http.StatusOK, map[string]any{
		"game_id":    game.ID,
		"player_id":  player.ID,
		"auth_token": token,
		"is_host":    player.IsHost,
	})
	s.broadcastGameUpdate(game)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request, gameID string) {
	if !s.enforceRateLimit(w, r, "restart") {
		return
	}
	var req restartRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	game, player, err := s.store.AuthenticatePlayer(gameID, req.PlayerID, req.AuthToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if game.HostID == 0 || player.ID != game.HostID {
		writeError(w, http.StatusForbidden, "only host can restart the game")
		return
	}

	quotas := s.roleQuotas(req)
	game, res, err := s.restartGame(game.ID, quotas)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err := s.persistRestart(game, res); err != nil {
		log.Printf("persist restart failed game_id=%s error=%v", game.ID, err)
	}
	log.Printf("game restarted game_id=%s time_id=%s players=%d", game.ID, res.slot.TimeID(), len(game.Players))
	writeJSON(w, http.StatusOK, map[string]any{
		"game_id": game.ID,
		"time_id": res.slot.TimeID(),
	})
	s.notifyPhaseChange(game, res)
	s.broadcastGameUpdate(game)
}

// roleQuotas maps the restart request onto role quotas, falling back to the
// configured defaults when the request names none.
func (s *Server) roleQuotas(req restartRequest) map[roles.Role]int {
	if req.NWerewolf == 0 && req.NSeer == 0 && req.NGuardian == 0 {
		return map[roles.Role]int{
			roles.Werewolf: s.cfg.NWerewolf,
			roles.Seer:     s.cfg.NSeer,
			roles.Guardian: s.cfg.NGuardian,
		}
	}
	return map[roles.Role]int{
		roles.Werewolf: clampQuota(req.NWerewolf),
		roles.Seer:     clampQuota(req.NSeer),
		roles.Guardian: clampQuota(req.NGuardian),
	}
}

// handleVote casts the caller's lynch or kill vote. The response is 204
// whether or not the vote was eligible: an ineligible vote is dropped
// without a distinguishable error so nothing leaks about roles or phases.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request, gameID string) {
	var req voteRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	_, _, err := s.store.AuthenticatePlayer(gameID, req.PlayerID, req.AuthToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	outcome := rejectedNotEligible
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		timeID := req.TimeID
		if timeID == "" && game.Started {
			timeID = game.Clock.TimeID()
		}
		outcome = castVote(game, timeID, req.PlayerID, req.TargetID)
		if outcome == actionAccepted {
			req.TimeID = timeID
		}
		return nil
	})
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if outcome == actionAccepted {
		if err := s.persistVote(game, req.TimeID, req.PlayerID, req.TargetID); err != nil {
			log.Printf("persist vote failed game_id=%s player_id=%d error=%v", game.ID, req.PlayerID, err)
		}
	}
	writeAccepted(w)
}

func (s *Server) handleInvestigate(w http.ResponseWriter, r *http.Request, gameID string) {
	var req abilityRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	_, _, err := s.store.AuthenticatePlayer(gameID, req.PlayerID, req.AuthToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	outcome := rejectedNotEligible
	var revealed roles.Role
	var timeID string
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if !game.Started {
			return nil
		}
		timeID = game.Clock.TimeID()
		revealed, outcome = investigate(game, game.Clock, req.PlayerID, req.TargetID)
		return nil
	})
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if outcome == actionAccepted {
		if err := s.persistAbility(game, timeID, abilityInvestigate, req.PlayerID, req.TargetID, revealed); err != nil {
			log.Printf("persist ability failed game_id=%s player_id=%d error=%v", game.ID, req.PlayerID, err)
		}
	}
	writeAccepted(w)
}

func (s *Server) handleProtect(w http.ResponseWriter, r *http.Request, gameID string) {
	var req abilityRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	_, _, err := s.store.AuthenticatePlayer(gameID, req.PlayerID, req.AuthToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	outcome := rejectedNotEligible
	var timeID string
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if !game.Started {
			return nil
		}
		timeID = game.Clock.TimeID()
		outcome = protect(game, game.Clock, req.PlayerID, req.TargetID)
		return nil
	})
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if outcome == actionAccepted {
		if err := s.persistAbility(game, timeID, abilityProtect, req.PlayerID, req.TargetID, ""); err != nil {
			log.Printf("persist ability failed game_id=%s player_id=%d error=%v", game.ID, req.PlayerID, err)
		}
	}
	writeAccepted(w)
}
