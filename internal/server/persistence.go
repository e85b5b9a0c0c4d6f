package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"darkville/internal/db"
	"darkville/internal/roles"

	"github.com/jackc/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// EventPayload is the JSON body of a persisted event row. Player references
// use database ids so the row stays meaningful across process restarts.
type EventPayload struct {
	User   uint   `json:"user,omitempty"`
	Name   string `json:"name,omitempty"`
	Cause  string `json:"cause,omitempty"`
	TimeID string `json:"time_id,omitempty"`
}

func (s *Server) persistGame(game *Game) error {
	if s.db == nil {
		return nil
	}
	record := db.Game{
		JoinCode: game.JoinCode,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	game.DBID = record.ID
	newID := fmt.Sprintf("game-%d", record.ID)
	if game.ID != newID {
		s.store.UpdateGameID(game, newID)
	}
	return nil
}

func (s *Server) persistPlayer(game *Game, player *Player) error {
	if s.db == nil {
		return nil
	}
	if player.DBID != 0 {
		return nil
	}
	if game.DBID == 0 {
		if err := s.ensureGameDBID(game); err != nil {
			return err
		}
	}
	if game.DBID == 0 {
		return errors.New("game not found")
	}
	record := db.Player{
		GameID:   game.DBID,
		Name:     player.Name,
		Alive:    true,
		IsHost:   player.IsHost,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := s.findPlayerDBID(game.DBID, player.Name)
			if lookupErr == nil && existing != 0 {
				player.DBID = existing
				return nil
			}
		}
		return err
	}
	player.DBID = record.ID
	return nil
}

// persistRestart wipes the game's prior rows and writes the fresh
// generation: roles, alive flags, clock and the opening events.
func (s *Server) persistRestart(game *Game, res transitionResult) error {
	if s.db == nil {
		return nil
	}
	if game.DBID == 0 {
		if err := s.ensureGameDBID(game); err != nil {
			return err
		}
	}
	if game.DBID == 0 {
		return errors.New("game not found")
	}

	for _, model := range []any{&db.Vote{}, &db.Ability{}, &db.Event{}} {
		if err := s.db.Where("game_id = ?", game.DBID).Delete(model).Error; err != nil {
			return err
		}
	}

	for i := range game.Players {
		player := &game.Players[i]
		if player.DBID == 0 {
			if err := s.persistPlayer(game, player); err != nil {
				return err
			}
		}
		updates := map[string]any{
			"role":  string(player.Role),
			"alive": player.Alive,
		}
		if err := s.db.Model(&db.Player{}).Where("id = ?", player.DBID).Updates(updates).Error; err != nil {
			return err
		}
	}

	start := game.Start
	updates := map[string]any{
		"started":  true,
		"start_at": &start,
		"time_id":  res.slot.TimeID(),
	}
	if err := s.db.Model(&db.Game{}).Where("id = ?", game.DBID).Updates(updates).Error; err != nil {
		return err
	}

	if err := s.persistEvent(game, res.slot.TimeID(), Event{Type: eventNewGame}); err != nil {
		return err
	}
	if err := s.persistDeaths(game, res); err != nil {
		return err
	}
	return s.persistVotingOpened(game, res.slot.TimeID())
}

// persistTransition records a phase boundary: the new clock value, the kills
// it resolved and the ledger it opened.
func (s *Server) persistTransition(game *Game, res transitionResult) error {
	if s.db == nil {
		return nil
	}
	if game.DBID == 0 {
		if err := s.ensureGameDBID(game); err != nil {
			return err
		}
	}
	if game.DBID == 0 {
		return errors.New("game not found")
	}
	if err := s.db.Model(&db.Game{}).Where("id = ?", game.DBID).Update("time_id", res.slot.TimeID()).Error; err != nil {
		return err
	}
	if err := s.persistDeaths(game, res); err != nil {
		return err
	}
	return s.persistVotingOpened(game, res.slot.TimeID())
}

func (s *Server) persistDeaths(game *Game, res transitionResult) error {
	for _, death := range res.deaths {
		player, ok := findPlayer(game, death.PlayerID)
		if !ok || player.DBID == 0 {
			continue
		}
		if err := s.db.Model(&db.Player{}).Where("id = ?", player.DBID).Update("alive", false).Error; err != nil {
			return err
		}
		event := Event{Type: eventDeath, UserID: death.PlayerID, Cause: death.Cause}
		if err := s.persistEvent(game, death.TimeID, event); err != nil {
			return err
		}
	}
	return nil
}

// persistVotingOpened writes the freshly opened ledger as no-choice rows, so
// eligibility survives a process restart.
func (s *Server) persistVotingOpened(game *Game, timeID string) error {
	ledger := game.Votings[timeID]
	for voterID := range ledger {
		player, ok := findPlayer(game, voterID)
		if !ok || player.DBID == 0 {
			continue
		}
		record := db.Vote{
			GameID:   game.DBID,
			TimeID:   timeID,
			VoterID:  player.DBID,
			TargetID: 0,
		}
		if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) persistVote(game *Game, timeID string, voterID, targetID int) error {
	if s.db == nil {
		return nil
	}
	if game.DBID == 0 {
		return nil
	}
	voter, ok := findPlayer(game, voterID)
	if !ok || voter.DBID == 0 {
		return errors.New("player not found")
	}
	targetDBID := uint(0)
	if target, ok := findPlayer(game, targetID); ok {
		targetDBID = target.DBID
	}
	record := db.Vote{
		GameID:   game.DBID,
		TimeID:   timeID,
		VoterID:  voter.DBID,
		TargetID: targetDBID,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}, {Name: "time_id"}, {Name: "voter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"target_id", "updated_at"}),
	}).Create(&record).Error
}

func (s *Server) persistAbility(game *Game, timeID, kind string, actorID, targetID int, revealed roles.Role) error {
	if s.db == nil {
		return nil
	}
	if game.DBID == 0 {
		return nil
	}
	actor, ok := findPlayer(game, actorID)
	if !ok || actor.DBID == 0 {
		return errors.New("player not found")
	}
	targetDBID := uint(0)
	if target, ok := findPlayer(game, targetID); ok {
		targetDBID = target.DBID
	}
	record := db.Ability{
		GameID:       game.DBID,
		TimeID:       timeID,
		Kind:         kind,
		ActorID:      actor.DBID,
		TargetID:     targetDBID,
		RevealedRole: string(revealed),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}, {Name: "time_id"}, {Name: "actor_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"target_id", "revealed_role", "updated_at"}),
	}).Create(&record).Error
}

func (s *Server) persistEvent(game *Game, timeID string, event Event) error {
	if s.db == nil {
		return nil
	}
	payload := EventPayload{Cause: event.Cause, TimeID: timeID}
	if event.UserID != 0 {
		payload.Name = playerName(game, event.UserID)
		if player, ok := findPlayer(game, event.UserID); ok {
			payload.User = player.DBID
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := db.Event{
		GameID:  game.DBID,
		TimeID:  timeID,
		Type:    event.Type,
		Payload: datatypes.JSON(data),
	}
	return s.db.Create(&record).Error
}

func (s *Server) ensureGameDBID(game *Game) error {
	if s.db == nil || game.DBID != 0 {
		return nil
	}
	var record db.Game
	if err := s.db.Where("join_code = ?", game.JoinCode).First(&record).Error; err != nil {
		return nil
	}
	game.DBID = record.ID
	return nil
}

func (s *Server) findPlayerDBID(gameDBID uint, name string) (uint, error) {
	var record db.Player
	if err := s.db.Where("game_id = ? AND name = ?", gameDBID, name).First(&record).Error; err != nil {
		return 0, err
	}
	return record.ID, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
