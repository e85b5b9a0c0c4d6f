package db

import (
	"time"

	"gorm.io/datatypes"
)

type Game struct {
	ID        uint       `gorm:"primaryKey"`
	JoinCode  string     `gorm:"size:12;uniqueIndex;not null"`
	Started   bool       `gorm:"not null;default:false"`
	StartAt   *time.Time `gorm:""`
	TimeID    string     `gorm:"size:32;not null;default:''"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
	Players   []Player
	Votes     []Vote
	Abilities []Ability
	Events    []Event
}

type Player struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"index;not null;uniqueIndex:idx_players_game_name"`
	Name      string    `gorm:"size:64;not null;uniqueIndex:idx_players_game_name"`
	Role      string    `gorm:"size:16;not null;default:''"`
	Alive     bool      `gorm:"not null;default:true"`
	IsHost    bool      `gorm:"not null;default:false"`
	JoinedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Votes     []Vote    `gorm:"foreignKey:VoterID"`
}

// Vote is one voter's current choice within a time slot's ledger. A re-vote
// within the slot updates the row in place.
type Vote struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"index;not null;uniqueIndex:idx_votes_game_time_voter"`
	TimeID    string    `gorm:"size:32;not null;uniqueIndex:idx_votes_game_time_voter"`
	VoterID   uint      `gorm:"not null;uniqueIndex:idx_votes_game_time_voter"`
	TargetID  uint      `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Ability is a special-role action (investigate or protect) recorded for one
// actor within one time slot.
type Ability struct {
	ID           uint      `gorm:"primaryKey"`
	GameID       uint      `gorm:"index;not null;uniqueIndex:idx_abilities_game_time_actor_kind"`
	TimeID       string    `gorm:"size:32;not null;uniqueIndex:idx_abilities_game_time_actor_kind"`
	Kind         string    `gorm:"size:16;not null;uniqueIndex:idx_abilities_game_time_actor_kind"`
	ActorID      uint      `gorm:"not null;uniqueIndex:idx_abilities_game_time_actor_kind"`
	TargetID     uint      `gorm:"not null"`
	RevealedRole string    `gorm:"size:16;not null;default:''"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	GameID    uint           `gorm:"index;not null"`
	TimeID    string         `gorm:"size:32;index;not null"`
	Type      string         `gorm:"size:32;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
