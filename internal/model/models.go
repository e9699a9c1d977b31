package model

import (
	"time"

	"gorm.io/datatypes"
)

// Session is a scoring session: four players settling hands one after
// another under one rule table.
type Session struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	PublicID    string `gorm:"uniqueIndex;size:36;not null"`
	JoinCode    string `gorm:"uniqueIndex;size:16;not null"`
	Title       string
	PlayersJSON datatypes.JSON `gorm:"not null"` // ["east","south","west","north"]
	RulesJSON   datatypes.JSON `gorm:"not null"`
	Round       int            `gorm:"default:0;not null"`
	Status      string         `gorm:"default:open;not null"` // open/closed
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HandRecord is one settled hand, stored with its input facts so the
// settlement can be replayed.
type HandRecord struct {
	ID          int64          `gorm:"primaryKey;autoIncrement"`
	PublicID    string         `gorm:"uniqueIndex;size:36;not null"`
	SessionID   int64          `gorm:"index:idx_hand_session_round,unique;not null"`
	Round       int            `gorm:"index:idx_hand_session_round,unique;not null"`
	Multiplier  string         `gorm:"size:8"`
	FactsJSON   datatypes.JSON `gorm:"not null"`
	ScoresJSON  datatypes.JSON `gorm:"not null"`
	DetailsJSON datatypes.JSON
	PlanJSON    datatypes.JSON
	SubmittedBy string
	CreatedAt   time.Time
}

// Standing is a player's running total inside a session.
type Standing struct {
	SessionID int64  `gorm:"primaryKey"`
	Player    string `gorm:"primaryKey;size:64"`
	Total     int64  `gorm:"default:0;not null"`
	Hands     int    `gorm:"default:0;not null"`
	Wins      int    `gorm:"default:0;not null"`
	UpdatedAt time.Time
}

// TransferLog is one surviving transaction of a settled hand.
type TransferLog struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	SessionID int64  `gorm:"index;not null"`
	HandID    int64  `gorm:"index;not null"`
	Round     int    `gorm:"not null"`
	Payer     string `gorm:"size:64;not null"`
	Receiver  string `gorm:"size:64;not null"`
	Amount    int64  `gorm:"not null"`
	Category  string `gorm:"size:32;not null"`
	Reason    string
	Reversed  bool
	CreatedAt time.Time
}
