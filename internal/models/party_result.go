package models

import (
	"time"

	"gorm.io/gorm"
)

// PartyGameResult is one participant's line of a finished party game.
// A game with four players is stored as four rows sharing GameID.
type PartyGameResult struct {
	gorm.Model
	GameID  string `gorm:"size:64;not null;index"`
	PartyID string `gorm:"size:64;not null;index"`
	// UserID is the socket identity, so guests ("guest_<conn>") are kept too.
	UserID   string `gorm:"size:128;not null;index"`
	Username string `gorm:"size:255;not null"`
	IsGuest  bool   `gorm:"not null;default:false"`

	Mode       string `gorm:"size:100"`
	Difficulty string `gorm:"size:50"`
	EndReason  string `gorm:"size:20;not null"`

	Rank         int `gorm:"not null"`
	Score        int `gorm:"not null;default:0"`
	Hits         int `gorm:"not null;default:0"`
	Misses       int `gorm:"not null;default:0"`
	ReactionTime float64
	Streak       int `gorm:"not null;default:0"`

	StartedAt time.Time
	EndedAt   time.Time `gorm:"index"`
}
