package models

import (
	"time"

	"gorm.io/gorm"
)

// ChallengeResult is the placement of one team in a completed team challenge.
type ChallengeResult struct {
	gorm.Model
	ChallengeID   string   `gorm:"size:64;not null;index"`
	PartyID       string   `gorm:"size:64;not null;index"`
	ChallengeType string   `gorm:"size:50;not null"`
	TeamID        string   `gorm:"size:64;not null"`
	TeamName      string   `gorm:"size:100;not null"`
	MemberIDs     []string `gorm:"serializer:json"`
	Winner        bool     `gorm:"not null;default:false"`

	Rank       int `gorm:"not null"`
	Score      int `gorm:"not null;default:0"`
	Multiplier float64
	XP         int
	Points     int

	StartedAt time.Time
	EndedAt   time.Time `gorm:"index"`
}
