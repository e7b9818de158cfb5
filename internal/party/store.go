package party

import (
	"context"
	"time"
)

// GameResult is the outcome of a finished party game.
type GameResult struct {
	PartyID   string
	GameID    string
	Settings  GameSettings
	Reason    EndReason
	StartedAt time.Time
	EndedAt   time.Time
	// Ranked by score, best first.
	Participants []Participant
}

// ChallengeResult is the outcome of a completed team challenge.
type ChallengeResult struct {
	PartyID      string
	ChallengeID  string
	Type         ChallengeType
	WinnerTeamID string
	StartedAt    time.Time
	EndedAt      time.Time
	Teams        []TeamResult
}

// ResultStore persists finished games. The engine calls it after the
// outcome has been broadcast and never while holding its lock.
type ResultStore interface {
	SaveGameResult(ctx context.Context, result GameResult) error
	SaveChallengeResult(ctx context.Context, result ChallengeResult) error
}

// NopStore discards results. It is used when no database is configured.
type NopStore struct{}

func (NopStore) SaveGameResult(context.Context, GameResult) error { return nil }

func (NopStore) SaveChallengeResult(context.Context, ChallengeResult) error { return nil }
