package database

import (
	"context"

	"aimtrainer/backend/internal/models"
	"aimtrainer/backend/internal/party"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// ResultRepository stores finished party games and team challenges.
type ResultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// GameResultRows flattens a game into one row per participant. Participants
// are already ranked, so the slice index is the placement.
func GameResultRows(r party.GameResult) []models.PartyGameResult {
	rows := make([]models.PartyGameResult, len(r.Participants))
	for i, p := range r.Participants {
		rows[i] = models.PartyGameResult{
			GameID:       r.GameID,
			PartyID:      r.PartyID,
			UserID:       p.UserID,
			Username:     p.Username,
			IsGuest:      p.IsGuest,
			Mode:         r.Settings.Mode,
			Difficulty:   r.Settings.Difficulty,
			EndReason:    string(r.Reason),
			Rank:         i + 1,
			Score:        p.Score,
			Hits:         p.Hits,
			Misses:       p.Misses,
			ReactionTime: p.ReactionTime,
			Streak:       p.Streak,
			StartedAt:    r.StartedAt,
			EndedAt:      r.EndedAt,
		}
	}
	return rows
}

// ChallengeResultRows flattens a challenge into one row per team.
func ChallengeResultRows(r party.ChallengeResult) []models.ChallengeResult {
	rows := make([]models.ChallengeResult, len(r.Teams))
	for i, t := range r.Teams {
		rows[i] = models.ChallengeResult{
			ChallengeID:   r.ChallengeID,
			PartyID:       r.PartyID,
			ChallengeType: string(r.Type),
			TeamID:        t.TeamID,
			TeamName:      t.TeamName,
			MemberIDs:     t.MemberIDs,
			Winner:        t.TeamID == r.WinnerTeamID,
			Rank:          t.Rank,
			Score:         t.Score,
			Multiplier:    t.Multiplier,
			XP:            t.XP,
			Points:        t.Points,
			StartedAt:     r.StartedAt,
			EndedAt:       r.EndedAt,
		}
	}
	return rows
}

func (r *ResultRepository) SaveGameResult(ctx context.Context, result party.GameResult) error {
	rows := GameResultRows(result)
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return eris.Wrapf(err, "failed to save game %s", result.GameID)
	}
	return nil
}

func (r *ResultRepository) SaveChallengeResult(ctx context.Context, result party.ChallengeResult) error {
	rows := ChallengeResultRows(result)
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return eris.Wrapf(err, "failed to save challenge %s", result.ChallengeID)
	}
	return nil
}

// GameHistory scopes party game results to one player, newest first. The
// returned query is safe to reuse for a count and a page fetch.
func (r *ResultRepository) GameHistory(userID string) *gorm.DB {
	return r.db.Model(&models.PartyGameResult{}).
		Where("user_id = ?", userID).
		Order("ended_at DESC").
		Session(&gorm.Session{})
}

// ChallengeHistory scopes team challenge results to those a player was in.
func (r *ResultRepository) ChallengeHistory(userID string) *gorm.DB {
	return r.db.Model(&models.ChallengeResult{}).
		Where("member_ids LIKE ?", "%\""+userID+"\"%").
		Order("ended_at DESC").
		Session(&gorm.Session{})
}

// UserProfile loads a registered user by id. The error wraps
// gorm.ErrRecordNotFound for unknown ids.
func UserProfile(db *gorm.DB, userID uint) (models.User, error) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return models.User{}, eris.Wrapf(err, "user %d not found", userID)
	}
	return user, nil
}
