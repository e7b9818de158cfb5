package handler

import (
	"net/http"
	"strconv"
	"time"

	"aimtrainer/backend/internal/database"
	"aimtrainer/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// region --- DTOs ---

// GameResultResponse is one finished party game from the caller's view.
type GameResultResponse struct {
	GameID       string    `json:"game_id"`
	PartyID      string    `json:"party_id"`
	Mode         string    `json:"mode" example:"gridshot"`
	Difficulty   string    `json:"difficulty" example:"hard"`
	EndReason    string    `json:"end_reason" example:"duration"`
	Rank         int       `json:"rank" example:"1"`
	Score        int       `json:"score" example:"1200"`
	Hits         int       `json:"hits"`
	Misses       int       `json:"misses"`
	ReactionTime float64   `json:"reaction_time"`
	Streak       int       `json:"streak"`
	EndedAt      time.Time `json:"ended_at"`
}

// ChallengeResultResponse is the caller's team placement in a team challenge.
type ChallengeResultResponse struct {
	ChallengeID   string    `json:"challenge_id"`
	PartyID       string    `json:"party_id"`
	ChallengeType string    `json:"challenge_type" example:"team-vs-team"`
	TeamName      string    `json:"team_name" example:"Team 1"`
	Winner        bool      `json:"winner"`
	Rank          int       `json:"rank"`
	Score         int       `json:"score"`
	XP            int       `json:"xp"`
	Points        int       `json:"points"`
	EndedAt       time.Time `json:"ended_at"`
}

func newGameResultResponse(r models.PartyGameResult) GameResultResponse {
	return GameResultResponse{
		GameID:       r.GameID,
		PartyID:      r.PartyID,
		Mode:         r.Mode,
		Difficulty:   r.Difficulty,
		EndReason:    r.EndReason,
		Rank:         r.Rank,
		Score:        r.Score,
		Hits:         r.Hits,
		Misses:       r.Misses,
		ReactionTime: r.ReactionTime,
		Streak:       r.Streak,
		EndedAt:      r.EndedAt,
	}
}

func newChallengeResultResponse(r models.ChallengeResult) ChallengeResultResponse {
	return ChallengeResultResponse{
		ChallengeID:   r.ChallengeID,
		PartyID:       r.PartyID,
		ChallengeType: r.ChallengeType,
		TeamName:      r.TeamName,
		Winner:        r.Winner,
		Rank:          r.Rank,
		Score:         r.Score,
		XP:            r.XP,
		Points:        r.Points,
		EndedAt:       r.EndedAt,
	}
}

// endregion

// ResultHandler serves the result history written by the party engine.
type ResultHandler struct {
	Results *database.ResultRepository
	Log     zerolog.Logger
}

// GetMyResults godoc
// @Summary      My party game results
// @Description  Paginated history of the party games the caller finished, newest first.
// @Tags         results
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(10)
// @Success      200 {object} PaginatedResponse[GameResultResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /users/me/results [get]
func (h *ResultHandler) GetMyResults(c *gin.Context) {
	if h.Results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database unavailable"})
		return
	}
	uid, _ := viewerID(c)
	page, limit := pageParams(c)

	rows, err := Paginate[models.PartyGameResult](h.Results.GameHistory(uid), page, limit)
	if err != nil {
		h.Log.Error().Str("error", eris.ToString(err, true)).Str("user_id", uid).Msg("failed to load game results")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve results"})
		return
	}

	data := make([]GameResultResponse, len(rows.Data))
	for i, r := range rows.Data {
		data[i] = newGameResultResponse(r)
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(data, rows.Meta.TotalItems, page, limit))
}

// GetMyChallengeResults godoc
// @Summary      My team challenge results
// @Description  Paginated history of the team challenges the caller took part in, newest first.
// @Tags         results
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(10)
// @Success      200 {object} PaginatedResponse[ChallengeResultResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /users/me/challenges [get]
func (h *ResultHandler) GetMyChallengeResults(c *gin.Context) {
	if h.Results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database unavailable"})
		return
	}
	uid, _ := viewerID(c)
	page, limit := pageParams(c)

	rows, err := Paginate[models.ChallengeResult](h.Results.ChallengeHistory(uid), page, limit)
	if err != nil {
		h.Log.Error().Str("error", eris.ToString(err, true)).Str("user_id", uid).Msg("failed to load challenge results")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve results"})
		return
	}

	data := make([]ChallengeResultResponse, len(rows.Data))
	for i, r := range rows.Data {
		data[i] = newChallengeResultResponse(r)
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(data, rows.Meta.TotalItems, page, limit))
}

// userIDString is the socket identity of a registered user.
func userIDString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
